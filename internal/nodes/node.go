package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// Ошибки нод.
var (
	// ErrKindNotFound — тип ноды не найден в реестре.
	ErrKindNotFound = errors.New("node kind not found")

	// ErrMissingInput — не передан обязательный вход.
	ErrMissingInput = errors.New("missing required input")

	// ErrInvalidInput — вход имеет неподходящее значение.
	ErrInvalidInput = errors.New("invalid input value")

	// ErrNodeCancelled — выполнение ноды отменено.
	ErrNodeCancelled = errors.New("node execution cancelled")
)

// Node — интерфейс для типов нод.
//
// Каждый тип ноды (textInput, modelSelector, output) реализует этот интерфейс.
type Node interface {
	// Kind возвращает тип ноды (значение class_type в workflow).
	Kind() string

	// Info возвращает описание входов и выходов ноды.
	Info() Info

	// Execute выполняет ноду и возвращает выходы в порядке Info().Outputs.
	// Нода должна проверять ctx.Done() в долгих операциях.
	Execute(ctx context.Context, in Inputs) ([]domain.Value, error)
}

// Info — метаданные ноды.
type Info struct {
	// Required — обязательные входы.
	Required map[string]InputSpec

	// Optional — необязательные входы.
	Optional map[string]InputSpec

	// Outputs — типы выходов по слотам.
	Outputs []domain.ValueType

	// Category — группа ноды для клиента.
	Category string
}

// InputSpec — описание одного входа.
type InputSpec struct {
	// Type — ожидаемый тип значения.
	Type domain.ValueType

	// Default — значение по умолчанию (nil — нет значения по умолчанию).
	Default any
}

// Input возвращает описание входа по имени (среди обязательных и необязательных).
func (i Info) Input(name string) (InputSpec, bool) {
	if spec, ok := i.Required[name]; ok {
		return spec, true
	}
	spec, ok := i.Optional[name]
	return spec, ok
}

// PrimaryOutput возвращает тип первого выхода или "" если выходов нет.
func (i Info) PrimaryOutput() domain.ValueType {
	if len(i.Outputs) == 0 {
		return ""
	}
	return i.Outputs[0]
}

// Inputs — разрешённые входы ноды: литералы как есть, ссылки — данными выхода источника.
//
// Неразрешённые ссылки в Inputs отсутствуют.
type Inputs map[string]any

// Has проверяет, передан ли вход.
func (in Inputs) Has(name string) bool {
	_, ok := in[name]
	return ok
}

// String извлекает строковый вход.
func (in Inputs) String(name string) (string, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: expected string, got %T", ErrInvalidInput, name, v)
	}
	return s, nil
}

// StringOr извлекает строковый вход или возвращает def, если вход не передан.
func (in Inputs) StringOr(name, def string) (string, error) {
	if v, ok := in[name]; !ok || v == nil {
		return def, nil
	}
	return in.String(name)
}

// IntOr извлекает целочисленный вход или возвращает def, если вход не передан.
// Числа из workflow приходят как json.Number и допускаются, только если они целые.
func (in Inputs) IntOr(name string, def int) (int, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %s: expected integer, got %s", ErrInvalidInput, name, n)
		}
		return int(f), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s: expected integer, got %v", ErrInvalidInput, name, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %s: expected integer, got %T", ErrInvalidInput, name, v)
}

// Image извлекает вход-изображение.
func (in Inputs) Image(name string) (*domain.Image, error) {
	v, ok := in[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	img, ok := v.(*domain.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s: expected image, got %T", ErrInvalidInput, name, v)
	}
	return img, nil
}

// single возвращает результат из одного значения.
func single(t domain.ValueType, data any) []domain.Value {
	return []domain.Value{domain.NewValue(t, data)}
}

// cancelled оборачивает ошибку контекста.
func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
}
