package executor

import (
	"errors"
	"fmt"
)

// ErrorKind — класс ошибки выполнения.
type ErrorKind string

const (
	// KindCircularDependency — граф содержит цикл (уровень графа).
	KindCircularDependency ErrorKind = "CIRCULAR_DEPENDENCY"

	// KindUnknownNodeKind — тип ноды не зарегистрирован.
	KindUnknownNodeKind ErrorKind = "UNKNOWN_NODE_KIND"

	// KindNodeInvocation — нода вернула ошибку или пустой результат.
	KindNodeInvocation ErrorKind = "NODE_INVOCATION"

	// KindInputTypeMismatch — тип значения по ссылке не подходит входу.
	KindInputTypeMismatch ErrorKind = "INPUT_TYPE_MISMATCH"

	// KindUnresolvedInput — неразрешённая ссылка (только в строгом режиме).
	KindUnresolvedInput ErrorKind = "UNRESOLVED_INPUT"
)

// IsGraphLevel возвращает true для ошибок, относящихся к графу целиком.
func (k ErrorKind) IsGraphLevel() bool {
	return k == KindCircularDependency
}

// Ошибки выполнения.
var (
	// ErrEmptyResult — нода объявила выходы, но ничего не вернула.
	ErrEmptyResult = errors.New("node returned no outputs")

	// ErrTypeMismatch — значение по ссылке имеет неподходящий тип.
	ErrTypeMismatch = errors.New("input type mismatch")

	// ErrUnresolvedInput — источник ссылки не произвёл выход.
	ErrUnresolvedInput = errors.New("unresolved input link")
)

// ExecutionError — ошибка, прервавшая запуск workflow.
//
// Для ошибок уровня графа NodeID пустой.
type ExecutionError struct {
	Kind     ErrorKind // класс ошибки
	NodeID   string    // ID ноды (пусто для ошибок графа)
	NodeKind string    // тип ноды
	Detail   string    // описание для клиента
	Err      error     // исходная ошибка
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: node %s (%s): %s", e.Kind, e.NodeID, e.NodeKind, e.Detail)
}

// Unwrap возвращает исходную ошибку.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// newNodeError создаёт ошибку уровня ноды.
func newNodeError(kind ErrorKind, nodeID, nodeKind string, err error) *ExecutionError {
	return &ExecutionError{
		Kind:     kind,
		NodeID:   nodeID,
		NodeKind: nodeKind,
		Detail:   err.Error(),
		Err:      err,
	}
}

// KindOf возвращает класс ошибки выполнения или "" если err не ExecutionError.
func KindOf(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return ""
}
