package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки разбора workflow.
var (
	// ErrMalformedWorkflow — workflow структурно некорректен.
	ErrMalformedWorkflow = errors.New("malformed workflow")

	// ErrEmptyNodeID — нода с пустым идентификатором.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrEmptyKind — у ноды не указан class_type.
	ErrEmptyKind = errors.New("node has empty class_type")
)

// Ошибки графа.
var (
	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("circular dependency detected")
)

// MalformedWorkflowError — структурная ошибка workflow с контекстом.
//
// Возникает до запуска движка: транспорт отвечает на неё отдельным статусом.
type MalformedWorkflowError struct {
	NodeID  string // ID ноды, где произошла ошибка (может быть пустым)
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *MalformedWorkflowError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *MalformedWorkflowError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedWorkflow}
	}
	return []error{ErrMalformedWorkflow, e.Err}
}

// NewMalformedWorkflowError создаёт новую ошибку структуры workflow.
func NewMalformedWorkflowError(nodeID, field, message string, err error) *MalformedWorkflowError {
	return &MalformedWorkflowError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// CircularDependencyError — граф содержит цикл, полный порядок построить нельзя.
//
// Ошибка относится к графу целиком, а не к конкретной ноде:
// Remaining перечисляет ноды, которые остались неупорядоченными
// (участники цикла и всё, что от них зависит).
type CircularDependencyError struct {
	Remaining []string
	Total     int
}

// Error реализует интерфейс error.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: ordered %d of %d nodes, unresolved: [%s]",
		ErrCyclicDependency, e.Total-len(e.Remaining), e.Total, strings.Join(e.Remaining, ", "))
}

// Unwrap возвращает базовую ошибку.
func (e *CircularDependencyError) Unwrap() error {
	return ErrCyclicDependency
}
