package executor

import (
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/engine"
)

// Phase — фаза выполнения запуска.
type Phase string

const (
	PhasePending    Phase = "PENDING"
	PhaseGraphBuilt Phase = "GRAPH_BUILT"
	PhaseOrdered    Phase = "ORDERED"
	PhaseExecuting  Phase = "EXECUTING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
)

// runState — состояние одного запуска.
//
// Создаётся на каждый вызов Run и не разделяется между запусками:
// граф, порядок и хранилище выходов принадлежат только этому запуску.
// Запуск выполняется последовательно, поэтому синхронизация не нужна.
type runState struct {
	// Workflow — исходный workflow.
	Workflow domain.Workflow

	// Graph — граф зависимостей.
	Graph *engine.Graph

	// Order — порядок выполнения.
	Order []string

	// phase — текущая фаза.
	phase Phase

	// index — позиция текущей ноды в Order во время EXECUTING.
	index int

	// outputs — хранилище выходов (node_id → значение), только добавление.
	outputs map[string]domain.Value

	// warnings — неразрешённые ссылки.
	warnings []domain.UnresolvedInput
}

// newRunState создаёт состояние запуска в фазе PENDING.
func newRunState(wf domain.Workflow) *runState {
	return &runState{
		Workflow: wf,
		phase:    PhasePending,
		index:    -1,
		outputs:  make(map[string]domain.Value, len(wf)),
		warnings: make([]domain.UnresolvedInput, 0),
	}
}

// build строит граф: PENDING → GRAPH_BUILT.
func (s *runState) build() {
	s.Graph = engine.BuildGraph(s.Workflow)
	s.phase = PhaseGraphBuilt
}

// order вычисляет порядок: GRAPH_BUILT → ORDERED.
func (s *runState) order() error {
	order, err := engine.TopologicalOrder(s.Graph)
	if err != nil {
		s.phase = PhaseFailed
		return err
	}
	s.Order = order
	s.phase = PhaseOrdered
	return nil
}

// advance переходит к ноде с индексом i: EXECUTING(i).
func (s *runState) advance(i int) {
	s.index = i
	s.phase = PhaseExecuting
}

// lookup возвращает выход ноды из хранилища.
func (s *runState) lookup(nodeID string) (domain.Value, bool) {
	v, ok := s.outputs[nodeID]
	return v, ok
}

// record сохраняет выход ноды. Повторная запись игнорируется.
func (s *runState) record(nodeID string, v domain.Value) {
	if _, exists := s.outputs[nodeID]; exists {
		return
	}
	s.outputs[nodeID] = v
}

// warn добавляет предупреждение о неразрешённой ссылке.
func (s *runState) warn(w domain.UnresolvedInput) {
	s.warnings = append(s.warnings, w)
}

// complete завершает запуск: EXECUTING → COMPLETED.
func (s *runState) complete() *Result {
	s.phase = PhaseCompleted
	return &Result{
		Order:    s.Order,
		Outputs:  s.outputs,
		Warnings: s.warnings,
	}
}

// fail переводит запуск в FAILED. Частичные выходы отбрасываются.
func (s *runState) fail() {
	s.phase = PhaseFailed
	s.outputs = nil
}

// Phase возвращает текущую фазу.
func (s *runState) Phase() Phase {
	return s.phase
}
