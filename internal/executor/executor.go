package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/engine"
	"github.com/shaiso/Nodeflow/internal/nodes"
)

// NodeSource — источник реализаций нод по типу (обычно *nodes.Registry).
type NodeSource interface {
	Get(kind string) (nodes.Node, error)
}

// Executor выполняет workflow.
//
// Executor не хранит состояние между запусками и может использоваться
// из нескольких горутин: каждый вызов Run получает собственные граф,
// порядок и хранилище выходов. Внутри одного запуска ноды выполняются
// строго последовательно.
type Executor struct {
	nodes       NodeSource
	observer    Observer
	strictLinks bool
}

// Config — конфигурация Executor.
type Config struct {
	// Nodes — реестр нод.
	Nodes NodeSource

	// Observer — получатель событий (nil — события не отправляются).
	Observer Observer

	// StrictLinks — неразрешённая ссылка прерывает запуск с UNRESOLVED_INPUT.
	// По умолчанию вход пропускается с предупреждением.
	StrictLinks bool
}

// Result — результат успешного запуска.
type Result struct {
	// Order — порядок выполнения нод.
	Order []string

	// Outputs — основной выход каждой ноды (node_id → значение).
	Outputs map[string]domain.Value

	// Warnings — неразрешённые ссылки в порядке обнаружения.
	Warnings []domain.UnresolvedInput
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	return &Executor{
		nodes:       cfg.Nodes,
		observer:    observer,
		strictLinks: cfg.StrictLinks,
	}
}

// Run выполняет workflow и возвращает выходы всех нод.
//
// Порядок:
//  1. Построение графа зависимостей
//  2. Топологическая сортировка (цикл → CIRCULAR_DEPENDENCY)
//  3. Для каждой ноды по порядку: поиск типа, разрешение входов, вызов,
//     сохранение первого выхода
//
// Любая ошибка ноды прерывает запуск; частичные выходы не возвращаются.
// Ошибки всегда имеют тип *ExecutionError.
func (e *Executor) Run(ctx context.Context, wf domain.Workflow) (*Result, error) {
	start := time.Now()
	e.observer.RunStarted(ctx, len(wf))

	res, err := e.run(ctx, wf)

	e.observer.RunFinished(ctx, res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Executor) run(ctx context.Context, wf domain.Workflow) (*Result, error) {
	st := newRunState(wf)

	st.build()
	if err := st.order(); err != nil {
		return nil, graphError(err)
	}

	for i, nodeID := range st.Order {
		st.advance(i)

		if err := e.executeNode(ctx, st, nodeID); err != nil {
			st.fail()
			return nil, err
		}
	}

	return st.complete(), nil
}

// executeNode выполняет одну ноду и сохраняет её выход.
func (e *Executor) executeNode(ctx context.Context, st *runState, nodeID string) error {
	desc := st.Workflow[nodeID]
	ev := NodeEvent{
		NodeID: nodeID,
		Kind:   desc.Kind,
		Index:  st.index,
		Total:  len(st.Order),
	}

	node, err := e.nodes.Get(desc.Kind)
	if err != nil {
		execErr := newNodeError(KindUnknownNodeKind, nodeID, desc.Kind, err)
		e.observer.NodeFailed(ctx, ev, execErr, 0)
		return execErr
	}

	info := node.Info()
	e.observer.NodeStarted(ctx, ev)
	start := time.Now()

	in, err := e.resolveInputs(ctx, st, ev, desc, info)
	if err != nil {
		e.observer.NodeFailed(ctx, ev, err, time.Since(start))
		return err
	}

	values, err := node.Execute(ctx, in)
	if err != nil {
		execErr := newNodeError(KindNodeInvocation, nodeID, desc.Kind, err)
		e.observer.NodeFailed(ctx, ev, execErr, time.Since(start))
		return execErr
	}

	out, err := primaryOutput(info, values)
	if err != nil {
		execErr := newNodeError(KindNodeInvocation, nodeID, desc.Kind, err)
		e.observer.NodeFailed(ctx, ev, execErr, time.Since(start))
		return execErr
	}

	st.record(nodeID, out)
	e.observer.NodeCompleted(ctx, ev, out, time.Since(start))
	return nil
}

// graphError оборачивает ошибку планировщика.
func graphError(err error) *ExecutionError {
	var cycleErr *engine.CircularDependencyError
	if errors.As(err, &cycleErr) {
		return &ExecutionError{
			Kind:   KindCircularDependency,
			Detail: fmt.Sprintf("circular dependency among nodes %v", cycleErr.Remaining),
			Err:    err,
		}
	}
	return &ExecutionError{Kind: KindCircularDependency, Detail: err.Error(), Err: err}
}
