package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

// handlePromptQueued обрабатывает событие о новом run из очереди prompts.queued.
func (w *Worker) handlePromptQueued(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.PromptQueuedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse prompt.queued payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrDiscard, err)
	}

	w.logger.Debug("received prompt.queued event", "run_id", payload.RunID)

	if err := w.processRun(ctx, payload.RunID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrRunNotPending) {
			w.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// processRun захватывает run, выполняет workflow и сохраняет результат.
//
// Ошибка выполнения workflow не считается ошибкой воркера: run
// сохраняется в статусе FAILED и nil возвращается вызывающему.
func (w *Worker) processRun(ctx context.Context, runID uuid.UUID) error {
	// 1. Захватываем run (PENDING → RUNNING)
	run, err := w.runs.Claim(ctx, runID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		case errors.Is(err, repo.ErrInvalidState):
			return fmt.Errorf("%w: %s", ErrRunNotPending, runID)
		default:
			return fmt.Errorf("claim run: %w", err)
		}
	}

	logger := telemetry.WithRunID(w.logger, run.ID.String())
	logger.Info("run started", "nodes", len(run.Workflow))

	// 2. Выполняем: у каждого вызова собственное состояние
	result, execErr := w.runner.Run(telemetry.WithLogger(ctx, logger), run.Workflow)

	// 3. Сохраняем результат
	if execErr != nil {
		run.MarkFailed(string(executor.KindOf(execErr)), execErr.Error())
		logger.Warn("run failed",
			"kind", run.ErrorKind,
			"duration", run.Duration(),
			"error", execErr,
		)
	} else {
		warnings := result.Warnings
		if warnings == nil {
			warnings = []domain.UnresolvedInput{}
		}
		run.MarkSucceeded(result.Order, domain.SerializeOutputs(result.Outputs), warnings)
		logger.Info("run succeeded",
			"duration", run.Duration(),
			"warnings", len(warnings),
		)
	}

	if err := w.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to %s: %w", run.Status, err)
	}

	return nil
}
