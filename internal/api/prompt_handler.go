package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/engine"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

// PostPrompt выполняет workflow синхронно.
// POST /prompt
func (h *Handler) PostPrompt(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.decodePrompt(w, r)
	if !ok {
		return
	}

	run := domain.NewRun(wf)
	run.MarkRunning()
	h.saveRun(r.Context(), run, true)

	logger := telemetry.WithRunID(h.logger, run.ID.String())
	ctx := telemetry.WithLogger(r.Context(), logger)

	result, err := h.runner.Run(ctx, wf)
	if err != nil {
		run.MarkFailed(string(executor.KindOf(err)), err.Error())
		h.saveRun(ctx, run, false)
		failExecution(w, logger, err)
		return
	}

	outputs := domain.SerializeOutputs(result.Outputs)
	warnings := result.Warnings
	if warnings == nil {
		warnings = []domain.UnresolvedInput{}
	}

	run.MarkSucceeded(result.Order, outputs, warnings)
	h.saveRun(ctx, run, false)
	logger.Info("prompt executed", "duration", run.Duration(), "warnings", len(warnings))

	Success(w, PromptResponse{
		PromptID: run.ID,
		Outputs:  outputs,
		Order:    result.Order,
		Warnings: warnings,
	})
}

// QueuePrompt ставит workflow в очередь на асинхронное выполнение.
// POST /api/v1/prompts
func (h *Handler) QueuePrompt(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil || h.queue == nil {
		Fail(w, ErrCodeServiceUnavailable, "async execution is not configured")
		return
	}

	wf, ok := h.decodePrompt(w, r)
	if !ok {
		return
	}

	run := domain.NewRun(wf)
	if err := h.runs.Create(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if err := h.queue.PublishPromptQueued(r.Context(), run.ID); err != nil {
		// Run остаётся PENDING: его подберёт polling в worker
		h.logger.Warn("failed to publish prompt.queued event",
			"run_id", run.ID,
			"error", err,
		)
	}

	h.logger.Info("prompt queued", "run_id", run.ID, "nodes", len(wf))

	Accepted(w, RunFromDomain(*run))
}

// decodePrompt читает тело запроса и разбирает workflow.
// При ошибке отправляет 400 и возвращает false.
func (h *Handler) decodePrompt(w http.ResponseWriter, r *http.Request) (domain.Workflow, bool) {
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, ErrCodeMalformedWorkflow, "invalid request body")
		return nil, false
	}

	if len(req.Prompt) == 0 || bytes.Equal(req.Prompt, []byte("null")) {
		Fail(w, ErrCodeMalformedWorkflow, "No prompt provided")
		return nil, false
	}

	wf, err := engine.ParseWorkflow(req.Prompt)
	if err != nil {
		Fail(w, ErrCodeMalformedWorkflow, err.Error())
		return nil, false
	}

	return wf, true
}

// saveRun сохраняет run в историю, если она настроена.
// Ошибки хранилища не прерывают выполнение.
func (h *Handler) saveRun(ctx context.Context, run *domain.Run, create bool) {
	if h.runs == nil {
		return
	}

	var err error
	if create {
		err = h.runs.Create(ctx, run)
	} else {
		err = h.runs.Update(ctx, run)
	}
	if err != nil {
		h.logger.Warn("failed to save run history",
			"run_id", run.ID,
			"status", run.Status,
			"error", err,
		)
	}
}
