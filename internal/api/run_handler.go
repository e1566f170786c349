package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/repo"
)

// ListRuns возвращает историю запусков с фильтрацией.
// GET /api/v1/runs?status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Fail(w, ErrCodeServiceUnavailable, "run history is not configured")
		return
	}

	filter := repo.RunFilter{}
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(s)
		if !ok {
			Fail(w, ErrCodeBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			Fail(w, ErrCodeBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	if s := query.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			Fail(w, ErrCodeBadRequest, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.runs.List(r.Context(), filter)
	if failRepo(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Fail(w, ErrCodeServiceUnavailable, "run history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		Fail(w, ErrCodeBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if failRepo(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}
