package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(h.metrics),
		Logging(h.logger),
		CORS(h.origin),
	)

	// Совместимые с ComfyUI маршруты
	mux.Handle("POST /prompt", chain(http.HandlerFunc(h.PostPrompt)))
	mux.Handle("GET /object_info", chain(http.HandlerFunc(h.GetObjectInfo)))

	// Асинхронная отправка и история
	mux.Handle("POST /api/v1/prompts", chain(http.HandlerFunc(h.QueuePrompt)))
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))

	// CORS preflight для всех путей
	mux.Handle("OPTIONS /", chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NoContent(w)
	})))
}
