package api

import (
	"net/http"
)

// GetObjectInfo возвращает описание всех зарегистрированных типов нод.
// GET /object_info
func (h *Handler) GetObjectInfo(w http.ResponseWriter, r *http.Request) {
	infos := h.catalog.Infos()

	result := make(map[string]NodeInfoResponse, len(infos))
	for kind, info := range infos {
		result[kind] = NodeInfoFromNodes(info)
	}

	writeJSON(w, http.StatusOK, result)
}
