package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/nodes"
)

// Prompt DTOs

// PromptRequest — запрос на выполнение workflow.
//
// Prompt хранится как сырой JSON: структуру проверяет engine.ParseWorkflow.
type PromptRequest struct {
	Prompt   json.RawMessage `json:"prompt"`
	ClientID string          `json:"client_id,omitempty"`
}

// PromptResponse — результат синхронного выполнения.
type PromptResponse struct {
	PromptID uuid.UUID                `json:"prompt_id"`
	Outputs  map[string]any           `json:"outputs"`
	Order    []string                 `json:"order"`
	Warnings []domain.UnresolvedInput `json:"warnings"`
}

// Run DTOs

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID                `json:"id"`
	Status     domain.RunStatus         `json:"status"`
	Workflow   domain.Workflow          `json:"workflow,omitempty"`
	Order      []string                 `json:"order,omitempty"`
	Outputs    map[string]any           `json:"outputs,omitempty"`
	Warnings   []domain.UnresolvedInput `json:"warnings,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
	StartedAt  *time.Time               `json:"started_at,omitempty"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	DurationMs int64                    `json:"duration_ms,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Status:     r.Status,
		Workflow:   r.Workflow,
		Order:      r.Order,
		Outputs:    r.Outputs,
		Warnings:   r.Warnings,
		Error:      r.Error,
		ErrorKind:  r.ErrorKind,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		CreatedAt:  r.CreatedAt,
	}
}

// Node DTOs

// NodeInfoResponse — описание типа ноды в формате /object_info.
type NodeInfoResponse struct {
	Input    NodeInputsResponse `json:"input"`
	Output   []domain.ValueType `json:"output"`
	Category string             `json:"category,omitempty"`
}

// NodeInputsResponse — входы ноды: имя → [TYPE, {"default": …}].
type NodeInputsResponse struct {
	Required map[string][]any `json:"required"`
	Optional map[string][]any `json:"optional,omitempty"`
}

// NodeInfoFromNodes конвертирует nodes.Info в NodeInfoResponse.
func NodeInfoFromNodes(info nodes.Info) NodeInfoResponse {
	outputs := info.Outputs
	if outputs == nil {
		outputs = []domain.ValueType{}
	}

	resp := NodeInfoResponse{
		Input: NodeInputsResponse{
			Required: inputSpecs(info.Required),
		},
		Output:   outputs,
		Category: info.Category,
	}
	if len(info.Optional) > 0 {
		resp.Input.Optional = inputSpecs(info.Optional)
	}
	return resp
}

func inputSpecs(specs map[string]nodes.InputSpec) map[string][]any {
	out := make(map[string][]any, len(specs))
	for name, spec := range specs {
		entry := []any{spec.Type}
		if spec.Default != nil {
			entry = append(entry, map[string]any{"default": spec.Default})
		}
		out[name] = entry
	}
	return out
}
