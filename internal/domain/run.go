package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — запись об одном выполнении workflow.
//
// Run создаётся когда:
// - Клиент отправляет workflow синхронно (POST /prompt) — сразу в RUNNING
// - Клиент ставит workflow в очередь (POST /api/v1/prompts) — в PENDING
//
// Сам движок состояния между запусками не хранит: Run — это только история
// для транспортного слоя.
type Run struct {
	// ID — уникальный идентификатор run (он же prompt_id в ответе API).
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Workflow — присланный граф нод.
	Workflow Workflow `json:"workflow"`

	// Order — порядок выполнения нод, вычисленный планировщиком.
	Order []string `json:"order,omitempty"`

	// Outputs — выходы нод в сериализованном виде (node_id → значение).
	// Изображения хранятся как data URI.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Warnings — входы-ссылки, которые не удалось разрешить.
	Warnings []UnresolvedInput `json:"warnings,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// ErrorKind — класс ошибки (CIRCULAR_DEPENDENCY, NODE_INVOCATION, ...).
	ErrorKind string `json:"error_kind,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// UnresolvedInput — вход-ссылка, источник которой отсутствует в Output Store.
//
// Это не ошибка: нода выполняется без этого входа.
type UnresolvedInput struct {
	NodeID   string `json:"node_id"`
	Input    string `json:"input"`
	SourceID string `json:"source_id"`
	Slot     int    `json:"slot"`
}

// NewRun создаёт run для workflow в статусе PENDING.
func NewRun(wf Workflow) *Run {
	return &Run{
		ID:        uuid.New(),
		Status:    RunStatusPending,
		Workflow:  wf,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED с результатами.
func (r *Run) MarkSucceeded(order []string, outputs map[string]any, warnings []UnresolvedInput) {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.Order = order
	r.Outputs = outputs
	r.Warnings = warnings
}

// MarkFailed переводит run в статус FAILED с ошибкой.
// Частичные выходы не сохраняются.
func (r *Run) MarkFailed(kind, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.ErrorKind = kind
	r.Error = err
	r.Outputs = nil
}
