package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

// Runner выполняет workflow (обычно *executor.Executor).
type Runner interface {
	Run(ctx context.Context, wf domain.Workflow) (*executor.Result, error)
}

// NodeCatalog отдаёт метаданные зарегистрированных нод (обычно *nodes.Registry).
type NodeCatalog interface {
	Infos() map[string]nodes.Info
}

// RunStore — хранилище истории запусков (обычно *repo.RunRepo).
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// PromptQueue ставит run в очередь на асинхронное выполнение (обычно *mq.Publisher).
type PromptQueue interface {
	PublishPromptQueued(ctx context.Context, runID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runner  Runner
	catalog NodeCatalog
	runs    RunStore
	queue   PromptQueue
	metrics *telemetry.Metrics
	origin  string
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
//
// Runs и Queue необязательны: без Runs история не сохраняется и
// /api/v1/runs отвечает 503, без Queue недоступна асинхронная отправка.
type Config struct {
	Runner          Runner
	Catalog         NodeCatalog
	Runs            RunStore
	Queue           PromptQueue
	Metrics         *telemetry.Metrics
	CORSAllowOrigin string
	Logger          *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		runner:  cfg.Runner,
		catalog: cfg.Catalog,
		runs:    cfg.Runs,
		queue:   cfg.Queue,
		metrics: cfg.Metrics,
		origin:  cfg.CORSAllowOrigin,
		logger:  logger,
	}
}
