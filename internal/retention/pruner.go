package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidMaxAge — срок хранения не положительный.
var ErrInvalidMaxAge = errors.New("max age must be positive")

// Store — хранилище, из которого удаляются завершённые runs (обычно *repo.RunRepo).
type Store interface {
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Pruner по расписанию удаляет завершённые runs старше MaxAge.
type Pruner struct {
	store    Store
	schedule cron.Schedule
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация Pruner.
type Config struct {
	Store    Store
	CronExpr string        // расписание очистки (например "@hourly" или "0 3 * * *")
	MaxAge   time.Duration // сколько хранить завершённые runs
	Logger   *slog.Logger
}

// New создаёт новый Pruner.
func New(cfg Config) (*Pruner, error) {
	schedule, err := ParseSchedule(cfg.CronExpr)
	if err != nil {
		return nil, err
	}

	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMaxAge, cfg.MaxAge)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pruner{
		store:    cfg.Store,
		schedule: schedule,
		maxAge:   cfg.MaxAge,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Prune выполняет одну очистку и возвращает количество удалённых runs.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.maxAge)

	deleted, err := p.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete finished runs: %w", err)
	}

	p.logger.Info("run history pruned",
		"deleted", deleted,
		"cutoff", cutoff.UTC().Format(time.RFC3339),
	)

	return deleted, nil
}

// Run выполняет очистку по расписанию до отмены контекста.
// Ошибки очистки логируются и не прерывают цикл.
func (p *Pruner) Run(ctx context.Context) {
	for {
		next := NextRun(p.schedule, p.now())
		timer := time.NewTimer(time.Until(next))

		p.logger.Debug("next history prune scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := p.Prune(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("history prune failed", "error", err)
			}
		}
	}
}
