package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// Значения пагинации по умолчанию.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// runColumns — колонки runs в порядке сканирования.
const runColumns = `id, status, workflow, exec_order, outputs, warnings,
       error, error_kind, started_at, finished_at, created_at`

// RunRepo — репозиторий истории запусков.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	cols, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (id, status, workflow, exec_order, outputs, warnings,
		                  error, error_kind, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		cols.workflow,
		cols.order,
		cols.outputs,
		cols.warnings,
		nullString(run.Error),
		nullString(run.ErrorKind),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.ID)
	}
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список runs с фильтрацией, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	filter = filter.normalize()

	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collectRuns(rows)
}

// Update сохраняет статус и результаты run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	cols, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs
		SET status = $2, exec_order = $3, outputs = $4, warnings = $5,
		    error = $6, error_kind = $7, started_at = $8, finished_at = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		cols.order,
		cols.outputs,
		cols.warnings,
		nullString(run.Error),
		nullString(run.ErrorKind),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim переводит run из PENDING в RUNNING.
// Возвращает ErrInvalidState, если run уже взят в работу или завершён.
func (r *RunRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		UPDATE runs
		SET status = 'RUNNING', started_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + runColumns

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		// Различаем «нет такого run» и «run не в PENDING»
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: run %s is not pending", ErrInvalidState, id)
	}
	return run, err
}

// ListPending возвращает runs в статусе PENDING, старые первыми.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	return collectRuns(rows)
}

// DeleteFinishedBefore удаляет завершённые runs, закончившиеся раньше before.
// Возвращает количество удалённых записей.
func (r *RunRepo) DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM runs
		WHERE status IN ('SUCCEEDED', 'FAILED') AND finished_at < $1
	`
	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete finished runs: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Status domain.RunStatus
	Limit  int
	Offset int
}

// normalize подставляет значения пагинации по умолчанию.
func (f RunFilter) normalize() RunFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// runJSON — JSON-колонки run.
type runJSON struct {
	workflow []byte
	order    []byte
	outputs  []byte
	warnings []byte
}

// marshalRunJSON сериализует JSON-колонки. Пустые значения пишутся как NULL.
func marshalRunJSON(run *domain.Run) (*runJSON, error) {
	var (
		cols runJSON
		err  error
	)

	if cols.workflow, err = json.Marshal(run.Workflow); err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}
	if run.Order != nil {
		if cols.order, err = json.Marshal(run.Order); err != nil {
			return nil, fmt.Errorf("marshal order: %w", err)
		}
	}
	if run.Outputs != nil {
		if cols.outputs, err = json.Marshal(run.Outputs); err != nil {
			return nil, fmt.Errorf("marshal outputs: %w", err)
		}
	}
	if run.Warnings != nil {
		if cols.warnings, err = json.Marshal(run.Warnings); err != nil {
			return nil, fmt.Errorf("marshal warnings: %w", err)
		}
	}
	return &cols, nil
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run       domain.Run
		cols      runJSON
		runError  *string
		errorKind *string
	)

	err := row.Scan(
		&run.ID,
		&run.Status,
		&cols.workflow,
		&cols.order,
		&cols.outputs,
		&cols.warnings,
		&runError,
		&errorKind,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := unmarshalRunJSON(&run, &cols); err != nil {
		return nil, err
	}
	if runError != nil {
		run.Error = *runError
	}
	if errorKind != nil {
		run.ErrorKind = *errorKind
	}

	return &run, nil
}

// collectRuns сканирует все строки и закрывает rows.
func collectRuns(rows pgx.Rows) ([]domain.Run, error) {
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// unmarshalRunJSON разбирает JSON-колонки в run.
func unmarshalRunJSON(run *domain.Run, cols *runJSON) error {
	if cols.workflow != nil {
		if err := json.Unmarshal(cols.workflow, &run.Workflow); err != nil {
			return fmt.Errorf("unmarshal workflow: %w", err)
		}
	}
	if cols.order != nil {
		if err := json.Unmarshal(cols.order, &run.Order); err != nil {
			return fmt.Errorf("unmarshal order: %w", err)
		}
	}
	if cols.outputs != nil {
		if err := json.Unmarshal(cols.outputs, &run.Outputs); err != nil {
			return fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	if cols.warnings != nil {
		if err := json.Unmarshal(cols.warnings, &run.Warnings); err != nil {
			return fmt.Errorf("unmarshal warnings: %w", err)
		}
	}
	return nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
