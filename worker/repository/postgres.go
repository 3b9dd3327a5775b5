package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the worker's narrow view of the task store: claim a
// task, then apply exactly one terminal transition.
type Repository interface {
	ClaimTask(ctx context.Context, taskID int64) (bool, error)
	CompleteTask(ctx context.Context, taskID int64, resultJSON string, processedPath string) error
	FailTask(ctx context.Context, taskID int64, errorMessage string) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// ClaimTask moves a pending task to processing. Redelivered jobs find
// the row already processing; that counts as a successful claim so the
// handler can run again safely. Terminal rows are never reclaimed.
func (r *PostgresRepo) ClaimTask(ctx context.Context, taskID int64) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`

	tag, err := r.db.Exec(ctx, query, taskID)
	if err != nil {
		return false, fmt.Errorf("claim task %d: %w", taskID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) CompleteTask(ctx context.Context, taskID int64, resultJSON string, processedPath string) error {
	query := `
		UPDATE tasks
		SET status = 'completed',
		    result = $2,
		    processed_path = $3,
		    error_message = '',
		    updated_at = NOW(),
		    completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	tag, err := r.db.Exec(ctx, query, taskID, resultJSON, processedPath)
	if err != nil {
		return fmt.Errorf("complete task %d: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete task %d: not in processing state", taskID)
	}

	return nil
}

func (r *PostgresRepo) FailTask(ctx context.Context, taskID int64, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = 'failed',
		    error_message = $2,
		    updated_at = NOW(),
		    completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	tag, err := r.db.Exec(ctx, query, taskID, errorMessage)
	if err != nil {
		return fmt.Errorf("fail task %d: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail task %d: not in processing state", taskID)
	}

	return nil
}
