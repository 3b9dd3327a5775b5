package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"treeAnalysis/api/database"
	"treeAnalysis/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (user_id, status, original_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		task.UserID,
		task.Status,
		task.OriginalPath,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	return nil
}

const taskColumns = `id, user_id, status, original_path, processed_path, result, error_message, created_at, updated_at, completed_at`

func (r *PostgresRepo) GetTaskForOwner(ctx context.Context, taskID, ownerID int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query, taskID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

func (r *PostgresRepo) ListTasksByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]models.Task, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CompleteTask applies the processing -> completed/failed transition.
// The WHERE clause on status is the sole coordination point: a task that
// already reached a terminal state is never overwritten.
func (r *PostgresRepo) CompleteTask(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error {
	if !status.IsTerminal() {
		return ErrInvalidState
	}

	var resultJSON *string
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		s := string(data)
		resultJSON = &s
	}

	query := `
		UPDATE tasks
		SET status = $2,
		    result = $3,
		    processed_path = NULLIF($4, ''),
		    error_message = $5,
		    updated_at = NOW(),
		    completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	tag, err := r.db.Pool.Exec(ctx, query, taskID, status, resultJSON, resultPath, errorMessage)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if !exists {
			return ErrTaskNotFound
		}
		return ErrInvalidState
	}

	return nil
}

func (r *PostgresRepo) GetOrCreateUser(ctx context.Context, cookieToken string) (*models.User, error) {
	// Upsert so a racing first request from the same browser resolves to
	// one row. The no-op DO UPDATE makes RETURNING yield the existing row.
	query := `
		INSERT INTO users (cookie_token)
		VALUES ($1)
		ON CONFLICT (cookie_token) DO UPDATE SET cookie_token = EXCLUDED.cookie_token
		RETURNING id, cookie_token, created_at
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, cookieToken).Scan(&user.ID, &user.CookieToken, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}

	return &user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task       models.Task
		resultJSON *string
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Status,
		&task.OriginalPath,
		&task.ProcessedPath,
		&resultJSON,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if resultJSON != nil {
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(*resultJSON), &result); err != nil {
			return nil, fmt.Errorf("unmarshal task result: %w", err)
		}
		task.Result = &result
	}

	return &task, nil
}
