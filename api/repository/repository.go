package repository

import (
	"context"
	"errors"

	"treeAnalysis/api/models"
)

var (
	// ErrTaskNotFound covers both a missing task and a task owned by
	// someone else; callers must not be able to tell the two apart.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidState is returned when a completion is applied to a task
	// that is not currently processing.
	ErrInvalidState = errors.New("task is not in processing state")
)

type Repository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskForOwner(ctx context.Context, taskID, ownerID int64) (*models.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]models.Task, int, error)
	CompleteTask(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error
	GetOrCreateUser(ctx context.Context, cookieToken string) (*models.User, error)
}
