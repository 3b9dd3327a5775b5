package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"treeAnalysis/api/dto"
	"treeAnalysis/api/kafka"
	"treeAnalysis/api/metrics"
	"treeAnalysis/api/models"
	"treeAnalysis/api/repository"
)

// StatusCache is the status-cache surface the service needs; the Redis
// implementation lives in the cache package.
type StatusCache interface {
	Get(ctx context.Context, ownerID, taskID int64) (models.TaskStatus, error)
	Set(ctx context.Context, ownerID, taskID int64, status models.TaskStatus) error
}

type TaskService struct {
	repo     repository.Repository
	cache    StatusCache
	producer kafka.Producer
	topic    string
}

func NewTaskService(repo repository.Repository, cache StatusCache, producer kafka.Producer, topic string) *TaskService {
	return &TaskService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		topic:    topic,
	}
}

// CreateTask inserts the pending row and publishes the job reference.
// The original file is already on disk at this point; enqueue happens
// last, so a failed publish leaves a pending row behind rather than a
// queued job pointing at nothing. Such rows are re-enqueued operationally.
func (s *TaskService) CreateTask(ctx context.Context, traceID string, ownerID int64, originalPath string) (*dto.NewTaskResponse, error) {
	task := &models.Task{
		UserID:       ownerID,
		Status:       models.StatusPending,
		OriginalPath: originalPath,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, ownerID, task.ID, models.StatusPending)

	msg := &kafka.TaskMessage{
		TaskID:       task.ID,
		TraceID:      traceID,
		OwnerID:      ownerID,
		OriginalPath: originalPath,
	}
	if err := s.producer.SendTaskMessage(ctx, s.topic, msg); err != nil {
		return nil, fmt.Errorf("enqueue task %d: %w", task.ID, err)
	}

	metrics.TasksCreated.Inc()

	return &dto.NewTaskResponse{
		TaskID:  task.ID,
		Message: "Task created successfully",
	}, nil
}

func (s *TaskService) GetTaskStatus(ctx context.Context, ownerID, taskID int64) (*dto.TaskStatusResponse, error) {
	// Cheap path for polling loops: a cached non-terminal status needs no
	// row read. Terminal statuses fall through so the response carries
	// the full result payload.
	if status, err := s.cache.Get(ctx, ownerID, taskID); err == nil && !status.IsTerminal() {
		return &dto.TaskStatusResponse{
			ID:     taskID,
			Status: string(status),
		}, nil
	}

	task, err := s.repo.GetTaskForOwner(ctx, taskID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	s.cache.Set(ctx, ownerID, task.ID, task.Status)

	return toStatusResponse(task), nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID int64, page, perPage int) (*dto.TaskListResponse, error) {
	offset := (page - 1) * perPage

	tasks, total, err := s.repo.ListTasksByOwner(ctx, ownerID, perPage, offset)
	if err != nil {
		return nil, err
	}

	resp := &dto.TaskListResponse{
		Tasks:   make([]dto.TaskStatusResponse, 0, len(tasks)),
		Page:    page,
		PerPage: perPage,
		Total:   total,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, *toStatusResponse(&tasks[i]))
	}

	return resp, nil
}

// CompleteTask applies a worker-reported terminal transition. Only tasks
// currently processing may transition; anything else is rejected so a
// redelivered or stale report never overwrites an existing result.
func (s *TaskService) CompleteTask(ctx context.Context, payload *dto.WebhookPayload) error {
	status := models.TaskStatus(payload.Status)
	if !status.IsTerminal() {
		return dto.ErrInvalidState
	}

	err := s.repo.CompleteTask(ctx, payload.TaskID, status, payload.Result, payload.ResultPath, payload.ErrorMessage)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskNotFound):
			return dto.ErrTaskNotFound
		case errors.Is(err, repository.ErrInvalidState):
			return dto.ErrInvalidState
		default:
			return err
		}
	}

	metrics.WebhookTransitions.WithLabelValues(string(status)).Inc()

	return nil
}

func toStatusResponse(task *models.Task) *dto.TaskStatusResponse {
	resp := &dto.TaskStatusResponse{
		ID:           task.ID,
		Status:       string(task.Status),
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt.Format(time.RFC3339),
	}

	if task.ProcessedPath != nil {
		resp.ResultPath = *task.ProcessedPath
	}
	if task.CompletedAt != nil {
		formatted := task.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &formatted
	}

	if task.Result != nil {
		treeType := string(task.Result.TreeType)
		resp.TreeType = &treeType
		resp.TreeTypeConfidence = &task.Result.TreeTypeConfidence
		resp.DamagesDetected = task.Result.DamagesDetected
		resp.OverallHealthScore = &task.Result.OverallHealthScore
		resp.Metadata = task.Result.Metadata
	}

	return resp
}
