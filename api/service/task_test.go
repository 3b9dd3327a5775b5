package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"treeAnalysis/api/dto"
	"treeAnalysis/api/kafka"
	"treeAnalysis/api/models"
	"treeAnalysis/api/repository"
)

type mockRepo struct {
	createTaskFunc   func(ctx context.Context, task *models.Task) error
	getTaskFunc      func(ctx context.Context, taskID, ownerID int64) (*models.Task, error)
	listTasksFunc    func(ctx context.Context, ownerID int64, limit, offset int) ([]models.Task, int, error)
	completeTaskFunc func(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error

	calls []string
}

func (m *mockRepo) CreateTask(ctx context.Context, task *models.Task) error {
	m.calls = append(m.calls, "create")
	if m.createTaskFunc != nil {
		return m.createTaskFunc(ctx, task)
	}
	task.ID = 1
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	return nil
}

func (m *mockRepo) GetTaskForOwner(ctx context.Context, taskID, ownerID int64) (*models.Task, error) {
	m.calls = append(m.calls, "get")
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, taskID, ownerID)
	}
	return nil, repository.ErrTaskNotFound
}

func (m *mockRepo) ListTasksByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]models.Task, int, error) {
	m.calls = append(m.calls, "list")
	if m.listTasksFunc != nil {
		return m.listTasksFunc(ctx, ownerID, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockRepo) CompleteTask(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error {
	m.calls = append(m.calls, "complete")
	if m.completeTaskFunc != nil {
		return m.completeTaskFunc(ctx, taskID, status, result, resultPath, errorMessage)
	}
	return nil
}

func (m *mockRepo) GetOrCreateUser(ctx context.Context, cookieToken string) (*models.User, error) {
	return &models.User{ID: 1, CookieToken: cookieToken}, nil
}

type mockCache struct {
	statuses map[string]models.TaskStatus
}

func newMockCache() *mockCache {
	return &mockCache{statuses: make(map[string]models.TaskStatus)}
}

func cacheKey(ownerID, taskID int64) string {
	return fmt.Sprintf("%d:%d", ownerID, taskID)
}

func (m *mockCache) Get(ctx context.Context, ownerID, taskID int64) (models.TaskStatus, error) {
	if status, ok := m.statuses[cacheKey(ownerID, taskID)]; ok {
		return status, nil
	}
	return "", errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, ownerID, taskID int64, status models.TaskStatus) error {
	m.statuses[cacheKey(ownerID, taskID)] = status
	return nil
}

type mockProducer struct {
	sendFunc func(ctx context.Context, topic string, message *kafka.TaskMessage) error
	sent     []*kafka.TaskMessage
	onSend   func()
}

func (m *mockProducer) SendTaskMessage(ctx context.Context, topic string, message *kafka.TaskMessage) error {
	if m.onSend != nil {
		m.onSend()
	}
	if m.sendFunc != nil {
		return m.sendFunc(ctx, topic, message)
	}
	m.sent = append(m.sent, message)
	return nil
}

func (m *mockProducer) Close() error { return nil }

func TestTaskService_CreateTask(t *testing.T) {
	repo := &mockRepo{}
	producer := &mockProducer{}
	svc := NewTaskService(repo, newMockCache(), producer, "tree_tasks")

	resp, err := svc.CreateTask(context.Background(), "trace-1", 42, "uploads/original/a.jpg")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if resp.TaskID != 1 {
		t.Errorf("Expected task_id 1, got %d", resp.TaskID)
	}

	if len(producer.sent) != 1 {
		t.Fatalf("Expected 1 enqueued message, got %d", len(producer.sent))
	}
	msg := producer.sent[0]
	if msg.TaskID != 1 || msg.OwnerID != 42 || msg.OriginalPath != "uploads/original/a.jpg" {
		t.Errorf("Unexpected message: %+v", msg)
	}
}

func TestTaskService_CreateTask_EnqueueIsLast(t *testing.T) {
	repo := &mockRepo{}
	producer := &mockProducer{}
	producer.onSend = func() {
		if len(repo.calls) == 0 || repo.calls[len(repo.calls)-1] != "create" {
			t.Error("Enqueue must happen after the row insert")
		}
	}
	svc := NewTaskService(repo, newMockCache(), producer, "tree_tasks")

	if _, err := svc.CreateTask(context.Background(), "trace-1", 1, "a.jpg"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
}

func TestTaskService_CreateTask_EnqueueFailure(t *testing.T) {
	repo := &mockRepo{}
	producer := &mockProducer{
		sendFunc: func(ctx context.Context, topic string, message *kafka.TaskMessage) error {
			return errors.New("broker down")
		},
	}
	svc := NewTaskService(repo, newMockCache(), producer, "tree_tasks")

	if _, err := svc.CreateTask(context.Background(), "trace-1", 1, "a.jpg"); err == nil {
		t.Fatal("Expected error when enqueue fails")
	}
}

func TestTaskService_GetTaskStatus_CachedNonTerminal(t *testing.T) {
	repo := &mockRepo{}
	cache := newMockCache()
	cache.Set(context.Background(), 1, 5, models.StatusProcessing)
	svc := NewTaskService(repo, cache, &mockProducer{}, "tree_tasks")

	resp, err := svc.GetTaskStatus(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetTaskStatus failed: %v", err)
	}
	if resp.Status != "processing" {
		t.Errorf("Expected processing, got %s", resp.Status)
	}
	if len(repo.calls) != 0 {
		t.Error("Cached non-terminal status must not hit the repository")
	}

	// The cached path has no row, so unknown fields must be omitted
	// rather than serialized as zero values.
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), `"created_at"`) {
		t.Errorf("Cached response must omit created_at, got %s", data)
	}
}

func TestTaskService_GetTaskStatus_CachedTerminalReadsRow(t *testing.T) {
	completed := time.Now()
	processedPath := "uploads/processed/processed_a.jpg"
	repo := &mockRepo{
		getTaskFunc: func(ctx context.Context, taskID, ownerID int64) (*models.Task, error) {
			return &models.Task{
				ID:            taskID,
				UserID:        ownerID,
				Status:        models.StatusCompleted,
				ProcessedPath: &processedPath,
				Result: &models.AnalysisResult{
					TreeType:           models.TreeOak,
					TreeTypeConfidence: 0.9,
					OverallHealthScore: 0.8,
				},
				CreatedAt:   completed.Add(-time.Minute),
				CompletedAt: &completed,
			}, nil
		},
	}
	cache := newMockCache()
	cache.Set(context.Background(), 1, 5, models.StatusCompleted)
	svc := NewTaskService(repo, cache, &mockProducer{}, "tree_tasks")

	resp, err := svc.GetTaskStatus(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetTaskStatus failed: %v", err)
	}
	if resp.TreeType == nil || *resp.TreeType != "oak" {
		t.Error("Completed response must carry the result payload")
	}
	if resp.ResultPath != processedPath {
		t.Errorf("Expected result_path %q, got %q", processedPath, resp.ResultPath)
	}
}

func TestTaskService_GetTaskStatus_NotFound(t *testing.T) {
	svc := NewTaskService(&mockRepo{}, newMockCache(), &mockProducer{}, "tree_tasks")

	_, err := svc.GetTaskStatus(context.Background(), 1, 999)
	if !errors.Is(err, dto.ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskService_GetTaskStatus_RepeatedPollsStable(t *testing.T) {
	completed := time.Now().Truncate(time.Second)
	repo := &mockRepo{
		getTaskFunc: func(ctx context.Context, taskID, ownerID int64) (*models.Task, error) {
			return &models.Task{
				ID:     taskID,
				UserID: ownerID,
				Status: models.StatusCompleted,
				Result: &models.AnalysisResult{
					TreeType:           models.TreePine,
					TreeTypeConfidence: 0.77,
					OverallHealthScore: 0.65,
				},
				CreatedAt:   completed.Add(-time.Minute),
				CompletedAt: &completed,
			}, nil
		},
	}
	svc := NewTaskService(repo, newMockCache(), &mockProducer{}, "tree_tasks")

	first, err := svc.GetTaskStatus(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetTaskStatus failed: %v", err)
	}
	second, err := svc.GetTaskStatus(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("GetTaskStatus failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Polling must not mutate the result: %+v vs %+v", first, second)
	}
}

func TestTaskService_ListTasks_Pagination(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &mockRepo{
		listTasksFunc: func(ctx context.Context, ownerID int64, limit, offset int) ([]models.Task, int, error) {
			gotLimit, gotOffset = limit, offset
			return []models.Task{}, 12, nil
		},
	}
	svc := NewTaskService(repo, newMockCache(), &mockProducer{}, "tree_tasks")

	resp, err := svc.ListTasks(context.Background(), 1, 3, 5)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("Expected limit=5 offset=10, got limit=%d offset=%d", gotLimit, gotOffset)
	}
	if resp.Total != 12 || resp.Page != 3 {
		t.Errorf("Unexpected page info: %+v", resp)
	}
}

func TestTaskService_CompleteTask_NonTerminalStatus(t *testing.T) {
	svc := NewTaskService(&mockRepo{}, newMockCache(), &mockProducer{}, "tree_tasks")

	err := svc.CompleteTask(context.Background(), &dto.WebhookPayload{TaskID: 1, Status: "processing"})
	if !errors.Is(err, dto.ErrInvalidState) {
		t.Fatalf("Expected ErrInvalidState, got %v", err)
	}
}

func TestTaskService_CompleteTask_MapsRepoErrors(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		expected error
	}{
		{"invalid state", repository.ErrInvalidState, dto.ErrInvalidState},
		{"not found", repository.ErrTaskNotFound, dto.ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				completeTaskFunc: func(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error {
					return tt.repoErr
				},
			}
			svc := NewTaskService(repo, newMockCache(), &mockProducer{}, "tree_tasks")

			err := svc.CompleteTask(context.Background(), &dto.WebhookPayload{TaskID: 1, Status: "completed"})
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestTaskService_CompleteTask_Success(t *testing.T) {
	var gotStatus models.TaskStatus
	repo := &mockRepo{
		completeTaskFunc: func(ctx context.Context, taskID int64, status models.TaskStatus, result *models.AnalysisResult, resultPath, errorMessage string) error {
			gotStatus = status
			return nil
		},
	}
	svc := NewTaskService(repo, newMockCache(), &mockProducer{}, "tree_tasks")

	err := svc.CompleteTask(context.Background(), &dto.WebhookPayload{
		TaskID: 1,
		Status: "failed",
	})
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if gotStatus != models.StatusFailed {
		t.Errorf("Expected failed, got %s", gotStatus)
	}
}
