package dto

import (
	"errors"

	"treeAnalysis/api/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidState = errors.New("task is not in processing state")
)

type NewTaskResponse struct {
	TaskID  int64  `json:"task_id"`
	Message string `json:"message"`
}

type NewTasksResponse struct {
	TaskIDs []int64 `json:"task_ids"`
	Message string  `json:"message"`
}

type TaskStatusResponse struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	ResultPath string `json:"result_path,omitempty"`

	// Populated once the task is completed.
	TreeType           *string              `json:"tree_type,omitempty"`
	TreeTypeConfidence *float64             `json:"tree_type_confidence,omitempty"`
	DamagesDetected    []models.Damage      `json:"damages_detected,omitempty"`
	OverallHealthScore *float64             `json:"overall_health_score,omitempty"`
	Metadata           *models.FileMetadata `json:"metadata,omitempty"`

	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

type TaskListResponse struct {
	Tasks   []TaskStatusResponse `json:"tasks"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Total   int                  `json:"total"`
}

type SessionResponse struct {
	UserID int64 `json:"user_id"`
}

type WebhookPayload struct {
	TaskID       int64                  `json:"task_id"`
	Status       string                 `json:"status"`
	ResultPath   string                 `json:"result_path,omitempty"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
