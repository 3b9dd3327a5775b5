package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether a task in this status can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Task struct {
	ID            int64
	UserID        int64
	Status        TaskStatus
	OriginalPath  string
	ProcessedPath *string
	Result        *AnalysisResult
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

type User struct {
	ID          int64
	CookieToken string
	CreatedAt   time.Time
}
