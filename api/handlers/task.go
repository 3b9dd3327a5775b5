package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"treeAnalysis/api/dto"
	"treeAnalysis/api/metrics"
	"treeAnalysis/api/middleware"
	"treeAnalysis/api/storage"
	"treeAnalysis/api/validation"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// TaskService is the surface the handlers need from the service layer.
type TaskService interface {
	CreateTask(ctx context.Context, traceID string, ownerID int64, originalPath string) (*dto.NewTaskResponse, error)
	GetTaskStatus(ctx context.Context, ownerID, taskID int64) (*dto.TaskStatusResponse, error)
	ListTasks(ctx context.Context, ownerID int64, page, perPage int) (*dto.TaskListResponse, error)
	CompleteTask(ctx context.Context, payload *dto.WebhookPayload) error
}

type TaskHandler struct {
	service       TaskService
	files         *storage.FileStore
	logger        *zap.Logger
	maxFileSize   int64
	webhookSecret string
}

func NewTaskHandler(service TaskService, files *storage.FileStore, logger *zap.Logger, maxFileSize int64, webhookSecret string) *TaskHandler {
	return &TaskHandler{
		service:       service,
		files:         files,
		logger:        logger,
		maxFileSize:   maxFileSize,
		webhookSecret: webhookSecret,
	}
}

// Upload handles POST /api/newTask with a single multipart "file" field.
func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		h.handleError(w, "Session required", nil, traceID, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if status, err := h.validateUpload(file, header); err != nil {
		h.handleError(w, "Invalid file", err, traceID, status)
		return
	}

	originalPath, err := h.files.SaveOriginal(file, header.Filename)
	if err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}

	resp, err := h.service.CreateTask(r.Context(), traceID, owner.ID, originalPath)
	if err != nil {
		h.removeOrphan(originalPath, traceID)
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Task created",
		zap.String("trace_id", traceID),
		zap.Int64("task_id", resp.TaskID),
		zap.Int64("owner_id", owner.ID),
		zap.String("filename", header.Filename),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

// UploadBatch handles POST /api/newTasks with a repeated "files" field.
// Every file is validated before any task is created, so a bad file in
// the middle of the batch never leaves partial tasks behind.
func (h *TaskHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		h.handleError(w, "Session required", nil, traceID, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.handleError(w, "No files provided", nil, traceID, http.StatusBadRequest)
		return
	}

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.handleError(w, "Failed to read file", err, traceID, http.StatusBadRequest)
			return
		}
		status, err := h.validateUpload(file, header)
		file.Close()
		if err != nil {
			h.handleError(w, "Invalid file: "+header.Filename, err, traceID, status)
			return
		}
	}

	taskIDs := make([]int64, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.handleError(w, "Failed to read file", err, traceID, http.StatusInternalServerError)
			return
		}

		originalPath, err := h.files.SaveOriginal(file, header.Filename)
		file.Close()
		if err != nil {
			h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
			return
		}

		resp, err := h.service.CreateTask(r.Context(), traceID, owner.ID, originalPath)
		if err != nil {
			h.removeOrphan(originalPath, traceID)
			h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
			return
		}
		taskIDs = append(taskIDs, resp.TaskID)
	}

	h.logger.Info("Batch created",
		zap.String("trace_id", traceID),
		zap.Int64("owner_id", owner.ID),
		zap.Int("count", len(taskIDs)),
	)

	h.respondJSON(w, http.StatusCreated, dto.NewTasksResponse{
		TaskIDs: taskIDs,
		Message: "Tasks created successfully",
	})
}

// List handles GET /api/tasks?per_page=N&page=P, newest first.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		h.handleError(w, "Session required", nil, traceID, http.StatusUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(r, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	resp, err := h.service.ListTasks(r.Context(), owner.ID, page, perPage)
	if err != nil {
		h.handleError(w, "Failed to list tasks", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// IsReady handles GET /api/isReady/{task_id}.
func (h *TaskHandler) IsReady(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		h.handleError(w, "Session required", nil, traceID, http.StatusUnauthorized)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/isReady/")
	taskID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || taskID <= 0 {
		h.handleError(w, "Invalid task ID", err, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetTaskStatus(r.Context(), owner.ID, taskID)
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Webhook handles POST /api/webhook/task-complete, the worker-facing
// completion report. Without a configured secret the endpoint stays
// closed; an unset WEBHOOK_SECRET must never mean "no auth".
func (h *TaskHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if h.webhookSecret == "" || r.Header.Get("X-Webhook-Token") != h.webhookSecret {
		h.handleError(w, "Forbidden", nil, traceID, http.StatusForbidden)
		return
	}

	var payload dto.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.handleError(w, "Invalid payload", err, traceID, http.StatusBadRequest)
		return
	}

	if err := h.service.CompleteTask(r.Context(), &payload); err != nil {
		switch {
		case errors.Is(err, dto.ErrTaskNotFound):
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
		case errors.Is(err, dto.ErrInvalidState):
			h.handleError(w, "Task is not in processing state", err, traceID, http.StatusConflict)
		default:
			h.handleError(w, "Failed to update task", err, traceID, http.StatusInternalServerError)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Task updated successfully"})
}

// removeOrphan drops a saved upload whose task row never materialized,
// so failed creates do not accumulate unreferenced files.
func (h *TaskHandler) removeOrphan(path, traceID string) {
	if err := h.files.Remove(path); err != nil {
		h.logger.Warn("Failed to remove orphaned upload",
			zap.String("trace_id", traceID),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// validateUpload returns the HTTP status to use when validation fails.
func (h *TaskHandler) validateUpload(file multipart.File, header *multipart.FileHeader) (int, error) {
	if err := validation.CheckUpload(file, header, h.maxFileSize); err != nil {
		if errors.Is(err, validation.ErrFileTooLarge) {
			metrics.UploadsRejected.WithLabelValues("too_large").Inc()
			return http.StatusRequestEntityTooLarge, err
		}
		metrics.UploadsRejected.WithLabelValues("invalid_type").Inc()
		return http.StatusBadRequest, err
	}
	return 0, nil
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil {
			return val
		}
	}
	return defaultValue
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
