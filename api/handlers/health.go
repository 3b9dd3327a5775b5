package handlers

import (
	"encoding/json"
	"net/http"

	"treeAnalysis/api/dto"
	"treeAnalysis/api/middleware"
)

// Health never touches the task store; it only signals liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"message": "Tree analysis service is running",
	})
}

// Session handles GET /api/get-session. The Session middleware has
// already resolved or created the user; this just reports it.
func (h *TaskHandler) Session(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		h.handleError(w, "Session required", nil, traceID, http.StatusUnauthorized)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.SessionResponse{UserID: owner.ID})
}
