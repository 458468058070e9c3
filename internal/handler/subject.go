package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ud-notes/internal/auth"
	"github.com/sakif/ud-notes/internal/service"
)

// SubjectHandler serves the subject endpoints. Both require authentication.
type SubjectHandler struct {
	service *service.SubjectService
	logger  *slog.Logger
}

func NewSubjectHandler(svc *service.SubjectService, logger *slog.Logger) *SubjectHandler {
	return &SubjectHandler{service: svc, logger: logger}
}

type createSubjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
}

// HandleList returns the caller's subjects ordered by name.
//
// HTTP: GET /api/subjects
func (h *SubjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	subjects, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subjects)
}

// HandleCreate creates a subject owned by the caller.
//
// HTTP: POST /api/subjects
// REQUEST BODY: {"name": "Math", "description": "Calculus I", "ownerId": "..."}
//
// ownerId is optional; when present it must be the caller.
func (h *SubjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req createSubjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	subject, err := h.service.Create(r.Context(), userID, service.SubjectInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, subject)
}
