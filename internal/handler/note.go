package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/auth"
	"github.com/sakif/ud-notes/internal/service"
)

// NoteHandler serves the note endpoints. There is no update route: notes
// are immutable once written.
type NoteHandler struct {
	service *service.NoteService
	logger  *slog.Logger
}

func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{service: svc, logger: logger}
}

type createNoteRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	IsPublic  bool       `json:"isPublic"`
	SubjectID *uuid.UUID `json:"subjectId"`
	OwnerID   string     `json:"ownerId"`
}

// HandleList returns the notes visible to the caller, newest first.
//
// HTTP: GET /api/notes[?subject=<uuid>]
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var subjectID *uuid.UUID
	if raw := r.URL.Query().Get("subject"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("subject", "subject must be a UUID"))
			return
		}
		subjectID = &id
	}

	notes, err := h.service.List(r.Context(), userID, subjectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// HandleCreate stores a note owned by the caller.
//
// HTTP: POST /api/notes
// REQUEST BODY: {"title": "...", "content": "...", "isPublic": false, "subjectId": null}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.service.Create(r.Context(), userID, service.NoteInput{
		Title:     req.Title,
		Content:   req.Content,
		IsPublic:  req.IsPublic,
		SubjectID: req.SubjectID,
		OwnerID:   req.OwnerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// HandleDelete removes one of the caller's notes.
//
// HTTP: DELETE /api/notes/{id}
// RESPONSE: 204 on success, 404 when the note is missing or not the caller's.
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// A malformed id cannot name an existing note.
		writeError(w, apperror.NotFound("note", chi.URLParam(r, "id")))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
