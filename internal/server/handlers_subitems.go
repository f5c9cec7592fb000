package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// --- Subtasks ---

// HandleCreateSubtask handles POST /v1/tasks/{task_id}/subtasks.
func (h *Handlers) HandleCreateSubtask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "title is required")
		return
	}
	if len(req.Title) > model.MaxTitleLen {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "title too long")
		return
	}

	subtask, err := h.db.CreateSubtask(r.Context(), model.Subtask{
		TaskID: task.ID,
		UserID: task.UserID,
		Title:  req.Title,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to create subtask", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, subtask)
}

// HandleListSubtasks handles GET /v1/tasks/{task_id}/subtasks.
func (h *Handlers) HandleListSubtasks(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	subtasks, err := h.db.ListSubtasks(r.Context(), task.ID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list subtasks", err)
		return
	}
	writeJSON(w, r, http.StatusOK, subtasks)
}

// HandleUpdateSubtask handles PATCH /v1/subtasks/{subtask_id}.
func (h *Handlers) HandleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	subtaskID, err := pathID(r, "subtask_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req struct {
		Title     *string `json:"title"`
		Completed *bool   `json:"completed"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Title == nil && req.Completed == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "no fields to update")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "title must not be blank")
		return
	}

	subtask, err := h.db.UpdateSubtask(r.Context(), userID, subtaskID, req.Title, req.Completed)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "subtask not found")
			return
		}
		h.writeInternalError(w, r, "failed to update subtask", err)
		return
	}
	writeJSON(w, r, http.StatusOK, subtask)
}

// HandleDeleteSubtask handles DELETE /v1/subtasks/{subtask_id}.
func (h *Handlers) HandleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	subtaskID, err := pathID(r, "subtask_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.db.DeleteSubtask(r.Context(), userID, subtaskID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "subtask not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete subtask", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

// --- Notes ---

// HandleCreateNote handles POST /v1/tasks/{task_id}/notes.
func (h *Handlers) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "content is required")
		return
	}
	if len(req.Content) > model.MaxNoteLen {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "content too long")
		return
	}

	note, err := h.db.CreateNote(r.Context(), model.Note{
		TaskID:  task.ID,
		UserID:  task.UserID,
		Content: req.Content,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to create note", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, note)
}

// HandleListNotes handles GET /v1/tasks/{task_id}/notes.
func (h *Handlers) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	notes, err := h.db.ListNotes(r.Context(), task.ID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list notes", err)
		return
	}
	writeJSON(w, r, http.StatusOK, notes)
}

// HandleUpdateNote handles PATCH /v1/notes/{note_id}.
func (h *Handlers) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	noteID, err := pathID(r, "note_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "content is required")
		return
	}

	note, err := h.db.UpdateNote(r.Context(), userID, noteID, req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "note not found")
			return
		}
		h.writeInternalError(w, r, "failed to update note", err)
		return
	}
	writeJSON(w, r, http.StatusOK, note)
}

// HandleDeleteNote handles DELETE /v1/notes/{note_id}.
func (h *Handlers) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	noteID, err := pathID(r, "note_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.db.DeleteNote(r.Context(), userID, noteID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "note not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete note", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

// --- Attachments ---

// HandleCreateAttachment handles POST /v1/tasks/{task_id}/attachments.
// Only metadata is stored; the file bytes live in external storage.
func (h *Handlers) HandleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	var req struct {
		Filename string `json:"filename"`
		FileURL  string `json:"file_url"`
		FileSize int64  `json:"file_size"`
		MimeType string `json:"mime_type"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.FileURL) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "filename and file_url are required")
		return
	}

	attachment, err := h.db.CreateAttachment(r.Context(), model.Attachment{
		TaskID:   task.ID,
		UserID:   task.UserID,
		Filename: req.Filename,
		FileURL:  req.FileURL,
		FileSize: req.FileSize,
		MimeType: req.MimeType,
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to create attachment", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, attachment)
}

// HandleListAttachments handles GET /v1/tasks/{task_id}/attachments.
func (h *Handlers) HandleListAttachments(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownTask(w, r)
	if !ok {
		return
	}

	attachments, err := h.db.ListAttachments(r.Context(), task.ID)
	if err != nil {
		h.writeInternalError(w, r, "failed to list attachments", err)
		return
	}
	writeJSON(w, r, http.StatusOK, attachments)
}

// HandleDeleteAttachment handles DELETE /v1/attachments/{attachment_id}.
func (h *Handlers) HandleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	attachmentID, err := pathID(r, "attachment_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.db.DeleteAttachment(r.Context(), userID, attachmentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "attachment not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete attachment", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}
