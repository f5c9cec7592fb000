package server

import (
	"errors"
	"net/http"

	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// HandleListNotifications handles GET /v1/notifications.
// Pass ?unread=true to restrict the list to unread notifications.
func (h *Handlers) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := queryLimit(r, 50)
	offset := queryOffset(r)

	notifications, total, err := h.db.ListNotifications(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		h.writeInternalError(w, r, "failed to list notifications", err)
		return
	}
	writeList(w, r, notifications, total, limit, offset)
}

// HandleUnreadCount handles GET /v1/notifications/unread-count.
func (h *Handlers) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	count, err := h.db.UnreadNotificationCount(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to count notifications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.UnreadCountResponse{Count: count})
}

// HandleMarkNotificationRead handles POST /v1/notifications/{notification_id}/read.
func (h *Handlers) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	notificationID, err := pathID(r, "notification_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.db.MarkNotificationRead(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "notification not found")
			return
		}
		h.writeInternalError(w, r, "failed to mark notification read", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"read": true})
}

// HandleMarkAllNotificationsRead handles POST /v1/notifications/read-all.
func (h *Handlers) HandleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	count, err := h.db.MarkAllNotificationsRead(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to mark notifications read", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"marked_read": count})
}

// HandleDeleteNotification handles DELETE /v1/notifications/{notification_id}.
func (h *Handlers) HandleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	notificationID, err := pathID(r, "notification_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := h.db.DeleteNotification(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "notification not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete notification", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

// HandleDeleteReadNotifications handles DELETE /v1/notifications/read.
func (h *Handlers) HandleDeleteReadNotifications(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	count, err := h.db.DeleteReadNotifications(r.Context(), userID)
	if err != nil {
		h.writeInternalError(w, r, "failed to delete read notifications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": count})
}
