package server

import (
	"errors"
	"net/http"

	"github.com/tasuki-ai/tasuki/internal/chat"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// HandleChat handles POST /v1/chat. One request runs a full agent exchange:
// the user message is appended to the conversation, the model loop runs to
// completion, and the assistant reply comes back with any tool calls made.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateChatMessage(req.Message); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	resp, err := h.chatSvc.Exchange(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrForbidden):
			writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "conversation belongs to another user")
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
		default:
			h.writeInternalError(w, r, "chat exchange failed", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleListConversations handles GET /v1/conversations.
func (h *Handlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())
	limit := queryLimit(r, 50)

	conversations, err := h.chatSvc.Conversations(r.Context(), userID, limit)
	if err != nil {
		h.writeInternalError(w, r, "failed to list conversations", err)
		return
	}
	writeJSON(w, r, http.StatusOK, conversations)
}

// HandleConversationHistory handles GET /v1/conversations/{conversation_id}/messages.
func (h *Handlers) HandleConversationHistory(w http.ResponseWriter, r *http.Request) {
	userID := ctxutil.UserIDFromContext(r.Context())

	conversationID, err := pathID(r, "conversation_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	// limit 0 defers to the service's history window.
	limit := queryInt(r, "limit", 0)
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	turns, err := h.chatSvc.History(r.Context(), userID, conversationID, limit)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrForbidden):
			writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "conversation belongs to another user")
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "conversation not found")
		default:
			h.writeInternalError(w, r, "failed to load conversation", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, turns)
}
