// Package chat binds the agent loop to persisted conversations: it loads the
// history window, runs one exchange, and records both turns.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// DefaultWindow is how many recent turns are replayed to the model.
const DefaultWindow = 20

// ErrForbidden is returned when a user addresses a conversation owned by
// someone else.
var ErrForbidden = errors.New("chat: conversation owned by another user")

// ConversationStore is the slice of the storage layer the chat service needs.
type ConversationStore interface {
	AppendTurn(ctx context.Context, turn model.Turn) (model.Turn, error)
	RecentTurns(ctx context.Context, conversationID int64, limit int) ([]model.Turn, error)
	ConversationOwner(ctx context.Context, conversationID int64) (int64, error)
	ListConversations(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error)
}

// Service runs chat exchanges over persisted conversations.
type Service struct {
	store  ConversationStore
	loop   *agent.Loop
	logger *slog.Logger
	window int

	// now is swappable for tests; conversation ids are minted from it.
	now func() time.Time
}

// NewService creates a chat service. window <= 0 selects DefaultWindow.
func NewService(store ConversationStore, loop *agent.Loop, logger *slog.Logger, window int) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		store:  store,
		loop:   loop,
		logger: logger,
		window: window,
		now:    time.Now,
	}
}

// Exchange processes one user message: resolves or mints the conversation,
// persists the user turn, runs the agent loop, and persists the assistant
// turn with its embedded tool-call log.
//
// The user turn is written before the loop starts and the assistant turn
// after it terminates, so a recorded user turn always has an attempted
// response, and a recorded assistant turn has already completed its tool
// side effects.
func (s *Service) Exchange(ctx context.Context, userID int64, conversationID *int64, message string) (model.ChatResponse, error) {
	if err := model.ValidateChatMessage(message); err != nil {
		return model.ChatResponse{}, fmt.Errorf("chat: %w", err)
	}

	convID, history, err := s.prepareConversation(ctx, userID, conversationID)
	if err != nil {
		return model.ChatResponse{}, err
	}

	if _, err := s.store.AppendTurn(ctx, model.Turn{
		ConversationID: convID,
		UserID:         userID,
		Role:           model.RoleUser,
		Content:        message,
	}); err != nil {
		return model.ChatResponse{}, fmt.Errorf("chat: persist user turn: %w", err)
	}

	result := s.loop.Run(ctx, agent.Session{UserID: userID}, history, message)
	if result.Failed {
		s.logger.Warn("exchange ended in failure state",
			"conversation_id", convID, "iterations", result.Iterations)
	}

	var toolCallsBlob json.RawMessage
	if len(result.ToolCalls) > 0 {
		toolCallsBlob, err = json.Marshal(result.ToolCalls)
		if err != nil {
			return model.ChatResponse{}, fmt.Errorf("chat: encode tool calls: %w", err)
		}
	}

	if _, err := s.store.AppendTurn(ctx, model.Turn{
		ConversationID: convID,
		UserID:         userID,
		Role:           model.RoleAssistant,
		Content:        result.AssistantMessage,
		ToolCalls:      toolCallsBlob,
	}); err != nil {
		return model.ChatResponse{}, fmt.Errorf("chat: persist assistant turn: %w", err)
	}

	return model.ChatResponse{
		ConversationID:   convID,
		UserMessage:      message,
		AssistantMessage: result.AssistantMessage,
		ToolCalls:        result.ToolCalls,
	}, nil
}

// History returns the recent turns of a conversation the user owns.
func (s *Service) History(ctx context.Context, userID, conversationID int64, limit int) ([]model.Turn, error) {
	owner, err := s.store.ConversationOwner(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("chat: conversation owner: %w", err)
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = s.window
	}
	return s.store.RecentTurns(ctx, conversationID, limit)
}

// Conversations lists the user's conversations, most recently active first.
func (s *Service) Conversations(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error) {
	return s.store.ListConversations(ctx, userID, limit)
}

// prepareConversation resolves the conversation id and loads the history
// window. A nil id mints a new conversation from the current timestamp in
// milliseconds; collisions are accepted at this scale.
func (s *Service) prepareConversation(ctx context.Context, userID int64, conversationID *int64) (int64, []llm.Message, error) {
	if conversationID == nil {
		return s.now().UnixMilli(), nil, nil
	}

	convID := *conversationID
	owner, err := s.store.ConversationOwner(ctx, convID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Caller-supplied id with no turns yet: start the conversation
			// under that id.
			return convID, nil, nil
		}
		return 0, nil, fmt.Errorf("chat: conversation owner: %w", err)
	}
	if owner != userID {
		return 0, nil, ErrForbidden
	}

	turns, err := s.store.RecentTurns(ctx, convID, s.window)
	if err != nil {
		return 0, nil, fmt.Errorf("chat: load history: %w", err)
	}

	history := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		// Tool-call blobs are audit data; the model only replays text.
		history = append(history, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return convID, history, nil
}
