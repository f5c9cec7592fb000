package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const turnColumns = `id, conversation_id, user_id, role, content, tool_calls, created_at`

// AppendTurn inserts a conversation turn and returns it with its id and
// write-time timestamp. Turns are never updated or deleted.
func (db *DB) AppendTurn(ctx context.Context, turn model.Turn) (model.Turn, error) {
	var toolCalls []byte
	if len(turn.ToolCalls) > 0 {
		toolCalls = turn.ToolCalls
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO conversation_messages (conversation_id, user_id, role, content, tool_calls)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+turnColumns,
		turn.ConversationID, turn.UserID, string(turn.Role), turn.Content, toolCalls,
	).Scan(turnFields(&turn)...)
	if err != nil {
		return model.Turn{}, fmt.Errorf("storage: append turn: %w", err)
	}
	return turn, nil
}

// RecentTurns returns up to limit of the newest turns in a conversation,
// oldest first. Fetches newest-first with LIMIT, then reverses in memory so
// the truncation boundary always drops the oldest excess turns.
func (db *DB) RecentTurns(ctx context.Context, conversationID int64, limit int) ([]model.Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+turnColumns+` FROM conversation_messages
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ConversationOwner returns the user id owning a conversation, or ErrNotFound
// if the conversation has no turns yet.
func (db *DB) ConversationOwner(ctx context.Context, conversationID int64) (int64, error) {
	var userID int64
	err := db.pool.QueryRow(ctx,
		`SELECT user_id FROM conversation_messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`, conversationID,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: conversation owner: %w", err)
	}
	return userID, nil
}

// ListConversations returns per-conversation summaries for a user, most
// recently active first.
func (db *DB) ListConversations(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	// DISTINCT ON forces conversation_id to lead the inner ORDER BY, so the
	// recency sort and the LIMIT have to happen in an outer query.
	rows, err := db.pool.Query(ctx,
		`SELECT conversation_id, content, role, turn_count, updated_at
		 FROM (
		     SELECT DISTINCT ON (conversation_id)
		            conversation_id, content, role,
		            count(*) OVER (PARTITION BY conversation_id) AS turn_count,
		            max(created_at) OVER (PARTITION BY conversation_id) AS updated_at
		     FROM conversation_messages
		     WHERE user_id = $1
		     ORDER BY conversation_id, created_at DESC, id DESC
		 ) latest
		 ORDER BY updated_at DESC
		 LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationSummary
	for rows.Next() {
		var s model.ConversationSummary
		if err := rows.Scan(&s.ConversationID, &s.LastMessage, &s.LastRole, &s.TurnCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan conversation summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func turnFields(t *model.Turn) []any {
	return []any{
		&t.ID, &t.ConversationID, &t.UserID, &t.Role, &t.Content,
		(*toolCallsScanner)(&t.ToolCalls), &t.CreatedAt,
	}
}

func scanTurns(rows pgx.Rows) ([]model.Turn, error) {
	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(turnFields(&t)...); err != nil {
			return nil, fmt.Errorf("storage: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// toolCallsScanner maps a nullable JSONB column onto json.RawMessage.
type toolCallsScanner json.RawMessage

func (s *toolCallsScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*s = buf
	case string:
		*s = []byte(v)
	default:
		return fmt.Errorf("storage: unsupported tool_calls type %T", src)
	}
	return nil
}
