package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const messageColumns = "id, conversation_id, sender_id, sender_type, receiver_id, message, feedback, timestamp"

func scanMessage(row scanner) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderType, &m.ReceiverID, &m.Message, &m.Feedback, &m.Timestamp); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMessage inserts m and fills in its ID and Timestamp.
func (q *Queries) CreateMessage(ctx context.Context, m *Message) error {
	if !m.SenderType.Valid() {
		return fmt.Errorf("invalid sender type %q", m.SenderType)
	}
	m.Timestamp = now()
	err := q.queryRow(ctx,
		"INSERT INTO messages (conversation_id, sender_id, sender_type, receiver_id, message, feedback, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id",
		m.ConversationID, m.SenderID, m.SenderType, m.ReceiverID, m.Message, m.Feedback, m.Timestamp,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (q *Queries) GetMessage(ctx context.Context, id int64) (*Message, error) {
	m, err := scanMessage(q.queryRow(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// ListMessages returns the transcript in insertion order.
func (q *Queries) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	rows, err := q.query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC", conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (q *Queries) LastMessage(ctx context.Context, conversationID int64) (*Message, error) {
	m, err := scanMessage(q.queryRow(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1", conversationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}
	return m, nil
}

func (q *Queries) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	var n int
	if err := q.queryRow(ctx, "SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// DeleteMessages removes the whole transcript and returns how many rows went away.
func (q *Queries) DeleteMessages(ctx context.Context, conversationID int64) (int64, error) {
	res, err := q.exec(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted messages: %w", err)
	}
	return n, nil
}

func (q *Queries) UpdateMessageFeedback(ctx context.Context, id int64, feedback int) error {
	res, err := q.exec(ctx, "UPDATE messages SET feedback = ? WHERE id = ?", feedback, id)
	if err != nil {
		return fmt.Errorf("failed to update message feedback: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
