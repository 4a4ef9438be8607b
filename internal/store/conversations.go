package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Bot methods

func (q *Queries) CreateBot(ctx context.Context, name, description string) (*Bot, error) {
	bot := &Bot{Name: name, Description: description}
	err := q.queryRow(ctx, "INSERT INTO bots (name, description) VALUES (?, ?) RETURNING id", name, description).Scan(&bot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bot: %w", err)
	}
	return bot, nil
}

func (q *Queries) GetBot(ctx context.Context, id int64) (*Bot, error) {
	var bot Bot
	err := q.queryRow(ctx, "SELECT id, name, description FROM bots WHERE id = ?", id).Scan(&bot.ID, &bot.Name, &bot.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return &bot, nil
}

// Conversation methods

const conversationSelect = `SELECT c.id, c.user_id, c.bot_id, c.timestamp, b.id, b.name, b.description
FROM conversations c JOIN bots b ON b.id = c.bot_id`

func scanConversation(row scanner) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.BotID, &c.Timestamp, &c.Bot.ID, &c.Bot.Name, &c.Bot.Description); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) CreateConversation(ctx context.Context, userID, botID int64) (*Conversation, error) {
	bot, err := q.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	conv := &Conversation{UserID: userID, BotID: botID, Timestamp: now(), Bot: *bot}
	err = q.queryRow(ctx,
		"INSERT INTO conversations (user_id, bot_id, timestamp) VALUES (?, ?, ?) RETURNING id",
		userID, botID, conv.Timestamp,
	).Scan(&conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return conv, nil
}

func (q *Queries) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	conv, err := scanConversation(q.queryRow(ctx, conversationSelect+" WHERE c.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// GetUserConversation returns the conversation only when userID owns it.
func (q *Queries) GetUserConversation(ctx context.Context, userID, id int64) (*Conversation, error) {
	conv, err := q.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (q *Queries) FindConversationByBotName(ctx context.Context, userID int64, name string) (*Conversation, error) {
	conv, err := scanConversation(q.queryRow(ctx,
		conversationSelect+" WHERE c.user_id = ? AND b.name = ? ORDER BY c.id LIMIT 1", userID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return conv, nil
}

func (q *Queries) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	rows, err := q.query(ctx, conversationSelect+" WHERE c.user_id = ? ORDER BY c.timestamp DESC, c.id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// ListConversationSummaries orders a user's conversations by their latest non-seed message,
// newest first. Conversations without such a message follow, newest conversation first.
func (q *Queries) ListConversationSummaries(ctx context.Context, userID int64) ([]ConversationSummary, error) {
	convs, err := q.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		last, err := q.LastMessage(ctx, conv.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if last != nil && last.IsSeed() {
			last = nil
		}
		summaries = append(summaries, ConversationSummary{Conversation: *conv, LastMessage: last})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case !a.Timestamp.Equal(b.Timestamp):
			return a.Timestamp.After(b.Timestamp)
		default:
			return summaries[i].ID > summaries[j].ID
		}
	})
	return summaries, nil
}

// EnsureConversation returns the user's conversation with the bot called name, creating the bot and
// conversation when none exists. A non-blank prompt becomes the new conversation's seed message.
func (s *Store) EnsureConversation(ctx context.Context, userID int64, name, description, prompt string) (*Conversation, bool, error) {
	var (
		conv    *Conversation
		created bool
	)
	err := s.InTx(ctx, func(q *Queries) error {
		if err := q.LockUser(ctx, userID); err != nil {
			return err
		}
		existing, err := q.FindConversationByBotName(ctx, userID, name)
		if err == nil {
			conv = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		bot, err := q.CreateBot(ctx, name, description)
		if err != nil {
			return err
		}
		conv, err = q.CreateConversation(ctx, userID, bot.ID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(prompt) != "" {
			seed := &Message{
				ConversationID: conv.ID,
				SenderID:       bot.ID,
				SenderType:     SenderBot,
				Message:        prompt,
			}
			if err := q.CreateMessage(ctx, seed); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}
