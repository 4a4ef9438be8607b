package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gwi.com/botchat/internal/artifacts"
	"gwi.com/botchat/internal/store"
)

// exportTimestampLayout is the timestamp column format in CSV exports.
const exportTimestampLayout = "2006-01-02 15:04:05.000000"

var exportHeader = []string{
	"id", "conversation_id", "sender_id", "sender_type", "receiver_id", "message", "feedback", "timestamp", "gpt_model",
}

type ChatService struct {
	store     *store.Store
	relay     *Relay
	artifacts artifacts.Store
	model     string
	logger    *slog.Logger
}

func NewChatService(log *slog.Logger, db *store.Store, relay *Relay, exports artifacts.Store, model string) *ChatService {
	return &ChatService{
		store:     db,
		relay:     relay,
		artifacts: exports,
		model:     model,
		logger:    log.With(slog.String("service", "chat")),
	}
}

func (s *ChatService) Model() string {
	return s.model
}

// Get returns the conversation with its visible transcript. A leading seed message is dropped.
func (s *ChatService) Get(ctx context.Context, userID, conversationID int64) (*store.Conversation, []*store.Message, error) {
	conv, err := s.store.GetUserConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(messages) > 0 && messages[0].IsSeed() {
		messages = messages[1:]
	}
	return conv, messages, nil
}

// PostMessage runs one turn: the bot reply is obtained first, then the seed (when the
// conversation is empty), the user message and the reply are written in one transaction.
func (s *ChatService) PostMessage(ctx context.Context, userID, conversationID int64, text string) (*store.Conversation, *store.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	conv, err := s.store.GetUserConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}

	turns := make([]Turn, 0, len(history)+2)
	if len(history) == 0 {
		turns = append(turns, Turn{Role: RoleAssistant, Content: SeedText(conv.Bot)})
	}
	for _, m := range history {
		role := RoleUser
		if m.SenderType == store.SenderBot {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Content: m.Message})
	}
	turns = append(turns, Turn{Role: RoleUser, Content: text})

	reply := s.relay.Reply(ctx, turns)

	botMsg := &store.Message{
		ConversationID: conv.ID,
		SenderID:       conv.BotID,
		SenderType:     store.SenderBot,
		ReceiverID:     userID,
		Message:        reply,
	}
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		if err := q.LockConversation(ctx, conv.ID); err != nil {
			return err
		}
		n, err := q.CountMessages(ctx, conv.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			seed := &store.Message{
				ConversationID: conv.ID,
				SenderID:       conv.BotID,
				SenderType:     store.SenderBot,
				Message:        SeedText(conv.Bot),
			}
			if err := q.CreateMessage(ctx, seed); err != nil {
				return err
			}
		}
		userMsg := &store.Message{
			ConversationID: conv.ID,
			SenderID:       userID,
			SenderType:     store.SenderUser,
			ReceiverID:     conv.BotID,
			Message:        text,
		}
		if err := q.CreateMessage(ctx, userMsg); err != nil {
			return err
		}
		return q.CreateMessage(ctx, botMsg)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store turn: %w", err)
	}
	return conv, botMsg, nil
}

// RecordFeedback stores a 1..5 score on a message in one of the user's conversations.
func (s *ChatService) RecordFeedback(ctx context.Context, userID, messageID int64, raw string) (*store.Message, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrInvalidInput)
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: feedback must be an integer", ErrInvalidInput)
	}
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: feedback must be between 1 and 5", ErrInvalidInput)
	}

	var msg *store.Message
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		m, err := q.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if _, err := q.GetUserConversation(ctx, userID, m.ConversationID); err != nil {
			return err
		}
		if err := q.UpdateMessageFeedback(ctx, m.ID, score); err != nil {
			return err
		}
		m.Feedback = score
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Clear deletes the transcript. Clearing an empty conversation succeeds.
func (s *ChatService) Clear(ctx context.Context, userID, conversationID int64) error {
	return s.store.InTx(ctx, func(q *store.Queries) error {
		conv, err := q.GetUserConversation(ctx, userID, conversationID)
		if err != nil {
			return err
		}
		n, err := q.DeleteMessages(ctx, conv.ID)
		if err != nil {
			return err
		}
		s.logger.Info("conversation cleared", slog.Int64("conversation_id", conv.ID), slog.Int64("deleted", n))
		return nil
	})
}

type ExportFile struct {
	Name     string
	Location string
	Data     []byte
	ModTime  time.Time
}

// Export renders the full transcript, seed included, as CSV and saves it to the artifact store.
func (s *ChatService) Export(ctx context.Context, userID, conversationID int64) (*ExportFile, error) {
	conv, err := s.store.GetUserConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}

	data, err := s.renderCSV(messages)
	if err != nil {
		return nil, err
	}
	name := ExportFilename(conv.Bot.Name, conv.ID)
	location, err := s.artifacts.Save(ctx, name, data, "text/csv")
	if err != nil {
		return nil, fmt.Errorf("failed to save export: %w", err)
	}
	s.logger.Info("conversation exported",
		slog.Int64("conversation_id", conv.ID),
		slog.Int("messages", len(messages)),
		slog.String("location", location))

	return &ExportFile{Name: name, Location: location, Data: data, ModTime: time.Now().UTC()}, nil
}

func (s *ChatService) renderCSV(messages []*store.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, m := range messages {
		record := []string{
			strconv.FormatInt(m.ID, 10),
			strconv.FormatInt(m.ConversationID, 10),
			strconv.FormatInt(m.SenderID, 10),
			string(m.SenderType),
			strconv.FormatInt(m.ReceiverID, 10),
			m.Message,
			strconv.Itoa(m.Feedback),
			m.Timestamp.UTC().Format(exportTimestampLayout),
			s.model,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename builds chatbot_<bot>_<id>.csv with the bot name reduced to filename-safe characters.
func ExportFilename(botName string, conversationID int64) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(botName) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.'):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "bot"
	}
	return fmt.Sprintf("chatbot_%s_%d.csv", name, conversationID)
}

type Dashboard struct {
	User          *store.User
	DisplayName   string
	Model         string
	Conversations []store.ConversationSummary
}

func (s *ChatService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.store.ListConversationSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		User:          user,
		DisplayName:   user.DisplayName(),
		Model:         s.model,
		Conversations: summaries,
	}, nil
}

// AddConversation returns the user's conversation with botName, creating it when missing.
func (s *ChatService) AddConversation(ctx context.Context, userID int64, botName, description, prompt string) (*store.Conversation, bool, error) {
	botName = strings.TrimSpace(botName)
	if botName == "" {
		return nil, false, fmt.Errorf("%w: bot name is required", ErrInvalidInput)
	}
	conv, created, err := s.store.EnsureConversation(ctx, userID, botName, strings.TrimSpace(description), prompt)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("conversation added", slog.Int64("conversation_id", conv.ID), slog.String("bot", botName))
	}
	return conv, created, nil
}
