package store

import (
	"strings"
	"time"
)

type SenderType string

const (
	SenderUser SenderType = "USER"
	SenderBot  SenderType = "BOT"
)

func (t SenderType) Valid() bool {
	return t == SenderUser || t == SenderBot
}

// Wire formats for message timestamps.
const (
	TimestampLayout = "2006-01-02T15:04:05Z"
	DateLayout      = "02/01/2006"
	TimeLayout      = "03:04 PM"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Fullname     string // empty when never set
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// DisplayName is the fullname, or the capitalised username when no fullname is set.
func (u User) DisplayName() string {
	if u.Fullname != "" {
		return u.Fullname
	}
	if u.Username == "" {
		return ""
	}
	return strings.ToUpper(u.Username[:1]) + u.Username[1:]
}

type UserJSON struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Fullname *string `json:"fullname"`
}

func (u User) JSON() UserJSON {
	out := UserJSON{ID: u.ID, Username: u.Username, Email: u.Email}
	if u.Fullname != "" {
		name := u.Fullname
		out.Fullname = &name
	}
	return out
}

type Bot struct {
	ID          int64
	Name        string
	Description string
}

type BotJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (b Bot) JSON() BotJSON {
	return BotJSON{ID: b.ID, Name: b.Name, Description: b.Description}
}

type Conversation struct {
	ID        int64
	UserID    int64
	BotID     int64
	Timestamp time.Time
	Bot       Bot
}

type ConversationJSON struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Bot       BotJSON `json:"bot"`
	Timestamp string  `json:"timestamp"`
}

func (c Conversation) JSON() ConversationJSON {
	return ConversationJSON{
		ID:        c.ID,
		UserID:    c.UserID,
		Bot:       c.Bot.JSON(),
		Timestamp: c.Timestamp.UTC().Format(TimestampLayout),
	}
}

type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderType     SenderType
	ReceiverID     int64 // 0 marks the seed message
	Message        string
	Feedback       int
	Timestamp      time.Time
}

// IsSeed reports whether m is the persona-introduction message hidden from transcripts.
func (m Message) IsSeed() bool {
	return m.ReceiverID == 0
}

type MessageJSON struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	ReceiverID     int64      `json:"receiver_id"`
	SenderType     SenderType `json:"sender_type"`
	Message        string     `json:"message"`
	Feedback       int        `json:"feedback"`
	Timestamp      string     `json:"timestamp"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
}

func (m Message) JSON() MessageJSON {
	ts := m.Timestamp.UTC()
	return MessageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		SenderType:     m.SenderType,
		Message:        m.Message,
		Feedback:       m.Feedback,
		Timestamp:      ts.Format(TimestampLayout),
		Date:           ts.Format(DateLayout),
		Time:           ts.Format(TimeLayout),
	}
}

// ConversationSummary is a dashboard row. LastMessage is nil when the conversation has no
// messages or only its seed.
type ConversationSummary struct {
	Conversation
	LastMessage *Message
}

type ConversationSummaryJSON struct {
	ConversationJSON
	LastMessage *MessageJSON `json:"last_message"`
}

func (s ConversationSummary) JSON() ConversationSummaryJSON {
	out := ConversationSummaryJSON{ConversationJSON: s.Conversation.JSON()}
	if s.LastMessage != nil {
		m := s.LastMessage.JSON()
		out.LastMessage = &m
	}
	return out
}
