package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSONFormats(t *testing.T) {
	m := Message{
		ID:             3,
		ConversationID: 1,
		SenderID:       2,
		SenderType:     SenderBot,
		ReceiverID:     5,
		Message:        "hello",
		Feedback:       4,
		Timestamp:      time.Date(2024, 3, 9, 14, 7, 30, 0, time.UTC),
	}
	got := m.JSON()
	assert.Equal(t, "2024-03-09T14:07:30Z", got.Timestamp)
	assert.Equal(t, "09/03/2024", got.Date)
	assert.Equal(t, "02:07 PM", got.Time)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sender_type":"BOT"`)
}

func TestUserJSONFullname(t *testing.T) {
	raw, err := json.Marshal(User{ID: 1, Username: "alice", Email: "alice@example.com"}.JSON())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"username":"alice","email":"alice@example.com","fullname":null}`, string(raw))

	assert.Equal(t, "Alice", User{Username: "alice"}.DisplayName())
	assert.Equal(t, "Alice Smith", User{Username: "alice", Fullname: "Alice Smith"}.DisplayName())
}

func TestSummaryJSONLastMessage(t *testing.T) {
	sum := ConversationSummary{Conversation: Conversation{ID: 1, Bot: Bot{ID: 2, Name: "Eliza"}}}
	raw, err := json.Marshal(sum.JSON())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"last_message":null`)
	assert.Contains(t, string(raw), `"name":"Eliza"`)
}
