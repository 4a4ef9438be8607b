package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gwi.com/botchat/internal/store"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of the history sent to the completion API.
type Turn struct {
	Role    Role
	Content string
}

// Completer produces the assistant's next reply for a history ending in a user turn.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

var fallbackReplies = []string{
	"Sorry, I'm not feeling well. Please try again later.",
	"Sorry, I don't feel like talking right now. Please try again later.",
	"Sorry, I'm not in a good mood right now. Please try again later.",
	"Sorry, I'm currently unavailable. Please try again later.",
	"Sorry, I can't talk right now. Please try again later.",
	"Sorry, I'm not available right now. Please try again later.",
	"Sorry, I can't connect to the server right now. Please try again later.",
	"Sorry for the inconvenience. Please try again later.",
}

// FallbackReplies returns a copy of the canned apologies used when a completion fails.
func FallbackReplies() []string {
	return append([]string(nil), fallbackReplies...)
}

// SeedText is the persona introduction that opens every conversation.
func SeedText(bot store.Bot) string {
	return fmt.Sprintf("I'm %s, %s. How can I help you?", bot.Name, bot.Description)
}

// Relay wraps a Completer so that a reply is always produced.
type Relay struct {
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
	pick      func(n int) int
}

func NewRelay(log *slog.Logger, completer Completer, timeout time.Duration) *Relay {
	return &Relay{
		completer: completer,
		timeout:   timeout,
		logger:    log.With(slog.String("service", "relay")),
		pick:      rand.IntN,
	}
}

// Reply returns the completion text, or a random canned apology when the call fails.
func (r *Relay) Reply(ctx context.Context, turns []Turn) string {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.completer.Complete(ctx, turns)
	if err != nil {
		r.logger.Error("completion failed, using fallback reply",
			slog.Any("error", err),
			slog.Int("turns", len(turns)),
			slog.Duration("elapsed", time.Since(start)))
		return fallbackReplies[r.pick(len(fallbackReplies))]
	}
	r.logger.Debug("completion succeeded", slog.Int("turns", len(turns)), slog.Duration("elapsed", time.Since(start)))
	return text
}
