package core

import (
	"errors"

	"gwi.com/botchat/internal/store"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyConversation  = errors.New("conversation has no messages")
	ErrPasswordMismatch   = errors.New("passwords must match")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Re-exported so handlers only depend on core for error mapping.
	ErrNotFound       = store.ErrNotFound
	ErrDuplicateEmail = store.ErrDuplicateEmail
)
