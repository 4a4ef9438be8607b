package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gwi.com/botchat/internal/auth"
	"gwi.com/botchat/internal/store"
)

// PresetBots are provisioned for every new account.
var PresetBots = []store.Bot{
	{Name: "Eliza", Description: "a psychotherapist bot"},
	{Name: "Jabberwacky", Description: "a chatterbot"},
	{Name: "A.L.I.C.E.", Description: "a natural language bot"},
}

type AccountService struct {
	store  *store.Store
	logger *slog.Logger
}

func NewAccountService(log *slog.Logger, db *store.Store) *AccountService {
	return &AccountService{
		store:  db,
		logger: log.With(slog.String("service", "accounts")),
	}
}

// Signup registers the user and provisions one empty conversation per preset bot.
func (s *AccountService) Signup(ctx context.Context, email, password, confirm string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *store.User
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		username, err := availableUsername(ctx, q, email)
		if err != nil {
			return err
		}
		user, err = q.CreateUser(ctx, username, email, hash)
		if err != nil {
			return err
		}
		for _, preset := range PresetBots {
			bot, err := q.CreateBot(ctx, preset.Name, preset.Description)
			if err != nil {
				return err
			}
			if _, err := q.CreateConversation(ctx, user.ID, bot.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// availableUsername derives a username from the email's local part, adding 2, 3, ... when taken.
func availableUsername(ctx context.Context, q *store.Queries, email string) (string, error) {
	base := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := q.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID int64) (*store.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

func (s *AccountService) UpdateFullname(ctx context.Context, userID int64, fullname string) (*store.User, error) {
	fullname = strings.TrimSpace(fullname)
	if fullname == "" {
		return nil, fmt.Errorf("%w: fullname is required", ErrInvalidInput)
	}
	return s.store.UpdateUserFullname(ctx, userID, fullname)
}
