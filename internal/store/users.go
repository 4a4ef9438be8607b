package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, username, email, password_hash, fullname, created_at, updated_at"

func scanUser(row scanner) (*User, error) {
	var (
		user      User
		fullname  sql.NullString
		updatedAt sql.NullTime
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &fullname, &user.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	user.Fullname = fullname.String
	if updatedAt.Valid {
		t := updatedAt.Time
		user.UpdatedAt = &t
	}
	return &user, nil
}

// CreateUser inserts a user. Callers wanting the email check and insert to be atomic run it through Store.InTx.
func (q *Queries) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	var exists int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicateEmail
	}

	user := &User{Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: now()}
	err = q.queryRow(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id",
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (q *Queries) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	if err := q.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) UpdateUserFullname(ctx context.Context, id int64, fullname string) (*User, error) {
	res, err := q.exec(ctx, "UPDATE users SET fullname = ?, updated_at = ? WHERE id = ?", fullname, now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return q.GetUserByID(ctx, id)
}
