package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shotzi/internal/model"
	"shotzi/internal/store"
)

type userRepository struct {
	store *store.Store
}

func NewUserRepository(s *store.Store) UserRepository {
	return &userRepository{store: s}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	err := r.store.Insert(ctx, "users", map[string]any{
		"email":           user.Email,
		"username":        user.Username,
		"password_hashed": user.PasswordHashed,
		"avatar_url":      user.AvatarURL,
		"is_admin":        user.IsAdmin,
	}, user)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.store.Get(ctx, store.From("users").Eq("id", id), &user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.store.Get(ctx, store.From("users").Eq("email", email), &user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	out := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	anyIDs := make([]any, len(ids))
	for i, id := range ids {
		anyIDs[i] = id
	}

	var rows []model.UserSummary
	q := store.From("users").
		Columns("id", "username", "avatar_url", "last_active").
		In("id", anyIDs...)
	if err := r.store.Select(ctx, q, &rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *userRepository) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	// Presence pings carry no row on the feed; views poll last_active through
	// profile summaries instead.
	query := `UPDATE users SET last_active = $1 WHERE id = $2`
	if _, err := r.store.DB().ExecContext(ctx, query, at, userID); err != nil {
		return fmt.Errorf("touch last_active: %w", err)
	}
	return nil
}
