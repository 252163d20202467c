package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"titan/internal/model"
	"titan/pkg/otel"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user and fills its ID and CreatedAt.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING created_at
    `
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return otel.Traced(ctx, "insert", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, u.ID, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	})
}

// FindByEmail returns user by email, or model.ErrNotFound.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := otel.Traced(ctx, "select", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, email).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
