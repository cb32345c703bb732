package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sitepulse/api/logger"
	"sitepulse/api/models"
)

// UserStore manages the admin users that can reach the dashboard and
// session detail endpoints.
type UserStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewUserStore(db *sql.DB, log *logger.Logger) *UserStore {
	return &UserStore{db: db, log: log.With("store", "users")}
}

func (s *UserStore) CreateUser(ctx context.Context, email string, hashedPassword []byte) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&user.ID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, fmt.Errorf("%w: user with email %q already exists", ErrValidation, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("admin user created", "id", user.ID, "email", user.Email)
	return user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: user with email %q", ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}
