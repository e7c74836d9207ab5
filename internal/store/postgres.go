package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raphael2692/ssohub/pkg/pg"
)

// PostgresStore implements user persistence on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetUserByEmail looks a user up by primary key.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT email, name, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user row. The insert is a single atomic statement;
// a unique-constraint violation maps to ErrUserAlreadyExists so callers can
// treat the concurrent first-login race as the existing-user path.
func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (email, name) VALUES ($1, $2)`,
		u.Email, u.Name,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
