// Package provision ensures a local user record exists for an externally
// authenticated identity.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/raphael2692/ssohub/internal/store"
	"github.com/raphael2692/ssohub/pkg/logger"
)

// Storage is the minimal persistence surface provisioning needs.
type Storage interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, u *store.User) error
}

// Provisioner idempotently inserts a user record keyed by email if absent.
type Provisioner struct {
	storage Storage
	logger  *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

func New(storage Storage, opts ...Option) *Provisioner {
	p := &Provisioner{
		storage: storage,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision looks the user up by email and inserts a row when absent. An
// existing row is left untouched: the name is never refreshed. The loser of
// a concurrent first-login race hits a duplicate insert, which is treated
// the same as finding the row.
func (p *Provisioner) Provision(ctx context.Context, email, name string) error {
	_, err := p.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := p.storage.CreateUser(ctx, &store.User{Email: email, Name: name}); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			p.logger.DebugContext(ctx, "user created concurrently",
				logger.UserEmail(email),
				logger.Component("provision"),
			)
			return nil
		}
		return fmt.Errorf("create user: %w", err)
	}

	p.logger.InfoContext(ctx, "user provisioned",
		logger.UserEmail(email),
		logger.Component("provision"),
	)
	return nil
}
