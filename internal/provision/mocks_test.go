package provision

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/raphael2692/ssohub/internal/store"
)

// MockStorage is a mock implementation of Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.User), args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, u *store.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// memoryStorage is an in-memory Storage for idempotency tests.
type memoryStorage struct {
	mu    sync.Mutex
	users map[string]*store.User
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{users: make(map[string]*store.User)}
}

func (m *memoryStorage) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryStorage) CreateUser(ctx context.Context, u *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return store.ErrUserAlreadyExists
	}
	cp := *u
	m.users[u.Email] = &cp
	return nil
}
