package web

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/raphael2692/ssohub/internal/auth"
)

// MockProvisioner is a mock implementation of UserProvisioner.
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Provision(ctx context.Context, email, name string) error {
	args := m.Called(ctx, email, name)
	return args.Error(0)
}

// memoryProvisioner records provisioned users for end-to-end assertions.
type memoryProvisioner struct {
	mu    sync.Mutex
	users map[string]string // email -> name
	calls int
}

func newMemoryProvisioner() *memoryProvisioner {
	return &memoryProvisioner{users: make(map[string]string)}
}

func (m *memoryProvisioner) Provision(ctx context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.users[email]; !ok {
		m.users[email] = name
	}
	return nil
}

// stubProvider is a canned auth.Provider for handler tests.
type stubProvider struct {
	name    string
	authURL string
	result  *auth.Result
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthURL(state string) string {
	return p.authURL + "?state=" + state
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*auth.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}
