package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Мок для AccountRepository
type AccountRepoMock struct {
	mock.Mock
}

func (m *AccountRepoMock) CreateAccount(ctx context.Context, account models.Account) (*models.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) RegisterFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	args := m.Called(ctx, id, threshold, lockUntil)
	var locked *time.Time
	if v := args.Get(1); v != nil {
		locked = v.(*time.Time)
	}
	return args.Int(0), locked, args.Error(2)
}

func (m *AccountRepoMock) ResetLoginFailures(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type TokenIssuerMock struct {
	mock.Mock
}

func (m *TokenIssuerMock) GenerateToken(accountID, email, role string) (string, error) {
	args := m.Called(accountID, email, role)
	return args.String(0), args.Error(1)
}

type RevokerMock struct {
	mock.Mock
}

func (m *RevokerMock) Add(ctx context.Context, token string, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, to, name string) error {
	args := m.Called(ctx, to, name)
	return args.Error(0)
}

// plainHasher быстрый хешер вместо bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return fmt.Errorf("compare: %w", password.ErrMismatch)
	}
	return nil
}

// memoryAccounts хранилище в памяти с той же семантикой счётчика, что и SQL.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newMemoryAccounts(accounts ...models.Account) *memoryAccounts {
	m := &memoryAccounts{accounts: map[string]*models.Account{}}
	for i := range accounts {
		a := accounts[i]
		m.accounts[a.ID] = &a
	}
	return m
}

func (m *memoryAccounts) CreateAccount(_ context.Context, account models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return nil, models.ErrDuplicateEmail
		}
	}
	account.ID = fmt.Sprintf("acc-%d", len(m.accounts)+1)
	m.accounts[account.ID] = &account
	cp := account
	return &cp, nil
}

func (m *memoryAccounts) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memoryAccounts) GetAccount(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) RegisterFailedLogin(_ context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, nil, models.ErrNotFound
	}
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= threshold {
		t := lockUntil
		a.LockUntil = &t
	}
	return a.FailedLoginAttempts, a.LockUntil, nil
}

func (m *memoryAccounts) ResetLoginFailures(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.FailedLoginAttempts = 0
	a.LockUntil = nil
	return nil
}
