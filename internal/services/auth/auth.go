// Package auth реализует регистрацию, вход с политикой блокировки,
// профиль и выход с отзывом токена.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// UsersCacheKey ключ кеша со списком аккаунтов.
const UsersCacheKey = "users"

// AccountRepository описывает работу с хранилищем аккаунтов.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account models.Account) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	RegisterFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	ResetLoginFailures(ctx context.Context, id string) error
}

// Hasher хеширует и сверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer выпускает токены доступа.
type TokenIssuer interface {
	GenerateToken(accountID, email, role string) (string, error)
}

// TokenRevoker добавляет токен в хранилище отозванных.
type TokenRevoker interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
}

// CacheInvalidator удаляет ключ кеша.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// WelcomeNotifier ставит приветственное письмо в очередь.
type WelcomeNotifier interface {
	Notify(ctx context.Context, to, name string) error
}

// Policy параметры блокировки и отзыва.
type Policy struct {
	MaxFailedLogins int
	LockDuration    time.Duration
	RevocationTTL   time.Duration
}

// DefaultPolicy пять неудачных попыток, блокировка на 15 минут, отзыв на час.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailedLogins: 5,
		LockDuration:    15 * time.Minute,
		RevocationTTL:   time.Hour,
	}
}

// Result токен и аккаунт без хеша пароля.
type Result struct {
	AccessToken string          `json:"accessToken"`
	User        *models.Account `json:"user"`
}

// Service сервис аутентификации.
type Service struct {
	accounts AccountRepository
	hasher   Hasher
	tokens   TokenIssuer
	revoker  TokenRevoker
	cache    CacheInvalidator
	welcome  WelcomeNotifier
	policy   Policy
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPolicy задаёт политику блокировки.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithHasher подменяет хешер паролей.
func WithHasher(h Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithMetrics включает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New создаёт Service. По умолчанию bcrypt и DefaultPolicy.
func New(accounts AccountRepository, tokens TokenIssuer, revoker TokenRevoker, cache CacheInvalidator,
	welcome WelcomeNotifier, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		hasher:   password.Hasher{},
		tokens:   tokens,
		revoker:  revoker,
		cache:    cache,
		welcome:  welcome,
		policy:   DefaultPolicy(),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register создаёт аккаунт с ролью USER и выпускает токен.
func (s *Service) Register(ctx context.Context, name, email, rawPassword string) (*Result, error) {
	const op = "auth.Register"

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.accounts.CreateAccount(ctx, models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account registered", slog.String("account_id", account.ID))

	s.invalidateUsers(ctx)
	_ = s.welcome.Notify(ctx, account.Email, account.Name)

	return s.issue(op, account)
}

// Login проверяет пароль с учётом блокировки.
//
// Неизвестный email и неверный пароль неразличимы для вызывающего.
// Пятая подряд ошибка блокирует аккаунт на LockDuration.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Result, error) {
	const op = "auth.Login"
	now := s.now()

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.ObserveLogin(metrics.LoginInvalid)
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if account.IsLocked(now) {
		s.metrics.ObserveLogin(metrics.LoginLocked)
		return nil, fmt.Errorf("%s: %w", op, &models.AccountLockedError{Remaining: account.LockUntil.Sub(now)})
	}
	if account.LockUntil != nil {
		// блокировка истекла, счёт неудачных попыток начинается заново
		if err := s.resetFailures(ctx, account); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.hasher.Compare(account.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, s.registerFailure(ctx, op, account, now)
	}

	if account.FailedLoginAttempts > 0 || account.LockUntil != nil {
		if err := s.resetFailures(ctx, account); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.metrics.ObserveLogin(metrics.LoginSuccess)
	return s.issue(op, account)
}

func (s *Service) resetFailures(ctx context.Context, account *models.Account) error {
	if err := s.accounts.ResetLoginFailures(ctx, account.ID); err != nil {
		return err
	}
	account.FailedLoginAttempts = 0
	account.LockUntil = nil
	s.invalidateUsers(ctx)
	return nil
}

func (s *Service) registerFailure(ctx context.Context, op string, account *models.Account, now time.Time) error {
	lockUntil := now.Add(s.policy.LockDuration)
	attempts, locked, err := s.accounts.RegisterFailedLogin(ctx, account.ID, s.policy.MaxFailedLogins, lockUntil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateUsers(ctx)

	if attempts >= s.policy.MaxFailedLogins && locked != nil {
		s.log.Warn("account locked after failed logins",
			slog.String("account_id", account.ID), slog.Int("attempts", attempts))
		s.metrics.ObserveLogin(metrics.LoginLocked)
		s.metrics.AccountLocked()
		return fmt.Errorf("%s: %w", op, &models.AccountLockedError{Remaining: locked.Sub(now)})
	}

	s.metrics.ObserveLogin(metrics.LoginInvalid)
	return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
}

// Profile возвращает аккаунт вызывающего.
func (s *Service) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "auth.Profile"
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

// Logout отзывает токен на оставшийся срок его жизни.
// Если срок неизвестен или уже истёк, используется Policy.RevocationTTL.
func (s *Service) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	const op = "auth.Logout"
	ttl := s.policy.RevocationTTL
	if !expiresAt.IsZero() {
		if remaining := expiresAt.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.revoker.Add(ctx, token, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.TokenRevoked()
	return nil
}

func (s *Service) issue(op string, account *models.Account) (*Result, error) {
	token, err := s.tokens.GenerateToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Result{AccessToken: token, User: account}, nil
}

func (s *Service) invalidateUsers(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, UsersCacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", UsersCacheKey), sl.Err(err))
	}
}
