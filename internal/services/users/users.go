// Package users содержит администрирование учётных записей и кеш их списка.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// ListCacheKey ключ кеша со списком аккаунтов.
const ListCacheKey = "users"

// DefaultCacheTTL время жизни закешированного списка.
const DefaultCacheTTL = 60 * time.Second

// AccountRepository определяет методы хранилища аккаунтов.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccount(ctx context.Context, id string, changes models.AccountChanges) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Hasher хеширует пароли.
type Hasher interface {
	Hash(password string) (string, error)
}

// WelcomeNotifier ставит приветственное письмо в очередь.
type WelcomeNotifier interface {
	Notify(ctx context.Context, to, name string) error
}

// CreateInput данные нового аккаунта. Пустая роль означает USER.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UpdateInput изменяемые поля. nil означает "не менять".
type UpdateInput struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

// Service управляет аккаунтами от имени администратора и владельца.
type Service struct {
	repo     AccountRepository
	cache    Cache
	welcome  WelcomeNotifier
	hasher   Hasher
	log      *slog.Logger
	cacheTTL time.Duration
}

// New создает Service. cacheTTL <= 0 заменяется на DefaultCacheTTL.
func New(repo AccountRepository, cache Cache, welcome WelcomeNotifier, log *slog.Logger, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		welcome:  welcome,
		hasher:   password.Hasher{},
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// WithHasher подменяет хешер паролей.
func (s *Service) WithHasher(h Hasher) *Service {
	s.hasher = h
	return s
}

// Create создаёт аккаунт с заданной ролью.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Account, error) {
	const op = "users.Create"

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account, err := s.repo.CreateAccount(ctx, models.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account created", slog.String("account_id", account.ID), slog.String("role", role))

	s.invalidate(ctx)
	_ = s.welcome.Notify(ctx, account.Email, account.Name)
	return account, nil
}

// List возвращает все аккаунты, используя кеш или репозиторий.
func (s *Service) List(ctx context.Context) ([]models.Account, error) {
	const op = "users.List"

	var cached []models.Account
	found, err := s.cache.Get(ctx, ListCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", ListCacheKey), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, ListCacheKey, accounts, s.cacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", ListCacheKey), sl.Err(err))
	}
	return accounts, nil
}

// Get возвращает аккаунт по id.
func (s *Service) Get(ctx context.Context, id string) (*models.Account, error) {
	const op = "users.Get"
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

// Update изменяет собственный аккаунт: только имя и пароль.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Account, error) {
	in.Email = nil
	in.Role = nil
	return s.update(ctx, "users.Update", id, in)
}

// UpdateAsAdmin изменяет любой аккаунт, включая email и роль.
func (s *Service) UpdateAsAdmin(ctx context.Context, id string, in UpdateInput) (*models.Account, error) {
	const op = "users.UpdateAsAdmin"
	if in.Role != nil && !models.ValidRole(*in.Role) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
	}
	return s.update(ctx, op, id, in)
}

func (s *Service) update(ctx context.Context, op, id string, in UpdateInput) (*models.Account, error) {
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	changes := models.AccountChanges{
		Name:  in.Name,
		Email: in.Email,
		Role:  in.Role,
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		changes.PasswordHash = &hash
	}

	account, err := s.repo.UpdateAccount(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account updated", slog.String("account_id", id))

	s.invalidate(ctx)
	return account, nil
}

// Remove удаляет аккаунт вместе с его публикациями.
func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "users.Remove"
	if !models.ValidID(id) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account removed", slog.String("account_id", id))

	s.invalidate(ctx)
	return nil
}

// SeedAdmin создаёт администратора, если аккаунта с таким email ещё нет.
// Второе значение true, если аккаунт был создан.
func (s *Service) SeedAdmin(ctx context.Context, name, email, rawPassword string) (*models.Account, bool, error) {
	const op = "users.SeedAdmin"

	existing, err := s.repo.GetAccountByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	account, err := s.repo.CreateAccount(ctx, models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, models.ErrDuplicateEmail) {
		// создан параллельным запуском
		existing, err = s.repo.GetAccountByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx)
	return account, true, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, ListCacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", ListCacheKey), sl.Err(err))
	}
}
