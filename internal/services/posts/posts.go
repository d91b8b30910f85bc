// Package posts содержит бизнес-логику публикаций.
package posts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/account-service/internal/models"
)

// Repository определяет методы хранилища публикаций.
type Repository interface {
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByUser(ctx context.Context, userID string) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	PostOwner(ctx context.Context, id string) (string, error)
	UpdatePost(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// CreateInput данные новой публикации.
type CreateInput struct {
	Title     string
	Content   string
	Published bool
}

// Service сервис публикаций.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create сохраняет публикацию от имени ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Post, error) {
	const op = "posts.Create"
	post, err := s.repo.CreatePost(ctx, models.Post{
		UserID:    ownerID,
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new post", slog.String("post_id", post.ID), slog.String("owner_id", ownerID))
	return post, nil
}

// List возвращает все публикации.
func (s *Service) List(ctx context.Context) ([]models.Post, error) {
	const op = "posts.List"
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

// ListMine возвращает публикации владельца.
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]models.Post, error) {
	const op = "posts.ListMine"
	posts, err := s.repo.ListPostsByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	const op = "posts.Get"
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return post, nil
}

// Owner возвращает id владельца публикации. Используется проверкой владения.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	const op = "posts.Owner"
	if !models.ValidID(id) {
		return "", fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	owner, err := s.repo.PostOwner(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return owner, nil
}

// Update меняет заданные поля публикации. Права проверяются до вызова.
func (s *Service) Update(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error) {
	const op = "posts.Update"
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	post, err := s.repo.UpdatePost(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("updated post", slog.String("post_id", id))
	return post, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "posts.Remove"
	if !models.ValidID(id) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("removed post", slog.String("post_id", id))
	return nil
}
