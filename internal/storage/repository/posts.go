package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/account-service/internal/models"
)

const postColumns = `id, user_id, title, content, published, created_at, updated_at`

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Published,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost сохраняет публикацию.
func (s *Storage) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	const op = "storage.CreatePost"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO posts (user_id, title, content, published)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + postColumns
	p, err := scanPost(s.DB.QueryRowContext(ctx, query, post.UserID, post.Title, post.Content, post.Published))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// ListPosts возвращает все публикации, новые первыми.
func (s *Storage) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.listPosts(ctx, "storage.ListPosts",
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id`)
}

// ListPostsByUser возвращает публикации владельца userID.
func (s *Storage) ListPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listPosts(ctx, "storage.ListPostsByUser",
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (s *Storage) listPosts(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPost возвращает публикацию по идентификатору.
func (s *Storage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	const op = "storage.GetPost"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	p, err := scanPost(s.DB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// PostOwner возвращает идентификатор владельца публикации.
func (s *Storage) PostOwner(ctx context.Context, id string) (string, error) {
	const op = "storage.PostOwner"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var owner string
	if err := s.DB.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1`, id).Scan(&owner); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return owner, nil
}

// UpdatePost меняет заданные поля публикации.
func (s *Storage) UpdatePost(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error) {
	const op = "storage.UpdatePost"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE posts
			  SET title = COALESCE($2, title),
			      content = COALESCE($3, content),
			      published = COALESCE($4, published),
			      updated_at = now()
			  WHERE id = $1
			  RETURNING ` + postColumns
	p, err := scanPost(s.DB.QueryRowContext(ctx, query, id, changes.Title, changes.Content, changes.Published))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// DeletePost удаляет публикацию.
func (s *Storage) DeletePost(ctx context.Context, id string) error {
	const op = "storage.DeletePost"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
