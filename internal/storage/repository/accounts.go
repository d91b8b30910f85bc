package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/account-service/internal/models"
)

const accountColumns = `id, name, email, password_hash, role, failed_login_attempts,
	lock_until, created_at, updated_at`

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	var lockUntil sql.NullTime
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role,
		&a.FailedLoginAttempts, &lockUntil, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		a.LockUntil = &t
	}
	return &a, nil
}

// CreateAccount сохраняет аккаунт. Занятый email возвращается как models.ErrDuplicateEmail.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) (*models.Account, error) {
	const op = "storage.CreateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO accounts (name, email, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + accountColumns
	created, err := scanAccount(s.DB.QueryRowContext(ctx, query,
		account.Name, account.Email, account.PasswordHash, account.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetAccountByEmail ищет аккаунт по email с учётом регистра.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// GetAccount возвращает аккаунт по идентификатору.
func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.GetAccount"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// ListAccounts возвращает все аккаунты в порядке создания.
func (s *Storage) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const op = "storage.ListAccounts"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateAccount меняет только заданные в changes поля.
func (s *Storage) UpdateAccount(ctx context.Context, id string, changes models.AccountChanges) (*models.Account, error) {
	const op = "storage.UpdateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE accounts
			  SET name = COALESCE($2, name),
			      email = COALESCE($3, email),
			      role = COALESCE($4, role),
			      password_hash = COALESCE($5, password_hash),
			      updated_at = now()
			  WHERE id = $1
			  RETURNING ` + accountColumns
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, id,
		changes.Name, changes.Email, changes.Role, changes.PasswordHash))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// RegisterFailedLogin атомарно увеличивает счётчик неудачных входов.
// Если новое значение достигает threshold, выставляет lock_until.
// Возвращает новое значение счётчика и срок блокировки.
func (s *Storage) RegisterFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	const op = "storage.RegisterFailedLogin"
	if err := checkCtx(ctx, op); err != nil {
		return 0, nil, err
	}

	query := `UPDATE accounts
			  SET failed_login_attempts = failed_login_attempts + 1,
			      lock_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE lock_until END,
			      updated_at = now()
			  WHERE id = $1
			  RETURNING failed_login_attempts, lock_until`
	var attempts int
	var locked sql.NullTime
	if err := s.DB.QueryRowContext(ctx, query, id, threshold, lockUntil).Scan(&attempts, &locked); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	if !locked.Valid {
		return attempts, nil, nil
	}
	t := locked.Time
	return attempts, &t, nil
}

// ResetLoginFailures обнуляет счётчик и снимает блокировку.
func (s *Storage) ResetLoginFailures(ctx context.Context, id string) error {
	const op = "storage.ResetLoginFailures"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE accounts
			  SET failed_login_attempts = 0, lock_until = NULL, updated_at = now()
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// ClearExpiredLocks сбрасывает блокировки, истёкшие к моменту now.
func (s *Storage) ClearExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ClearExpiredLocks"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE accounts
			  SET failed_login_attempts = 0, lock_until = NULL, updated_at = now()
			  WHERE lock_until IS NOT NULL AND lock_until <= $1`
	res, err := s.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// DeleteAccount удаляет публикации аккаунта и сам аккаунт в одной транзакции.
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	const op = "storage.DeleteAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
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
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
