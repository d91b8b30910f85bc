package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

var accountCols = []string{"id", "name", "email", "password_hash", "role",
	"failed_login_attempts", "lock_until", "created_at", "updated_at"}

func accountRow(id, email string, attempts int, lockUntil any) *sqlmock.Rows {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(accountCols).
		AddRow(id, "Name", email, "hash", models.RoleUser, attempts, lockUntil, now, now)
}

func TestStorage_CreateAccount(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs("Name", "a@example.com", "hash", models.RoleUser).
					WillReturnRows(accountRow("acc-1", "a@example.com", 0, nil))
			},
		},
		{
			name: "duplicate email",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: models.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			got, err := s.CreateAccount(context.Background(), models.Account{
				Name: "Name", Email: "a@example.com", PasswordHash: "hash", Role: models.RoleUser,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acc-1", got.ID)
				assert.Nil(t, got.LockUntil)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetAccountByEmail(t *testing.T) {
	lock := time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC)

	t.Run("found with lock", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = \$1`).
			WithArgs("a@example.com").
			WillReturnRows(accountRow("acc-1", "a@example.com", 5, lock))

		got, err := s.GetAccountByEmail(context.Background(), "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 5, got.FailedLoginAttempts)
		require.NotNil(t, got.LockUntil)
		assert.True(t, lock.Equal(*got.LockUntil))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = \$1`).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetAccountByEmail(context.Background(), "missing@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStorage_GetAccount_InvalidUUID(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	_, err := s.GetAccount(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStorage_ListAccounts(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()
	rows := sqlmock.NewRows(accountCols).
		AddRow("acc-1", "A", "a@example.com", "h", models.RoleAdmin, 0, nil, now, now).
		AddRow("acc-2", "B", "b@example.com", "h", models.RoleUser, 2, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM accounts ORDER BY`).WillReturnRows(rows)

	got, err := s.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acc-2", got[1].ID)
	assert.Equal(t, 2, got[1].FailedLoginAttempts)
}

func TestStorage_UpdateAccount(t *testing.T) {
	s, mock := newMockStorage(t)
	name := "New Name"
	mock.ExpectQuery(`UPDATE accounts\s+SET name = COALESCE\(\$2, name\)`).
		WithArgs("acc-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(accountRow("acc-1", "a@example.com", 0, nil))

	got, err := s.UpdateAccount(context.Background(), "acc-1", models.AccountChanges{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_RegisterFailedLogin(t *testing.T) {
	lockUntil := time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC)

	tests := []struct {
		name         string
		rows         *sqlmock.Rows
		wantAttempts int
		wantLocked   bool
	}{
		{
			name:         "below threshold",
			rows:         sqlmock.NewRows([]string{"failed_login_attempts", "lock_until"}).AddRow(3, nil),
			wantAttempts: 3,
		},
		{
			name:         "threshold reached",
			rows:         sqlmock.NewRows([]string{"failed_login_attempts", "lock_until"}).AddRow(5, lockUntil),
			wantAttempts: 5,
			wantLocked:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			mock.ExpectQuery(`UPDATE accounts\s+SET failed_login_attempts = failed_login_attempts \+ 1`).
				WithArgs("acc-1", 5, lockUntil).
				WillReturnRows(tt.rows)

			attempts, locked, err := s.RegisterFailedLogin(context.Background(), "acc-1", 5, lockUntil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantLocked, locked != nil)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ResetLoginFailures(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(`UPDATE accounts\s+SET failed_login_attempts = 0, lock_until = NULL`).
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ResetLoginFailures(context.Background(), "acc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ClearExpiredLocks(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()
	mock.ExpectExec(`WHERE lock_until IS NOT NULL AND lock_until <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.ClearExpiredLocks(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStorage_DeleteAccount(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "deletes posts and account in one transaction",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM posts WHERE user_id = \$1`).WithArgs("acc-1").
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs("acc-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "missing account rolls back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM posts`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`DELETE FROM accounts`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "posts delete failure rolls back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM posts`).WillReturnError(errors.New("boom"))
				mock.ExpectRollback()
			},
			wantErr: errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			err := s.DeleteAccount(context.Background(), "acc-1")
			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, models.ErrNotFound):
				assert.ErrorIs(t, err, models.ErrNotFound)
			default:
				assert.ErrorContains(t, err, tt.wantErr.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_CanceledContext(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetAccount(ctx, "acc-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Ping(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, s.Ping(context.Background()))
}
