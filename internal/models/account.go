// Package models содержит доменные модели сервиса учётных записей:
// аккаунт, публикацию и ошибки предметной области.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли учётных записей.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account представляет зарегистрированную учётную запись.
type Account struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"` // никогда не попадает в ответы
	Role                string     `json:"role"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockUntil           *time.Time `json:"lock_until,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsLocked сообщает, заблокирован ли аккаунт на момент now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// IsAdmin сообщает, обладает ли аккаунт ролью администратора.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AccountChanges набор изменяемых полей аккаунта. nil означает "не менять".
type AccountChanges struct {
	Name         *string
	Email        *string
	Role         *string
	PasswordHash *string
}

// ValidRole проверяет, что роль известна системе.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// ValidID проверяет формат идентификатора. Ресурс с некорректным id считается отсутствующим.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
