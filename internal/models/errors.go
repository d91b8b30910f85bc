package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden resource")
	ErrNotFound           = errors.New("not found")
	ErrEnqueueTimeout     = errors.New("enqueue timed out")
	ErrInvalidRole        = errors.New("role must be one of USER, ADMIN")
)

// AccountLockedError возвращается при попытке входа в заблокированный аккаунт.
type AccountLockedError struct {
	Remaining time.Duration
}

// RemainingMinutes округляет оставшееся время блокировки вверх до минут.
func (e *AccountLockedError) RemainingMinutes() int {
	ms := e.Remaining.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(math.Ceil(float64(ms) / 60000))
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("Account is locked. Try again in %d minutes", e.RemainingMinutes())
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
