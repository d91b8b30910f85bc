package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountLockedError_RemainingMinutes(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      int
	}{
		{name: "full window", remaining: 15 * time.Minute, want: 15},
		{name: "rounds up partial minute", remaining: 14*time.Minute + time.Millisecond, want: 15},
		{name: "less than a minute", remaining: 10 * time.Second, want: 1},
		{name: "expired", remaining: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &AccountLockedError{Remaining: tt.remaining}
			assert.Equal(t, tt.want, e.RemainingMinutes())
		})
	}
}

func TestAccountLockedError_Is(t *testing.T) {
	err := fmt.Errorf("auth.Login: %w", &AccountLockedError{Remaining: 5 * time.Minute})

	assert.True(t, errors.Is(err, ErrAccountLocked))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Contains(t, err.Error(), "5 minutes")

	var locked *AccountLockedError
	assert.True(t, errors.As(err, &locked))
}

func TestAccount_IsLocked(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&Account{}).IsLocked(now))
	assert.True(t, (&Account{LockUntil: &future}).IsLocked(now))
	assert.False(t, (&Account{LockUntil: &past}).IsLocked(now))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("0b7a1c1e-8c5f-4d0a-9a53-0e4f0c2d9a11"))
	assert.False(t, ValidID("42"))
	assert.False(t, ValidID(""))
}
