package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// DefaultRevocationTTL используется, когда срок жизни токена неизвестен.
const DefaultRevocationTTL = time.Hour

// Blacklist хранилище отозванных токенов, общее для всех экземпляров сервиса.
// В Redis хранится только sha256 токена.
type Blacklist struct {
	db         redis.Cmdable
	defaultTTL time.Duration
}

// NewBlacklist создаёт хранилище. defaultTTL <= 0 заменяется на DefaultRevocationTTL.
func NewBlacklist(db redis.Cmdable, defaultTTL time.Duration) *Blacklist {
	if defaultTTL <= 0 {
		defaultTTL = DefaultRevocationTTL
	}
	return &Blacklist{db: db, defaultTTL: defaultTTL}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

// Add помечает токен отозванным на ttl.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	const op = "cache.Blacklist.Add"
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	if err := b.db.Set(ctx, blacklistKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsRevoked сообщает, отозван ли токен.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	const op = "cache.Blacklist.IsRevoked"
	n, err := b.db.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
