package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetKeyPrefix = "auth:reset:consumed:"

// ResetLedger records consumed password reset tokens in Redis.
// Key format: auth:reset:consumed:<token_id>
type ResetLedger struct {
	client *redis.Client
}

// NewResetLedger creates a ResetLedger wrapping the given Redis client.
func NewResetLedger(client *redis.Client) *ResetLedger {
	return &ResetLedger{client: client}
}

// IsConsumed reports whether the token has already been used.
func (l *ResetLedger) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("reset ledger check: %w", err)
	}
	return n > 0, nil
}

// MarkConsumed records the token as used. The key expires with the token.
func (l *ResetLedger) MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.key(tokenID), time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("reset ledger mark: %w", err)
	}
	return nil
}

func (l *ResetLedger) key(tokenID string) string {
	return resetKeyPrefix + tokenID
}
