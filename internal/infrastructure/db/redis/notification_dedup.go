package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// NotificationDedup suppresses repeated user-facing notifications backed by
// Redis. Key format: notify:dedup:<account_id>:<kind>
type NotificationDedup struct {
	client *redis.Client
}

// NewNotificationDedup creates a NotificationDedup wrapping the given Redis client.
func NewNotificationDedup(client *redis.Client) *NotificationDedup {
	return &NotificationDedup{client: client}
}

// Seen reports whether this notification kind was already delivered to the
// account within the dedup window.
func (d *NotificationDedup) Seen(ctx context.Context, accountID, kind string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(accountID, kind)).Result()
	if err != nil {
		return false, fmt.Errorf("notification dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this notification has been delivered (expires after dedupTTL).
func (d *NotificationDedup) Mark(ctx context.Context, accountID, kind string) error {
	return d.client.Set(ctx, d.key(accountID, kind), "1", dedupTTL).Err()
}

func (d *NotificationDedup) key(accountID, kind string) string {
	return fmt.Sprintf("notify:dedup:%s:%s", accountID, kind)
}
