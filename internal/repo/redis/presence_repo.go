package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const presencePrefix = "presence:last_seen:"

// PresenceRepo keeps per-user last-seen timestamps with a TTL slightly
// beyond the online window, so stale keys expire on their own.
type PresenceRepo struct {
	client *goredis.Client
}

func NewPresenceRepo(client *goredis.Client) *PresenceRepo {
	return &PresenceRepo{client: client}
}

func (r *PresenceRepo) Touch(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	if err := r.client.Set(ctx, presenceKey(userID), at.UTC().UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("touch presence key: %w", err)
	}

	return nil
}

func (r *PresenceRepo) LastSeen(ctx context.Context, userID int64) (time.Time, bool, error) {
	if r.client == nil {
		return time.Time{}, false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return time.Time{}, false, fmt.Errorf("invalid user id")
	}

	raw, err := r.client.Get(ctx, presenceKey(userID)).Result()
	if err == goredis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get presence key: %w", err)
	}

	millis, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil || millis <= 0 {
		return time.Time{}, false, nil
	}

	return time.UnixMilli(millis).UTC(), true, nil
}

func presenceKey(userID int64) string {
	return presencePrefix + strconv.FormatInt(userID, 10)
}
