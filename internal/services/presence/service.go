package presence

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultOnlineWindow = 5 * time.Minute
	presenceTTLFactor   = 2
)

type PresenceStore interface {
	Touch(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error
	LastSeen(ctx context.Context, userID int64) (time.Time, bool, error)
}

type Config struct {
	OnlineWindow time.Duration
}

// Service tracks per-user activity timestamps in redis. A user is online
// when their last recorded activity falls inside the configured window.
// When redis has no record the caller supplied fallback (the persisted
// last_seen column) decides.
type Service struct {
	store PresenceStore
	cfg   Config
	now   func() time.Time
}

func NewService(store PresenceStore, cfg Config) *Service {
	if cfg.OnlineWindow <= 0 {
		cfg.OnlineWindow = defaultOnlineWindow
	}

	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Service) Touch(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if s.store == nil {
		return nil
	}

	ttl := s.cfg.OnlineWindow * presenceTTLFactor
	return s.store.Touch(ctx, userID, s.now().UTC(), ttl)
}

func (s *Service) IsOnline(ctx context.Context, userID int64, fallbackLastSeen time.Time) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	now := s.now().UTC()
	if s.store != nil {
		lastSeen, found, err := s.store.LastSeen(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("read presence: %w", err)
		}
		if found {
			return now.Sub(lastSeen) < s.cfg.OnlineWindow, nil
		}
	}

	if fallbackLastSeen.IsZero() {
		return false, nil
	}
	return now.Sub(fallbackLastSeen) < s.cfg.OnlineWindow, nil
}
