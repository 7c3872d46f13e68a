package matches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

const matchPhotoURLTTL = 15 * time.Minute

var (
	ErrValidation    = errors.New("validation error")
	ErrMatchNotFound = errors.New("match not found")
)

type SwipeStore interface {
	MutualLikeExists(ctx context.Context, userA, userB int64) (bool, error)
	GetMutualMatch(ctx context.Context, userID, counterpartID int64) (pgrepo.MutualMatchRecord, error)
	ListMutualMatches(ctx context.Context, userID int64, limit int) ([]pgrepo.MutualMatchRecord, error)
	DeletePair(ctx context.Context, tx pgx.Tx, userA, userB int64) error
}

type MessageStore interface {
	LastMessageByCounterpart(ctx context.Context, userID int64, counterpartIDs []int64) (map[int64]pgrepo.MessageRecord, error)
	SoftDeletePair(ctx context.Context, tx pgx.Tx, userA, userB int64, now time.Time) error
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int64, fallbackLastSeen time.Time) (bool, error)
}

type PhotoSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	ListLimit int
}

type Match struct {
	CounterpartID int64
	DisplayName   string
	Age           int
	Bio           string
	PhotoURL      *string
	IsOnline      bool
	MatchedAt     time.Time
	LastMessage   *LastMessage
}

type LastMessage struct {
	ID           int64
	SenderUserID int64
	Content      string
	Kind         string
	IsRead       bool
	CreatedAt    time.Time
}

type Service struct {
	pool      *pgxpool.Pool
	swipes    SwipeStore
	messages  MessageStore
	presence  PresenceChecker
	photoSign PhotoSigner
	cfg       Config
	now       func() time.Time
	withTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	SwipeStore  SwipeStore
	MsgStore    MessageStore
	Presence    PresenceChecker
	PhotoSigner PhotoSigner
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}

	svc := &Service{
		pool:      deps.Pool,
		swipes:    deps.SwipeStore,
		messages:  deps.MsgStore,
		presence:  deps.Presence,
		photoSign: deps.PhotoSigner,
		cfg:       cfg,
		now:       time.Now,
	}
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		if svc.pool == nil {
			return fmt.Errorf("postgres pool is nil")
		}
		return pgrepo.WithTx(ctx, svc.pool, fn)
	}
	return svc
}

// IsMutual reports whether both users have an active like toward each other.
// The answer is derived from the swipe ledger on every call.
func (s *Service) IsMutual(ctx context.Context, userA, userB int64) (bool, error) {
	if userA <= 0 || userB <= 0 || userA == userB {
		return false, ErrValidation
	}
	if s.swipes == nil {
		return false, fmt.Errorf("swipe store is nil")
	}

	return s.swipes.MutualLikeExists(ctx, userA, userB)
}

// List returns the caller's matches, most recently active first. A match
// with chat history sorts by its last message, one without by the moment
// the mutual like formed.
func (s *Service) List(ctx context.Context, userID int64) ([]Match, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.swipes == nil {
		return nil, fmt.Errorf("swipe store is nil")
	}

	records, err := s.swipes.ListMutualMatches(ctx, userID, s.cfg.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list mutual matches: %w", err)
	}
	if len(records) == 0 {
		return []Match{}, nil
	}

	counterpartIDs := make([]int64, 0, len(records))
	for _, rec := range records {
		counterpartIDs = append(counterpartIDs, rec.CounterpartID)
	}

	lastByCounterpart := map[int64]pgrepo.MessageRecord{}
	if s.messages != nil {
		lastByCounterpart, err = s.messages.LastMessageByCounterpart(ctx, userID, counterpartIDs)
		if err != nil {
			return nil, fmt.Errorf("load last messages: %w", err)
		}
	}

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		match := s.buildMatch(ctx, rec)
		if last, ok := lastByCounterpart[rec.CounterpartID]; ok {
			match.LastMessage = &LastMessage{
				ID:           last.ID,
				SenderUserID: last.SenderUserID,
				Content:      last.Content,
				Kind:         last.Kind,
				IsRead:       last.IsRead,
				CreatedAt:    last.CreatedAt,
			}
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matchActivity(matches[i]).After(matchActivity(matches[j]))
	})

	return matches, nil
}

// Detail returns one match by counterpart id.
func (s *Service) Detail(ctx context.Context, userID, counterpartID int64) (Match, error) {
	if userID <= 0 || counterpartID <= 0 || userID == counterpartID {
		return Match{}, ErrValidation
	}
	if s.swipes == nil {
		return Match{}, fmt.Errorf("swipe store is nil")
	}

	rec, err := s.swipes.GetMutualMatch(ctx, userID, counterpartID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSwipeNotFound) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("get mutual match: %w", err)
	}

	match := s.buildMatch(ctx, rec)
	if s.messages != nil {
		lastByCounterpart, err := s.messages.LastMessageByCounterpart(ctx, userID, []int64{counterpartID})
		if err != nil {
			return Match{}, fmt.Errorf("load last message: %w", err)
		}
		if last, ok := lastByCounterpart[counterpartID]; ok {
			match.LastMessage = &LastMessage{
				ID:           last.ID,
				SenderUserID: last.SenderUserID,
				Content:      last.Content,
				Kind:         last.Kind,
				IsRead:       last.IsRead,
				CreatedAt:    last.CreatedAt,
			}
		}
	}

	return match, nil
}

// Unmatch deletes both directions of the pair's swipes and soft-deletes
// their conversation in one transaction. The operation is idempotent: a
// repeated unmatch acks again because both deletes tolerate missing rows.
// With the ledger rows gone the two users may surface in each other's
// candidate batches again, and a new match requires both to like anew.
func (s *Service) Unmatch(ctx context.Context, userID, counterpartID int64) error {
	if userID <= 0 || counterpartID <= 0 || userID == counterpartID {
		return ErrValidation
	}
	if s.swipes == nil || s.messages == nil {
		return fmt.Errorf("unmatch dependencies are not configured")
	}

	now := s.now().UTC()
	return s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.swipes.DeletePair(txCtx, tx, userID, counterpartID); err != nil {
			return fmt.Errorf("delete swipe pair: %w", err)
		}
		if err := s.messages.SoftDeletePair(txCtx, tx, userID, counterpartID, now); err != nil {
			return fmt.Errorf("soft delete conversation: %w", err)
		}
		return nil
	})
}

func (s *Service) buildMatch(ctx context.Context, rec pgrepo.MutualMatchRecord) Match {
	match := Match{
		CounterpartID: rec.CounterpartID,
		DisplayName:   rec.DisplayName,
		Age:           rec.Age,
		Bio:           rec.Bio,
		PhotoURL:      s.buildPhotoURL(ctx, rec.PhotoKey),
		MatchedAt:     rec.MatchedAt,
	}
	if s.presence != nil {
		online, err := s.presence.IsOnline(ctx, rec.CounterpartID, rec.LastSeen)
		if err == nil {
			match.IsOnline = online
		}
	}
	return match
}

func (s *Service) buildPhotoURL(ctx context.Context, key string) *string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		value := trimmed
		return &value
	}
	if s.photoSign == nil {
		return nil
	}

	url, err := s.photoSign.PresignGet(ctx, trimmed, matchPhotoURLTTL)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(url)
	if value == "" {
		return nil
	}
	return &value
}

func matchActivity(m Match) time.Time {
	if m.LastMessage != nil {
		return m.LastMessage.CreatedAt
	}
	return m.MatchedAt
}
