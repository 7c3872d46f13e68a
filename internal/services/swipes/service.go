package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

const (
	actionLike      = "LIKE"
	actionPass      = "PASS"
	actionSuperLike = "SUPERLIKE"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrSelfSwipe      = errors.New("self swipe")
	ErrInvalidAction  = errors.New("invalid swipe action")
	ErrTargetNotFound = errors.New("swipe target not found")
	ErrTargetInactive = errors.New("swipe target inactive")
	ErrDuplicateSwipe = errors.New("duplicate swipe")
)

// TooFastError reports that the caller exceeded the swipe rate window.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipes, retry after %ds", e.RetryAfterSec)
}

func IsTooFast(err error) (TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return tf, true
	}
	return TooFastError{}, false
}

type SwipeStore interface {
	Create(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64, action string, now time.Time) (pgrepo.SwipeRecord, error)
	MutualLikeExists(ctx context.Context, userA, userB int64) (bool, error)
	ListHistory(ctx context.Context, userID int64, limit, offset int) ([]pgrepo.SwipeCounterpartRecord, error)
	ListLikesReceived(ctx context.Context, userID int64, limit, offset int) ([]pgrepo.SwipeCounterpartRecord, error)
	ListLikesSent(ctx context.Context, userID int64, limit, offset int) ([]pgrepo.SwipeCounterpartRecord, error)
	GetStats(ctx context.Context, userID int64) (pgrepo.SwipeStatsRecord, error)
}

type UserStore interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type Config struct {
	HistoryPageSize int
}

type Result struct {
	Action  string
	IsMatch bool
}

type HistoryItem struct {
	UserID      int64
	DisplayName string
	Age         int
	PhotoKey    string
	Action      string
	SwipedAt    time.Time
}

type HistoryPage struct {
	Items   []HistoryItem
	HasMore bool
}

type Stats struct {
	LikesSent      int
	PassesSent     int
	SuperLikesSent int
	LikesReceived  int
	Matches        int
}

type Service struct {
	pool        *pgxpool.Pool
	swipeStore  SwipeStore
	userStore   UserStore
	rateLimiter RateLimiter
	cfg         Config
	now         func() time.Time
	withTx      func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	SwipeStore  SwipeStore
	UserStore   UserStore
	RateLimiter RateLimiter
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = 50
	}

	svc := &Service{
		pool:        deps.Pool,
		swipeStore:  deps.SwipeStore,
		userStore:   deps.UserStore,
		rateLimiter: deps.RateLimiter,
		cfg:         cfg,
		now:         time.Now,
	}
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		if svc.pool == nil {
			return fmt.Errorf("postgres pool is nil")
		}
		return pgrepo.WithTx(ctx, svc.pool, fn)
	}
	return svc
}

// Swipe appends one ledger row and, for like actions, reports whether the
// pair is now mutual. The mutual check is a fresh read issued after the
// insert commits, so a concurrent reciprocal like that already landed is
// always observed by whichever write is second.
func (s *Service) Swipe(ctx context.Context, actorID, targetID int64, action string) (Result, error) {
	if actorID <= 0 || targetID <= 0 {
		return Result{}, ErrValidation
	}
	if actorID == targetID {
		return Result{}, ErrSelfSwipe
	}

	normalized, err := normalizeAction(action)
	if err != nil {
		return Result{}, err
	}

	if s.swipeStore == nil || s.userStore == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}

	if err := s.checkTarget(ctx, targetID); err != nil {
		return Result{}, err
	}

	if err := s.checkRate(ctx, actorID); err != nil {
		return Result{}, err
	}

	now := s.now().UTC()
	if err := s.withTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		_, err := s.swipeStore.Create(txCtx, tx, actorID, targetID, normalized, now)
		if errors.Is(err, pgrepo.ErrDuplicateSwipe) {
			return ErrDuplicateSwipe
		}
		return err
	}); err != nil {
		return Result{}, err
	}

	result := Result{Action: normalized}
	if normalized == actionLike || normalized == actionSuperLike {
		isMatch, err := s.swipeStore.MutualLikeExists(ctx, actorID, targetID)
		if err != nil {
			return Result{}, fmt.Errorf("check mutual like: %w", err)
		}
		result.IsMatch = isMatch
	}

	return result, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit, offset int) (HistoryPage, error) {
	if userID <= 0 {
		return HistoryPage{}, ErrValidation
	}
	if s.swipeStore == nil {
		return HistoryPage{}, fmt.Errorf("swipe store is nil")
	}
	limit = s.clampLimit(limit)

	rows, err := s.swipeStore.ListHistory(ctx, userID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}

	return buildHistoryPage(rows, limit), nil
}

func (s *Service) LikesReceived(ctx context.Context, userID int64, limit, offset int) (HistoryPage, error) {
	if userID <= 0 {
		return HistoryPage{}, ErrValidation
	}
	if s.swipeStore == nil {
		return HistoryPage{}, fmt.Errorf("swipe store is nil")
	}
	limit = s.clampLimit(limit)

	rows, err := s.swipeStore.ListLikesReceived(ctx, userID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}

	return buildHistoryPage(rows, limit), nil
}

func (s *Service) LikesSent(ctx context.Context, userID int64, limit, offset int) (HistoryPage, error) {
	if userID <= 0 {
		return HistoryPage{}, ErrValidation
	}
	if s.swipeStore == nil {
		return HistoryPage{}, fmt.Errorf("swipe store is nil")
	}
	limit = s.clampLimit(limit)

	rows, err := s.swipeStore.ListLikesSent(ctx, userID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}

	return buildHistoryPage(rows, limit), nil
}

func (s *Service) Stats(ctx context.Context, userID int64) (Stats, error) {
	if userID <= 0 {
		return Stats{}, ErrValidation
	}
	if s.swipeStore == nil {
		return Stats{}, fmt.Errorf("swipe store is nil")
	}

	rec, err := s.swipeStore.GetStats(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		LikesSent:      rec.LikesSent,
		PassesSent:     rec.PassesSent,
		SuperLikesSent: rec.SuperLikesSent,
		LikesReceived:  rec.LikesReceived,
		Matches:        rec.Matches,
	}, nil
}

func (s *Service) checkTarget(ctx context.Context, targetID int64) error {
	active, err := s.userStore.IsActive(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrTargetNotFound
		}
		return fmt.Errorf("check swipe target: %w", err)
	}
	if !active {
		return ErrTargetInactive
	}
	return nil
}

func (s *Service) checkRate(ctx context.Context, actorID int64) error {
	if s.rateLimiter == nil {
		return nil
	}
	retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, actorID)
	if err != nil {
		return fmt.Errorf("apply swipe rate limiter: %w", err)
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 || limit > s.cfg.HistoryPageSize {
		return s.cfg.HistoryPageSize
	}
	return limit
}

func buildHistoryPage(rows []pgrepo.SwipeCounterpartRecord, limit int) HistoryPage {
	items := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, HistoryItem{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Age:         row.Age,
			PhotoKey:    row.PhotoKey,
			Action:      row.Action,
			SwipedAt:    row.SwipedAt,
		})
	}
	return HistoryPage{
		Items:   items,
		HasMore: len(rows) == limit,
	}
}

func normalizeAction(input string) (string, error) {
	value := strings.ToUpper(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")
	switch value {
	case actionLike, actionPass, actionSuperLike:
		return value, nil
	default:
		return "", ErrInvalidAction
	}
}
