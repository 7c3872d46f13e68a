package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSwipeNotFound  = errors.New("swipe not found")
	ErrDuplicateSwipe = errors.New("duplicate swipe")
)

const pgUniqueViolation = "23505"

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type SwipeRecord struct {
	ID           int64
	ActorUserID  int64
	TargetUserID int64
	Action       string
	CreatedAt    time.Time
}

// MutualMatchRecord is one row of the derived match view: a counterpart the
// user has mutually liked, with the counterpart's profile card fields.
// MatchedAt is the later of the two directional swipes.
type MutualMatchRecord struct {
	CounterpartID int64
	DisplayName   string
	Age           int
	Bio           string
	PhotoKey      string
	LastSeen      time.Time
	MatchedAt     time.Time
}

type SwipeCounterpartRecord struct {
	UserID      int64
	DisplayName string
	Age         int
	PhotoKey    string
	Action      string
	SwipedAt    time.Time
}

type SwipeStatsRecord struct {
	LikesSent      int
	PassesSent     int
	SuperLikesSent int
	LikesReceived  int
	Matches        int
}

// Create appends one ledger row. The unique index on
// (actor_user_id, target_user_id) is the only duplicate guard: concurrent
// swipes on the same pair resolve to one insert and ErrDuplicateSwipe for
// the rest, without a read-then-write race.
func (r *SwipeRepo) Create(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64, action string, now time.Time) (SwipeRecord, error) {
	if actorUserID <= 0 || targetUserID <= 0 || strings.TrimSpace(action) == "" {
		return SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec SwipeRecord
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	actor_user_id,
	target_user_id,
	action,
	created_at
) VALUES ($1, $2, $3, $4)
RETURNING id, actor_user_id, target_user_id, action, created_at
`, actorUserID, targetUserID, strings.ToUpper(strings.TrimSpace(action)), now.UTC()).Scan(
		&rec.ID,
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Action,
		&rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return SwipeRecord{}, ErrDuplicateSwipe
		}
		return SwipeRecord{}, fmt.Errorf("create swipe: %w", err)
	}

	return rec, nil
}

func (r *SwipeRepo) Exists(ctx context.Context, actorUserID, targetUserID int64) (bool, error) {
	if actorUserID <= 0 || targetUserID <= 0 {
		return false, fmt.Errorf("invalid swipe lookup payload")
	}
	if r.pool == nil {
		return false, nil
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2
LIMIT 1
`, actorUserID, targetUserID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup swipe: %w", err)
	}

	return true, nil
}

// MutualLikeExists reads both directional rows from durable storage. Callers
// that just committed a swipe use this as the post-commit match check.
func (r *SwipeRepo) MutualLikeExists(ctx context.Context, userA, userB int64) (bool, error) {
	if userA <= 0 || userB <= 0 {
		return false, fmt.Errorf("invalid mutual lookup payload")
	}
	if r.pool == nil {
		return false, nil
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM swipes
WHERE action IN ('LIKE', 'SUPERLIKE')
	AND (
		(actor_user_id = $1 AND target_user_id = $2)
		OR (actor_user_id = $2 AND target_user_id = $1)
	)
`, userA, userB).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lookup mutual like: %w", err)
	}

	return count == 2, nil
}

func (r *SwipeRepo) GetMutualMatch(ctx context.Context, userID, counterpartID int64) (MutualMatchRecord, error) {
	if userID <= 0 || counterpartID <= 0 {
		return MutualMatchRecord{}, fmt.Errorf("invalid match lookup payload")
	}
	if r.pool == nil {
		return MutualMatchRecord{}, ErrSwipeNotFound
	}

	var rec MutualMatchRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.bio, ''),
	COALESCE(u.photo_key, ''),
	u.last_seen,
	GREATEST(s1.created_at, s2.created_at)
FROM swipes s1
JOIN swipes s2
	ON s2.actor_user_id = s1.target_user_id
	AND s2.target_user_id = s1.actor_user_id
	AND s2.action IN ('LIKE', 'SUPERLIKE')
JOIN users u ON u.id = s1.target_user_id
WHERE s1.actor_user_id = $1
	AND s1.target_user_id = $2
	AND s1.action IN ('LIKE', 'SUPERLIKE')
`, userID, counterpartID).Scan(
		&rec.CounterpartID,
		&rec.DisplayName,
		&rec.Age,
		&rec.Bio,
		&rec.PhotoKey,
		&rec.LastSeen,
		&rec.MatchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MutualMatchRecord{}, ErrSwipeNotFound
		}
		return MutualMatchRecord{}, fmt.Errorf("get mutual match: %w", err)
	}

	return rec, nil
}

// ListMutualMatches derives the user's matches from the ledger: a self-join
// over swipes where both directions carry a like action.
func (r *SwipeRepo) ListMutualMatches(ctx context.Context, userID int64, limit int) ([]MutualMatchRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MutualMatchRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.bio, ''),
	COALESCE(u.photo_key, ''),
	u.last_seen,
	GREATEST(s1.created_at, s2.created_at) AS matched_at
FROM swipes s1
JOIN swipes s2
	ON s2.actor_user_id = s1.target_user_id
	AND s2.target_user_id = s1.actor_user_id
	AND s2.action IN ('LIKE', 'SUPERLIKE')
JOIN users u ON u.id = s1.target_user_id
WHERE s1.actor_user_id = $1
	AND s1.action IN ('LIKE', 'SUPERLIKE')
ORDER BY matched_at DESC, u.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mutual matches: %w", err)
	}
	defer rows.Close()

	items := make([]MutualMatchRecord, 0, limit)
	for rows.Next() {
		var rec MutualMatchRecord
		if err := rows.Scan(
			&rec.CounterpartID,
			&rec.DisplayName,
			&rec.Age,
			&rec.Bio,
			&rec.PhotoKey,
			&rec.LastSeen,
			&rec.MatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mutual match: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate mutual matches: %w", rows.Err())
	}

	return items, nil
}

// DeletePair removes both directional rows. Idempotent: zero rows is not an
// error, so repeated unmatch calls succeed.
func (r *SwipeRepo) DeletePair(ctx context.Context, tx pgx.Tx, userA, userB int64) error {
	if userA <= 0 || userB <= 0 {
		return fmt.Errorf("invalid swipe pair payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM swipes
WHERE (actor_user_id = $1 AND target_user_id = $2)
	OR (actor_user_id = $2 AND target_user_id = $1)
`, userA, userB); err != nil {
		return fmt.Errorf("delete swipe pair: %w", err)
	}

	return nil
}

func (r *SwipeRepo) ListHistory(ctx context.Context, userID int64, limit, offset int) ([]SwipeCounterpartRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []SwipeCounterpartRecord{}, nil
	}

	return r.listCounterparts(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.photo_key, ''),
	s.action,
	s.created_at
FROM swipes s
JOIN users u ON u.id = s.target_user_id
WHERE s.actor_user_id = $1
ORDER BY s.created_at DESC, s.id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
}

func (r *SwipeRepo) ListLikesReceived(ctx context.Context, userID int64, limit, offset int) ([]SwipeCounterpartRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []SwipeCounterpartRecord{}, nil
	}

	return r.listCounterparts(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.photo_key, ''),
	s.action,
	s.created_at
FROM swipes s
JOIN users u ON u.id = s.actor_user_id
WHERE s.target_user_id = $1
	AND s.action IN ('LIKE', 'SUPERLIKE')
ORDER BY s.created_at DESC, s.id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
}

func (r *SwipeRepo) ListLikesSent(ctx context.Context, userID int64, limit, offset int) ([]SwipeCounterpartRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []SwipeCounterpartRecord{}, nil
	}

	return r.listCounterparts(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.photo_key, ''),
	s.action,
	s.created_at
FROM swipes s
JOIN users u ON u.id = s.target_user_id
WHERE s.actor_user_id = $1
	AND s.action IN ('LIKE', 'SUPERLIKE')
ORDER BY s.created_at DESC, s.id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
}

func (r *SwipeRepo) GetStats(ctx context.Context, userID int64) (SwipeStatsRecord, error) {
	if userID <= 0 {
		return SwipeStatsRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return SwipeStatsRecord{}, nil
	}

	var stats SwipeStatsRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	COUNT(*) FILTER (WHERE s.actor_user_id = $1 AND s.action = 'LIKE'),
	COUNT(*) FILTER (WHERE s.actor_user_id = $1 AND s.action = 'PASS'),
	COUNT(*) FILTER (WHERE s.actor_user_id = $1 AND s.action = 'SUPERLIKE'),
	COUNT(*) FILTER (WHERE s.target_user_id = $1 AND s.action IN ('LIKE', 'SUPERLIKE')),
	(
		SELECT COUNT(*)
		FROM swipes s1
		JOIN swipes s2
			ON s2.actor_user_id = s1.target_user_id
			AND s2.target_user_id = s1.actor_user_id
			AND s2.action IN ('LIKE', 'SUPERLIKE')
		WHERE s1.actor_user_id = $1
			AND s1.action IN ('LIKE', 'SUPERLIKE')
	)
FROM swipes s
WHERE s.actor_user_id = $1 OR s.target_user_id = $1
`, userID).Scan(
		&stats.LikesSent,
		&stats.PassesSent,
		&stats.SuperLikesSent,
		&stats.LikesReceived,
		&stats.Matches,
	)
	if err != nil {
		return SwipeStatsRecord{}, fmt.Errorf("get swipe stats: %w", err)
	}

	return stats, nil
}

func (r *SwipeRepo) listCounterparts(ctx context.Context, query string, args ...any) ([]SwipeCounterpartRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swipe counterparts: %w", err)
	}
	defer rows.Close()

	items := make([]SwipeCounterpartRecord, 0)
	for rows.Next() {
		var rec SwipeCounterpartRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.DisplayName,
			&rec.Age,
			&rec.PhotoKey,
			&rec.Action,
			&rec.SwipedAt,
		); err != nil {
			return nil, fmt.Errorf("scan swipe counterpart: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate swipe counterparts: %w", rows.Err())
	}

	return items, nil
}
