package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCandidateViewerNotFound = errors.New("candidate viewer not found")

type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

type CandidateViewerContext struct {
	UserID          int64
	IsActive        bool
	ProfileComplete bool
}

type CandidateRecord struct {
	UserID      int64
	DisplayName string
	Age         int
	Bio         string
	Interests   []string
	PhotoKey    string
	LastSeen    time.Time
}

func (r *CandidateRepo) GetViewerContext(ctx context.Context, userID int64) (CandidateViewerContext, error) {
	if userID <= 0 {
		return CandidateViewerContext{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return CandidateViewerContext{}, ErrCandidateViewerNotFound
	}

	var viewer CandidateViewerContext
	err := r.pool.QueryRow(ctx, `
SELECT id, is_active, profile_complete
FROM users
WHERE id = $1
`, userID).Scan(&viewer.UserID, &viewer.IsActive, &viewer.ProfileComplete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CandidateViewerContext{}, ErrCandidateViewerNotFound
		}
		return CandidateViewerContext{}, fmt.Errorf("get candidate viewer context: %w", err)
	}

	return viewer, nil
}

// ListCandidates returns active users the viewer has never swiped on.
// Any swipe row, pass included, excludes the target permanently; the
// NOT EXISTS keeps that rule inside one query instead of filtering in
// application code.
func (r *CandidateRepo) ListCandidates(ctx context.Context, viewerUserID int64, limit int) ([]CandidateRecord, error) {
	if viewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if limit <= 0 {
		limit = 20
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	COALESCE(u.display_name, ''),
	COALESCE(u.age, 0),
	COALESCE(u.bio, ''),
	COALESCE(u.interests, '{}'),
	COALESCE(u.photo_key, ''),
	u.last_seen
FROM users u
WHERE u.id <> $1
	AND u.is_active = TRUE
	AND u.profile_complete = TRUE
	AND NOT EXISTS (
		SELECT 1
		FROM swipes s
		WHERE s.actor_user_id = $1
			AND s.target_user_id = u.id
	)
ORDER BY u.last_seen DESC, u.id DESC
LIMIT $2
`, viewerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRecord, 0, limit)
	for rows.Next() {
		var rec CandidateRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.DisplayName,
			&rec.Age,
			&rec.Bio,
			&rec.Interests,
			&rec.PhotoKey,
			&rec.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return items, nil
}
