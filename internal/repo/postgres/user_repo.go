package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID              int64
	TelegramID      int64
	DisplayName     string
	Age             int
	Gender          string
	Bio             string
	Interests       []string
	PhotoKey        string
	IsActive        bool
	ProfileComplete bool
	LastSeen        time.Time
	CreatedAt       time.Time
}

// ProfileCard is the subset of user fields embedded in match summaries,
// conversation lists, and candidate batches.
type ProfileCard struct {
	UserID      int64
	DisplayName string
	Age         int
	Bio         string
	Interests   []string
	PhotoKey    string
	LastSeen    time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, displayName string) (UserRecord, error) {
	if telegramID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid telegram_id")
	}
	if r.pool == nil {
		return UserRecord{ID: telegramID, TelegramID: telegramID, IsActive: true}, nil
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, display_name, is_active, last_seen, created_at, updated_at)
VALUES ($1, $2, TRUE, NOW(), NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
	updated_at = NOW()
RETURNING id, telegram_id, COALESCE(display_name, ''), COALESCE(age, 0), COALESCE(gender, ''),
	COALESCE(bio, ''), COALESCE(interests, '{}'), COALESCE(photo_key, ''),
	is_active, profile_complete, last_seen, created_at
`, telegramID, strings.TrimSpace(displayName)).Scan(
		&user.ID,
		&user.TelegramID,
		&user.DisplayName,
		&user.Age,
		&user.Gender,
		&user.Bio,
		&user.Interests,
		&user.PhotoKey,
		&user.IsActive,
		&user.ProfileComplete,
		&user.LastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get or create user by telegram_id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (UserRecord, error) {
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return UserRecord{}, ErrUserNotFound
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, telegram_id, COALESCE(display_name, ''), COALESCE(age, 0), COALESCE(gender, ''),
	COALESCE(bio, ''), COALESCE(interests, '{}'), COALESCE(photo_key, ''),
	is_active, profile_complete, last_seen, created_at
FROM users
WHERE id = $1
`, userID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.DisplayName,
		&user.Age,
		&user.Gender,
		&user.Bio,
		&user.Interests,
		&user.PhotoKey,
		&user.IsActive,
		&user.ProfileComplete,
		&user.LastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetCard(ctx context.Context, userID int64) (ProfileCard, error) {
	if userID <= 0 {
		return ProfileCard{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ProfileCard{}, ErrUserNotFound
	}

	var card ProfileCard
	err := r.pool.QueryRow(ctx, `
SELECT id, COALESCE(display_name, ''), COALESCE(age, 0), COALESCE(bio, ''),
	COALESCE(interests, '{}'), COALESCE(photo_key, ''), last_seen
FROM users
WHERE id = $1
`, userID).Scan(
		&card.UserID,
		&card.DisplayName,
		&card.Age,
		&card.Bio,
		&card.Interests,
		&card.PhotoKey,
		&card.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileCard{}, ErrUserNotFound
		}
		return ProfileCard{}, fmt.Errorf("get profile card: %w", err)
	}

	return card, nil
}

func (r *UserRepo) IsActive(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return false, ErrUserNotFound
	}

	var active bool
	err := r.pool.QueryRow(ctx, `
SELECT is_active
FROM users
WHERE id = $1
`, userID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("get user active flag: %w", err)
	}

	return active, nil
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, userID int64, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET last_seen = $2, updated_at = NOW()
WHERE id = $1
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch user last_seen: %w", err)
	}

	return nil
}

func (r *UserRepo) Deactivate(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE users
SET is_active = FALSE, updated_at = NOW()
WHERE id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
