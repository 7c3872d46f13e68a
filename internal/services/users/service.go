package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

const profilePhotoURLTTL = 15 * time.Minute

var (
	ErrValidation   = errors.New("validation error")
	ErrUserNotFound = errors.New("user not found")
)

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
	TouchLastSeen(ctx context.Context, userID int64, at time.Time) error
	Deactivate(ctx context.Context, userID int64) error
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int64, fallbackLastSeen time.Time) (bool, error)
}

type PhotoSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Profile struct {
	ID              int64
	TelegramID      int64
	DisplayName     string
	Age             int
	Gender          string
	Bio             string
	Interests       []string
	PhotoURL        *string
	IsActive        bool
	ProfileComplete bool
	IsOnline        bool
	LastSeen        time.Time
	CreatedAt       time.Time
}

type Service struct {
	store     UserStore
	presence  PresenceChecker
	photoSign PhotoSigner
	now       func() time.Time
}

type Dependencies struct {
	Store       UserStore
	Presence    PresenceChecker
	PhotoSigner PhotoSigner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:     deps.Store,
		presence:  deps.Presence,
		photoSign: deps.PhotoSigner,
		now:       time.Now,
	}
}

func (s *Service) Me(ctx context.Context, userID int64) (Profile, error) {
	if userID <= 0 {
		return Profile{}, ErrValidation
	}
	if s.store == nil {
		return Profile{}, fmt.Errorf("user store is nil")
	}

	record, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, fmt.Errorf("get user: %w", err)
	}

	profile := Profile{
		ID:              record.ID,
		TelegramID:      record.TelegramID,
		DisplayName:     record.DisplayName,
		Age:             record.Age,
		Gender:          record.Gender,
		Bio:             record.Bio,
		Interests:       record.Interests,
		PhotoURL:        s.buildPhotoURL(ctx, record.PhotoKey),
		IsActive:        record.IsActive,
		ProfileComplete: record.ProfileComplete,
		LastSeen:        record.LastSeen,
		CreatedAt:       record.CreatedAt,
	}
	if s.presence != nil {
		online, err := s.presence.IsOnline(ctx, record.ID, record.LastSeen)
		if err == nil {
			profile.IsOnline = online
		}
	}

	return profile, nil
}

// TouchLastSeen persists the caller's activity timestamp. Invoked from
// the auth middleware on every authenticated request.
func (s *Service) TouchLastSeen(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return nil
	}

	return s.store.TouchLastSeen(ctx, userID, s.now().UTC())
}

// Deactivate flips the account inactive. Inactive users disappear from
// every candidate feed and reject incoming swipes.
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("user store is nil")
	}

	if err := s.store.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("deactivate user: %w", err)
	}

	return nil
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

	url, err := s.photoSign.PresignGet(ctx, trimmed, profilePhotoURLTTL)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(url)
	if value == "" {
		return nil
	}
	return &value
}
