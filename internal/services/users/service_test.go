package users

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type userStoreStub struct {
	record        pgrepo.UserRecord
	getErr        error
	deactivateErr error
	touched       []time.Time
}

func (s *userStoreStub) GetByID(context.Context, int64) (pgrepo.UserRecord, error) {
	return s.record, s.getErr
}

func (s *userStoreStub) TouchLastSeen(_ context.Context, _ int64, at time.Time) error {
	s.touched = append(s.touched, at)
	return nil
}

func (s *userStoreStub) Deactivate(context.Context, int64) error {
	return s.deactivateErr
}

func TestMeMapsNotFound(t *testing.T) {
	svc := NewService(Dependencies{Store: &userStoreStub{getErr: pgrepo.ErrUserNotFound}})

	if _, err := svc.Me(context.Background(), 101); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMeBuildsProfile(t *testing.T) {
	store := &userStoreStub{
		record: pgrepo.UserRecord{
			ID:          101,
			TelegramID:  900111,
			DisplayName: "Ivan",
			Age:         27,
			Interests:   []string{"hiking", "jazz"},
			IsActive:    true,
		},
	}
	svc := NewService(Dependencies{Store: store})

	profile, err := svc.Me(context.Background(), 101)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if profile.ID != 101 || profile.DisplayName != "Ivan" || len(profile.Interests) != 2 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.PhotoURL != nil {
		t.Fatalf("profile without a photo key must carry no url")
	}
}

func TestTouchLastSeenUsesClock(t *testing.T) {
	store := &userStoreStub{}
	svc := NewService(Dependencies{Store: store})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if err := svc.TouchLastSeen(context.Background(), 101); err != nil {
		t.Fatalf("touch last seen: %v", err)
	}
	if len(store.touched) != 1 || !store.touched[0].Equal(now) {
		t.Fatalf("unexpected touch timestamps: %+v", store.touched)
	}
}

func TestDeactivateMapsNotFound(t *testing.T) {
	svc := NewService(Dependencies{Store: &userStoreStub{deactivateErr: pgrepo.ErrUserNotFound}})

	if err := svc.Deactivate(context.Background(), 101); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
