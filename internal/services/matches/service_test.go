package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type swipeStoreStub struct {
	mutual     bool
	mutualErr  error
	match      pgrepo.MutualMatchRecord
	matchErr   error
	matchList  []pgrepo.MutualMatchRecord
	listErr    error
	lastUserA  int64
	lastUserB  int64
	deleteErr  error
	deleteCall int
}

func (s *swipeStoreStub) MutualLikeExists(_ context.Context, userA, userB int64) (bool, error) {
	s.lastUserA = userA
	s.lastUserB = userB
	return s.mutual, s.mutualErr
}

func (s *swipeStoreStub) GetMutualMatch(context.Context, int64, int64) (pgrepo.MutualMatchRecord, error) {
	return s.match, s.matchErr
}

func (s *swipeStoreStub) ListMutualMatches(context.Context, int64, int) ([]pgrepo.MutualMatchRecord, error) {
	return s.matchList, s.listErr
}

func (s *swipeStoreStub) DeletePair(context.Context, pgx.Tx, int64, int64) error {
	s.deleteCall++
	return s.deleteErr
}

type messageStoreStub struct {
	lastByCounterpart map[int64]pgrepo.MessageRecord
	lastErr           error
	softDeleteCall    int
}

func (s *messageStoreStub) LastMessageByCounterpart(context.Context, int64, []int64) (map[int64]pgrepo.MessageRecord, error) {
	return s.lastByCounterpart, s.lastErr
}

func (s *messageStoreStub) SoftDeletePair(context.Context, pgx.Tx, int64, int64, time.Time) error {
	s.softDeleteCall++
	return nil
}

type presenceStub struct {
	online map[int64]bool
}

func (s presenceStub) IsOnline(_ context.Context, userID int64, _ time.Time) (bool, error) {
	return s.online[userID], nil
}

func TestListOrdersByConversationActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	swipes := &swipeStoreStub{
		matchList: []pgrepo.MutualMatchRecord{
			{CounterpartID: 201, DisplayName: "Anna", MatchedAt: base.Add(-48 * time.Hour)},
			{CounterpartID: 202, DisplayName: "Boris", MatchedAt: base.Add(-time.Hour)},
			{CounterpartID: 203, DisplayName: "Vera", MatchedAt: base.Add(-24 * time.Hour)},
		},
	}
	messages := &messageStoreStub{
		lastByCounterpart: map[int64]pgrepo.MessageRecord{
			201: {ID: 10, SenderUserID: 201, Content: "hi", Kind: "text", CreatedAt: base.Add(-time.Minute)},
			203: {ID: 11, SenderUserID: 101, Content: "hey", Kind: "text", CreatedAt: base.Add(-10 * time.Hour)},
		},
	}

	svc := NewService(Dependencies{
		SwipeStore: swipes,
		MsgStore:   messages,
		Presence:   presenceStub{online: map[int64]bool{201: true}},
	}, Config{})

	list, err := svc.List(context.Background(), 101)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(list))
	}

	// 201 has the freshest message, 202 has no chat but the newest match,
	// 203 has an older message than 202's matched_at
	if list[0].CounterpartID != 201 || list[1].CounterpartID != 202 || list[2].CounterpartID != 203 {
		t.Fatalf("unexpected order: %d %d %d", list[0].CounterpartID, list[1].CounterpartID, list[2].CounterpartID)
	}

	if list[0].LastMessage == nil || list[0].LastMessage.Content != "hi" {
		t.Fatalf("expected last message on first match, got %+v", list[0].LastMessage)
	}
	if list[1].LastMessage != nil {
		t.Fatalf("match without chat must not carry a last message")
	}
	if !list[0].IsOnline {
		t.Fatalf("counterpart 201 must be online")
	}
	if list[1].IsOnline {
		t.Fatalf("counterpart 202 must be offline")
	}
}

func TestListEmpty(t *testing.T) {
	svc := NewService(Dependencies{SwipeStore: &swipeStoreStub{}}, Config{})

	list, err := svc.List(context.Background(), 101)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestDetailMapsNotFound(t *testing.T) {
	svc := NewService(Dependencies{
		SwipeStore: &swipeStoreStub{matchErr: pgrepo.ErrSwipeNotFound},
	}, Config{})

	if _, err := svc.Detail(context.Background(), 101, 202); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestIsMutualValidation(t *testing.T) {
	svc := NewService(Dependencies{SwipeStore: &swipeStoreStub{mutual: true}}, Config{})

	if _, err := svc.IsMutual(context.Background(), 101, 101); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for same user, got %v", err)
	}

	mutual, err := svc.IsMutual(context.Background(), 101, 202)
	if err != nil {
		t.Fatalf("is mutual: %v", err)
	}
	if !mutual {
		t.Fatalf("expected mutual=true")
	}
}

func TestUnmatchAcksWithoutExistingMatch(t *testing.T) {
	swipes := &swipeStoreStub{mutual: false}
	messages := &messageStoreStub{}
	svc := NewService(Dependencies{
		SwipeStore: swipes,
		MsgStore:   messages,
	}, Config{})
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}

	// repeated or racing unmatches must ack, both deletes tolerate
	// missing rows
	if err := svc.Unmatch(context.Background(), 101, 202); err != nil {
		t.Fatalf("unmatch without mutual pair must ack, got %v", err)
	}
	if swipes.deleteCall != 1 {
		t.Fatalf("expected one ledger delete, got %d", swipes.deleteCall)
	}
	if messages.softDeleteCall != 1 {
		t.Fatalf("expected one conversation soft delete, got %d", messages.softDeleteCall)
	}

	if err := svc.Unmatch(context.Background(), 101, 202); err != nil {
		t.Fatalf("second unmatch must ack, got %v", err)
	}
	if swipes.deleteCall != 2 {
		t.Fatalf("expected repeat delete to run, got %d calls", swipes.deleteCall)
	}
}

func TestUnmatchValidation(t *testing.T) {
	svc := NewService(Dependencies{
		SwipeStore: &swipeStoreStub{},
		MsgStore:   &messageStoreStub{},
	}, Config{})

	if err := svc.Unmatch(context.Background(), 101, 101); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self unmatch, got %v", err)
	}
	if err := svc.Unmatch(context.Background(), 0, 202); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero user, got %v", err)
	}
}
