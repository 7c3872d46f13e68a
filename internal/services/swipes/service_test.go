package swipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type userStoreStub struct {
	active   bool
	err      error
	calls    int
	lastUser int64
}

func (s *userStoreStub) IsActive(_ context.Context, userID int64) (bool, error) {
	s.calls++
	s.lastUser = userID
	return s.active, s.err
}

type rateLimiterStub struct {
	allowed    bool
	retryAfter int64
	calls      int
}

func (s *rateLimiterStub) AllowSwipe(context.Context, int64) (int64, bool, error) {
	s.calls++
	return s.retryAfter, s.allowed, nil
}

type swipeStoreStub struct {
	createCalls int
	createErr   error
	mutual      bool
	mutualCalls int
	lastActor   int64
	lastTarget  int64
}

func (s *swipeStoreStub) Create(_ context.Context, _ pgx.Tx, actorUserID, targetUserID int64, action string, now time.Time) (pgrepo.SwipeRecord, error) {
	s.createCalls++
	s.lastActor = actorUserID
	s.lastTarget = targetUserID
	if s.createErr != nil {
		return pgrepo.SwipeRecord{}, s.createErr
	}
	return pgrepo.SwipeRecord{
		ID:           int64(s.createCalls),
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		Action:       action,
		CreatedAt:    now,
	}, nil
}

func (s *swipeStoreStub) MutualLikeExists(context.Context, int64, int64) (bool, error) {
	s.mutualCalls++
	return s.mutual, nil
}

func (s *swipeStoreStub) ListHistory(context.Context, int64, int, int) ([]pgrepo.SwipeCounterpartRecord, error) {
	return nil, nil
}

func (s *swipeStoreStub) ListLikesReceived(context.Context, int64, int, int) ([]pgrepo.SwipeCounterpartRecord, error) {
	return nil, nil
}

func (s *swipeStoreStub) ListLikesSent(context.Context, int64, int, int) ([]pgrepo.SwipeCounterpartRecord, error) {
	return nil, nil
}

func (s *swipeStoreStub) GetStats(context.Context, int64) (pgrepo.SwipeStatsRecord, error) {
	return pgrepo.SwipeStatsRecord{}, nil
}

func newTestService(store *swipeStoreStub, users *userStoreStub) *Service {
	svc := NewService(Dependencies{SwipeStore: store, UserStore: users}, Config{})
	svc.withTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestSwipeSecondLikeReportsMatch(t *testing.T) {
	// the reciprocal like already landed, so the fresh post-commit read
	// sees a mutual pair regardless of which side swiped last
	for _, pair := range [][2]int64{{101, 202}, {202, 101}} {
		store := &swipeStoreStub{mutual: true}
		svc := newTestService(store, &userStoreStub{active: true})

		result, err := svc.Swipe(context.Background(), pair[0], pair[1], "like")
		if err != nil {
			t.Fatalf("swipe %d->%d: %v", pair[0], pair[1], err)
		}
		if !result.IsMatch {
			t.Fatalf("swipe %d->%d: expected is_match=true", pair[0], pair[1])
		}
		if store.createCalls != 1 {
			t.Fatalf("expected one ledger insert, got %d", store.createCalls)
		}
		if store.mutualCalls != 1 {
			t.Fatalf("expected one mutual check after commit, got %d", store.mutualCalls)
		}
	}
}

func TestSwipeWithoutReciprocalLikeIsNotMatch(t *testing.T) {
	store := &swipeStoreStub{mutual: false}
	svc := newTestService(store, &userStoreStub{active: true})

	result, err := svc.Swipe(context.Background(), 101, 202, "like")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if result.IsMatch {
		t.Fatalf("one-sided like must not report a match")
	}
}

func TestSwipePassSkipsMutualCheck(t *testing.T) {
	store := &swipeStoreStub{mutual: true}
	svc := newTestService(store, &userStoreStub{active: true})

	result, err := svc.Swipe(context.Background(), 101, 202, "pass")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if result.IsMatch {
		t.Fatalf("a pass can never form a match")
	}
	if store.mutualCalls != 0 {
		t.Fatalf("pass must not consult the mutual check, got %d calls", store.mutualCalls)
	}
}

func TestSwipeDuplicateSurfacesSentinel(t *testing.T) {
	store := &swipeStoreStub{createErr: pgrepo.ErrDuplicateSwipe}
	svc := newTestService(store, &userStoreStub{active: true})

	if _, err := svc.Swipe(context.Background(), 101, 202, "like"); !errors.Is(err, ErrDuplicateSwipe) {
		t.Fatalf("expected ErrDuplicateSwipe, got %v", err)
	}
	if store.createCalls != 1 {
		t.Fatalf("duplicate must come from the single insert attempt, got %d", store.createCalls)
	}
	if store.mutualCalls != 0 {
		t.Fatalf("rejected swipe must not reach the mutual check")
	}
}

func TestNormalizeAction(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "like", want: actionLike},
		{input: "LIKE", want: actionLike},
		{input: " pass ", want: actionPass},
		{input: "superlike", want: actionSuperLike},
		{input: "super_like", want: actionSuperLike},
		{input: "SUPER_LIKE", want: actionSuperLike},
		{input: "dislike", wantErr: true},
		{input: "", wantErr: true},
		{input: "likes", wantErr: true},
	}

	for _, tc := range cases {
		got, err := normalizeAction(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAction) {
				t.Fatalf("normalizeAction(%q): expected ErrInvalidAction, got %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeAction(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeAction(%q): got %q want %q", tc.input, got, tc.want)
		}
	}
}

func TestSwipeRejectsSelfAndBadInput(t *testing.T) {
	svc := NewService(Dependencies{}, Config{})

	if _, err := svc.Swipe(context.Background(), 101, 101, "like"); !errors.Is(err, ErrSelfSwipe) {
		t.Fatalf("expected ErrSelfSwipe, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 0, 202, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero actor, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 101, -5, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative target, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 101, 202, "poke"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestCheckTargetMapsStoreResults(t *testing.T) {
	notFound := &userStoreStub{err: pgrepo.ErrUserNotFound}
	svc := &Service{userStore: notFound, now: time.Now}

	if err := svc.checkTarget(context.Background(), 202); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if notFound.lastUser != 202 {
		t.Fatalf("unexpected target id passed to store: %d", notFound.lastUser)
	}

	svc.userStore = &userStoreStub{active: false}
	if err := svc.checkTarget(context.Background(), 203); !errors.Is(err, ErrTargetInactive) {
		t.Fatalf("expected ErrTargetInactive, got %v", err)
	}

	svc.userStore = &userStoreStub{active: true}
	if err := svc.checkTarget(context.Background(), 204); err != nil {
		t.Fatalf("active target must pass, got %v", err)
	}
}

func TestCheckRate(t *testing.T) {
	denied := &rateLimiterStub{allowed: false, retryAfter: 17}
	svc := &Service{rateLimiter: denied, now: time.Now}

	err := svc.checkRate(context.Background(), 101)
	tf, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tf.RetryAfterSec != 17 {
		t.Fatalf("unexpected retry after: %d", tf.RetryAfterSec)
	}
	if denied.calls != 1 {
		t.Fatalf("limiter must be consulted once, got %d", denied.calls)
	}

	svc.rateLimiter = &rateLimiterStub{allowed: true}
	if err := svc.checkRate(context.Background(), 101); err != nil {
		t.Fatalf("allowed swipe must pass, got %v", err)
	}

	svc.rateLimiter = nil
	if err := svc.checkRate(context.Background(), 101); err != nil {
		t.Fatalf("nil limiter must pass, got %v", err)
	}
}

func TestIsTooFast(t *testing.T) {
	tf, ok := IsTooFast(TooFastError{RetryAfterSec: 12})
	if !ok {
		t.Fatalf("expected TooFastError to match")
	}
	if tf.RetryAfterSec != 12 {
		t.Fatalf("unexpected retry after: %d", tf.RetryAfterSec)
	}
	if _, ok := IsTooFast(ErrDuplicateSwipe); ok {
		t.Fatalf("ErrDuplicateSwipe must not match TooFastError")
	}
}

func TestBuildHistoryPageHasMore(t *testing.T) {
	swipedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []pgrepo.SwipeCounterpartRecord{
		{UserID: 202, DisplayName: "Anna", Age: 24, Action: actionLike, SwipedAt: swipedAt},
		{UserID: 203, DisplayName: "Boris", Age: 29, Action: actionPass, SwipedAt: swipedAt.Add(-time.Minute)},
	}

	page := buildHistoryPage(rows, 2)
	if !page.HasMore {
		t.Fatalf("full page must report has_more")
	}
	if len(page.Items) != 2 {
		t.Fatalf("unexpected item count: %d", len(page.Items))
	}
	if page.Items[0].UserID != 202 || page.Items[0].Action != actionLike {
		t.Fatalf("unexpected first item: %+v", page.Items[0])
	}

	page = buildHistoryPage(rows, 5)
	if page.HasMore {
		t.Fatalf("short page must not report has_more")
	}
}

func TestClampLimit(t *testing.T) {
	svc := NewService(Dependencies{}, Config{HistoryPageSize: 50})

	if got := svc.clampLimit(0); got != 50 {
		t.Fatalf("zero limit must fall back to default, got %d", got)
	}
	if got := svc.clampLimit(500); got != 50 {
		t.Fatalf("oversized limit must clamp to default, got %d", got)
	}
	if got := svc.clampLimit(10); got != 10 {
		t.Fatalf("in-range limit must pass through, got %d", got)
	}
}
