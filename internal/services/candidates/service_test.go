package candidates

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type candidateStoreStub struct {
	viewer    pgrepo.CandidateViewerContext
	viewerErr error
	records   []pgrepo.CandidateRecord
	listErr   error
	lastLimit int
}

func (s *candidateStoreStub) GetViewerContext(context.Context, int64) (pgrepo.CandidateViewerContext, error) {
	return s.viewer, s.viewerErr
}

func (s *candidateStoreStub) ListCandidates(_ context.Context, _ int64, limit int) ([]pgrepo.CandidateRecord, error) {
	s.lastLimit = limit
	return s.records, s.listErr
}

type photoSignerStub struct{}

func (photoSignerStub) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.example/" + key, nil
}

func activeViewer() pgrepo.CandidateViewerContext {
	return pgrepo.CandidateViewerContext{UserID: 101, IsActive: true, ProfileComplete: true}
}

func TestNextReturnsCardsAndHasMore(t *testing.T) {
	store := &candidateStoreStub{
		viewer: activeViewer(),
		records: []pgrepo.CandidateRecord{
			{UserID: 201, DisplayName: "Anna", Age: 24, PhotoKey: "photos/201.jpg"},
			{UserID: 202, DisplayName: "Boris", Age: 29},
		},
	}

	svc := NewService(Dependencies{Store: store, PhotoSigner: photoSignerStub{}}, Config{PageSize: 20, MaxPageSize: 50})

	page, err := svc.Next(context.Background(), 101, 2)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if store.lastLimit != 2 {
		t.Fatalf("unexpected limit passed to store: %d", store.lastLimit)
	}
	if !page.HasMore {
		t.Fatalf("full page must report has_more")
	}
	if len(page.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(page.Cards))
	}
	if page.Cards[0].PhotoURL == nil || *page.Cards[0].PhotoURL != "https://cdn.example/photos/201.jpg" {
		t.Fatalf("unexpected photo url: %+v", page.Cards[0].PhotoURL)
	}
	if page.Cards[1].PhotoURL != nil {
		t.Fatalf("card without a photo key must carry no url")
	}
}

func TestNextClampsLimit(t *testing.T) {
	store := &candidateStoreStub{viewer: activeViewer()}
	svc := NewService(Dependencies{Store: store}, Config{PageSize: 20, MaxPageSize: 50})

	if _, err := svc.Next(context.Background(), 101, 0); err != nil {
		t.Fatalf("next with zero limit: %v", err)
	}
	if store.lastLimit != 20 {
		t.Fatalf("zero limit must fall back to page size, got %d", store.lastLimit)
	}

	if _, err := svc.Next(context.Background(), 101, 500); err != nil {
		t.Fatalf("next with oversized limit: %v", err)
	}
	if store.lastLimit != 50 {
		t.Fatalf("oversized limit must clamp to max, got %d", store.lastLimit)
	}
}

func TestNextViewerGates(t *testing.T) {
	svc := NewService(Dependencies{
		Store: &candidateStoreStub{viewerErr: pgrepo.ErrCandidateViewerNotFound},
	}, Config{})
	if _, err := svc.Next(context.Background(), 101, 10); !errors.Is(err, ErrViewerNotFound) {
		t.Fatalf("expected ErrViewerNotFound, got %v", err)
	}

	svc = NewService(Dependencies{
		Store: &candidateStoreStub{viewer: pgrepo.CandidateViewerContext{UserID: 101, IsActive: true}},
	}, Config{})
	if _, err := svc.Next(context.Background(), 101, 10); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("expected ErrProfileIncomplete for incomplete profile, got %v", err)
	}

	svc = NewService(Dependencies{
		Store: &candidateStoreStub{viewer: pgrepo.CandidateViewerContext{UserID: 101, ProfileComplete: true}},
	}, Config{})
	if _, err := svc.Next(context.Background(), 101, 10); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("expected ErrProfileIncomplete for inactive viewer, got %v", err)
	}
}
