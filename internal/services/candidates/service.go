package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

const candidatePhotoURLTTL = 15 * time.Minute

var (
	ErrValidation        = errors.New("validation error")
	ErrViewerNotFound    = errors.New("viewer not found")
	ErrProfileIncomplete = errors.New("viewer profile incomplete")
)

type CandidateStore interface {
	GetViewerContext(ctx context.Context, viewerID int64) (pgrepo.CandidateViewerContext, error)
	ListCandidates(ctx context.Context, viewerID int64, limit int) ([]pgrepo.CandidateRecord, error)
}

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID int64, fallbackLastSeen time.Time) (bool, error)
}

type PhotoSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	PageSize    int
	MaxPageSize int
}

type Card struct {
	UserID      int64
	DisplayName string
	Age         int
	Bio         string
	Interests   []string
	PhotoURL    *string
	IsOnline    bool
}

type Page struct {
	Cards   []Card
	HasMore bool
}

type Service struct {
	store     CandidateStore
	presence  PresenceChecker
	photoSign PhotoSigner
	cfg       Config
}

type Dependencies struct {
	Store       CandidateStore
	Presence    PresenceChecker
	PhotoSigner PhotoSigner
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 50
	}

	return &Service{
		store:     deps.Store,
		presence:  deps.Presence,
		photoSign: deps.PhotoSigner,
		cfg:       cfg,
	}
}

// Next returns the viewer's next batch of profiles to swipe on. Anyone the
// viewer already swiped is excluded for good, whatever the action was; the
// only way back into the feed is an unmatch wiping the pair's ledger rows.
func (s *Service) Next(ctx context.Context, viewerID int64, limit int) (Page, error) {
	if viewerID <= 0 {
		return Page{}, ErrValidation
	}
	if s.store == nil {
		return Page{}, fmt.Errorf("candidate store is nil")
	}

	viewer, err := s.store.GetViewerContext(ctx, viewerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCandidateViewerNotFound) {
			return Page{}, ErrViewerNotFound
		}
		return Page{}, fmt.Errorf("load viewer context: %w", err)
	}
	if !viewer.IsActive || !viewer.ProfileComplete {
		return Page{}, ErrProfileIncomplete
	}

	limit = s.clampLimit(limit)
	records, err := s.store.ListCandidates(ctx, viewerID, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list candidates: %w", err)
	}

	cards := make([]Card, 0, len(records))
	for _, rec := range records {
		card := Card{
			UserID:      rec.UserID,
			DisplayName: rec.DisplayName,
			Age:         rec.Age,
			Bio:         rec.Bio,
			Interests:   rec.Interests,
			PhotoURL:    s.buildPhotoURL(ctx, rec.PhotoKey),
		}
		if s.presence != nil {
			online, err := s.presence.IsOnline(ctx, rec.UserID, rec.LastSeen)
			if err == nil {
				card.IsOnline = online
			}
		}
		cards = append(cards, card)
	}

	return Page{
		Cards:   cards,
		HasMore: len(records) == limit,
	}, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.PageSize
	}
	if limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
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

	url, err := s.photoSign.PresignGet(ctx, trimmed, candidatePhotoURLTTL)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(url)
	if value == "" {
		return nil
	}
	return &value
}
