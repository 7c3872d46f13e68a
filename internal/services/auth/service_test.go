package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type userStoreStub struct {
	lastTelegramID  int64
	lastDisplayName string
}

func (s *userStoreStub) GetOrCreateByTelegramID(_ context.Context, telegramID int64, displayName string) (pgrepo.UserRecord, error) {
	s.lastTelegramID = telegramID
	s.lastDisplayName = displayName
	return pgrepo.UserRecord{ID: 101, TelegramID: telegramID, DisplayName: displayName}, nil
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	token, expires, err := manager.GenerateAccessToken(101)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if token == "" {
		t.Fatalf("empty access token")
	}
	if !expires.After(time.Now()) {
		t.Fatalf("token must expire in the future, got %v", expires)
	}

	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 101 {
		t.Fatalf("unexpected user id: got %d want 101", claims.UserID)
	}
}

func TestParseAccessTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 15*time.Minute)
	verifier := NewJWTManager("secret-b", 15*time.Minute)

	token, _, err := issuer.GenerateAccessToken(101)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	if _, err := verifier.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveTelegramUserFromInitData(t *testing.T) {
	id, name, err := ResolveTelegramUser("900111")
	if err != nil {
		t.Fatalf("resolve bare id: %v", err)
	}
	if id != 900111 || name != "" {
		t.Fatalf("unexpected result: id=%d name=%q", id, name)
	}

	values := url.Values{}
	values.Set("user", `{"id":900222,"first_name":"Ivan","last_name":"Petrov"}`)
	values.Set("auth_date", "1700000000")

	id, name, err = ResolveTelegramUser(values.Encode())
	if err != nil {
		t.Fatalf("resolve initData: %v", err)
	}
	if id != 900222 {
		t.Fatalf("unexpected id: got %d want 900222", id)
	}
	if name != "Ivan Petrov" {
		t.Fatalf("unexpected display name: %q", name)
	}

	if _, _, err := ResolveTelegramUser("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank initData, got %v", err)
	}
}

func TestLoginTelegramIssuesToken(t *testing.T) {
	store := &userStoreStub{}
	svc := NewService(NewJWTManager("test-secret", 15*time.Minute), store)

	res, err := svc.LoginTelegram(context.Background(), "900111")
	if err != nil {
		t.Fatalf("login telegram: %v", err)
	}
	if store.lastTelegramID != 900111 {
		t.Fatalf("unexpected telegram id passed to store: %d", store.lastTelegramID)
	}
	if res.Me.ID != 101 {
		t.Fatalf("unexpected me id: %d", res.Me.ID)
	}

	claims, err := svc.ValidateAccessToken(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != 101 {
		t.Fatalf("unexpected claims user id: %d", claims.UserID)
	}
}
