package auth

import (
	"context"
	"fmt"

	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
)

type UserStore interface {
	GetOrCreateByTelegramID(ctx context.Context, telegramID int64, displayName string) (pgrepo.UserRecord, error)
}

type Service struct {
	jwt   *JWTManager
	users UserStore
}

func NewService(jwtManager *JWTManager, users UserStore) *Service {
	return &Service{
		jwt:   jwtManager,
		users: users,
	}
}

// LoginTelegram resolves the caller from WebApp initData and issues an
// access token. The rest of the system only ever sees the resulting
// user id, passed explicitly into every operation.
func (s *Service) LoginTelegram(ctx context.Context, initData string) (AuthResult, error) {
	if s.jwt == nil || s.users == nil {
		return AuthResult{}, fmt.Errorf("auth dependencies are not configured")
	}

	telegramID, displayName, err := ResolveTelegramUser(initData)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetOrCreateByTelegramID(ctx, telegramID, displayName)
	if err != nil {
		return AuthResult{}, fmt.Errorf("get or create user: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:          user.ID,
			DisplayName: user.DisplayName,
		},
	}, nil
}

func (s *Service) ValidateAccessToken(_ context.Context, raw string) (AccessClaims, error) {
	if s.jwt == nil {
		return AccessClaims{}, fmt.Errorf("jwt manager is nil")
	}
	return s.jwt.ParseAccessToken(raw)
}
