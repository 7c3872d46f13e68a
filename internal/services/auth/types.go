package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

type AccessClaims struct {
	UserID    int64
	ExpiresAt time.Time
}

type Me struct {
	ID          int64
	DisplayName string
}

type AuthResult struct {
	AccessToken   string
	AccessExpires time.Time
	Me            Me
}
