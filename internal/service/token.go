package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
)

// TokenKind selects which secret signs and verifies a token.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Claims carried by both token kinds. ID (jti) is only set on refresh tokens.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Subject is who a token is issued for.
type Subject struct {
	UserID string
	Email  string
}

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) IssueAccessToken(sub Subject) (string, error) {
	return s.issue(sub, AccessToken)
}

func (s *TokenService) IssueRefreshToken(sub Subject) (string, error) {
	return s.issue(sub, RefreshToken)
}

func (s *TokenService) issue(sub Subject, kind TokenKind) (string, error) {
	now := s.now()
	ttl, secret := s.accessTTL, s.accessSecret
	if kind == RefreshToken {
		ttl, secret = s.refreshTTL, s.refreshSecret
	}

	claims := Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == RefreshToken {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify returns apperrors.ErrTokenExpired for a well-signed token past exp and
// apperrors.ErrInvalidToken for any other failure.
func (s *TokenService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := s.accessSecret
	if kind == RefreshToken {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.WrapError(apperrors.ErrTokenExpired, err)
		}
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	if kind == RefreshToken && claims.ID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
