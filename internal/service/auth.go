package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/internal/repository"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	users      *repository.UserRepository
	tokens     *TokenService
	revoker    RefreshRevoker
	bcryptCost int
	// compared against when the email is unknown so both login failures cost one bcrypt round
	dummyHash []byte
	now       func() time.Time
}

func NewAuthService(users *repository.UserRepository, tokens *TokenService, revoker RefreshRevoker, bcryptCost int) *AuthService {
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = 12
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("nimbuswolf-dummy-password"), bcryptCost)

	return &AuthService{
		users:      users,
		tokens:     tokens,
		revoker:    revoker,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issuePair(user *model.User) (*dto.AuthResult, error) {
	sub := Subject{UserID: user.ID, Email: user.Email}

	access, err := s.tokens.IssueAccessToken(sub)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(sub)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResult{
		User:         dto.NewUserResponse(user),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Register checks password strength before touching storage, then creates the
// user and issues both tokens.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResult, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "Register")

	if problems := validation.PasswordProblems(req.Password); len(problems) > 0 {
		logger.InfoWithContext(ctx, "Registration rejected: weak password").
			Int("problem_count", len(problems)).
			Log()
		return nil, apperrors.WithDetails(apperrors.ErrWeakPassword, problems)
	}

	email := normalizeEmail(req.Email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if exists {
		logger.InfoWithContext(ctx, "Registration rejected: email exists").Log()
		return nil, apperrors.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to hash password").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailExists
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	result, err := s.issuePair(user)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to issue tokens").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(user.ID, "register", true)
	return result, nil
}

// Login fails with the same error whether the email is unknown or the password is wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.AuthResult, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "Login")

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		logger.LogAuth("", "login", false)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.LogAuth(user.ID, "login", false)
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user.LastLogin = &now

	result, err := s.issuePair(user)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to issue tokens").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(user.ID, "login", true)
	return result, nil
}

// Refresh mints a new access token from a refresh token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "Refresh")

	if refreshToken == "" {
		return nil, apperrors.ErrRefreshTokenMissing
	}

	claims, err := s.tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		logger.InfoWithContext(ctx, "Refresh token rejected").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to check refresh token revocation").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}
	if revoked {
		logger.InfoWithContext(ctx, "Refresh token revoked").
			String("jti", claims.ID).
			Log()
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	access, err := s.tokens.IssueAccessToken(Subject{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.DebugWithContext(ctx, "Access token refreshed").
		String("subject", user.ID).
		Log()
	return &dto.RefreshResponse{AccessToken: access}, nil
}

// Logout revokes the refresh token when a denylist is configured. It never fails;
// the handler clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "Logout")

	if refreshToken == "" {
		return
	}

	claims, err := s.tokens.Verify(refreshToken, RefreshToken)
	if err != nil || claims.ExpiresAt == nil {
		return
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		logger.WarnWithContext(ctx, "Failed to revoke refresh token").
			Err(err).
			Log()
		return
	}

	logger.LogAuth(claims.UserID, "logout", true)
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "GetProfile")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}
