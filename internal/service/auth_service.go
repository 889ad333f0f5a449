package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/auth"
	"github.com/spec-kit/factory-report-service/internal/domain"
	"github.com/spec-kit/factory-report-service/internal/repository"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

// AuthService coordinates login, logout and session lookups.
type AuthService struct {
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
	now         func() time.Time
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	CredentialRepo repository.CredentialRepository
	SessionRepo    repository.SessionRepository
	TokenManager   *auth.TokenManager
	Logger         *zap.Logger
	Now            func() time.Time
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		credentials: deps.CredentialRepo,
		sessions:    deps.SessionRepo,
		tokenMgr:    deps.TokenManager,
		logger:      loggerOrNop(deps.Logger),
		now:         clockOrNow(deps.Now),
	}
}

// Login checks the credential table and opens a session. Unknown usernames
// and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	cred, err := s.credentials.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.String("username", cred.Username))
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	user := domain.User{ID: cred.Username, Name: cred.Name, Role: cred.Role}
	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokenMgr.GenerateToken(sessionID, user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	session := &domain.Session{
		ID:        sessionID,
		User:      user,
		IssuedAt:  s.now(),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// CurrentUser resolves a bearer token to the user of a live session.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("session expired")
		}
		return nil, apperrors.NewInternalError(err)
	}
	user := session.User
	return &user, nil
}
