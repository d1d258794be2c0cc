package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mentor-ai/internal/auth"
	"mentor-ai/internal/model"
	"mentor-ai/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrTooManyAttempts   = errors.New("too many failed login attempts, try again later")
	ErrUnauthenticated   = errors.New("session is not authenticated")
)

type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, bool, error)
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
}

type LoginLimiter interface {
	Allow(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id string) error
	Reset(ctx context.Context, id string) error
}

type AuthService struct {
	verifier      auth.CredentialVerifier
	sessions      SessionStore
	limiter       LoginLimiter
	jwtSecret     string
	jwtExpiration time.Duration
	greeting      string
	logger        *slog.Logger
}

type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
	Greeting      string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token   string         `json:"token"`
	Session *model.Session `json:"session"`
}

func NewAuthService(
	verifier auth.CredentialVerifier,
	sessions SessionStore,
	limiter LoginLimiter,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		verifier:      verifier,
		sessions:      sessions,
		limiter:       limiter,
		jwtSecret:     cfg.JWTSecret,
		jwtExpiration: cfg.JWTExpiration,
		greeting:      cfg.Greeting,
		logger:        logger,
	}
}

// Login checks the pair against the verifier and opens a session seeded with
// the greeting turn.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := input.Password
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("check login limiter failed: %w", err)
		}
		if !allowed {
			s.logger.Warn("login locked out", "username", username)
			return nil, ErrTooManyAttempts
		}
	}

	ok, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("verify credentials failed: %w", err)
	}
	if !ok {
		if s.limiter != nil {
			if recErr := s.limiter.RecordFailure(ctx, username); recErr != nil {
				s.logger.Error("record login failure failed", "username", username, "error", recErr)
			}
		}
		s.logger.Info("login rejected", "username", username)
		return nil, ErrInvalidCredential
	}
	if s.limiter != nil {
		if resetErr := s.limiter.Reset(ctx, username); resetErr != nil {
			s.logger.Error("reset login limiter failed", "username", username, "error", resetErr)
		}
	}

	now := time.Now()
	session := &model.Session{
		ID:            uuid.NewString(),
		Username:      username,
		Authenticated: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	session.Append(model.Turn{Role: model.RoleAssistant, Content: s.greeting, CreatedAt: now})
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session failed: %w", err)
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, session.ID, username)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login accepted", "username", username, "session_id", session.ID)
	return &AuthResult{Token: token, Session: session}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	session, found, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if !found || !session.Authenticated {
		return nil, ErrUnauthenticated
	}
	return session, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	s.logger.Info("logout", "session_id", sessionID)
	return nil
}
