package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

// FlashStore persists pending flash messages per session.
type FlashStore interface {
	Push(ctx context.Context, sessionID string, flash models.Flash) error
	Drain(ctx context.Context, sessionID string) ([]models.Flash, error)
}

// SessionConfig controls session token signing.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// SessionService issues and verifies session tokens and manages flash messages.
type SessionService struct {
	flashes FlashStore
	logger  *zap.Logger
	config  SessionConfig
	now     func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(flashes FlashStore, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	return &SessionService{flashes: flashes, logger: logger, config: config, now: time.Now}
}

// New starts an anonymous session with a fresh identifier.
func (s *SessionService) New() models.Session {
	return models.Session{
		ID:        uuid.NewString(),
		Identity:  models.Anonymous(),
		ExpiresAt: s.now().UTC().Add(s.config.TTL),
	}
}

// Encode signs the session into a cookie value. The expiry is extended on every call.
func (s *SessionService) Encode(session models.Session) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.SessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	if session.Identity.Authenticated() {
		claims.UserID = session.Identity.UserID
		claims.Role = session.Identity.Role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and restores the session it carries.
func (s *SessionService) Decode(tokenString string) (*models.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}

	session := &models.Session{ID: claims.SessionID, Identity: models.Anonymous()}
	identity := models.Identity{UserID: claims.UserID, Role: claims.Role}
	if identity.Authenticated() {
		session.Identity = identity
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SignIn attaches identity to the session, keeping its identifier.
func (s *SessionService) SignIn(session models.Session, identity models.Identity) models.Session {
	session.Identity = identity
	return session
}

// SignOut clears the identity but keeps the session identifier so pending
// flash messages survive.
func (s *SessionService) SignOut(session models.Session) models.Session {
	session.Identity = models.Anonymous()
	return session
}

// AddFlash queues a message for the next rendered page. Storage failures are
// logged and otherwise ignored.
func (s *SessionService) AddFlash(ctx context.Context, session models.Session, category models.FlashCategory, message string) {
	if s.flashes == nil {
		return
	}
	if err := s.flashes.Push(ctx, session.ID, models.Flash{Category: category, Message: message}); err != nil {
		s.logger.Warn("failed to store flash message", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// TakeFlashes drains the session's pending messages.
func (s *SessionService) TakeFlashes(ctx context.Context, session models.Session) []models.Flash {
	if s.flashes == nil {
		return []models.Flash{}
	}
	flashes, err := s.flashes.Drain(ctx, session.ID)
	if err != nil {
		s.logger.Warn("failed to read flash messages", zap.String("session_id", session.ID), zap.Error(err))
		return []models.Flash{}
	}
	return flashes
}
