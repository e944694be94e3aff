package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/logger"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

const (
	contextSessionKey = "session"
	contextSaverKey   = "session_saver"
)

// SessionCodec creates, signs and verifies session cookies.
type SessionCodec interface {
	New() models.Session
	Encode(session models.Session) (string, error)
	Decode(token string) (*models.Session, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Session restores the visitor's session from its cookie, or starts a new one,
// and re-issues the cookie so its expiry slides with activity. Handlers read
// it with CurrentSession and persist changes with SaveSession.
func Session(codec SessionCodec, cookie CookieConfig, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		session := codec.New()
		if raw, err := c.Cookie(cookie.Name); err == nil && raw != "" {
			restored, err := codec.Decode(raw)
			if err == nil {
				session = *restored
			} else {
				log.Debug("discarding invalid session cookie", zap.Error(err))
			}
		}

		save := func(s models.Session) error {
			token, err := codec.Encode(s)
			if err != nil {
				return err
			}
			writeSessionCookie(c.Writer, cookie, token)
			c.Set(contextSessionKey, s)
			if s.Identity.Authenticated() {
				c.Set(logger.ActorKey, fmt.Sprintf("%s:%d", strings.ToLower(string(s.Identity.Role)), s.Identity.UserID))
			} else {
				c.Set(logger.ActorKey, "")
			}
			return nil
		}
		c.Set(contextSaverKey, save)

		if err := save(session); err != nil {
			log.Error("failed to issue session cookie", zap.Error(err))
			response.Error(c, appErrors.ErrInternal)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session attached by the Session middleware.
func CurrentSession(c *gin.Context) models.Session {
	if value, ok := c.Get(contextSessionKey); ok {
		if session, ok := value.(models.Session); ok {
			return session
		}
	}
	return models.Session{Identity: models.Anonymous()}
}

// SaveSession replaces the current session and its cookie. It must be called
// before the response body is written.
func SaveSession(c *gin.Context, session models.Session) error {
	value, ok := c.Get(contextSaverKey)
	if !ok {
		return fmt.Errorf("session middleware not installed")
	}
	save, ok := value.(func(models.Session) error)
	if !ok {
		return fmt.Errorf("session middleware not installed")
	}
	return save(session)
}

// writeSessionCookie sets the cookie, replacing one already queued on this response.
func writeSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string) {
	header := w.Header()
	existing := header.Values("Set-Cookie")
	header.Del("Set-Cookie")
	prefix := cfg.Name + "="
	for _, v := range existing {
		if !strings.HasPrefix(v, prefix) {
			header.Add("Set-Cookie", v)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
