package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

type flashSessions interface {
	AddFlash(ctx context.Context, session models.Session, category models.FlashCategory, message string)
	TakeFlashes(ctx context.Context, session models.Session) []models.Flash
}

// redirectWithFlash queues message for the session and redirects.
func redirectWithFlash(c *gin.Context, sessions flashSessions, session models.Session, category models.FlashCategory, message, location string) {
	sessions.AddFlash(c.Request.Context(), session, category, message)
	response.Redirect(c, location)
}

// pageFlashes drains the session's pending flashes and appends the ones raised
// while handling this request.
func pageFlashes(c *gin.Context, sessions flashSessions, session models.Session, immediate ...models.Flash) []models.Flash {
	flashes := sessions.TakeFlashes(c.Request.Context(), session)
	return append(flashes, immediate...)
}

func errorFlash(err error) models.Flash {
	return models.Flash{Category: models.FlashError, Message: appErrors.FromError(err).Message}
}

// parseRouteID accepts only unsigned decimal identifiers.
func parseRouteID(raw string) (int64, bool) {
	if raw == "" || strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
