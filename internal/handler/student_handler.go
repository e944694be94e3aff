package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

type statementService interface {
	Statement(ctx context.Context, studentID int64) (*models.BalanceStatement, error)
}

// StudentHandler exposes the balance page.
type StudentHandler struct {
	sessions flashSessions
	students statementService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(sessions flashSessions, students statementService) *StudentHandler {
	return &StudentHandler{sessions: sessions, students: students}
}

// Balance godoc
// @Summary Student balance and enrollment history
// @Tags Students
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Success 302 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /balance/{student_id} [get]
func (h *StudentHandler) Balance(c *gin.Context) {
	studentID, ok := parseRouteID(c.Param("student_id"))
	if !ok {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	session := middleware.CurrentSession(c)
	statement, err := h.students.Statement(c.Request.Context(), studentID)
	if err != nil {
		redirectWithFlash(c, h.sessions, session, models.FlashError, appErrors.FromError(err).Message, "/")
		return
	}
	response.Page(c, http.StatusOK, statement, pageFlashes(c, h.sessions, session))
}
