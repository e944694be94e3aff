package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

// CourseHandler lists course offerings.
type CourseHandler struct {
	sessions  flashSessions
	offerings offeringLister
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(sessions flashSessions, offerings offeringLister) *CourseHandler {
	return &CourseHandler{sessions: sessions, offerings: offerings}
}

// List godoc
// @Summary List course offerings
// @Description Seats available are computed at read time.
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	session := middleware.CurrentSession(c)
	page := dto.CoursesPage{Courses: []models.Offering{}}

	offerings, err := h.offerings.List(c.Request.Context())
	if err != nil {
		response.Page(c, appErrors.FromError(err).Status, page, pageFlashes(c, h.sessions, session, errorFlash(err)))
		return
	}
	page.Courses = offerings
	response.Page(c, http.StatusOK, page, pageFlashes(c, h.sessions, session))
}
