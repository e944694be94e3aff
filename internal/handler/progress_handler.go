package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/models"
	"github.com/noah-isme/course-enrollment/internal/service"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

type progressReporter interface {
	List(ctx context.Context) ([]models.StudentProgress, error)
	Export(ctx context.Context, format string) (*service.ExportFile, error)
}

// ProgressHandler serves the student progress report.
type ProgressHandler struct {
	sessions flashSessions
	progress progressReporter
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(sessions flashSessions, progress progressReporter) *ProgressHandler {
	return &ProgressHandler{sessions: sessions, progress: progress}
}

// Report godoc
// @Summary Student progress report
// @Description Returns the report, or a CSV/PDF download when format is given.
// @Tags Progress
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format" Enums(csv, pdf)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student_progress [get]
func (h *ProgressHandler) Report(c *gin.Context) {
	if format := strings.TrimSpace(c.Query("format")); format != "" {
		h.export(c, format)
		return
	}

	session := middleware.CurrentSession(c)
	page := dto.ProgressPage{Students: []models.StudentProgress{}}
	students, err := h.progress.List(c.Request.Context())
	if err != nil {
		response.Page(c, appErrors.FromError(err).Status, page, pageFlashes(c, h.sessions, session, errorFlash(err)))
		return
	}
	page.Students = students
	response.Page(c, http.StatusOK, page, pageFlashes(c, h.sessions, session))
}

func (h *ProgressHandler) export(c *gin.Context, format string) {
	file, err := h.progress.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
