package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/response"
)

const enrollPath = "/enroll"

type sessionManager interface {
	flashSessions
	SignIn(session models.Session, identity models.Identity) models.Session
	SignOut(session models.Session) models.Session
}

type identityResolver interface {
	Resolve(ctx context.Context, rawID string) (models.Identity, error)
}

type offeringLister interface {
	List(ctx context.Context) ([]models.Offering, error)
}

type enrollmentService interface {
	SelfEnroll(ctx context.Context, identity models.Identity, offeringID int64) (*models.Enrollment, error)
	CreateAndEnroll(ctx context.Context, identity models.Identity, req dto.CreateAndEnrollRequest) (*models.CreateAndEnrollResult, error)
}

type studentPanelService interface {
	Panel(ctx context.Context, identity models.Identity) (*models.StudentPanel, error)
}

// EnrollmentHandler serves the home page, sign-in/out and the enrollment form.
type EnrollmentHandler struct {
	sessions   sessionManager
	identity   identityResolver
	offerings  offeringLister
	enrollment enrollmentService
	students   studentPanelService
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(sessions sessionManager, identity identityResolver, offerings offeringLister, enrollment enrollmentService, students studentPanelService) *EnrollmentHandler {
	return &EnrollmentHandler{sessions: sessions, identity: identity, offerings: offerings, enrollment: enrollment, students: students}
}

// Index godoc
// @Summary Home page
// @Description Redirects anonymous visitors to the enrollment page.
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Success 302 {object} response.Envelope
// @Router / [get]
func (h *EnrollmentHandler) Index(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if !session.Identity.Authenticated() {
		response.Redirect(c, enrollPath)
		return
	}
	page := dto.HomePage{UserID: session.Identity.UserID, Role: session.Identity.Role, IsAdmin: session.Identity.IsAdmin()}
	response.Page(c, http.StatusOK, page, pageFlashes(c, h.sessions, session))
}

// Logout godoc
// @Summary Sign out
// @Tags Enrollment
// @Produce json
// @Success 302 {object} response.Envelope
// @Router /logout [get]
func (h *EnrollmentHandler) Logout(c *gin.Context) {
	session := h.sessions.SignOut(middleware.CurrentSession(c))
	if err := middleware.SaveSession(c, session); err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, enrollPath)
}

// Show godoc
// @Summary Enrollment page
// @Description Lists offerings; students also see their balance and enrollments.
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enroll [get]
func (h *EnrollmentHandler) Show(c *gin.Context) {
	h.render(c, middleware.CurrentSession(c), http.StatusOK)
}

// Submit godoc
// @Summary Submit the enrollment form
// @Description Signs in when no one is signed in, creates and enrolls a student for admins, or enrolls the signed-in student.
// @Tags Enrollment
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body dto.EnrollmentForm true "Enrollment form"
// @Success 303 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /enroll [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	session := middleware.CurrentSession(c)

	var form dto.EnrollmentForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, session, http.StatusBadRequest, errorFlash(appErrors.Clone(appErrors.ErrValidation, "Invalid form submission")))
		return
	}

	switch {
	case !session.Identity.Authenticated():
		h.signIn(c, session, form)
	case session.Identity.IsAdmin():
		h.createAndEnroll(c, session, form)
	default:
		h.selfEnroll(c, session, form)
	}
}

func (h *EnrollmentHandler) signIn(c *gin.Context, session models.Session, form dto.EnrollmentForm) {
	identity, err := h.identity.Resolve(c.Request.Context(), string(form.UserID))
	if err != nil {
		h.render(c, session, appErrors.FromError(err).Status, errorFlash(err))
		return
	}
	if err := middleware.SaveSession(c, h.sessions.SignIn(session, identity)); err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, enrollPath)
}

func (h *EnrollmentHandler) createAndEnroll(c *gin.Context, session models.Session, form dto.EnrollmentForm) {
	offeringID, ok := parseFormID(string(form.OfferingID))
	if !ok {
		h.render(c, session, http.StatusBadRequest, errorFlash(appErrors.Clone(appErrors.ErrValidation, "Invalid offering ID")))
		return
	}
	req := dto.CreateAndEnrollRequest{
		FirstName:      form.FirstName,
		LastName:       form.LastName,
		InitialBalance: string(form.InitialBalance),
		OfferingID:     offeringID,
	}

	if _, err := h.enrollment.CreateAndEnroll(c.Request.Context(), session.Identity, req); err != nil {
		if appErrors.HasCode(err, appErrors.ErrValidation.Code) {
			h.render(c, session, http.StatusBadRequest, errorFlash(err))
			return
		}
		redirectWithFlash(c, h.sessions, session, models.FlashError, appErrors.FromError(err).Message, enrollPath)
		return
	}
	redirectWithFlash(c, h.sessions, session, models.FlashSuccess, "Student created and enrolled successfully!", enrollPath)
}

func (h *EnrollmentHandler) selfEnroll(c *gin.Context, session models.Session, form dto.EnrollmentForm) {
	offeringID, ok := parseFormID(string(form.OfferingID))
	if !ok {
		redirectWithFlash(c, h.sessions, session, models.FlashError, "Invalid offering ID", enrollPath)
		return
	}
	if _, err := h.enrollment.SelfEnroll(c.Request.Context(), session.Identity, offeringID); err != nil {
		redirectWithFlash(c, h.sessions, session, models.FlashError, appErrors.FromError(err).Message, enrollPath)
		return
	}
	redirectWithFlash(c, h.sessions, session, models.FlashSuccess, "Enrollment successful!", enrollPath)
}

// render writes the enrollment page for the session's role with the given status.
func (h *EnrollmentHandler) render(c *gin.Context, session models.Session, status int, immediate ...models.Flash) {
	ctx := c.Request.Context()
	identity := session.Identity
	page := dto.EnrollPage{
		Offerings: []models.Offering{},
		Role:      identity.Role,
		UserID:    identity.UserID,
		IsAdmin:   identity.IsAdmin(),
	}

	offerings, err := h.offerings.List(ctx)
	if err != nil {
		immediate = append(immediate, loadFormFlash(err))
		status = appErrors.FromError(err).Status
	} else {
		page.Offerings = offerings
	}

	if identity.IsStudent() {
		panel, err := h.students.Panel(ctx, identity)
		if err != nil {
			immediate = append(immediate, loadFormFlash(err))
			status = appErrors.FromError(err).Status
		} else {
			page.Balance = &panel.Balance
			page.Enrollments = panel.Enrollments
		}
	}

	response.Page(c, status, page, pageFlashes(c, h.sessions, session, immediate...))
}

// loadFormFlash words a failure that prevented the enrollment page from loading.
func loadFormFlash(err error) models.Flash {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrNotFound.Code {
		return errorFlash(err)
	}
	return models.Flash{Category: models.FlashError, Message: "Error loading enrollment form: " + appErrors.RootMessage(err)}
}

func parseFormID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
