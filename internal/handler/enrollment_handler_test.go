package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

var (
	student = models.Identity{UserID: 7, Role: models.RoleStudent}
	admin   = models.Identity{UserID: 1, Role: models.RoleAdmin}
)

func TestIndexRedirectsAnonymousVisitors(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/enroll", rec.Header().Get("Location"))
	assert.Equal(t, "/enroll", decodeEnvelope(t, rec).Redirect)
}

func TestIndexRendersHomeForSignedInVisitors(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/", s.cookieFor(admin))

	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.HomePage
	decodeData(t, decodeEnvelope(t, rec), &page)
	assert.Equal(t, int64(1), page.UserID)
	assert.True(t, page.IsAdmin)
}

func TestLogoutClearsIdentity(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/logout", s.cookieFor(student))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/enroll", rec.Header().Get("Location"))
	cookie := responseCookie(rec)
	require.NotNil(t, cookie)
	session, err := s.sessions.Decode(cookie.Value)
	require.NoError(t, err)
	assert.False(t, session.Identity.Authenticated())
}

func TestShowEnrollForAnonymousListsOfferingsOnly(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/enroll", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.EnrollPage
	decodeData(t, decodeEnvelope(t, rec), &page)
	require.Len(t, page.Offerings, 1)
	assert.Equal(t, 20, page.Offerings[0].SeatsAvailable)
	assert.Equal(t, models.RoleAnonymous, page.Role)
	assert.Nil(t, page.Balance)
	assert.Empty(t, page.Enrollments)
}

func TestShowEnrollForStudentIncludesPanel(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/enroll", s.cookieFor(student))

	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.EnrollPage
	decodeData(t, decodeEnvelope(t, rec), &page)
	require.NotNil(t, page.Balance)
	assert.True(t, page.Balance.Equal(decimal.RequireFromString("425")))
	require.Len(t, page.Enrollments, 1)
	assert.Equal(t, int64(101), page.Enrollments[0].CourseID)
	assert.False(t, page.IsAdmin)
}

func TestShowEnrollReportsLoadFailure(t *testing.T) {
	s := newTestServer(t)
	s.offerings.err = errBoom

	rec := s.get("/enroll", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, "Error loading enrollment form: boom", env.Flashes[0].Message)
}

func TestShowEnrollKeepsOfferingsWhenPanelFails(t *testing.T) {
	s := newTestServer(t)
	s.panel.err = appErrors.Clone(appErrors.ErrNotFound, "Student with ID 7 not found in database")

	rec := s.get("/enroll", s.cookieFor(student))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	var page dto.EnrollPage
	decodeData(t, env, &page)
	assert.Len(t, page.Offerings, 1)
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, "Student with ID 7 not found in database", env.Flashes[0].Message)
}

func TestSubmitSignsInResolvedIdentity(t *testing.T) {
	s := newTestServer(t)
	s.identity.identity = student

	rec := s.postForm("/enroll", url.Values{"user_id": {" 7 "}}, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/enroll", rec.Header().Get("Location"))
	assert.Equal(t, " 7 ", s.identity.raw)
	require.Len(t, rec.Result().Cookies(), 1)
	session, err := s.sessions.Decode(responseCookie(rec).Value)
	require.NoError(t, err)
	assert.Equal(t, student, session.Identity)
}

func TestSubmitRejectsUnknownID(t *testing.T) {
	s := newTestServer(t)
	s.identity.err = appErrors.ErrInvalidID

	rec := s.postForm("/enroll", url.Values{"user_id": {"abc"}}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, models.Flash{Category: models.FlashError, Message: "Invalid ID"}, env.Flashes[0])
	var page dto.EnrollPage
	decodeData(t, env, &page)
	assert.Len(t, page.Offerings, 1)

	session, err := s.sessions.Decode(responseCookie(rec).Value)
	require.NoError(t, err)
	assert.False(t, session.Identity.Authenticated())
}

func TestAdminCreateAndEnrollFlashesSuccess(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(admin)

	rec := s.postForm("/enroll", url.Values{
		"first_name":      {"Ada"},
		"last_name":       {"Lovelace"},
		"initial_balance": {"500.00"},
		"offering_id":     {"3"},
	}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, s.enrollment.createCalls)
	assert.Equal(t, dto.CreateAndEnrollRequest{FirstName: "Ada", LastName: "Lovelace", InitialBalance: "500.00", OfferingID: 3}, s.enrollment.lastRequest)
	assert.Equal(t, admin, s.enrollment.lastIdentity)

	env := decodeEnvelope(t, s.get("/enroll", cookie))
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, models.Flash{Category: models.FlashSuccess, Message: "Student created and enrolled successfully!"}, env.Flashes[0])

	assert.Empty(t, decodeEnvelope(t, s.get("/enroll", cookie)).Flashes)
}

func TestAdminValidationErrorRendersForm(t *testing.T) {
	s := newTestServer(t)
	s.enrollment.createErr = appErrors.Clone(appErrors.ErrValidation, "Invalid initial balance: Initial balance must be between 0 and 999999.99")

	rec := s.postForm("/enroll", url.Values{
		"first_name":      {"Ada"},
		"last_name":       {"Lovelace"},
		"initial_balance": {"-1"},
		"offering_id":     {"3"},
	}, s.cookieFor(admin))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	var page dto.EnrollPage
	decodeData(t, env, &page)
	assert.True(t, page.IsAdmin)
	assert.Len(t, page.Offerings, 1)
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, "Invalid initial balance: Initial balance must be between 0 and 999999.99", env.Flashes[0].Message)
}

func TestAdminInvalidOfferingSkipsService(t *testing.T) {
	s := newTestServer(t)

	rec := s.postForm("/enroll", url.Values{"first_name": {"Ada"}, "last_name": {"L"}, "initial_balance": {"5"}, "offering_id": {"x"}}, s.cookieFor(admin))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.enrollment.createCalls)
}

func TestAdminProcedureFailureRedirectsWithMessage(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(admin)
	s.enrollment.createErr = appErrors.ErrProcedureNoResult

	rec := s.postForm("/enroll", url.Values{"first_name": {"Ada"}, "last_name": {"L"}, "initial_balance": {"5"}, "offering_id": {"3"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	env := decodeEnvelope(t, s.get("/enroll", cookie))
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, "Procedure executed but returned no result.", env.Flashes[0].Message)
}

func TestStudentSelfEnrollSuccess(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(student)

	rec := s.postForm("/enroll", url.Values{"offering_id": {"3"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(3), s.enrollment.lastOffering)
	assert.Equal(t, student, s.enrollment.lastIdentity)
	env := decodeEnvelope(t, s.get("/enroll", cookie))
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, models.Flash{Category: models.FlashSuccess, Message: "Enrollment successful!"}, env.Flashes[0])
}

func TestStudentSelfEnrollRejection(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(student)
	s.enrollment.selfErr = appErrors.ErrAlreadyEnrolled

	rec := s.postForm("/enroll", url.Values{"offering_id": {"3"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	env := decodeEnvelope(t, s.get("/enroll", cookie))
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, models.Flash{Category: models.FlashError, Message: "Already enrolled in this course."}, env.Flashes[0])
}

func TestStudentInvalidOfferingSkipsService(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(student)

	rec := s.postForm("/enroll", url.Values{"offering_id": {"-4"}}, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, s.enrollment.selfCalls)
	env := decodeEnvelope(t, s.get("/enroll", cookie))
	require.Len(t, env.Flashes, 1)
	assert.Equal(t, "Invalid offering ID", env.Flashes[0].Message)
}

func TestStudentSelfEnrollAcceptsNumericJSONOffering(t *testing.T) {
	s := newTestServer(t)
	cookie := s.cookieFor(student)

	rec := s.postJSON("/enroll", `{"offering_id": 3}`, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, s.enrollment.selfCalls)
	assert.Equal(t, int64(3), s.enrollment.lastOffering)
}

func TestSubmitSignsInWithNumericJSONUserID(t *testing.T) {
	s := newTestServer(t)
	s.identity.identity = student

	rec := s.postJSON("/enroll", `{"user_id": 7}`, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "7", s.identity.raw)
}

func TestAdminCreateAndEnrollAcceptsNumericJSONFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON("/enroll", `{"first_name":"Ada","last_name":"Lovelace","initial_balance":500.5,"offering_id":3}`, s.cookieFor(admin))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 1, s.enrollment.createCalls)
	assert.Equal(t, int64(3), s.enrollment.lastRequest.OfferingID)
	assert.Equal(t, "500.5", s.enrollment.lastRequest.InitialBalance)
}

func TestSubmitRejectsNonScalarJSONOffering(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON("/enroll", `{"offering_id": [3]}`, s.cookieFor(student))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.enrollment.selfCalls)
}
