package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/middleware"
	"github.com/noah-isme/course-enrollment/internal/models"
	"github.com/noah-isme/course-enrollment/internal/repository"
	"github.com/noah-isme/course-enrollment/internal/service"
)

var testCookie = middleware.CookieConfig{Name: "enrollment_session", MaxAge: time.Hour}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Flashes  []models.Flash `json:"flashes"`
	Redirect string         `json:"redirect"`
}

type fakeIdentity struct {
	identity models.Identity
	err      error
	raw      string
}

func (f *fakeIdentity) Resolve(_ context.Context, rawID string) (models.Identity, error) {
	f.raw = rawID
	return f.identity, f.err
}

type fakeOfferings struct {
	offerings []models.Offering
	err       error
}

func (f *fakeOfferings) List(context.Context) ([]models.Offering, error) {
	return f.offerings, f.err
}

type fakeEnrollment struct {
	selfErr      error
	createErr    error
	selfCalls    int
	createCalls  int
	lastOffering int64
	lastRequest  dto.CreateAndEnrollRequest
	lastIdentity models.Identity
}

func (f *fakeEnrollment) SelfEnroll(_ context.Context, identity models.Identity, offeringID int64) (*models.Enrollment, error) {
	f.selfCalls++
	f.lastIdentity = identity
	f.lastOffering = offeringID
	if f.selfErr != nil {
		return nil, f.selfErr
	}
	return &models.Enrollment{ID: 1, StudentID: identity.UserID, OfferingID: offeringID, Status: models.EnrollmentStatusActive}, nil
}

func (f *fakeEnrollment) CreateAndEnroll(_ context.Context, identity models.Identity, req dto.CreateAndEnrollRequest) (*models.CreateAndEnrollResult, error) {
	f.createCalls++
	f.lastIdentity = identity
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.CreateAndEnrollResult{StudentID: 900, EnrollmentID: 4000}, nil
}

type fakePanel struct {
	panel *models.StudentPanel
	err   error
}

func (f *fakePanel) Panel(context.Context, models.Identity) (*models.StudentPanel, error) {
	return f.panel, f.err
}

type fakeStatements struct {
	statement *models.BalanceStatement
	err       error
	lastID    int64
}

func (f *fakeStatements) Statement(_ context.Context, studentID int64) (*models.BalanceStatement, error) {
	f.lastID = studentID
	return f.statement, f.err
}

type fakeProgress struct {
	rows      []models.StudentProgress
	err       error
	file      *service.ExportFile
	exportErr error
	format    string
}

func (f *fakeProgress) List(context.Context) ([]models.StudentProgress, error) {
	return f.rows, f.err
}

func (f *fakeProgress) Export(_ context.Context, format string) (*service.ExportFile, error) {
	f.format = format
	return f.file, f.exportErr
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type testServer struct {
	t          *testing.T
	router     *gin.Engine
	sessions   *service.SessionService
	identity   *fakeIdentity
	offerings  *fakeOfferings
	enrollment *fakeEnrollment
	panel      *fakePanel
	statements *fakeStatements
	progress   *fakeProgress
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		t:        t,
		sessions: service.NewSessionService(repository.NewMemoryFlashRepository(time.Minute), nil, service.SessionConfig{Secret: "test-secret", TTL: time.Hour}),
		identity: &fakeIdentity{},
		offerings: &fakeOfferings{offerings: []models.Offering{
			{ID: 3, CourseID: 101, MaxCapacity: 30, CurrentEnrollment: 10, SeatsAvailable: 20, Price: decimal.RequireFromString("75.00")},
		}},
		enrollment: &fakeEnrollment{},
		panel: &fakePanel{panel: &models.StudentPanel{
			Balance:     decimal.RequireFromString("425.00"),
			Enrollments: []models.CourseEnrollment{{EnrollmentID: 55, OfferingID: 3, CourseID: 101}},
		}},
		statements: &fakeStatements{},
		progress:   &fakeProgress{},
	}

	enrollment := NewEnrollmentHandler(s.sessions, s.identity, s.offerings, s.enrollment, s.panel)
	courses := NewCourseHandler(s.sessions, s.offerings)
	students := NewStudentHandler(s.sessions, s.statements)
	progress := NewProgressHandler(s.sessions, s.progress)
	metrics := NewMetricsHandler(service.NewMetricsService(), fakePinger{})

	r := gin.New()
	r.Use(middleware.NoStore())
	r.Use(middleware.Session(s.sessions, testCookie, nil))
	r.GET("/", enrollment.Index)
	r.GET("/logout", enrollment.Logout)
	r.GET("/enroll", enrollment.Show)
	r.POST("/enroll", enrollment.Submit)
	r.GET("/courses", courses.List)
	r.GET("/balance/:student_id", students.Balance)
	r.GET("/student_progress", progress.Report)
	r.GET("/health", metrics.Health)
	r.GET("/ready", metrics.Ready)
	s.router = r
	return s
}

// cookieFor returns a session cookie already signed in as identity.
func (s *testServer) cookieFor(identity models.Identity) *http.Cookie {
	s.t.Helper()
	session := s.sessions.SignIn(s.sessions.New(), identity)
	token, err := s.sessions.Encode(session)
	require.NoError(s.t, err)
	return &http.Cookie{Name: testCookie.Name, Value: token}
}

func (s *testServer) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return s.do(req, cookie)
}

func (s *testServer) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, cookie)
}

func (s *testServer) postJSON(path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, cookie)
}

func (s *testServer) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testCookie.Name {
			return cookie
		}
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

var errBoom = errors.New("boom")
