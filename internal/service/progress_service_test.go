package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

type mockProgressRepo struct {
	rows   []models.StudentProgress
	err    error
	calls  int
	onList func()
}

func (m *mockProgressRepo) List(ctx context.Context) ([]models.StudentProgress, error) {
	m.calls++
	rows := m.rows
	if m.onList != nil {
		m.onList()
	}
	if m.err != nil {
		return nil, m.err
	}
	return rows, nil
}

func newProgressFixture(cacheEnabled bool) (*ProgressService, *mockProgressRepo, *mockCacheRepo) {
	repo := &mockProgressRepo{rows: []models.StudentProgress{
		{StudentID: 7, FirstName: "Ada", LastName: "Lovelace", TotalCourses: 2},
	}}
	cacheRepo := newMockCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, cacheEnabled)
	svc := NewProgressService(repo, cache, time.Minute, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo, cacheRepo
}

func TestProgressServiceListUsesCache(t *testing.T) {
	svc, repo, _ := newProgressFixture(true)
	ctx := context.Background()

	first, err := svc.List(ctx)
	require.NoError(t, err)
	second, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestProgressServiceInvalidateDuringReadDiscardsStaleRows(t *testing.T) {
	svc, repo, _ := newProgressFixture(true)
	ctx := context.Background()
	fresh := []models.StudentProgress{{StudentID: 7, FirstName: "Ada", LastName: "Lovelace", TotalCourses: 3}}

	// An enrollment commits after the view was read but before the rows are cached.
	repo.onList = func() {
		repo.onList = nil
		repo.rows = fresh
		require.NoError(t, svc.Invalidate(ctx))
	}

	stale, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stale[0].TotalCourses)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, rows)
	assert.Equal(t, 2, repo.calls)

	rows, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, rows)
	assert.Equal(t, 2, repo.calls)
}

func TestProgressServiceInvalidateRetiresPreviousGeneration(t *testing.T) {
	svc, _, cacheRepo := newProgressFixture(true)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	require.Contains(t, cacheRepo.store, progressCacheKey(0))

	require.NoError(t, svc.Invalidate(ctx))
	assert.NotContains(t, cacheRepo.store, progressCacheKey(0))
	assert.Equal(t, []string{progressCacheKey(0)}, cacheRepo.deleted)
}

func TestProgressServiceListWithoutCache(t *testing.T) {
	svc, repo, _ := newProgressFixture(false)

	for i := 0; i < 3; i++ {
		_, err := svc.List(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.calls)
}

func TestProgressServiceListError(t *testing.T) {
	svc, repo, cacheRepo := newProgressFixture(true)
	repo.err = errors.New("view missing")

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error fetching student progress: view missing", appErrors.FromError(err).Message)
	assert.Empty(t, cacheRepo.store)
}

func TestProgressServiceExportCSV(t *testing.T) {
	svc, _, _ := newProgressFixture(false)

	file, err := svc.Export(context.Background(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "student_progress_20240501.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, "StudentID,FirstName,LastName,TotalCourses\n7,Ada,Lovelace,2\n", string(file.Data))
}

func TestProgressServiceExportPDF(t *testing.T) {
	svc, _, _ := newProgressFixture(false)

	file, err := svc.Export(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Data)
}

func TestProgressServiceExportUnknownFormat(t *testing.T) {
	svc, repo, _ := newProgressFixture(false)

	_, err := svc.Export(context.Background(), "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, repo.calls)
}
