package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

type mockOfferingRepo struct {
	offerings []models.Offering
	err       error
	calls     int
}

func (m *mockOfferingRepo) List(ctx context.Context) ([]models.Offering, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.offerings, nil
}

func TestOfferingServiceListReadsEveryTime(t *testing.T) {
	repo := &mockOfferingRepo{offerings: []models.Offering{{ID: 3, CourseID: 101, MaxCapacity: 30, CurrentEnrollment: 29, SeatsAvailable: 1, Price: decimal.NewFromInt(75)}}}
	svc := NewOfferingService(repo, NewMetricsService(), nil)

	for i := 0; i < 2; i++ {
		offerings, err := svc.List(context.Background())
		require.NoError(t, err)
		require.Len(t, offerings, 1)
	}
	assert.Equal(t, 2, repo.calls)
}

func TestOfferingServiceListError(t *testing.T) {
	repo := &mockOfferingRepo{err: fmt.Errorf("list offerings: %w", errors.New("timeout"))}
	svc := NewOfferingService(repo, nil, nil)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error fetching courses: timeout", appErrors.FromError(err).Message)
}
