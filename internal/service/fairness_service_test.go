package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/internal/repository"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubFairnessCounter struct {
	rows     []models.FairnessRow
	courseID int64
	from, to time.Time
	calls    int
}

func (s *stubFairnessCounter) FairnessCounts(_ context.Context, courseID int64, from, to time.Time) ([]models.FairnessRow, error) {
	s.calls++
	s.courseID = courseID
	s.from = from
	s.to = to
	return s.rows, nil
}

type memoryCache struct {
	values map[string][]models.FairnessRow
	sets   int
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	rows, ok := m.values[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	*(dest.(*[]models.FairnessRow)) = rows
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]models.FairnessRow)
	}
	m.values[key] = value.([]models.FairnessRow)
	m.sets++
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestRankUsesInstanceMonthBounds(t *testing.T) {
	counter := &stubFairnessCounter{rows: []models.FairnessRow{
		{InstructorID: 4, FullName: "Dana", ApprovedInMonth: 0},
		{InstructorID: 5, FullName: "Omer", ApprovedInMonth: 2},
	}}
	svc := NewFairnessService(&stubStaffingReader{staffing: staffingFixture()}, counter, nil, config.FairnessConfig{}, nil)

	rows, err := svc.Rank(context.Background(), 10, nil)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), counter.courseID)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), counter.from)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), counter.to)
}

func TestRankEnforcesLeadGuard(t *testing.T) {
	svc := NewFairnessService(&stubStaffingReader{staffing: staffingFixture()}, &stubFairnessCounter{}, nil, config.FairnessConfig{}, nil)

	_, err := svc.Rank(context.Background(), 10, leadPtr(8))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRankCachesAndInvalidates(t *testing.T) {
	counter := &stubFairnessCounter{rows: []models.FairnessRow{{InstructorID: 4}}}
	cache := &memoryCache{}
	cfg := config.FairnessConfig{CacheEnabled: true, CacheTTL: time.Minute}
	svc := NewFairnessService(&stubStaffingReader{staffing: staffingFixture()}, counter, cache, cfg, nil)

	_, err := svc.Rank(context.Background(), 10, nil)
	require.NoError(t, err)
	_, err = svc.Rank(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls)

	svc.Invalidate(context.Background(), 10)
	_, err = svc.Rank(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)
}

func TestInvalidateCoversSiblingInstances(t *testing.T) {
	counter := &stubFairnessCounter{rows: []models.FairnessRow{{InstructorID: 4}}}
	cache := &memoryCache{}
	cfg := config.FairnessConfig{CacheEnabled: true, CacheTTL: time.Minute}
	svc := NewFairnessService(&stubStaffingReader{staffing: staffingFixture()}, counter, cache, cfg, nil)

	// Two instances of the same course and month share one cache entry.
	_, err := svc.Rank(context.Background(), 10, nil)
	require.NoError(t, err)
	_, err = svc.Rank(context.Background(), 11, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls)
	assert.Contains(t, cache.values, "fairness:3:2025-06")

	// Approving either instance drops the shared entry, so the sibling's next
	// ranking reflects the new counts.
	svc.Invalidate(context.Background(), 11)
	_, err = svc.Rank(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)
}

func TestMonthBoundsNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("IST", 3*3600)
	from, to := monthBounds(time.Date(2025, 1, 31, 23, 30, 0, 0, loc))

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), to)
}
