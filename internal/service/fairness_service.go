package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/internal/repository"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type fairnessCounter interface {
	FairnessCounts(ctx context.Context, courseID int64, from, to time.Time) ([]models.FairnessRow, error)
}

type fairnessCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FairnessService ranks the instructors certified for an instance's course by
// how many approved assignments they already hold in the instance's calendar
// month. Fewer assignments ranks higher; ties break alphabetically.
type FairnessService struct {
	staffing staffingReader
	counts   fairnessCounter
	cache    fairnessCache
	cfg      config.FairnessConfig
	logger   *zap.Logger
}

// NewFairnessService creates a service instance. The cache may be nil, in
// which case every call hits the database.
func NewFairnessService(staffing staffingReader, counts fairnessCounter, cache fairnessCache, cfg config.FairnessConfig, logger *zap.Logger) *FairnessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FairnessService{
		staffing: staffing,
		counts:   counts,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Rank returns the fairness ranking for an instance. Non-admin callers must
// be the lead instructor of the parent activity.
func (s *FairnessService) Rank(ctx context.Context, instanceID int64, enforcedLeadID *int64) ([]models.FairnessRow, error) {
	staffing, err := s.staffing.GetStaffing(ctx, instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}
	if enforcedLeadID != nil {
		if staffing.LeadInstructorID == nil || *staffing.LeadInstructorID != *enforcedLeadID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
	}

	from, to := monthBounds(staffing.StartAt)
	key := fairnessCacheKey(staffing.CourseID, from)
	if s.cacheEnabled() {
		var cached []models.FairnessRow
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Sugar().Warnw("fairness cache read failed", "instance_id", instanceID, "error", err)
		}
	}

	rows, err := s.counts.FairnessCounts(ctx, staffing.CourseID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute fairness ranking")
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, rows, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("fairness cache write failed", "instance_id", instanceID, "error", err)
		}
	}
	return rows, nil
}

// Invalidate drops the cached ranking touched by an approval on the instance.
// The cache is keyed by course and month, so every other instance sharing
// those counts is invalidated with it.
func (s *FairnessService) Invalidate(ctx context.Context, instanceID int64) {
	if !s.cacheEnabled() {
		return
	}
	staffing, err := s.staffing.GetStaffing(ctx, instanceID)
	if err != nil {
		s.logger.Sugar().Warnw("fairness cache invalidation failed", "instance_id", instanceID, "error", err)
		return
	}
	from, _ := monthBounds(staffing.StartAt)
	if err := s.cache.Delete(ctx, fairnessCacheKey(staffing.CourseID, from)); err != nil {
		s.logger.Sugar().Warnw("fairness cache invalidation failed", "instance_id", instanceID, "error", err)
	}
}

func (s *FairnessService) cacheEnabled() bool {
	return s.cache != nil && s.cfg.CacheEnabled
}

func fairnessCacheKey(courseID int64, monthStart time.Time) string {
	return fmt.Sprintf("fairness:%d:%s", courseID, monthStart.Format("2006-01"))
}

// monthBounds returns the half-open UTC interval [first of month, first of
// next month) containing the instance start.
func monthBounds(startAt time.Time) (time.Time, time.Time) {
	t := startAt.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
