package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/events-api/internal/models"
	"github.com/campushub/events-api/internal/repository"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService wraps the status-query cache. All methods are best-effort and
// nil-safe: a nil *CacheService behaves as a disabled cache.
type CacheService struct {
	repo    CacheRepository
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCacheService constructs CacheService. metrics may be nil.
func NewCacheService(repo CacheRepository, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, ttl: ttl, metrics: metrics, logger: logger}
}

func statusKey(registrationID string) string {
	return fmt.Sprintf("participation:status:%s", registrationID)
}

// GetStatus returns the cached view for a registration when present.
func (s *CacheService) GetStatus(ctx context.Context, registrationID string) (*models.ParticipationView, bool) {
	if s == nil || s.repo == nil {
		return nil, false
	}
	var view models.ParticipationView
	err := s.repo.Get(ctx, statusKey(registrationID), &view)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("status cache read failed", zap.String("registration", registrationID), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}
	s.metrics.RecordCacheLookup(true)
	return &view, true
}

// SetStatus stores the view for a registration.
func (s *CacheService) SetStatus(ctx context.Context, registrationID string, view *models.ParticipationView) {
	if s == nil || s.repo == nil || view == nil {
		return
	}
	if err := s.repo.Set(ctx, statusKey(registrationID), view, s.ttl); err != nil {
		s.logger.Warn("status cache write failed", zap.String("registration", registrationID), zap.Error(err))
	}
}

// InvalidateStatus drops the cached view after a lifecycle write.
func (s *CacheService) InvalidateStatus(ctx context.Context, registrationID string) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx, statusKey(registrationID)); err != nil {
		s.logger.Warn("status cache invalidation failed", zap.String("registration", registrationID), zap.Error(err))
	}
}
