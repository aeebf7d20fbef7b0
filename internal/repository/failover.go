package repository

import (
	"context"
	"sync/atomic"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary until a call fails, then from
// fallback. Primary is retried once per recoveryInterval. A practitioner
// invalidation missed while primary was down is replayed before primary
// serves again.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64

	stalePractitioners atomic.Bool
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverStateRepository) usePrimary(ctx context.Context) bool {
	if !r.isDown.Load() {
		return true
	}
	if time.Since(time.Unix(0, r.lastCheck.Load())) <= recoveryInterval {
		return false
	}
	if r.stalePractitioners.Load() {
		if err := r.primary.InvalidatePractitioners(ctx); err != nil {
			r.markDown("invalidate_practitioners", err)
			return false
		}
		r.stalePractitioners.Store(false)
	}
	return true
}

func (r *FailoverStateRepository) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("primary state repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("primary state repository recovered")
	}
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary(ctx) {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("check_rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverStateRepository) GetPractitioners(ctx context.Context) ([]models.Practitioner, bool, error) {
	if r.usePrimary(ctx) {
		list, ok, err := r.primary.GetPractitioners(ctx)
		if err == nil {
			r.markUp()
			return list, ok, nil
		}
		r.markDown("get_practitioners", err)
	}
	return r.fallback.GetPractitioners(ctx)
}

func (r *FailoverStateRepository) SetPractitioners(ctx context.Context, list []models.Practitioner) error {
	if r.usePrimary(ctx) {
		err := r.primary.SetPractitioners(ctx, list)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set_practitioners", err)
	}
	return r.fallback.SetPractitioners(ctx, list)
}

// InvalidatePractitioners clears both sides so neither serves a stale list
// after a failover flip. When primary cannot be reached the delete is kept
// pending until it recovers.
func (r *FailoverStateRepository) InvalidatePractitioners(ctx context.Context) error {
	fallbackErr := r.fallback.InvalidatePractitioners(ctx)
	if r.usePrimary(ctx) {
		err := r.primary.InvalidatePractitioners(ctx)
		if err == nil {
			r.markUp()
			return fallbackErr
		}
		r.markDown("invalidate_practitioners", err)
	}
	r.stalePractitioners.Store(true)
	return fallbackErr
}
