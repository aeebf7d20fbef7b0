package service

import (
	"context"
	"fmt"
	"time"

	"equilibria/internal/domain"

	"github.com/rs/zerolog"
)

// StateService applies the per-user request budget kept in the state
// repository.
type StateService struct {
	stateRepo domain.StateRepository
	limit     int
	window    time.Duration
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, limit int, window time.Duration, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		limit:     limit,
		window:    window,
		logger:    logger,
	}
}

// Allow counts one request by userID against scope. It fails open when the
// state repository is unavailable.
func (s *StateService) Allow(ctx context.Context, scope string, userID int64) error {
	if s.stateRepo == nil || s.limit <= 0 {
		return nil
	}

	allowed, err := s.stateRepo.CheckRateLimit(ctx, fmt.Sprintf("%s:%d", scope, userID), s.limit, s.window)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("scope", scope).Msg("failed to check rate limit")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}
