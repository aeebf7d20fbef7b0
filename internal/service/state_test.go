package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"equilibria/internal/domain"
	"equilibria/internal/repository"

	"github.com/stretchr/testify/assert"
)

func TestStateService_Allow(t *testing.T) {
	svc := NewStateService(repository.NewMemoryStateRepository(time.Minute), 2, time.Minute, testLogger())
	ctx := context.Background()

	assert.NoError(t, svc.Allow(ctx, "chat", 1))
	assert.NoError(t, svc.Allow(ctx, "chat", 1))
	assert.ErrorIs(t, svc.Allow(ctx, "chat", 1), domain.ErrRateLimited)

	assert.NoError(t, svc.Allow(ctx, "book", 1), "scopes are counted separately")
	assert.NoError(t, svc.Allow(ctx, "chat", 2), "users are counted separately")
}

func TestStateService_FailsOpen(t *testing.T) {
	state := new(mockStateRepo)
	svc := NewStateService(state, 5, time.Minute, testLogger())
	ctx := context.Background()

	state.On("CheckRateLimit", ctx, "book:7", 5, time.Minute).Return(false, errors.New("redis down"))

	assert.NoError(t, svc.Allow(ctx, "book", 7))
	state.AssertExpectations(t)
}

func TestStateService_Disabled(t *testing.T) {
	assert.NoError(t, NewStateService(nil, 5, time.Minute, testLogger()).Allow(context.Background(), "chat", 1))
	assert.NoError(t, NewStateService(new(mockStateRepo), 0, time.Minute, testLogger()).Allow(context.Background(), "chat", 1))
}
