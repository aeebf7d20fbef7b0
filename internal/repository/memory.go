package repository

import (
	"context"
	"sync"
	"time"

	"equilibria/internal/models"
)

// MemoryStateRepository is the single-process StateRepository, used when
// Redis is not configured and as the failover target when it is.
type MemoryStateRepository struct {
	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
	cached     []models.Practitioner
	cachedAt   time.Time
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) GetPractitioners(_ context.Context) ([]models.Practitioner, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached == nil || r.now().Sub(r.cachedAt) > r.ttl {
		return nil, false, nil
	}
	out := make([]models.Practitioner, len(r.cached))
	copy(out, r.cached)
	return out, true, nil
}

func (r *MemoryStateRepository) SetPractitioners(_ context.Context, list []models.Practitioner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cached = make([]models.Practitioner, len(list))
	copy(r.cached, list)
	r.cachedAt = r.now()
	return nil
}

func (r *MemoryStateRepository) InvalidatePractitioners(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cached = nil
	return nil
}
