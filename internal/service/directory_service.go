package service

import (
	"context"
	"errors"
	"strings"

	"equilibria/internal/config"
	"equilibria/internal/domain"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

// DirectoryService lists practitioners, serving reads from the state cache
// when one is configured. Cache failures never fail a read.
type DirectoryService struct {
	repo   domain.PractitionerRepository
	cache  domain.StateRepository
	logger *zerolog.Logger
}

func NewDirectoryService(repo domain.PractitionerRepository, cache domain.StateRepository, logger *zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// ListPractitioners returns every practitioner, or an empty slice when none
// are registered.
func (s *DirectoryService) ListPractitioners(ctx context.Context) ([]models.Practitioner, error) {
	if s.cache != nil {
		list, ok, err := s.cache.GetPractitioners(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("practitioner cache read failed")
		} else if ok {
			return nonNil(list), nil
		}
	}

	list, err := s.repo.ListPractitioners(ctx)
	if err != nil {
		return nil, err
	}
	list = nonNil(list)

	if s.cache != nil {
		if err := s.cache.SetPractitioners(ctx, list); err != nil {
			s.logger.Warn().Err(err).Msg("practitioner cache write failed")
		}
	}
	return list, nil
}

func (s *DirectoryService) GetPractitioner(ctx context.Context, id int64) (*models.Practitioner, error) {
	return s.repo.GetPractitioner(ctx, id)
}

// GetSchedule distinguishes an unknown practitioner from one that has not
// published a schedule.
func (s *DirectoryService) GetSchedule(ctx context.Context, practitionerID int64) (*models.Schedule, error) {
	if _, err := s.repo.GetPractitioner(ctx, practitionerID); err != nil {
		return nil, err
	}
	return s.repo.GetSchedule(ctx, practitionerID)
}

// CreatePractitioner registers a practitioner with an optional schedule.
func (s *DirectoryService) CreatePractitioner(ctx context.Context, name string, schedule *models.Schedule) (*models.Practitioner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := &domain.ValidationError{}
		verr.Add("name", "required")
		return nil, verr
	}

	p := &models.Practitioner{Name: name}
	if err := s.repo.CreatePractitioner(ctx, p); err != nil {
		return nil, err
	}
	if schedule != nil {
		schedule.PractitionerID = p.ID
		if err := s.repo.UpsertSchedule(ctx, schedule); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("practitioner_id", p.ID).Str("name", p.Name).Msg("practitioner created")
	return p, nil
}

// Seed registers the configured practitioners that do not exist yet and
// refreshes the schedule of every one of them. It returns how many were
// created.
func (s *DirectoryService) Seed(ctx context.Context, seeds []config.PractitionerSeed) (int, error) {
	created := 0
	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		p, err := s.repo.GetPractitionerByName(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			p = &models.Practitioner{Name: name}
			err = s.repo.CreatePractitioner(ctx, p)
			created++
		}
		if err != nil {
			return created, err
		}

		if seed.AvailableDays == "" && seed.AvailableHours == "" {
			continue
		}
		schedule := &models.Schedule{
			PractitionerID: p.ID,
			AvailableDays:  seed.AvailableDays,
			AvailableHours: seed.AvailableHours,
		}
		if err := s.repo.UpsertSchedule(ctx, schedule); err != nil {
			return created, err
		}
	}

	s.invalidate(ctx)
	return created, nil
}

func (s *DirectoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePractitioners(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("practitioner cache invalidation failed")
	}
}

func nonNil(list []models.Practitioner) []models.Practitioner {
	if list == nil {
		return []models.Practitioner{}
	}
	return list
}
