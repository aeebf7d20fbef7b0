package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"equilibria/internal/domain"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserService struct {
	repo       domain.UserRepository
	logger     *zerolog.Logger
	bcryptCost int
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register stores the identity attributes forwarded by the identity
// provider. An existing username is updated in place.
func (s *UserService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	verr := &domain.ValidationError{}
	if reg.Username == "" {
		verr.Add("username", "required")
	}
	if reg.Email != "" {
		if _, err := mail.ParseAddress(reg.Email); err != nil {
			verr.Add("email", "invalid address")
		}
	}
	if reg.Password != "" && len(reg.Password) < minPasswordLength {
		verr.Add("password", "must be at least 8 characters")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
	}

	existing, err := s.repo.GetUserByUsername(ctx, reg.Username)
	switch {
	case err == nil:
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		if passwordMatches(existing, reg.Password) {
			// unchanged password; UpdateUser keeps the stored hash
			reg.Password = ""
		}
		if user.PasswordHash, err = s.hash(reg.Password); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
	case errors.Is(err, domain.ErrNotFound):
		if user.PasswordHash, err = s.hash(reg.Password); err != nil {
			return nil, err
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	default:
		return nil, err
	}

	return user, nil
}

func (s *UserService) hash(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// passwordMatches reports whether password matches the stored hash.
func passwordMatches(user *models.User, password string) bool {
	if user.PasswordHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
