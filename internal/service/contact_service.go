package service

import (
	"context"
	"net/mail"
	"strings"

	"equilibria/internal/domain"
	"equilibria/internal/metrics"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

// ContactService accepts contact form submissions. Nothing is stored or
// mailed; an accepted message is logged for the office to pick up.
type ContactService struct {
	logger *zerolog.Logger
}

func NewContactService(logger *zerolog.Logger) *ContactService {
	return &ContactService{logger: logger}
}

func (s *ContactService) Submit(_ context.Context, msg models.ContactMessage) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(msg.Name) == "" {
		verr.Add("name", "required")
	}
	if email := strings.TrimSpace(msg.Email); email == "" {
		verr.Add("email", "required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "invalid address")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		verr.Add("subject", "required")
	}
	if strings.TrimSpace(msg.Message) == "" {
		verr.Add("message", "required")
	}
	if !msg.AcceptTerms {
		verr.Add("accept_terms", "must be accepted")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	metrics.IncContact()
	s.logger.Info().
		Str("name", msg.Name).
		Str("email", msg.Email).
		Str("subject", msg.Subject).
		Bool("newsletter", msg.AcceptNewsletter).
		Msg("contact message received")
	return nil
}
