package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// TestimonyService accepts public testimonies for later staff approval.
type TestimonyService struct {
	testimonies domain.TestimonyRepository
	languages   domain.LanguageRepository
	nowFn       func() time.Time
}

// NewTestimonyService creates a service with the given adapters.
func NewTestimonyService(testimonies domain.TestimonyRepository, languages domain.LanguageRepository) *TestimonyService {
	return &TestimonyService{testimonies: testimonies, languages: languages, nowFn: time.Now}
}

// Submit stores an unapproved testimony.
func (s *TestimonyService) Submit(ctx context.Context, in TestimonyInput) (domain.Testimony, error) {
	if err := in.Validate(); err != nil {
		return domain.Testimony{}, err
	}

	if in.LanguageID != "" {
		if _, err := s.languages.GetByID(ctx, in.LanguageID); err != nil {
			if errors.Is(err, domain.ErrLanguageNotFound) {
				return domain.Testimony{}, domain.NewValidationError("languageId", "unknown language")
			}
			return domain.Testimony{}, err
		}
	}

	id, err := generateID()
	if err != nil {
		return domain.Testimony{}, fmt.Errorf("generating testimony id: %w", err)
	}

	testimony := domain.Testimony{
		ID:         id,
		Name:       strings.TrimSpace(in.Name),
		Email:      domain.NormalizeEmail(in.Email),
		Message:    strings.TrimSpace(in.Message),
		LanguageID: in.LanguageID,
		CreatedAt:  s.nowFn().UTC(),
	}

	if err := s.testimonies.Create(ctx, testimony); err != nil {
		return domain.Testimony{}, fmt.Errorf("creating testimony: %w", err)
	}

	return testimony, nil
}
