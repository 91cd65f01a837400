package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: AdoptionRegistry implements domain.AdoptionRegistry.
var _ domain.AdoptionRegistry = (*AdoptionRegistry)(nil)

// AdoptionRegistry enforces single-adopter exclusivity with conditional
// single-statement updates inside transactions. The partial unique index
// campaigns_one_active_adoption rejects any second active adoption that
// slips past the claim.
type AdoptionRegistry struct {
	db *sql.DB
}

// activeAdoptionExists is true while an active adoption campaign references
// the language row being updated.
const activeAdoptionExists = `EXISTS (
	SELECT 1 FROM campaigns
	WHERE campaigns.language_id = languages.id
	  AND campaigns.type = 'ADOPT_LANGUAGE'
	  AND campaigns.status = 'ACTIVE')`

func (r *AdoptionRegistry) TryAdopt(ctx context.Context, languageID string) error {
	return claim(ctx, r.db, languageID, time.Now())
}

func (r *AdoptionRegistry) ClaimAndCreate(ctx context.Context, c domain.Campaign) error {
	if c.Type != domain.CampaignAdoptLanguage || c.Status != domain.CampaignActive {
		return domain.NewValidationError("type", "only active adoption campaigns claim a language")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning claim: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := claim(ctx, tx, c.LanguageID, c.CreatedAt); err != nil {
		return err
	}
	if err := insertCampaign(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing claim: %w", err)
	}
	return nil
}

func (r *AdoptionRegistry) ClaimAndResume(ctx context.Context, campaignID string, at time.Time) (domain.Campaign, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("beginning claim: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	c, err := getCampaign(ctx, tx, campaignID)
	if err != nil {
		return domain.Campaign{}, err
	}
	if c.Type != domain.CampaignAdoptLanguage {
		return domain.Campaign{}, domain.NewValidationError("type", "only adoption campaigns claim a language")
	}

	if err := claim(ctx, tx, c.LanguageID, at); err != nil {
		return domain.Campaign{}, err
	}
	c, err = updateCampaignStatus(ctx, tx, campaignID, domain.CampaignPaused, domain.CampaignActive, at)
	if err != nil {
		return c, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Campaign{}, fmt.Errorf("committing claim: %w", err)
	}
	return c, nil
}

func (r *AdoptionRegistry) Release(ctx context.Context, languageID string) (domain.ReleaseOutcome, error) {
	return release(ctx, r.db, languageID, time.Now())
}

func (r *AdoptionRegistry) EndAndRelease(ctx context.Context, campaignID string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, domain.ReleaseOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Campaign{}, "", fmt.Errorf("beginning release: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	c, err := getCampaign(ctx, tx, campaignID)
	if err != nil {
		return domain.Campaign{}, "", err
	}
	if c.Type != domain.CampaignAdoptLanguage {
		return domain.Campaign{}, "", domain.NewValidationError("type", "only adoption campaigns hold a language")
	}

	c, err = updateCampaignStatus(ctx, tx, campaignID, from, to, at)
	if err != nil {
		return c, "", err
	}
	outcome, err := release(ctx, tx, c.LanguageID, at)
	if err != nil {
		return domain.Campaign{}, "", err
	}

	if err := tx.Commit(); err != nil {
		return domain.Campaign{}, "", fmt.Errorf("committing release: %w", err)
	}
	return c, outcome, nil
}

// release marks a language AVAILABLE unless an active adoption campaign
// still references it.
func release(ctx context.Context, q querier, languageID string, at time.Time) (domain.ReleaseOutcome, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE languages SET adoption_status = 'AVAILABLE', updated_at = ?
		 WHERE id = ? AND NOT `+activeAdoptionExists,
		formatTime(at), languageID,
	)
	if err != nil {
		return "", fmt.Errorf("releasing language: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if err := languageExists(ctx, q, languageID); err != nil {
			return "", err
		}
		return domain.ReleaseStillHeld, nil
	}

	return domain.ReleaseReleased, nil
}

// claim marks a language ADOPTED in a single conditional statement: it only
// matches while the language is not already adopted and no active adoption
// campaign references it.
func claim(ctx context.Context, q querier, languageID string, at time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE languages SET adoption_status = 'ADOPTED', updated_at = ?
		 WHERE id = ? AND adoption_status <> 'ADOPTED' AND NOT `+activeAdoptionExists,
		formatTime(at), languageID,
	)
	if err != nil {
		return fmt.Errorf("claiming language: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if err := languageExists(ctx, q, languageID); err != nil {
			return err
		}
		return &domain.AdoptionConflictError{LanguageID: languageID}
	}

	return nil
}

func languageExists(ctx context.Context, q querier, id string) error {
	var found int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM languages WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return domain.ErrLanguageNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up language: %w", err)
	}
	return nil
}
