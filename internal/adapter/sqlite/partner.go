package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: PartnerRepository implements domain.PartnerRepository.
var _ domain.PartnerRepository = (*PartnerRepository)(nil)

// PartnerRepository implements domain.PartnerRepository using SQLite.
type PartnerRepository struct {
	db *sql.DB
}

const partnerColumns = `id, email, name, country, organization, external_customer_id,
	needs_follow_up, created_at, updated_at`

func (r *PartnerRepository) Create(ctx context.Context, p domain.Partner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partners (`+partnerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, domain.NormalizeEmail(p.Email), p.Name, p.Country, p.Organization,
		nullString(p.ExternalCustomerID), boolInt(p.NeedsFollowUp),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPartnerExists
		}
		return fmt.Errorf("inserting partner: %w", err)
	}
	return nil
}

func (r *PartnerRepository) GetByID(ctx context.Context, id string) (domain.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = ?`, id,
	))
}

func (r *PartnerRepository) GetByEmail(ctx context.Context, email string) (domain.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE email = ?`, domain.NormalizeEmail(email),
	))
}

func (r *PartnerRepository) SetExternalCustomer(ctx context.Context, id, customerID string) error {
	return r.update(ctx,
		`UPDATE partners SET external_customer_id = ?, updated_at = ? WHERE id = ?`,
		customerID, formatTime(time.Now()), id,
	)
}

func (r *PartnerRepository) FlagFollowUp(ctx context.Context, id string) error {
	return r.update(ctx,
		`UPDATE partners SET needs_follow_up = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
}

func (r *PartnerRepository) ClearFollowUp(ctx context.Context, id string) error {
	return r.update(ctx,
		`UPDATE partners SET needs_follow_up = 0, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
}

func (r *PartnerRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating partner: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

func scanPartner(row scanner) (domain.Partner, error) {
	var p domain.Partner
	var customer sql.NullString
	var followUp int
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Country, &p.Organization, &customer,
		&followUp, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Partner{}, domain.ErrPartnerNotFound
		}
		return domain.Partner{}, fmt.Errorf("scanning partner: %w", err)
	}

	p.ExternalCustomerID = customer.String
	p.NeedsFollowUp = followUp != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return p, nil
}
