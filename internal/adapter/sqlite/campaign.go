package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: CampaignRepository implements domain.CampaignRepository.
var _ domain.CampaignRepository = (*CampaignRepository)(nil)

// CampaignRepository implements domain.CampaignRepository using SQLite.
type CampaignRepository struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const campaignColumns = `id, partner_id, language_id, type, status, monthly_amount, currency,
	external_subscription_id, next_billing_date, start_date, end_date, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c domain.Campaign) error {
	return insertCampaign(ctx, r.db, c)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	return getCampaign(ctx, r.db, id)
}

func (r *CampaignRepository) GetBySubscription(ctx context.Context, subscriptionID string) (domain.Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE external_subscription_id = ?`, subscriptionID,
	))
}

func (r *CampaignRepository) List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	var where []string
	var args []any

	if filter.PartnerID != "" {
		where = append(where, "partner_id = ?")
		args = append(args, filter.PartnerID)
	}
	if filter.LanguageID != "" {
		where = append(where, "language_id = ?")
		args = append(args, filter.LanguageID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*filter.Type))
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return queryCampaigns(ctx, r.db, query, args...)
}

func (r *CampaignRepository) ListDueAdoptions(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	return queryCampaigns(ctx, r.db,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status = 'ACTIVE' AND type = 'ADOPT_LANGUAGE'
		   AND external_subscription_id IS NULL
		   AND next_billing_date <= ?
		 ORDER BY next_billing_date ASC`,
		formatTime(now),
	)
}

func (r *CampaignRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]domain.Campaign, error) {
	return queryCampaigns(ctx, r.db,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status = 'ACTIVE' AND next_billing_date > ? AND next_billing_date <= ?
		 ORDER BY next_billing_date ASC`,
		formatTime(from), formatTime(to),
	)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, error) {
	return updateCampaignStatus(ctx, r.db, id, from, to, at)
}

func (r *CampaignRepository) SetNextBillingDate(ctx context.Context, id string, next time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET next_billing_date = ?, updated_at = ? WHERE id = ?`,
		formatTime(next), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating next billing date: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func insertCampaign(ctx context.Context, q querier, c domain.Campaign) error {
	var endDate sql.NullString
	if c.EndDate != nil {
		endDate = sql.NullString{String: formatTime(*c.EndDate), Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PartnerID, c.LanguageID, string(c.Type), string(c.Status),
		c.MonthlyAmount, c.Currency, nullString(c.ExternalSubscriptionID),
		formatTime(c.NextBillingDate), formatTime(c.StartDate), endDate,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isActiveAdoptionViolation(err) {
			return &domain.AdoptionConflictError{LanguageID: c.LanguageID}
		}
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

func getCampaign(ctx context.Context, q querier, id string) (domain.Campaign, error) {
	return scanCampaign(q.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id,
	))
}

func queryCampaigns(ctx context.Context, q querier, query string, args ...any) ([]domain.Campaign, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

// updateCampaignStatus is a compare-and-set on the status column. Terminal
// destinations stamp end_date; cancellation also drops the subscription
// reference.
func updateCampaignStatus(ctx context.Context, q querier, id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, error) {
	var endDate sql.NullString
	if to.Terminal() {
		endDate = sql.NullString{String: formatTime(at), Valid: true}
	}

	result, err := q.ExecContext(ctx,
		`UPDATE campaigns
		 SET status = ?,
		     end_date = COALESCE(?, end_date),
		     external_subscription_id = CASE WHEN ? = 1 THEN NULL ELSE external_subscription_id END,
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), endDate, boolInt(to == domain.CampaignCancelled),
		formatTime(at), id, string(from),
	)
	if err != nil {
		if isActiveAdoptionViolation(err) {
			current, getErr := getCampaign(ctx, q, id)
			if getErr != nil {
				return domain.Campaign{}, getErr
			}
			return domain.Campaign{}, &domain.AdoptionConflictError{LanguageID: current.LanguageID}
		}
		return domain.Campaign{}, fmt.Errorf("updating campaign status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("checking rows affected: %w", err)
	}

	current, err := getCampaign(ctx, q, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if rows == 0 {
		return current, domain.ErrStaleCampaign
	}

	return current, nil
}

func scanCampaign(row scanner) (domain.Campaign, error) {
	var c domain.Campaign
	var typ, status, nextBilling, start, createdAt, updatedAt string
	var subscription, endDate sql.NullString

	err := row.Scan(&c.ID, &c.PartnerID, &c.LanguageID, &typ, &status, &c.MonthlyAmount,
		&c.Currency, &subscription, &nextBilling, &start, &endDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Campaign{}, domain.ErrCampaignNotFound
		}
		return domain.Campaign{}, fmt.Errorf("scanning campaign: %w", err)
	}

	c.Type = domain.CampaignType(typ)
	c.Status = domain.CampaignStatus(status)
	c.ExternalSubscriptionID = subscription.String
	c.NextBillingDate = parseTime(nextBilling)
	c.StartDate = parseTime(start)
	if endDate.Valid {
		end := parseTime(endDate.String)
		c.EndDate = &end
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)

	return c, nil
}
