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

// Compile-time check: PaymentRepository implements domain.PaymentRepository.
var _ domain.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements domain.PaymentRepository using SQLite.
type PaymentRepository struct {
	db *sql.DB
}

const paymentColumns = `id, campaign_id, partner_id, amount, currency, status, external_ref,
	payment_date, created_at, updated_at`

// Record relies on the unique external_ref column: a replayed event inserts
// nothing and the original row is returned.
func (r *PaymentRepository) Record(ctx context.Context, p domain.Payment) (domain.Payment, bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (external_ref) DO NOTHING`,
		p.ID, p.CampaignID, p.PartnerID, p.Amount, p.Currency, string(p.Status),
		p.ExternalRef, formatTime(p.PaymentDate), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return domain.Payment{}, false, fmt.Errorf("inserting payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Payment{}, false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		existing, err := r.GetByExternalRef(ctx, p.ExternalRef)
		return existing, false, err
	}

	return p, true, nil
}

func (r *PaymentRepository) GetByExternalRef(ctx context.Context, ref string) (domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_ref = ?`, ref,
	))
}

func (r *PaymentRepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE campaign_id = ? ORDER BY payment_date ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, ref string, from, to domain.PaymentStatus) (domain.Payment, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE external_ref = ? AND status = ?`,
		string(to), formatTime(time.Now()), ref, string(from),
	)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("updating payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Payment{}, fmt.Errorf("checking rows affected: %w", err)
	}

	current, err := r.GetByExternalRef(ctx, ref)
	if err != nil {
		return domain.Payment{}, err
	}
	if rows == 0 {
		return current, domain.ErrStalePayment
	}
	return current, nil
}

// Revenue sums succeeded payments only, grouped by currency.
func (r *PaymentRepository) Revenue(ctx context.Context, filter domain.RevenueFilter) ([]domain.RevenueTotal, error) {
	where := []string{"status = 'SUCCEEDED'"}
	var args []any

	if !filter.Since.IsZero() {
		where = append(where, "payment_date >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		where = append(where, "payment_date < ?")
		args = append(args, formatTime(filter.Until))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT currency, COALESCE(SUM(amount), 0), COUNT(*) FROM payments
		 WHERE `+strings.Join(where, " AND ")+`
		 GROUP BY currency ORDER BY currency`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating revenue: %w", err)
	}
	defer rows.Close()

	var totals []domain.RevenueTotal
	for rows.Next() {
		var t domain.RevenueTotal
		if err := rows.Scan(&t.Currency, &t.Amount, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning revenue row: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

func scanPayment(row scanner) (domain.Payment, error) {
	var p domain.Payment
	var status, paymentDate, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.CampaignID, &p.PartnerID, &p.Amount, &p.Currency, &status,
		&p.ExternalRef, &paymentDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("scanning payment: %w", err)
	}

	p.Status = domain.PaymentStatus(status)
	p.PaymentDate = parseTime(paymentDate)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return p, nil
}
