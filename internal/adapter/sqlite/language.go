package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: LanguageRepository implements domain.LanguageRepository.
var _ domain.LanguageRepository = (*LanguageRepository)(nil)

// LanguageRepository implements domain.LanguageRepository using SQLite.
type LanguageRepository struct {
	db *sql.DB
}

const languageColumns = `id, code, name, speaker_count, adoption_status,
	translation_needs_sponsorship, priority, created_at, updated_at`

func (r *LanguageRepository) Create(ctx context.Context, l domain.Language) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO languages (`+languageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Code, l.Name, l.SpeakerCount, string(l.AdoptionStatus),
		boolInt(l.TranslationNeedsSponsorship), l.Priority,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("code", fmt.Sprintf("language code %q is already in use", l.Code))
		}
		return fmt.Errorf("inserting language: %w", err)
	}
	return nil
}

func (r *LanguageRepository) GetByID(ctx context.Context, id string) (domain.Language, error) {
	return scanLanguage(r.db.QueryRowContext(ctx,
		`SELECT `+languageColumns+` FROM languages WHERE id = ?`, id,
	))
}

// List orders languages by priority (highest first), then by name.
func (r *LanguageRepository) List(ctx context.Context, filter domain.LanguageFilter) ([]domain.Language, error) {
	query := `SELECT ` + languageColumns + ` FROM languages`
	var args []any

	if filter.Status != nil {
		query += ` WHERE adoption_status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY priority DESC, name ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}
	defer rows.Close()

	var languages []domain.Language
	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			return nil, err
		}
		languages = append(languages, l)
	}

	return languages, rows.Err()
}

// SetStatus refuses to touch ADOPTED or to set it, so that only the registry
// ever claims or releases a language.
func (r *LanguageRepository) SetStatus(ctx context.Context, id string, status domain.AdoptionStatus) error {
	if status == domain.AdoptionAdopted {
		return domain.NewValidationError("status", "adoption is granted only through a campaign")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE languages SET adoption_status = ?, updated_at = ?
		 WHERE id = ? AND adoption_status <> 'ADOPTED'`,
		string(status), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating language status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return &domain.AdoptionConflictError{LanguageID: id}
	}

	return nil
}

func scanLanguage(row scanner) (domain.Language, error) {
	var l domain.Language
	var status, createdAt, updatedAt string
	var needsSponsorship int

	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.SpeakerCount, &status,
		&needsSponsorship, &l.Priority, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Language{}, domain.ErrLanguageNotFound
		}
		return domain.Language{}, fmt.Errorf("scanning language: %w", err)
	}

	l.AdoptionStatus = domain.AdoptionStatus(status)
	l.TranslationNeedsSponsorship = needsSponsorship != 0
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)

	return l, nil
}
