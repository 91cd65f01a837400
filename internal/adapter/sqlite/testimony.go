package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: TestimonyRepository implements domain.TestimonyRepository.
var _ domain.TestimonyRepository = (*TestimonyRepository)(nil)

// TestimonyRepository implements domain.TestimonyRepository using SQLite.
type TestimonyRepository struct {
	db *sql.DB
}

func (r *TestimonyRepository) Create(ctx context.Context, t domain.Testimony) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO testimonies (id, name, email, message, language_id, approved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Email, t.Message, nullString(t.LanguageID),
		boolInt(t.Approved), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting testimony: %w", err)
	}
	return nil
}
