package domain

import "time"

// Testimony is a public statement submitted through the website. It is held
// for staff approval.
type Testimony struct {
	ID         string
	Name       string
	Email      string
	Message    string
	LanguageID string
	Approved   bool
	CreatedAt  time.Time
}
