package model

import "time"

const (
	DocumentTypeRecruitment = "recruitment"
	DocumentTypeKeys        = "keys"
)

// SignedDocument is the archival record written once the owner signs. Both
// generated documents (recruitment sheet, key receipt) get one row each.
type SignedDocument struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	PropertyID   string    `db:"property_id"` // submission id until a listing exists
	DocumentType string    `db:"document_type"`
	Status       string    `db:"status"`
	PDFURL       string    `db:"pdf_url"`
	SignedAt     time.Time `db:"signed_at"`
}
