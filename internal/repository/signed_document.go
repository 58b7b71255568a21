package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/magnogrupo/portal/internal/model"
)

type SignedDocumentRepository interface {
	Create(doc *model.SignedDocument) error
	ByUser(userID string) ([]model.SignedDocument, error)
	ByProperty(propertyID string) ([]model.SignedDocument, error)
}

type signedDocumentRepository struct {
	db *sqlx.DB
}

func NewSignedDocumentRepository(db *sqlx.DB) SignedDocumentRepository {
	return &signedDocumentRepository{db: db}
}

func (r *signedDocumentRepository) Create(doc *model.SignedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = "signed"
	}
	if doc.SignedAt.IsZero() {
		doc.SignedAt = time.Now()
	}

	query := `
		INSERT INTO signed_documents (id, user_id, property_id, document_type, status, pdf_url, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(query,
		doc.ID,
		doc.UserID,
		doc.PropertyID,
		doc.DocumentType,
		doc.Status,
		doc.PDFURL,
		doc.SignedAt,
	)
	return err
}

func (r *signedDocumentRepository) ByUser(userID string) ([]model.SignedDocument, error) {
	var docs []model.SignedDocument
	query := `SELECT * FROM signed_documents WHERE user_id = $1 ORDER BY signed_at DESC`

	err := r.db.Select(&docs, query, userID)
	return docs, err
}

func (r *signedDocumentRepository) ByProperty(propertyID string) ([]model.SignedDocument, error) {
	var docs []model.SignedDocument
	query := `SELECT * FROM signed_documents WHERE property_id = $1 ORDER BY signed_at DESC`

	err := r.db.Select(&docs, query, propertyID)
	return docs, err
}
