package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/magnogrupo/portal/internal/model"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type SubmissionRepository interface {
	Create(sub *model.Submission) error
	Update(sub *model.Submission) error
	ByID(id string) (*model.Submission, error)
	// LatestByOwner returns the most recent submission of the given type, or
	// ErrSubmissionNotFound when the owner has none.
	LatestByOwner(ownerID, subType string) (*model.Submission, error)
	ByOwner(ownerID string) ([]model.Submission, error)
	ByStatus(status string) ([]model.Submission, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = model.SubmissionStatusDraft
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := `
		INSERT INTO property_submissions (id, owner_id, type, status, form_data, is_signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(query,
		sub.ID,
		sub.OwnerID,
		sub.Type,
		sub.Status,
		sub.FormData,
		sub.IsSigned,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	return err
}

func (r *submissionRepository) Update(sub *model.Submission) error {
	sub.UpdatedAt = time.Now()

	query := `
		UPDATE property_submissions
		SET owner_id = $1, status = $2, form_data = $3, is_signed = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.Exec(query,
		sub.OwnerID,
		sub.Status,
		sub.FormData,
		sub.IsSigned,
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSubmissionNotFound
	}

	return nil
}

func (r *submissionRepository) ByID(id string) (*model.Submission, error) {
	sub := &model.Submission{}
	query := `SELECT * FROM property_submissions WHERE id = $1`

	err := r.db.Get(sub, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrSubmissionNotFound
	}

	return sub, err
}

func (r *submissionRepository) LatestByOwner(ownerID, subType string) (*model.Submission, error) {
	sub := &model.Submission{}
	query := `
		SELECT * FROM property_submissions
		WHERE owner_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Get(sub, query, ownerID, subType)
	if err == sql.ErrNoRows {
		return nil, ErrSubmissionNotFound
	}

	return sub, err
}

func (r *submissionRepository) ByOwner(ownerID string) ([]model.Submission, error) {
	var subs []model.Submission
	query := `SELECT * FROM property_submissions WHERE owner_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&subs, query, ownerID)
	return subs, err
}

func (r *submissionRepository) ByStatus(status string) ([]model.Submission, error) {
	var subs []model.Submission
	query := `SELECT * FROM property_submissions WHERE status = $1 ORDER BY updated_at DESC`

	err := r.db.Select(&subs, query, status)
	return subs, err
}
