package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/magnogrupo/portal/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func submissionColumns() []string {
	return []string{"id", "owner_id", "type", "status", "form_data", "is_signed", "created_at", "updated_at"}
}

func TestSubmissionCreateAssignsIDAndDraftStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(`INSERT INTO property_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub := &model.Submission{Type: model.SubmissionTypeSale}
	err := repo.Create(sub)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.ID == "" {
		t.Fatal("Create must assign an id")
	}
	if sub.Status != model.SubmissionStatusDraft {
		t.Fatalf("status = %s, want draft", sub.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSubmissionByIDRoundTripsFormData(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	now := time.Now()
	formJSON := `{"contact_email":"ana@example.com","price":"15000","gallery_urls":["https://m.example.com/a.jpg"]}`
	rows := sqlmock.NewRows(submissionColumns()).
		AddRow("sub-1", "user-1", "sale", "pending", formJSON, false, now, now)

	mock.ExpectQuery(`SELECT \* FROM property_submissions WHERE id`).
		WithArgs("sub-1").
		WillReturnRows(rows)

	sub, err := repo.ByID("sub-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if sub.FormData.ContactEmail != "ana@example.com" {
		t.Fatalf("contact_email = %q", sub.FormData.ContactEmail)
	}
	if sub.FormData.Price != "15000" {
		t.Fatalf("price = %q", sub.FormData.Price)
	}
	if len(sub.FormData.GalleryURLs) != 1 {
		t.Fatalf("gallery_urls = %d, want 1", len(sub.FormData.GalleryURLs))
	}
}

func TestSubmissionByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(`SELECT \* FROM property_submissions WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(submissionColumns()))

	_, err := repo.ByID("missing")
	if err != ErrSubmissionNotFound {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestSubmissionUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(`UPDATE property_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(&model.Submission{ID: "missing", Type: model.SubmissionTypeSale})
	if err != ErrSubmissionNotFound {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestLatestByOwnerPicksNewest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(submissionColumns()).
		AddRow("sub-new", "user-1", "sale", "draft", `{}`, false, now, now)

	mock.ExpectQuery(`SELECT \* FROM property_submissions\s+WHERE owner_id = \$1 AND type = \$2\s+ORDER BY created_at DESC\s+LIMIT 1`).
		WithArgs("user-1", "sale").
		WillReturnRows(rows)

	sub, err := repo.LatestByOwner("user-1", "sale")
	if err != nil {
		t.Fatalf("LatestByOwner: %v", err)
	}
	if sub.ID != "sub-new" {
		t.Fatalf("id = %s", sub.ID)
	}
}

func TestByStatusListsQueue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(submissionColumns()).
		AddRow("sub-1", "user-1", "sale", "pending", `{}`, true, now, now).
		AddRow("sub-2", "user-2", "rent", "pending", `{}`, true, now, now)

	mock.ExpectQuery(`SELECT \* FROM property_submissions WHERE status`).
		WithArgs("pending").
		WillReturnRows(rows)

	subs, err := repo.ByStatus("pending")
	if err != nil {
		t.Fatalf("ByStatus: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("subs = %d, want 2", len(subs))
	}
}
