package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/magnogrupo/portal/internal/document"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/upload"
)

// In-memory repositories for service-level tests.

type memUsers struct {
	users map[string]*model.User
}

func (m *memUsers) Create(u *model.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) ByID(id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) ByEmail(email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) Update(u *model.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Delete(id string) error {
	delete(m.users, id)
	return nil
}

type memProfiles struct {
	profiles map[string]*model.Profile
}

func (m *memProfiles) ByUserID(userID string) (*model.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

func (m *memProfiles) Create(p *model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m.profiles[p.UserID] = p
	return nil
}

func (m *memProfiles) Update(p *model.Profile) error {
	m.profiles[p.UserID] = p
	return nil
}

type memTokens struct{}

func (m *memTokens) Create(*model.Token) error { return nil }
func (m *memTokens) ConsumeToken(string) (*model.Token, error) {
	return nil, repository.ErrTokenNotFound
}
func (m *memTokens) DeleteByUserAndType(string, string) error { return nil }

type memSubmissions struct {
	subs map[string]*model.Submission
}

func (m *memSubmissions) Create(sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = model.SubmissionStatusDraft
	}
	copied := *sub
	m.subs[sub.ID] = &copied
	return nil
}

func (m *memSubmissions) Update(sub *model.Submission) error {
	if _, ok := m.subs[sub.ID]; !ok {
		return repository.ErrSubmissionNotFound
	}
	copied := *sub
	m.subs[sub.ID] = &copied
	return nil
}

func (m *memSubmissions) ByID(id string) (*model.Submission, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *memSubmissions) LatestByOwner(ownerID, subType string) (*model.Submission, error) {
	var latest *model.Submission
	for _, sub := range m.subs {
		if sub.OwnerID == nil || *sub.OwnerID != ownerID || sub.Type != subType {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, repository.ErrSubmissionNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *memSubmissions) ByOwner(ownerID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, sub := range m.subs {
		if sub.OwnerID != nil && *sub.OwnerID == ownerID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memSubmissions) ByStatus(status string) ([]model.Submission, error) {
	var out []model.Submission
	for _, sub := range m.subs {
		if sub.Status == status {
			out = append(out, *sub)
		}
	}
	return out, nil
}

type memSignedDocs struct {
	docs []*model.SignedDocument
}

func (m *memSignedDocs) Create(doc *model.SignedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memSignedDocs) ByUser(userID string) ([]model.SignedDocument, error) {
	var out []model.SignedDocument
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memSignedDocs) ByProperty(propertyID string) ([]model.SignedDocument, error) {
	var out []model.SignedDocument
	for _, d := range m.docs {
		if d.PropertyID == propertyID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Save(_ context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[path] = data
	return nil
}

func (m *memStore) URL(path string) string {
	return "https://docs.example.com/" + path
}

type fixture struct {
	service *SubmissionService
	users   *memUsers
	subs    *memSubmissions
	docs    *memSignedDocs
	store   *memStore
	staging *upload.Staging
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &memUsers{users: make(map[string]*model.User)}
	profiles := &memProfiles{profiles: make(map[string]*model.Profile)}
	subs := &memSubmissions{subs: make(map[string]*model.Submission)}
	docs := &memSignedDocs{}
	store := &memStore{objects: make(map[string][]byte)}

	email := NewEmailService("", "portal@example.com", "http://localhost:8080", "Portal", true)
	auth := NewAuthService(users, profiles, &memTokens{}, email, "test-secret", false, 0, 0)
	gen := document.NewGenerator(store)

	return &fixture{
		service: NewSubmissionService(subs, docs, auth, email, gen),
		users:   users,
		subs:    subs,
		docs:    docs,
		store:   store,
		staging: upload.NewStaging(),
	}
}

func guestSubmission() *model.Submission {
	return &model.Submission{
		Type: model.SubmissionTypeSale,
		FormData: model.FormData{
			ContactFirstNames:  "Ana",
			ContactLastNames:   "García",
			ContactEmail:       "ana@example.com",
			ContactPhone:       "55 1234 5678",
			ContactNationality: "Mexicana",
			ContactHomeAddress: "Calle Falsa 1",
			ContactHomePlaceID: "ChIJhome",
			Address:            "Av. Reforma 100",
			AddressPlaceID:     "ChIJprop",
			PropertyType:       "house",
			LandArea:           "220",
			ConstructionArea:   "180",
			Price:              "4500000",
			KeysProvided:       true,
			PrivacyPolicy:      true,
			FeeAgreement:       true,
			Password:           "correct-horse",
		},
	}
}

const signaturePNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestGuestPrepareCreatesExactlyOneAccount(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	strategy := upload.NewDeferredStrategy(f.staging, f.store, "sess-1")

	result, err := f.service.Prepare(context.Background(), PrepareInput{Submission: sub, Strategy: strategy})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if result.NewUser == nil {
		t.Fatal("guest preparation must create an account")
	}
	if len(f.users.users) != 1 {
		t.Fatalf("users = %d, want exactly 1", len(f.users.users))
	}
	if !sub.HasOwner() || *sub.OwnerID != result.NewUser.ID {
		t.Fatal("submission not bound to the new account")
	}
	if sub.FormData.Password != "" {
		t.Fatal("transient password must be cleared after account creation")
	}
	if sub.Status != model.SubmissionStatusPending {
		t.Fatalf("status = %s, want pending", sub.Status)
	}
	if sub.FormData.UnsignedRecruitmentURL == "" || sub.FormData.UnsignedKeysURL == "" {
		t.Fatalf("unsigned documents missing: %+v", sub.FormData)
	}
}

func TestPrepareRequiresAcceptances(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	sub.FormData.FeeAgreement = false

	_, err := f.service.Prepare(context.Background(), PrepareInput{
		Submission: sub,
		Strategy:   upload.NewDeferredStrategy(f.staging, f.store, "sess-1"),
	})
	if err != ErrAcceptanceRequired {
		t.Fatalf("err = %v, want ErrAcceptanceRequired", err)
	}
	if len(f.users.users) != 0 {
		t.Fatal("no account may be created before acceptances")
	}
}

func TestPreparePersistsPendingForFirstSave(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	strategy := upload.NewDeferredStrategy(f.staging, f.store, "sess-1")

	_, err := f.service.Prepare(context.Background(), PrepareInput{Submission: sub, Strategy: strategy})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// The stored record, not just the in-memory copy, must be pending so it
	// shows up in the review queue.
	stored, err := f.subs.ByID(sub.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if stored.Status != model.SubmissionStatusPending {
		t.Fatalf("stored status = %s, want pending", stored.Status)
	}

	queue, err := f.service.Queue()
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != sub.ID {
		t.Fatalf("review queue = %+v, want the prepared submission", queue)
	}
}

func TestPrepareRejectsFinalizedSubmissions(t *testing.T) {
	f := newFixture(t)
	ownerID := "owner-1"

	cases := []struct {
		name    string
		status  string
		signed  bool
		wantErr error
	}{
		{"signed pending", model.SubmissionStatusPending, true, ErrAlreadySigned},
		{"approved", model.SubmissionStatusApproved, false, ErrNotResumable},
		{"rejected", model.SubmissionStatusRejected, false, ErrNotResumable},
		{"published", model.SubmissionStatusPublished, false, ErrNotResumable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := guestSubmission()
			sub.ID = uuid.New().String()
			sub.OwnerID = &ownerID
			sub.Status = tc.status
			sub.IsSigned = tc.signed
			if err := f.subs.Create(sub); err != nil {
				t.Fatal(err)
			}

			_, err := f.service.Prepare(context.Background(), PrepareInput{
				Submission: sub,
				Strategy:   upload.NewImmediateStrategy(f.store, ownerID),
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}

			stored, err := f.subs.ByID(sub.ID)
			if err != nil {
				t.Fatalf("ByID: %v", err)
			}
			if stored.Status != tc.status {
				t.Fatalf("stored status changed to %s", stored.Status)
			}
			if stored.FormData.UnsignedRecruitmentURL != "" {
				t.Fatal("documents must not be regenerated for a finalized submission")
			}
		})
	}
}

func TestPrepareAllowsChangesRequestedResubmission(t *testing.T) {
	f := newFixture(t)
	ownerID := "owner-1"

	sub := guestSubmission()
	sub.ID = uuid.New().String()
	sub.OwnerID = &ownerID
	sub.Status = model.SubmissionStatusChangesRequested
	if err := f.subs.Create(sub); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.Prepare(context.Background(), PrepareInput{
		Submission: sub,
		Strategy:   upload.NewImmediateStrategy(f.store, ownerID),
	})
	if err != nil {
		t.Fatalf("a changes_requested submission must be preparable again: %v", err)
	}
	if sub.Status != model.SubmissionStatusPending {
		t.Fatalf("status = %s, want pending", sub.Status)
	}
}

func TestGuestEndToEndSignArchivesDocuments(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	strategy := upload.NewDeferredStrategy(f.staging, f.store, "sess-1")

	_, err := f.service.Prepare(context.Background(), PrepareInput{Submission: sub, Strategy: strategy})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	err = f.service.Sign(context.Background(), sub, signaturePNG)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !sub.IsSigned {
		t.Fatal("submission not marked signed")
	}
	if sub.FormData.SignedAt == "" {
		t.Fatal("signing timestamp missing")
	}
	if sub.FormData.SignedRecruitmentURL == "" || sub.FormData.SignedKeysURL == "" {
		t.Fatalf("signed documents missing: %+v", sub.FormData)
	}
	if sub.FormData.UnsignedRecruitmentURL == sub.FormData.SignedRecruitmentURL {
		t.Fatal("signing must not overwrite the unsigned copy")
	}

	archived, err := f.service.SignedDocuments(sub.ID)
	if err != nil {
		t.Fatalf("SignedDocuments: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("archived documents = %d, want 2 (recruitment + keys)", len(archived))
	}
}

func TestSignTwiceRejected(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	strategy := upload.NewDeferredStrategy(f.staging, f.store, "sess-1")

	_, err := f.service.Prepare(context.Background(), PrepareInput{Submission: sub, Strategy: strategy})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := f.service.Sign(context.Background(), sub, signaturePNG); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	err = f.service.Sign(context.Background(), sub, signaturePNG)
	if err != ErrAlreadySigned {
		t.Fatalf("err = %v, want ErrAlreadySigned", err)
	}
}

func TestSignWithoutPreparedDocuments(t *testing.T) {
	f := newFixture(t)
	sub := guestSubmission()
	ownerID := "user-1"
	sub.ID = "sub-1"
	sub.OwnerID = &ownerID
	f.subs.subs[sub.ID] = sub

	err := f.service.Sign(context.Background(), sub, signaturePNG)
	if err != ErrNotReadyToSign {
		t.Fatalf("err = %v, want ErrNotReadyToSign", err)
	}
}

func TestReviewTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{model.SubmissionStatusPending, model.SubmissionStatusApproved, true},
		{model.SubmissionStatusPending, model.SubmissionStatusChangesRequested, true},
		{model.SubmissionStatusPending, model.SubmissionStatusRejected, true},
		{model.SubmissionStatusPending, model.SubmissionStatusPublished, false},
		{model.SubmissionStatusDraft, model.SubmissionStatusApproved, false},
		{model.SubmissionStatusApproved, model.SubmissionStatusPublished, true},
		{model.SubmissionStatusRejected, model.SubmissionStatusApproved, false},
		{model.SubmissionStatusPublished, model.SubmissionStatusRejected, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			if got := transitionAllowed(tc.from, tc.to); got != tc.allowed {
				t.Fatalf("transitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestReviewDecisionPersists(t *testing.T) {
	f := newFixture(t)
	ownerID := "user-1"
	sub := guestSubmission()
	sub.ID = "sub-1"
	sub.OwnerID = &ownerID
	sub.Status = model.SubmissionStatusPending
	f.subs.subs[sub.ID] = sub

	reviewed, err := f.service.Review("sub-1", model.SubmissionStatusChangesRequested, "add more photos")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != model.SubmissionStatusChangesRequested {
		t.Fatalf("status = %s", reviewed.Status)
	}

	_, err = f.service.Review("sub-1", model.SubmissionStatusApproved, "")
	if err == nil || !strings.Contains(err.Error(), "invalid status transition") {
		t.Fatalf("changes_requested must not transition to approved, got %v", err)
	}
}

func TestPublishSetsListingRef(t *testing.T) {
	f := newFixture(t)
	ownerID := "user-1"
	sub := guestSubmission()
	sub.ID = "sub-1"
	sub.OwnerID = &ownerID
	sub.Status = model.SubmissionStatusApproved
	f.subs.subs[sub.ID] = sub

	published, err := f.service.Publish("sub-1", "MG-2026-001")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != model.SubmissionStatusPublished {
		t.Fatalf("status = %s", published.Status)
	}
	if published.FormData.ListingRef != "MG-2026-001" {
		t.Fatalf("listing_ref = %q", published.FormData.ListingRef)
	}
}

func TestResumeSkipsNonResumable(t *testing.T) {
	f := newFixture(t)
	ownerID := "user-1"

	sub := guestSubmission()
	sub.ID = "sub-1"
	sub.OwnerID = &ownerID
	sub.Status = model.SubmissionStatusRejected
	f.subs.subs[sub.ID] = sub

	got, step, err := f.service.Resume(ownerID, model.SubmissionTypeSale)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got != nil {
		t.Fatal("rejected submission must not resume")
	}
	if step != 1 {
		t.Fatalf("step = %d, want 1", step)
	}
}

func TestResumeSignedPendingGoesToFresh(t *testing.T) {
	f := newFixture(t)
	ownerID := "user-1"

	sub := guestSubmission()
	sub.ID = "sub-1"
	sub.OwnerID = &ownerID
	sub.Status = model.SubmissionStatusPending
	sub.IsSigned = true
	f.subs.subs[sub.ID] = sub

	got, _, err := f.service.Resume(ownerID, model.SubmissionTypeSale)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got != nil {
		t.Fatal("a signed pending submission is complete and must not resume")
	}
}
