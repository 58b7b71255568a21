package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/magnogrupo/portal/internal/document"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/upload"
	"github.com/magnogrupo/portal/internal/wizard"
)

var (
	ErrAlreadyProcessing  = errors.New("this submission is already being processed")
	ErrAlreadySigned      = errors.New("this submission has already been signed")
	ErrNotResumable       = errors.New("this submission is no longer editable")
	ErrAcceptanceRequired = errors.New("you must accept the privacy policy and fee agreement")
	ErrOwnerRequired      = errors.New("an account is required before signing")
	ErrNotReadyToSign     = errors.New("documents must be generated before signing")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// reviewTransitions lists the legal status moves for the review pipeline.
var reviewTransitions = map[string][]string{
	model.SubmissionStatusPending:  {model.SubmissionStatusApproved, model.SubmissionStatusChangesRequested, model.SubmissionStatusRejected},
	model.SubmissionStatusApproved: {model.SubmissionStatusPublished},
}

type SubmissionService struct {
	submissions repository.SubmissionRepository
	signedDocs  repository.SignedDocumentRepository
	auth        *AuthService
	email       *EmailService
	generator   *document.Generator

	// Guards against double-submits while a PDF pass is running.
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	signedDocs repository.SignedDocumentRepository,
	auth *AuthService,
	email *EmailService,
	generator *document.Generator,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		signedDocs:  signedDocs,
		auth:        auth,
		email:       email,
		generator:   generator,
		inFlight:    make(map[string]bool),
	}
}

func (s *SubmissionService) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *SubmissionService) end(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Resume finds the owner's most recent submission of the given type and
// decides where the wizard should drop them back in. A nil submission means
// there is nothing to resume and the wizard starts fresh.
func (s *SubmissionService) Resume(ownerID, subType string) (*model.Submission, int, error) {
	sub, err := s.submissions.LatestByOwner(ownerID, subType)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, wizard.StepContact, nil
		}
		return nil, 0, fmt.Errorf("failed to load submission: %w", err)
	}

	if !wizard.Resumable(sub) {
		return nil, wizard.StepContact, nil
	}

	return sub, wizard.EntryStep(sub), nil
}

// ValidateStep checks one wizard step and reports the first problem.
func (s *SubmissionService) ValidateStep(step int, sub *model.Submission) error {
	return wizard.Validate(step, &sub.FormData, sub.HasOwner())
}

// SaveDraft persists the wizard state so the owner can leave and come back.
// New submissions start in draft; an existing status is left alone so a
// changes_requested submission stays in that state while it is edited.
func (s *SubmissionService) SaveDraft(sub *model.Submission) error {
	if sub.ID == "" {
		if sub.Status == "" {
			sub.Status = model.SubmissionStatusDraft
		}
		return s.submissions.Create(sub)
	}

	err := s.submissions.Update(sub)
	if errors.Is(err, repository.ErrSubmissionNotFound) {
		return s.submissions.Create(sub)
	}
	return err
}

// PrepareInput carries the wizard state into document preparation.
type PrepareInput struct {
	Submission *model.Submission
	Strategy   upload.Strategy
}

// PrepareResult reports what preparation produced. NewUser is set when a
// guest account was created, so the handler can issue a session.
type PrepareResult struct {
	Submission *model.Submission
	NewUser    *model.User
}

// Prepare runs once the owner confirms the preview step: it verifies the
// legal acceptances, creates the account for guests, flushes any deferred
// uploads, generates the unsigned documents, and parks the submission in
// pending until it is signed.
func (s *SubmissionService) Prepare(ctx context.Context, in PrepareInput) (*PrepareResult, error) {
	sub := in.Submission

	key := prepareKey(sub)
	if !s.begin(key) {
		return nil, ErrAlreadyProcessing
	}
	defer s.end(key)

	// Preparing again is only legal while the submitter may still edit:
	// signed, decided, and published records stay exactly as they are.
	if sub.ID != "" {
		if sub.IsSigned {
			return nil, ErrAlreadySigned
		}
		if !wizard.Resumable(sub) {
			return nil, ErrNotResumable
		}
	}

	if !sub.FormData.PrivacyPolicy || !sub.FormData.FeeAgreement {
		return nil, ErrAcceptanceRequired
	}

	result := &PrepareResult{Submission: sub}

	if !sub.HasOwner() {
		user, err := s.auth.SignUp(SignUpInput{
			Email:       sub.FormData.ContactEmail,
			Password:    sub.FormData.Password,
			FullName:    sub.FormData.OwnerName(),
			Phone:       wizard.NormalizePhone(sub.FormData.ContactPhone),
			Nationality: sub.FormData.ContactNationality,
			HomeAddress: sub.FormData.ContactHomeAddress,
			Role:        model.RoleOwner,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		sub.OwnerID = &user.ID
		sub.FormData.Password = ""
		result.NewUser = user
	}

	err := in.Strategy.Flush(ctx, *sub.OwnerID, &sub.FormData)
	if err != nil {
		return nil, fmt.Errorf("failed to upload pending files: %w", err)
	}

	generated, err := s.generator.GenerateUnsigned(ctx, *sub.OwnerID, sub)
	if err != nil {
		return nil, err
	}
	sub.FormData.UnsignedRecruitmentURL = generated.RecruitmentURL
	sub.FormData.UnsignedKeysURL = generated.KeysURL

	sub.Status = model.SubmissionStatusPending
	err = s.SaveDraft(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	slog.Info("submission prepared", "submission_id", sub.ID, "owner_id", *sub.OwnerID)
	return result, nil
}

// Sign embeds the signature in the final documents, archives them, and
// confirms the submission to the owner. The unsigned copies are left in
// place untouched.
func (s *SubmissionService) Sign(ctx context.Context, sub *model.Submission, signatureDataURL string) error {
	if !s.begin("sign:" + sub.ID) {
		return ErrAlreadyProcessing
	}
	defer s.end("sign:" + sub.ID)

	if sub.IsSigned {
		return ErrAlreadySigned
	}
	if !sub.HasOwner() {
		return ErrOwnerRequired
	}
	if sub.FormData.UnsignedRecruitmentURL == "" {
		return ErrNotReadyToSign
	}
	if strings.TrimSpace(signatureDataURL) == "" {
		return fmt.Errorf("signature payload is empty")
	}

	generated, err := s.generator.GenerateSigned(ctx, sub, signatureDataURL)
	if err != nil {
		return err
	}

	now := time.Now()
	sub.FormData.SignedRecruitmentURL = generated.RecruitmentURL
	sub.FormData.SignedKeysURL = generated.KeysURL
	sub.FormData.SignedAt = now.Format(time.RFC3339)
	sub.IsSigned = true
	sub.Status = model.SubmissionStatusPending

	err = s.submissions.Update(sub)
	if err != nil {
		return fmt.Errorf("failed to save signed submission: %w", err)
	}

	s.archiveSignedDocuments(sub, now, generated)

	err = s.email.SendSubmissionReceived(sub.FormData.ContactEmail, sub.FormData.OwnerName(), sub.FormData.Address)
	if err != nil {
		slog.Warn("failed to send submission confirmation", "error", err, "submission_id", sub.ID)
	}

	slog.Info("submission signed", "submission_id", sub.ID)
	return nil
}

// archiveSignedDocuments writes one archival row per signed document.
// Failures are logged, not returned: the signed PDFs already exist in
// storage and their URLs are on the submission.
func (s *SubmissionService) archiveSignedDocuments(sub *model.Submission, signedAt time.Time, generated document.Generated) {
	docs := []struct {
		docType string
		url     string
	}{
		{model.DocumentTypeRecruitment, generated.RecruitmentURL},
		{model.DocumentTypeKeys, generated.KeysURL},
	}

	for _, d := range docs {
		if d.url == "" {
			continue
		}
		err := s.signedDocs.Create(&model.SignedDocument{
			UserID:       *sub.OwnerID,
			PropertyID:   sub.ID,
			DocumentType: d.docType,
			PDFURL:       d.url,
			SignedAt:     signedAt,
		})
		if err != nil {
			slog.Error("failed to archive signed document", "error", err, "submission_id", sub.ID, "type", d.docType)
		}
	}
}

// Review applies an admin decision to a pending submission and notifies the
// owner.
func (s *SubmissionService) Review(subID, decision, notes string) (*model.Submission, error) {
	sub, err := s.submissions.ByID(subID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(sub.Status, decision) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, decision)
	}

	sub.Status = decision
	err = s.submissions.Update(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to save decision: %w", err)
	}

	err = s.email.SendReviewDecision(sub.FormData.ContactEmail, sub.FormData.OwnerName(), sub.FormData.Address, decision, notes)
	if err != nil {
		slog.Warn("failed to send decision email", "error", err, "submission_id", sub.ID)
	}

	slog.Info("submission reviewed", "submission_id", sub.ID, "decision", decision)
	return sub, nil
}

// Publish links an approved submission to a live listing.
func (s *SubmissionService) Publish(subID, listingRef string) (*model.Submission, error) {
	sub, err := s.submissions.ByID(subID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(sub.Status, model.SubmissionStatusPublished) {
		return nil, fmt.Errorf("%w: %s -> published", ErrInvalidTransition, sub.Status)
	}

	sub.Status = model.SubmissionStatusPublished
	sub.FormData.ListingRef = listingRef
	err = s.submissions.Update(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to publish submission: %w", err)
	}

	slog.Info("submission published", "submission_id", sub.ID, "listing_ref", listingRef)
	return sub, nil
}

// Queue lists submissions awaiting review.
func (s *SubmissionService) Queue() ([]model.Submission, error) {
	return s.submissions.ByStatus(model.SubmissionStatusPending)
}

// ByID loads one submission.
func (s *SubmissionService) ByID(id string) (*model.Submission, error) {
	return s.submissions.ByID(id)
}

// ByOwner lists all of one owner's submissions, newest first.
func (s *SubmissionService) ByOwner(ownerID string) ([]model.Submission, error) {
	return s.submissions.ByOwner(ownerID)
}

// SignedDocuments lists the archived documents for a submission.
func (s *SubmissionService) SignedDocuments(subID string) ([]model.SignedDocument, error) {
	return s.signedDocs.ByProperty(subID)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range reviewTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// prepareKey guards Prepare before the submission has an id: guests are
// keyed by their contact email instead.
func prepareKey(sub *model.Submission) string {
	if sub.ID != "" {
		return "prepare:" + sub.ID
	}
	return "prepare:" + strings.ToLower(strings.TrimSpace(sub.FormData.ContactEmail))
}
