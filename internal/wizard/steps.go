package wizard

import (
	"errors"
	"regexp"
	"strings"

	"github.com/magnogrupo/portal/internal/model"
)

// The submission wizard walks nine fixed steps. Each step carries its own
// blocking validation; advancing is refused until the current step passes.
const (
	StepContact    = 1
	StepLocation   = 2
	StepDimensions = 3
	StepPricing    = 4
	StepDocuments  = 5
	StepMedia      = 6
	StepBenefits   = 7
	StepPreview    = 8
	StepSignature  = 9
)

const (
	// GalleryMaxFiles caps listing photos per submission.
	GalleryMaxFiles = 30
	// IdentificationMaxFiles caps identification document uploads.
	IdentificationMaxFiles = 2
	// MinPasswordLength applies to accounts created through the wizard.
	MinPasswordLength = 8
)

var ErrUnknownStep = errors.New("unknown wizard step")

// ValidateFunc checks one step's form state. hasAccount distinguishes guests
// (who must also supply signup credentials) from signed-in owners.
type ValidateFunc func(form *model.FormData, hasAccount bool) error

// StepDef describes one wizard step. The table drives validation and
// transitions so handlers never switch on raw step numbers.
type StepDef struct {
	ID       int
	Name     string
	Validate ValidateFunc // nil means the step never blocks
}

var Steps = []StepDef{
	{ID: StepContact, Name: "contact", Validate: validateContact},
	{ID: StepLocation, Name: "location", Validate: validateLocation},
	{ID: StepDimensions, Name: "dimensions", Validate: validateDimensions},
	{ID: StepPricing, Name: "pricing", Validate: validatePricing},
	{ID: StepDocuments, Name: "documents", Validate: validateDocuments},
	{ID: StepMedia, Name: "media", Validate: validateMedia},
	{ID: StepBenefits, Name: "benefits"},
	{ID: StepPreview, Name: "preview", Validate: validateAcceptance},
	{ID: StepSignature, Name: "signature"}, // signature emptiness is enforced by the pad
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var nonDigits = regexp.MustCompile(`\D`)

// Validate runs the blocking validation for one step. It is pure: no side
// effects, deterministic for the same input.
func Validate(step int, form *model.FormData, hasAccount bool) error {
	def, err := Step(step)
	if err != nil {
		return err
	}
	if def.Validate == nil {
		return nil
	}
	return def.Validate(form, hasAccount)
}

// Step looks up a step definition by id.
func Step(id int) (StepDef, error) {
	for _, def := range Steps {
		if def.ID == id {
			return def, nil
		}
	}
	return StepDef{}, ErrUnknownStep
}

// Next returns the step that follows, capped at the signature step.
func Next(step int) int {
	if step >= StepSignature {
		return StepSignature
	}
	return step + 1
}

func validateContact(form *model.FormData, hasAccount bool) error {
	if form.ContactFirstNames == "" || form.ContactLastNames == "" {
		return errors.New("first and last names are required")
	}
	if form.ContactEmail == "" || !emailPattern.MatchString(form.ContactEmail) {
		return errors.New("please enter a valid email address")
	}
	digits := nonDigits.ReplaceAllString(form.ContactPhone, "")
	if len(digits) < 10 {
		return errors.New("please enter a valid phone number (10 digits)")
	}
	if form.ContactNationality == "" {
		return errors.New("nationality is required")
	}
	if form.ContactHomeAddress == "" || form.ContactHomePlaceID == "" {
		return errors.New("please select your home address from the suggestions")
	}
	if !hasAccount && len(form.Password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func validateLocation(form *model.FormData, _ bool) error {
	if form.Address == "" || form.AddressPlaceID == "" {
		return errors.New("please select the property address from the suggestions")
	}
	if form.AgeStatus == model.AgeStatusYears && form.AgeYears == "" {
		return errors.New("please indicate the property age in years")
	}
	return nil
}

func validateDimensions(form *model.FormData, _ bool) error {
	if form.LandArea == "" || form.ConstructionArea == "" {
		return errors.New("land and construction areas are required")
	}
	return nil
}

func validatePricing(form *model.FormData, _ bool) error {
	if form.Price == "" {
		return errors.New("price is required")
	}
	return nil
}

func validateDocuments(form *model.FormData, _ bool) error {
	if len(form.IDURLs) == 0 {
		return errors.New("an official identification document is required")
	}
	return nil
}

func validateMedia(form *model.FormData, _ bool) error {
	// A professional photo visit substitutes for the cover photo.
	if form.MainImageURL == "" && !form.RequestProfessionalPhotos {
		return errors.New("upload a cover photo or request a professional photo visit")
	}
	return nil
}

func validateAcceptance(form *model.FormData, _ bool) error {
	if !form.PrivacyPolicy || !form.FeeAgreement {
		return errors.New("you must accept the privacy policy and fee agreement")
	}
	return nil
}

// Resumable reports whether the submitter may re-enter the wizard for this
// record. Frozen (signed pending) and decided records are read-only.
func Resumable(sub *model.Submission) bool {
	switch sub.Status {
	case model.SubmissionStatusDraft, model.SubmissionStatusChangesRequested:
		return true
	case model.SubmissionStatusPending:
		return !sub.IsSigned
	default:
		return false
	}
}

// EntryStep decides where a resumed draft re-enters the wizard. Unsigned
// documents jump straight to the signature step regardless of stored status;
// reviewer feedback reopens at the preview step.
func EntryStep(sub *model.Submission) int {
	if sub.FormData.UnsignedRecruitmentURL != "" {
		return StepSignature
	}
	if sub.Status == model.SubmissionStatusChangesRequested {
		return StepPreview
	}
	return StepContact
}

// NormalizePhone strips everything but digits, mirroring validateContact.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(nonDigits.ReplaceAllString(phone, ""))
}
