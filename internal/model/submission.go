package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SubmissionTypeSale = "sale"
	SubmissionTypeRent = "rent"
)

const (
	AgeStatusNew   = "new"
	AgeStatusYears = "years"
)

const (
	SubmissionStatusDraft            = "draft"
	SubmissionStatusPending          = "pending"
	SubmissionStatusApproved         = "approved"
	SubmissionStatusChangesRequested = "changes_requested"
	SubmissionStatusRejected         = "rejected"
	SubmissionStatusPublished        = "published"
)

// Submission is an owner's property intake record as it moves through the
// wizard and review pipeline. Form contents live in an opaque JSON blob so the
// wizard can evolve without schema churn.
type Submission struct {
	ID        string    `db:"id"`
	OwnerID   *string   `db:"owner_id"` // nil until the submitter has an account
	Type      string    `db:"type"`
	Status    string    `db:"status"`
	FormData  FormData  `db:"form_data"`
	IsSigned  bool      `db:"is_signed"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FormData holds every field collected by the 9-step wizard. Field names match
// the client payload one to one.
type FormData struct {
	// Step 1 - contact
	ContactFirstNames  string `json:"contact_first_names"`
	ContactLastNames   string `json:"contact_last_names"`
	ContactEmail       string `json:"contact_email"`
	ContactPhone       string `json:"contact_phone"`
	ContactNationality string `json:"contact_nationality"`
	ContactHomeAddress string `json:"contact_home_address"`
	ContactHomePlaceID string `json:"contact_home_place_id"`
	LegalStatus        string `json:"legal_status"` // owner or administrator

	// Step 2 - property location and age
	Title                string `json:"title"`
	Description          string `json:"description"`
	Address              string `json:"address"`
	AddressPlaceID       string `json:"address_place_id"`
	PropertyType         string `json:"property_type"`
	Condition            string `json:"condition"`
	AgeStatus            string `json:"age_status"`
	AgeYears             string `json:"age_years"`
	IsFreeOfEncumbrance  bool   `json:"is_free_of_encumbrance"`
	OccupancyStatus      string `json:"occupancy_status"`

	// Step 3 - dimensions and layout
	Levels           int    `json:"levels"`
	Rooms            int    `json:"rooms"`
	Bathrooms        int    `json:"bathrooms"`
	HalfBathrooms    int    `json:"half_bathrooms"`
	ParkingSpots     int    `json:"parking_spots"`
	LandArea         string `json:"land_area"`
	ConstructionArea string `json:"construction_area"`

	// Step 4 - pricing and services
	Price            string   `json:"price"`
	MaintenanceFee   string   `json:"maintenance_fee"`
	IncludedServices []string `json:"included_services"`
	FurnishedStatus  string   `json:"furnished_status"`
	Features         []string `json:"features"`
	Furniture        []string `json:"furniture"`

	// Step 5 - legal documents
	IDURLs               []string `json:"id_urls"`
	PredialURL           string   `json:"predial_url"`
	KeysProvided         bool     `json:"keys_provided"`
	AdminServiceInterest bool     `json:"admin_service_interest"`

	// Step 6 - media
	MainImageURL              string   `json:"main_image_url"`
	GalleryURLs               []string `json:"gallery_urls"`
	RequestProfessionalPhotos bool     `json:"request_professional_photos"`

	// Step 8 - legal acceptance
	PrivacyPolicy bool `json:"privacy_policy"`
	FeeAgreement  bool `json:"fee_agreement"`

	// Generated documents
	UnsignedRecruitmentURL string `json:"unsigned_recruitment_url,omitempty"`
	UnsignedKeysURL        string `json:"unsigned_keys_url,omitempty"`
	SignedRecruitmentURL   string `json:"signed_recruitment_url,omitempty"`
	SignedKeysURL          string `json:"signed_keys_url,omitempty"`
	SignedAt               string `json:"is_signed_at,omitempty"`

	// Set by the reviewer when the submission is linked to a live listing
	ListingRef string `json:"listing_ref,omitempty"`

	// Transient: guest password from step 1, held until the account is
	// created at the signature step. Never serialized.
	Password string `json:"-"`
}

// Value implements driver.Valuer so form_data persists as a JSON blob.
func (f FormData) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for the JSON blob.
func (f *FormData) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	case nil:
		*f = FormData{}
		return nil
	default:
		return fmt.Errorf("unsupported form_data type %T", src)
	}
}

// OwnerName is the submitter's full name as it appears on generated documents.
func (f *FormData) OwnerName() string {
	if f.ContactFirstNames == "" {
		return f.ContactLastNames
	}
	return f.ContactFirstNames + " " + f.ContactLastNames
}

// HasOwner reports whether the submission is already bound to an account.
func (s *Submission) HasOwner() bool {
	return s.OwnerID != nil && *s.OwnerID != ""
}
