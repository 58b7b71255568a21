package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/storage"
	"github.com/magnogrupo/portal/internal/wizard"
)

// Field names one of the wizard's upload slots.
type Field string

const (
	FieldMainImage      Field = "main_image"
	FieldGallery        Field = "gallery_images"
	FieldIdentification Field = "id_urls"
	FieldPredial        Field = "predial_url"
)

// PendingURLPrefix marks preview URLs for files staged by guests. They are
// replaced with real storage URLs when the account exists.
const PendingURLPrefix = "pending://"

// File is one uploaded file's raw content.
type File struct {
	Name    string
	Content []byte
}

// Uploader is the slice of the storage layer the strategies need.
type Uploader interface {
	Save(ctx context.Context, path string, file io.Reader) error
	URL(path string) string
}

// Strategy handles wizard file uploads. It is selected once per session:
// authenticated owners upload immediately, guests defer until their account
// is created at the signature step.
type Strategy interface {
	// HandleFile records one upload action and mutates form state. The
	// returned notice, when non-empty, is surfaced to the user (e.g. a
	// file-count cap was hit); it is not an error.
	HandleFile(ctx context.Context, form *model.FormData, field Field, files []File) (notice string, err error)

	// Flush uploads any deferred files under the given owner id and
	// replaces pending preview URLs in the form with real storage URLs.
	Flush(ctx context.Context, userID string, form *model.FormData) error
}

// ValidField reports whether the wizard accepts uploads under this name.
func ValidField(f Field) bool {
	switch f {
	case FieldMainImage, FieldGallery, FieldIdentification, FieldPredial:
		return true
	}
	return false
}

// IsPending reports whether a URL is a guest-staged preview.
func IsPending(url string) bool {
	return strings.HasPrefix(url, PendingURLPrefix)
}

func category(field Field) string {
	switch field {
	case FieldMainImage:
		return "main"
	case FieldGallery:
		return "gallery"
	default:
		return "docs"
	}
}

func maxFiles(field Field) int {
	switch field {
	case FieldGallery:
		return wizard.GalleryMaxFiles
	case FieldIdentification:
		return wizard.IdentificationMaxFiles
	default:
		return 1
	}
}

func capNotice(field Field) string {
	if field == FieldIdentification {
		return fmt.Sprintf("maximum %d identification files reached", wizard.IdentificationMaxFiles)
	}
	return fmt.Sprintf("maximum %d photos reached", wizard.GalleryMaxFiles)
}

// objectPath builds the namespaced storage key for an owner upload.
func objectPath(userID string, field Field, filename string) string {
	ext := strings.ToLower(filepath.Ext(storage.SanitizeFilename(filename)))
	return fmt.Sprintf("properties/owners/%s/%s/%s%s", userID, category(field), uuid.New().String(), ext)
}

// fieldURLs returns the form slot(s) currently held for a field.
func fieldURLs(form *model.FormData, field Field) []string {
	switch field {
	case FieldMainImage:
		if form.MainImageURL == "" {
			return nil
		}
		return []string{form.MainImageURL}
	case FieldGallery:
		return form.GalleryURLs
	case FieldIdentification:
		return form.IDURLs
	case FieldPredial:
		if form.PredialURL == "" {
			return nil
		}
		return []string{form.PredialURL}
	}
	return nil
}

func setFieldURLs(form *model.FormData, field Field, urls []string) {
	switch field {
	case FieldMainImage:
		form.MainImageURL = ""
		if len(urls) > 0 {
			form.MainImageURL = urls[0]
		}
	case FieldGallery:
		form.GalleryURLs = urls
	case FieldIdentification:
		form.IDURLs = urls
	case FieldPredial:
		form.PredialURL = ""
		if len(urls) > 0 {
			form.PredialURL = urls[0]
		}
	}
}

// realURLs filters out pending previews, keeping already-uploaded URLs.
func realURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if !IsPending(u) {
			out = append(out, u)
		}
	}
	return out
}
