package validation

import (
	"errors"
	"strings"
)

// ValidateFullName validates the name that appears on legal documents.
func ValidateFullName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("full name is required")
	}

	if len(trimmed) > 150 {
		return errors.New("full name is too long (max 150 characters)")
	}

	return nil
}
