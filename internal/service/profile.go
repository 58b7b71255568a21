package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCurrentPassword = errors.New("current password is incorrect")

type ProfileService struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
}

func NewProfileService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
	}
}

func (s *ProfileService) ByUserID(userID string) (*model.Profile, error) {
	return s.profileRepo.ByUserID(userID)
}

// UpdateContact updates the owner's contact details shown on documents.
func (s *ProfileService) UpdateContact(userID, fullName, phone, nationality, homeAddress string) (*model.Profile, error) {
	fullName = strings.TrimSpace(fullName)

	err := validation.ValidateFullName(fullName)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.ByUserID(userID)
	if err != nil {
		return nil, err
	}

	profile.FullName = fullName
	profile.Phone = phone
	profile.Nationality = nationality
	profile.HomeAddress = homeAddress

	err = s.profileRepo.Update(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func (s *ProfileService) UpdatePassword(userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.ByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return fmt.Errorf("this account signs in with Google and has no password")
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword))
	if err != nil {
		return ErrInvalidCurrentPassword
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	hashStr := string(hashedPassword)
	user.PasswordHash = &hashStr

	err = s.userRepo.Update(user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
