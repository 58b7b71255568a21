package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/magnogrupo/portal/internal/ctxkeys"
	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/service"
)

type profileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *profileHandler {
	return &profileHandler{profileService: profileService}
}

type updateProfileRequest struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality"`
	HomeAddress string `json:"home_address"`
}

func (h *profileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req updateProfileRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.profileService.UpdateContact(user.ID, req.FullName, req.Phone, req.Nationality, req.HomeAddress)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	respond.OK(w, map[string]any{
		"full_name":    profile.FullName,
		"phone":        profile.Phone,
		"nationality":  profile.Nationality,
		"home_address": profile.HomeAddress,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *profileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req changePasswordRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.profileService.UpdatePassword(user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCurrentPassword) {
			respond.Error(w, http.StatusForbidden, err.Error())
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	respond.OK(w, map[string]string{"status": "password updated"})
}
