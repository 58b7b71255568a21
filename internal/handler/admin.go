package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/repository"
	"github.com/magnogrupo/portal/internal/service"
)

type adminHandler struct {
	submissionService *service.SubmissionService
}

func NewAdminHandler(submissionService *service.SubmissionService) *adminHandler {
	return &adminHandler{submissionService: submissionService}
}

// Queue lists submissions awaiting review.
func (h *adminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionService.Queue()
	if err != nil {
		slog.Error("failed to load review queue", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load the review queue")
		return
	}

	payload := make([]map[string]any, 0, len(subs))
	for i := range subs {
		payload = append(payload, submissionPayload(&subs[i]))
	}
	respond.OK(w, map[string]any{"submissions": payload})
}

// Get returns any submission for review.
func (h *adminHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissionService.ByID(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "submission not found")
		return
	}
	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// Decide applies a review decision to a pending submission.
func (h *adminHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Decision {
	case model.SubmissionStatusApproved, model.SubmissionStatusChangesRequested, model.SubmissionStatusRejected:
	default:
		respond.Error(w, http.StatusBadRequest, "decision must be approved, changes_requested, or rejected")
		return
	}

	sub, err := h.submissionService.Review(r.PathValue("id"), req.Decision, req.Notes)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}

	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

type publishRequest struct {
	ListingRef string `json:"listing_ref"`
}

// Publish links an approved submission to a live listing.
func (h *adminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ListingRef == "" {
		respond.Error(w, http.StatusBadRequest, "listing_ref is required")
		return
	}

	sub, err := h.submissionService.Publish(r.PathValue("id"), req.ListingRef)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}

	respond.OK(w, map[string]any{"submission": submissionPayload(sub)})
}

func (h *adminHandler) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrSubmissionNotFound):
		respond.Error(w, http.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("review operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "review operation failed")
	}
}
