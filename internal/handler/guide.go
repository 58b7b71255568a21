package handler

import (
	"net/http"

	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/service"
)

type guideHandler struct {
	guideService *service.GuideService
}

func NewGuideHandler(guideService *service.GuideService) *guideHandler {
	return &guideHandler{guideService: guideService}
}

func (h *guideHandler) List(w http.ResponseWriter, r *http.Request) {
	var guides []*model.Guide
	var err error
	if tag := r.URL.Query().Get("tag"); tag != "" {
		guides, err = h.guideService.GuidesByTag(tag)
	} else {
		guides, err = h.guideService.Guides()
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to load guides")
		return
	}
	respond.OK(w, map[string]any{"guides": guides})
}

func (h *guideHandler) Get(w http.ResponseWriter, r *http.Request) {
	guide, err := h.guideService.Guide(r.PathValue("slug"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "guide not found")
		return
	}
	respond.OK(w, map[string]any{"guide": guide})
}
