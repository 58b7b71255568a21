package handler

import (
	"log/slog"
	"net/http"

	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/places"
)

type placesHandler struct {
	client *places.Client
}

func NewPlacesHandler(client *places.Client) *placesHandler {
	return &placesHandler{client: client}
}

// Autocomplete proxies address suggestions for the wizard's address inputs.
func (h *placesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")

	predictions, err := h.client.Autocomplete(r.Context(), input)
	if err != nil {
		slog.Error("places autocomplete failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "address suggestions are unavailable right now")
		return
	}

	respond.OK(w, map[string]any{"predictions": predictions})
}
