package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Prediction is one address suggestion. PlaceID is what the wizard stores to
// prove the address came from a suggestion rather than free text.
type Prediction struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Client proxies the Google Places autocomplete API so the browser never
// sees the API key.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

type autocompleteResponse struct {
	Status      string `json:"status"`
	ErrorMsg    string `json:"error_message"`
	Predictions []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
}

// Autocomplete returns address predictions for the given input. An empty
// input returns no predictions without calling the API.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("input", input)
	q.Set("types", "address")
	q.Set("language", "es")
	q.Set("key", c.apiKey)

	endpoint := c.baseURL + "/autocomplete/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	var body autocompleteResponse
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		if body.ErrorMsg != "" {
			return nil, fmt.Errorf("places API error %s: %s", body.Status, body.ErrorMsg)
		}
		return nil, fmt.Errorf("places API error %s", body.Status)
	}

	predictions := make([]Prediction, 0, len(body.Predictions))
	for _, p := range body.Predictions {
		predictions = append(predictions, Prediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	return predictions, nil
}
