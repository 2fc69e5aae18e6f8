package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const filterRequestTimeout = 15 * time.Second

// FilterContext is the request context handed to the relevance filter.
type FilterContext struct {
	DonorIDs    []string `json:"donor_ids"`
	RequestID   string   `json:"requestId"`
	ProviderID  string   `json:"providerId"`
	BloodGroups []string `json:"bloodGroups"`
	UnitsNeeded int      `json:"unitsNeeded"`
}

type filterRequest struct {
	UserID    string        `json:"user_id"`
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	Context   FilterContext `json:"context"`
}

type filterResponse struct {
	Reply string `json:"reply"`
}

// DonorFilterService calls the external relevance filter that narrows a
// validated candidate list to the donors most likely to donate. The
// filter is strictly best-effort: any failure returns the input list
// unchanged.
type DonorFilterService struct {
	baseURL string
	client  *http.Client
}

// NewDonorFilterService creates a new filter service instance
func NewDonorFilterService() *DonorFilterService {
	baseURL := os.Getenv("DONOR_FILTER_URL")
	if baseURL == "" {
		log.Printf("WARNING: DONOR_FILTER_URL not set; donor filtering will be skipped")
	}

	return &DonorFilterService{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: filterRequestTimeout,
		},
	}
}

// FilterDonors narrows donorIDs via the external filter. On any error,
// non-success status, or a reply that is not a JSON list, the original
// list is returned unchanged. A parsed reply is intersected with the
// input, so the output is always a subset of it.
func (s *DonorFilterService) FilterDonors(ctx context.Context, fc FilterContext) []string {
	if s.baseURL == "" {
		return fc.DonorIDs
	}

	payload := filterRequest{
		UserID:    fc.ProviderID,
		SessionID: fmt.Sprintf("healthcare_providers-%s-requests-%s", fc.ProviderID, fc.RequestID),
		Message:   "Filter the donor candidates in context for this blood request.",
		Context:   fc,
	}

	reply, err := s.call(ctx, payload)
	if err != nil {
		log.Printf("Donor filter unavailable for request %s, keeping all %d candidates: %v", fc.RequestID, len(fc.DonorIDs), err)
		return fc.DonorIDs
	}

	var filtered []string
	if err := json.Unmarshal([]byte(reply), &filtered); err != nil {
		log.Printf("Donor filter reply for request %s is not an id list, keeping all %d candidates: %v", fc.RequestID, len(fc.DonorIDs), err)
		return fc.DonorIDs
	}
	// A JSON null unmarshals without error but is not a list.
	if filtered == nil {
		log.Printf("Donor filter reply for request %s is null, keeping all %d candidates", fc.RequestID, len(fc.DonorIDs))
		return fc.DonorIDs
	}

	// Keep only ids we actually sent, preserving the filter's ordering.
	known := make(map[string]bool, len(fc.DonorIDs))
	for _, id := range fc.DonorIDs {
		known[id] = true
	}
	subset := make([]string, 0, len(filtered))
	for _, id := range filtered {
		if known[id] {
			subset = append(subset, id)
			known[id] = false
		}
	}

	log.Printf("Donor filter narrowed request %s candidates: %d -> %d", fc.RequestID, len(fc.DonorIDs), len(subset))
	return subset
}

func (s *DonorFilterService) call(ctx context.Context, payload filterRequest) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("filter returned status %d", resp.StatusCode)
	}

	var filterResp filterResponse
	if err := json.Unmarshal(respBody, &filterResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return filterResp.Reply, nil
}
