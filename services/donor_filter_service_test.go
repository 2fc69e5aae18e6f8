package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterServiceFor(t *testing.T, handler http.HandlerFunc) *DonorFilterService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &DonorFilterService{baseURL: server.URL, client: server.Client()}
}

func TestFilterDonorsWithoutURL(t *testing.T) {
	service := &DonorFilterService{client: http.DefaultClient}
	ids := []string{"a", "b"}

	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}

func TestFilterDonorsNarrowsToSubset(t *testing.T) {
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		var payload filterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "prov1", payload.UserID)
		assert.Equal(t, "healthcare_providers-prov1-requests-req1", payload.SessionID)
		assert.Equal(t, []string{"a", "b", "c"}, payload.Context.DonorIDs)

		// The reply echoes ids out of order, with an unknown id and a
		// duplicate thrown in.
		json.NewEncoder(w).Encode(filterResponse{Reply: `["c", "a", "zz", "c"]`})
	})

	got := service.FilterDonors(context.Background(), FilterContext{
		DonorIDs:   []string{"a", "b", "c"},
		RequestID:  "req1",
		ProviderID: "prov1",
	})
	assert.Equal(t, []string{"c", "a"}, got)
}

func TestFilterDonorsFailsOpenOnErrorStatus(t *testing.T) {
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ids := []string{"a", "b", "c"}
	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}

func TestFilterDonorsFailsOpenOnNonJSONBody(t *testing.T) {
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	})

	ids := []string{"a", "b"}
	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}

func TestFilterDonorsFailsOpenOnNonListReply(t *testing.T) {
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(filterResponse{Reply: "I cannot rank these donors."})
	})

	ids := []string{"a", "b"}
	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}

func TestFilterDonorsFailsOpenOnNullReply(t *testing.T) {
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(filterResponse{Reply: "null"})
	})

	ids := []string{"a", "b"}
	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}

func TestFilterDonorsEmptyListReply(t *testing.T) {
	// An explicit empty list is a real answer, not a failure.
	service := filterServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(filterResponse{Reply: "[]"})
	})

	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: []string{"a", "b"}})
	assert.Empty(t, got)
}

func TestFilterDonorsFailsOpenOnUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	service := &DonorFilterService{baseURL: url, client: http.DefaultClient}
	ids := []string{"a"}
	got := service.FilterDonors(context.Background(), FilterContext{DonorIDs: ids})
	assert.Equal(t, ids, got)
}
