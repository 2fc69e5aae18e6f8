package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/hema_backend/models"
)

// ProviderStore resolves healthcare providers by id.
type ProviderStore interface {
	FindByID(ctx context.Context, providerID primitive.ObjectID) (*models.Provider, error)
}

// RequestWriter is the slice of the request store the coordinator
// mutates.
type RequestWriter interface {
	SetStatus(ctx context.Context, requestID primitive.ObjectID, status string) error
	SetSearchOutcome(ctx context.Context, requestID primitive.ObjectID, notified []primitive.ObjectID, status string, radiusKm float64, exhausted bool) error
}

// MatchStore persists match records and donor response state.
type MatchStore interface {
	InsertMatch(ctx context.Context, record models.MatchRecord) error
	UpsertDonorResponse(ctx context.Context, requestID, donorUserID primitive.ObjectID, status, lastMessage string) error
}

// DonorFilter narrows a candidate id list. Best-effort by contract.
type DonorFilter interface {
	FilterDonors(ctx context.Context, fc FilterContext) []string
}

// StatusNotifier pushes human-readable coordination progress to the
// owning provider (websocket hub in production).
type StatusNotifier interface {
	SendStatusUpdate(providerID, requestID primitive.ObjectID, message string)
}

// AlertSender raises an administrative alert. Best-effort.
type AlertSender interface {
	SendAdminAlert(subject, body string) error
}

// RequestCoordinator handles the lifecycle triggers of a blood
// request: the one-time search pass on creation, the confirmation pass
// on every update, and the cancellation pass on deletion. Every
// invocation is stateless; redelivered events are safe to reprocess.
type RequestCoordinator struct {
	search    *DonorSearchService
	filter    DonorFilter
	dispatch  *DispatchService
	providers ProviderStore
	users     ProfileStore
	requests  RequestWriter
	records   MatchStore
	status    StatusNotifier // optional
	alerts    AlertSender    // optional

	clock func() time.Time
}

func NewRequestCoordinator(search *DonorSearchService, filter DonorFilter, dispatch *DispatchService, providers ProviderStore, users ProfileStore, requests RequestWriter, records MatchStore, status StatusNotifier, alerts AlertSender) *RequestCoordinator {
	return &RequestCoordinator{
		search:    search,
		filter:    filter,
		dispatch:  dispatch,
		providers: providers,
		users:     users,
		requests:  requests,
		records:   records,
		status:    status,
		alerts:    alerts,
		clock:     time.Now,
	}
}

// HandleRequestCreated runs the full search pipeline for a new
// request: locate, validate, filter, notify, record. Store errors
// abort the invocation before the notified list is written, so a
// redelivered event restarts cleanly.
func (c *RequestCoordinator) HandleRequestCreated(ctx context.Context, request *models.BloodRequest) error {
	log.Printf("Request %s created by provider %s: %v x%d", request.ID.Hex(), request.ProviderID.Hex(), request.BloodGroups, request.Quantity)

	provider, err := c.providers.FindByID(ctx, request.ProviderID)
	if err != nil {
		return fmt.Errorf("failed to resolve provider %s for request %s: %w", request.ProviderID.Hex(), request.ID.Hex(), err)
	}
	if provider.Geo == nil {
		return fmt.Errorf("provider %s has no geo location, cannot search for request %s", provider.ID.Hex(), request.ID.Hex())
	}

	if err := c.requests.SetStatus(ctx, request.ID, models.RequestStatusSearching); err != nil {
		return fmt.Errorf("failed to mark request %s searching: %w", request.ID.Hex(), err)
	}
	c.sendStatus(request.ProviderID, request.ID, "Searching for compatible donors nearby...")

	result, err := c.search.Search(ctx, provider.Geo.Geopoint, request.BloodGroups, request.Quantity)
	if err != nil {
		return fmt.Errorf("donor search failed for request %s: %w", request.ID.Hex(), err)
	}

	candidates := c.applyFilter(ctx, request, result.Candidates)

	notified := c.dispatch.NotifyNewMatches(ctx, request, provider, candidates)
	for _, userID := range notified {
		if err := c.records.UpsertDonorResponse(ctx, request.ID, userID, models.DonorStatusContacted, ""); err != nil {
			log.Printf("Failed to record contacted status for donor %s on request %s: %v", userID.Hex(), request.ID.Hex(), err)
		}
	}

	status := models.RequestStatusFound
	if len(notified) == 0 {
		status = models.RequestStatusNotFound
	}
	if err := c.requests.SetSearchOutcome(ctx, request.ID, notified, status, result.RadiusKm, result.Exhausted); err != nil {
		return fmt.Errorf("failed to persist search outcome for request %s: %w", request.ID.Hex(), err)
	}

	if len(notified) > 0 {
		c.sendStatus(request.ProviderID, request.ID, fmt.Sprintf("Notified %d donor(s) within %.0f km.", len(notified), result.RadiusKm))
	} else {
		c.sendStatus(request.ProviderID, request.ID, "No compatible donors found in the search area.")
		if result.Exhausted && c.alerts != nil {
			subject := "Blood request search exhausted"
			body := fmt.Sprintf("Request %s (provider %s, groups %v) found no eligible donors within %.0f km.", request.ID.Hex(), request.ProviderID.Hex(), request.BloodGroups, result.RadiusKm)
			if err := c.alerts.SendAdminAlert(subject, body); err != nil {
				log.Printf("Failed to send admin alert for request %s: %v", request.ID.Hex(), err)
			}
		}
	}

	log.Printf("Request %s search done: status=%s notified=%d radius=%.0fkm exhausted=%v", request.ID.Hex(), status, len(notified), result.RadiusKm, result.Exhausted)
	return nil
}

// HandleRequestUpdated runs the confirmation pass. The transition is
// computed once as the set difference of the confirmed-donor lists;
// an unchanged list makes the whole event a no-op, so redeliveries
// are inert.
func (c *RequestCoordinator) HandleRequestUpdated(ctx context.Context, before, after *models.BloodRequest) error {
	added := DiffConfirmedDonors(before, after)
	if len(added) == 0 {
		log.Printf("Request %s updated with no new confirmed donors, nothing to do", after.ID.Hex())
		return nil
	}

	provider, err := c.providers.FindByID(ctx, after.ProviderID)
	if err != nil {
		return fmt.Errorf("failed to resolve provider %s for request %s: %w", after.ProviderID.Hex(), after.ID.Hex(), err)
	}

	requester, err := c.users.FindByID(ctx, after.RequesterID)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			return fmt.Errorf("failed to resolve requester %s for request %s: %w", after.RequesterID.Hex(), after.ID.Hex(), err)
		}
		log.Printf("Requester %s not found for request %s, confirmations will not be pushed", after.RequesterID.Hex(), after.ID.Hex())
		requester = nil
	}

	now := c.clock()
	for _, donorUserID := range added {
		donor, err := c.users.FindByID(ctx, donorUserID)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				log.Printf("Confirmed donor %s on request %s has no profile, skipping", donorUserID.Hex(), after.ID.Hex())
				continue
			}
			return fmt.Errorf("failed to resolve confirmed donor %s for request %s: %w", donorUserID.Hex(), after.ID.Hex(), err)
		}

		record := models.MatchRecord{
			RequestID:    after.ID,
			DonorUserID:  donorUserID,
			ProviderName: provider.Name,
			Status:       "confirmed",
			CreatedAt:    now,
		}
		if err := c.records.InsertMatch(ctx, record); err != nil {
			log.Printf("Failed to write match record for donor %s on request %s: %v", donorUserID.Hex(), after.ID.Hex(), err)
		}
		if err := c.records.UpsertDonorResponse(ctx, after.ID, donorUserID, models.DonorStatusWilling, ""); err != nil {
			log.Printf("Failed to record willing status for donor %s on request %s: %v", donorUserID.Hex(), after.ID.Hex(), err)
		}

		if requester != nil {
			c.dispatch.NotifyDonorConfirmed(ctx, after, requester, donor, now)
		}
	}

	c.sendStatus(after.ProviderID, after.ID, fmt.Sprintf("%d donor(s) confirmed, %d confirmed in total.", len(added), len(after.ConfirmedDonors)))
	return nil
}

// HandleRequestDeleted runs the cancellation pass: exactly the donors
// recorded as notified at search time are told the request is gone.
func (c *RequestCoordinator) HandleRequestDeleted(ctx context.Context, before *models.BloodRequest) error {
	if before == nil || len(before.NotifiedDonors) == 0 {
		log.Printf("Deleted request had no notified donors, nothing to cancel")
		return nil
	}

	donors := make([]models.User, 0, len(before.NotifiedDonors))
	for _, userID := range before.NotifiedDonors {
		user, err := c.users.FindByID(ctx, userID)
		if err != nil {
			log.Printf("Notified donor %s on deleted request %s has no profile, skipping: %v", userID.Hex(), before.ID.Hex(), err)
			continue
		}
		donors = append(donors, *user)
	}

	c.dispatch.NotifyRequestCancelled(ctx, before, donors)
	log.Printf("Request %s cancelled, %d previously notified donor(s) informed", before.ID.Hex(), len(donors))
	return nil
}

// applyFilter runs the best-effort relevance filter over the accepted
// candidates and maps the surviving ids back onto them.
func (c *RequestCoordinator) applyFilter(ctx context.Context, request *models.BloodRequest, candidates []Candidate) []Candidate {
	if c.filter == nil || len(candidates) == 0 {
		return candidates
	}

	byID := make(map[string]Candidate, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		id := candidate.Donor.UserID.Hex()
		byID[id] = candidate
		ids = append(ids, id)
	}

	filtered := c.filter.FilterDonors(ctx, FilterContext{
		DonorIDs:    ids,
		RequestID:   request.ID.Hex(),
		ProviderID:  request.ProviderID.Hex(),
		BloodGroups: request.BloodGroups,
		UnitsNeeded: request.Quantity,
	})

	kept := make([]Candidate, 0, len(filtered))
	for _, id := range filtered {
		if candidate, ok := byID[id]; ok {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func (c *RequestCoordinator) sendStatus(providerID, requestID primitive.ObjectID, message string) {
	if c.status != nil {
		c.status.SendStatusUpdate(providerID, requestID, message)
	}
}

// DiffConfirmedDonors returns the donor ids present in after's
// confirmed list but not in before's, in after's order. The confirmed
// list only ever grows, so this is the whole transition.
func DiffConfirmedDonors(before, after *models.BloodRequest) []primitive.ObjectID {
	previous := make(map[primitive.ObjectID]bool)
	if before != nil {
		for _, id := range before.ConfirmedDonors {
			previous[id] = true
		}
	}

	var added []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, id := range after.ConfirmedDonors {
		if previous[id] || seen[id] {
			continue
		}
		seen[id] = true
		added = append(added, id)
	}
	return added
}
