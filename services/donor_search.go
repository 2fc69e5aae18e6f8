package services

import (
	"context"
	"log"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/hema_backend/models"
	"github.com/HSouheill/hema_backend/utils"
)

// Search tuning. Radii are kilometers.
const (
	searchStartRadiusKm   = 2.0
	searchRadiusStepKm    = 2.0
	searchRadiusCeilingKm = 50.0
	minTargetDonors       = 3
	maxTargetDonors       = 5
)

// Per-candidate rejection reasons, logged individually
const (
	rejectMissingGeo      = "missing_geolocation"
	rejectOutsideRadius   = "outside_radius"
	rejectBloodGroup      = "blood_group_mismatch"
	rejectUnavailable     = "unavailable"
	rejectProfileNotFound = "profile_not_found"
	rejectNoToken         = "missing_fcm_token"
)

// DonorStore issues ordered range queries over the geohash index.
type DonorStore interface {
	RangeQuery(ctx context.Context, start, end string) ([]models.Donor, error)
}

// ProfileStore resolves user profiles by id.
type ProfileStore interface {
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
}

// Candidate is a donor that survived every eligibility check.
type Candidate struct {
	Donor      models.Donor
	Profile    models.User
	DistanceKm float64
}

// SearchResult is the outcome of one expanding-radius search.
type SearchResult struct {
	Candidates []Candidate
	Exhausted  bool    // ceiling reached without meeting the target
	RadiusKm   float64 // final radius examined
}

// DonorSearchService runs the expanding-radius donor search: geohash
// range queries as a coarse prefilter, exact distance and eligibility
// checks as the source of truth.
type DonorSearchService struct {
	donors DonorStore
	users  ProfileStore
}

func NewDonorSearchService(donors DonorStore, users ProfileStore) *DonorSearchService {
	return &DonorSearchService{donors: donors, users: users}
}

// TargetDonorCount clamps the requested unit count into the band of
// donors worth notifying at once.
func TargetDonorCount(units int) int {
	if units < minTargetDonors {
		return minTargetDonors
	}
	if units > maxTargetDonors {
		return maxTargetDonors
	}
	return units
}

// NormalizeBloodGroups trims and uppercases the requested groups,
// dropping empties.
func NormalizeBloodGroups(groups []string) map[string]bool {
	normalized := make(map[string]bool, len(groups))
	for _, g := range groups {
		g = strings.ToUpper(strings.TrimSpace(g))
		if g != "" {
			normalized[g] = true
		}
	}
	return normalized
}

// Search expands the radius in fixed steps until the target count is
// met or the ceiling is reached. Accepted donors are never dropped by
// a later step, and no donor id appears twice.
func (s *DonorSearchService) Search(ctx context.Context, center models.GeoPoint, bloodGroups []string, units int) (*SearchResult, error) {
	wanted := NormalizeBloodGroups(bloodGroups)
	target := TargetDonorCount(units)

	seen := make(map[primitive.ObjectID]bool)
	result := &SearchResult{RadiusKm: searchStartRadiusKm}

	for radius := searchStartRadiusKm; ; radius += searchRadiusStepKm {
		result.RadiusKm = radius

		raw, err := s.collectStep(ctx, center, radius)
		if err != nil {
			return nil, err
		}

		accepted, err := s.validateStep(ctx, raw, center, radius, wanted, seen)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, accepted...)

		log.Printf("Donor search step: radius=%.0fkm raw=%d accepted=%d/%d", radius, len(raw), len(result.Candidates), target)

		if len(result.Candidates) >= target {
			return result, nil
		}
		if radius+searchRadiusStepKm > searchRadiusCeilingKm {
			result.Exhausted = true
			return result, nil
		}
	}
}

// collectStep covers the disc with geohash ranges and runs every range
// query concurrently. Any store error aborts the whole search.
func (s *DonorSearchService) collectStep(ctx context.Context, center models.GeoPoint, radiusKm float64) ([]models.Donor, error) {
	ranges := utils.CoverDisc(center, radiusKm)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		raw      []models.Donor
	)

	for _, kr := range ranges {
		wg.Add(1)
		go func(kr utils.KeyRange) {
			defer wg.Done()
			donors, err := s.donors.RangeQuery(ctx, kr.Start, kr.End)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			raw = append(raw, donors...)
		}(kr)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return raw, nil
}

// validateStep applies every eligibility predicate to the raw
// candidates of one radius step. Profile lookups run concurrently;
// each rejection is logged with its specific reason.
func (s *DonorSearchService) validateStep(ctx context.Context, raw []models.Donor, center models.GeoPoint, radiusKm float64, wanted map[string]bool, seen map[primitive.ObjectID]bool) ([]Candidate, error) {
	// Cheap predicates first, before spending a profile lookup.
	var pending []Candidate
	for _, donor := range raw {
		if seen[donor.ID] {
			continue
		}
		if donor.Geo == nil {
			log.Printf("Donor %s rejected: %s", donor.ID.Hex(), rejectMissingGeo)
			continue
		}
		distance := utils.DistanceKm(center, donor.Geo.Geopoint)
		if distance > radiusKm {
			log.Printf("Donor %s rejected: %s (%.1fkm > %.0fkm)", donor.ID.Hex(), rejectOutsideRadius, distance, radiusKm)
			continue
		}
		group := strings.ToUpper(strings.TrimSpace(donor.BloodGroup))
		if !wanted[group] {
			log.Printf("Donor %s rejected: %s (%q)", donor.ID.Hex(), rejectBloodGroup, donor.BloodGroup)
			continue
		}
		if !donor.IsAvailable {
			log.Printf("Donor %s rejected: %s", donor.ID.Hex(), rejectUnavailable)
			continue
		}
		seen[donor.ID] = true
		pending = append(pending, Candidate{Donor: donor, DistanceKm: distance})
	}

	// Resolve profiles concurrently within the step.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	profiles := make([]*models.User, len(pending))

	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := s.users.FindByID(ctx, pending[i].Donor.UserID)
			if err != nil {
				if err == mongo.ErrNoDocuments {
					log.Printf("Donor %s rejected: %s (user %s)", pending[i].Donor.ID.Hex(), rejectProfileNotFound, pending[i].Donor.UserID.Hex())
					return
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			profiles[i] = user
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var accepted []Candidate
	for i, candidate := range pending {
		if profiles[i] == nil {
			continue
		}
		if profiles[i].FCMToken == "" {
			log.Printf("Donor %s rejected: %s", candidate.Donor.ID.Hex(), rejectNoToken)
			continue
		}
		candidate.Profile = *profiles[i]
		accepted = append(accepted, candidate)
	}
	return accepted, nil
}
