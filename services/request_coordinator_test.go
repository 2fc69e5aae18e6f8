package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/hema_backend/models"
	"github.com/HSouheill/hema_backend/utils"
)

type fakeProviderStore struct {
	provider *models.Provider
	err      error
}

func (f *fakeProviderStore) FindByID(ctx context.Context, providerID primitive.ObjectID) (*models.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

type searchOutcome struct {
	notified  []primitive.ObjectID
	status    string
	radiusKm  float64
	exhausted bool
}

type fakeRequestWriter struct {
	statuses []string
	outcomes []searchOutcome
}

func (f *fakeRequestWriter) SetStatus(ctx context.Context, requestID primitive.ObjectID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRequestWriter) SetSearchOutcome(ctx context.Context, requestID primitive.ObjectID, notified []primitive.ObjectID, status string, radiusKm float64, exhausted bool) error {
	f.outcomes = append(f.outcomes, searchOutcome{notified: notified, status: status, radiusKm: radiusKm, exhausted: exhausted})
	return nil
}

type donorResponseWrite struct {
	donorUserID primitive.ObjectID
	status      string
}

type fakeMatchStore struct {
	matches   []models.MatchRecord
	responses []donorResponseWrite
}

func (f *fakeMatchStore) InsertMatch(ctx context.Context, record models.MatchRecord) error {
	f.matches = append(f.matches, record)
	return nil
}

func (f *fakeMatchStore) UpsertDonorResponse(ctx context.Context, requestID, donorUserID primitive.ObjectID, status, lastMessage string) error {
	f.responses = append(f.responses, donorResponseWrite{donorUserID: donorUserID, status: status})
	return nil
}

// fakeFilter echoes its input unless result is set.
type fakeFilter struct {
	result []string
	got    FilterContext
}

func (f *fakeFilter) FilterDonors(ctx context.Context, fc FilterContext) []string {
	f.got = fc
	if f.result != nil {
		return f.result
	}
	return fc.DonorIDs
}

type fakeStatusNotifier struct {
	messages []string
}

func (f *fakeStatusNotifier) SendStatusUpdate(providerID, requestID primitive.ObjectID, message string) {
	f.messages = append(f.messages, message)
}

type fakeAlerter struct {
	subjects []string
}

func (f *fakeAlerter) SendAdminAlert(subject, body string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

type coordinatorFixture struct {
	donors      *fakeDonorStore
	users       *fakeProfileStore
	providers   *fakeProviderStore
	writer      *fakeRequestWriter
	matches     *fakeMatchStore
	filter      *fakeFilter
	push        *fakePush
	records     *fakeMessageStore
	status      *fakeStatusNotifier
	alerts      *fakeAlerter
	coordinator *RequestCoordinator
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		donors: &fakeDonorStore{},
		users:  &fakeProfileStore{users: map[primitive.ObjectID]*models.User{}},
		providers: &fakeProviderStore{provider: &models.Provider{
			ID:      primitive.NewObjectID(),
			Name:    "City Hospital",
			Address: "1 Main St",
			Geo: &models.GeoLocation{
				Geohash:  utils.EncodeGeohash(searchCenter),
				Geopoint: searchCenter,
			},
		}},
		writer:  &fakeRequestWriter{},
		matches: &fakeMatchStore{},
		filter:  &fakeFilter{},
		push:    &fakePush{},
		records: &fakeMessageStore{},
		status:  &fakeStatusNotifier{},
		alerts:  &fakeAlerter{},
	}

	search := NewDonorSearchService(f.donors, f.users)
	dispatch := NewDispatchService(f.push, f.records, nil)
	f.coordinator = NewRequestCoordinator(search, f.filter, dispatch,
		f.providers, f.users, f.writer, f.matches, f.status, f.alerts)
	f.coordinator.clock = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *coordinatorFixture) addEligibleDonor(km float64, group string) models.Donor {
	donor := donorAt(km, group, true)
	f.donors.donors = append(f.donors.donors, donor)
	f.users.users[donor.UserID] = &models.User{
		ID:        donor.UserID,
		FirstName: "Donor",
		FCMToken:  "tok-" + donor.UserID.Hex(),
	}
	return donor
}

func TestHandleRequestCreated(t *testing.T) {
	f := newCoordinatorFixture()
	f.addEligibleDonor(1.0, "O+")
	f.addEligibleDonor(1.5, "O+")
	f.addEligibleDonor(3.0, "O-")

	request := testRequest()
	err := f.coordinator.HandleRequestCreated(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, []string{models.RequestStatusSearching}, f.writer.statuses)

	require.Len(t, f.writer.outcomes, 1)
	outcome := f.writer.outcomes[0]
	assert.Equal(t, models.RequestStatusFound, outcome.status)
	assert.Len(t, outcome.notified, 3)
	assert.Equal(t, 4.0, outcome.radiusKm)
	assert.False(t, outcome.exhausted)

	// Every notified donor is recorded as contacted, and the filter saw
	// the full candidate list.
	require.Len(t, f.matches.responses, 3)
	for _, r := range f.matches.responses {
		assert.Equal(t, models.DonorStatusContacted, r.status)
	}
	assert.Len(t, f.filter.got.DonorIDs, 3)
	assert.Equal(t, request.ID.Hex(), f.filter.got.RequestID)

	require.Len(t, f.push.messages, 1)
	assert.Len(t, f.push.messages[0].Tokens, 3)
	assert.Len(t, f.status.messages, 2)
	assert.Empty(t, f.alerts.subjects)
}

func TestHandleRequestCreatedFilterNarrows(t *testing.T) {
	f := newCoordinatorFixture()
	kept := f.addEligibleDonor(1.0, "O+")
	f.addEligibleDonor(1.5, "O+")
	f.addEligibleDonor(1.8, "O+")
	f.filter.result = []string{kept.UserID.Hex()}

	err := f.coordinator.HandleRequestCreated(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, f.writer.outcomes, 1)
	require.Len(t, f.writer.outcomes[0].notified, 1)
	assert.Equal(t, kept.UserID, f.writer.outcomes[0].notified[0])
	require.Len(t, f.push.messages, 1)
	assert.Len(t, f.push.messages[0].Tokens, 1)
}

func TestHandleRequestCreatedNoDonorsExhausted(t *testing.T) {
	f := newCoordinatorFixture()

	err := f.coordinator.HandleRequestCreated(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, f.writer.outcomes, 1)
	outcome := f.writer.outcomes[0]
	assert.Equal(t, models.RequestStatusNotFound, outcome.status)
	assert.Empty(t, outcome.notified)
	assert.True(t, outcome.exhausted)
	assert.Equal(t, 50.0, outcome.radiusKm)

	assert.Empty(t, f.push.messages)
	assert.Equal(t, []string{"Blood request search exhausted"}, f.alerts.subjects)
}

func TestHandleRequestCreatedRedeliveryKeepsNotifiedList(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := newCoordinatorFixture()
	f.coordinator.dispatch = NewDispatchService(f.push, f.records, redisClient)
	f.addEligibleDonor(1.0, "O+")
	f.addEligibleDonor(1.2, "O+")
	f.addEligibleDonor(1.5, "O-")

	request := testRequest()
	require.NoError(t, f.coordinator.HandleRequestCreated(context.Background(), request))

	// Redelivery of the same creation event, e.g. after the first
	// outcome write was lost. The guard suppresses the duplicate
	// pushes but the persisted notified list must not shrink.
	require.NoError(t, f.coordinator.HandleRequestCreated(context.Background(), request))

	require.Len(t, f.writer.outcomes, 2)
	first, second := f.writer.outcomes[0], f.writer.outcomes[1]
	assert.Equal(t, models.RequestStatusFound, first.status)
	assert.Equal(t, models.RequestStatusFound, second.status)
	assert.ElementsMatch(t, first.notified, second.notified)
	require.Len(t, second.notified, 3)

	assert.Len(t, f.push.messages, 1)
	assert.Len(t, f.records.messages, 3)
}

func TestHandleRequestCreatedProviderMissing(t *testing.T) {
	f := newCoordinatorFixture()
	f.providers.err = errors.New("not found")

	err := f.coordinator.HandleRequestCreated(context.Background(), testRequest())
	assert.Error(t, err)
	assert.Empty(t, f.writer.statuses)
}

func TestHandleRequestCreatedProviderWithoutGeo(t *testing.T) {
	f := newCoordinatorFixture()
	f.providers.provider.Geo = nil

	err := f.coordinator.HandleRequestCreated(context.Background(), testRequest())
	assert.Error(t, err)
	assert.Empty(t, f.writer.statuses)
}

func TestHandleRequestUpdatedReplayIsInert(t *testing.T) {
	f := newCoordinatorFixture()
	f.providers.err = errors.New("should not be called")

	donorUser := primitive.NewObjectID()
	before := testRequest()
	before.ConfirmedDonors = []primitive.ObjectID{donorUser}
	after := *before

	err := f.coordinator.HandleRequestUpdated(context.Background(), before, &after)
	require.NoError(t, err)
	assert.Empty(t, f.matches.matches)
	assert.Empty(t, f.matches.responses)
	assert.Empty(t, f.push.messages)
}

func TestHandleRequestUpdatedNewConfirmation(t *testing.T) {
	f := newCoordinatorFixture()

	donorUser := primitive.NewObjectID()
	f.users.users[donorUser] = &models.User{
		ID:             donorUser,
		FirstName:      "Dana",
		DaytimeAddress: "Office",
	}

	before := testRequest()
	after := *before
	after.ConfirmedDonors = []primitive.ObjectID{donorUser}
	f.users.users[after.RequesterID] = &models.User{ID: after.RequesterID, FirstName: "Rami", FCMToken: "tok-req"}

	err := f.coordinator.HandleRequestUpdated(context.Background(), before, &after)
	require.NoError(t, err)

	require.Len(t, f.matches.matches, 1)
	record := f.matches.matches[0]
	assert.Equal(t, donorUser, record.DonorUserID)
	assert.Equal(t, "City Hospital", record.ProviderName)
	assert.Equal(t, "confirmed", record.Status)

	require.Len(t, f.matches.responses, 1)
	assert.Equal(t, models.DonorStatusWilling, f.matches.responses[0].status)

	// Confirmation push goes to the requester; the clock is fixed at
	// noon so the daytime address is used.
	require.Len(t, f.push.messages, 1)
	assert.Equal(t, []string{"tok-req"}, f.push.messages[0].Tokens)
	assert.Equal(t, "Office", f.push.messages[0].Data["donorAddress"])
	assert.Len(t, f.status.messages, 1)
}

func TestHandleRequestUpdatedRequesterMissing(t *testing.T) {
	f := newCoordinatorFixture()

	donorUser := primitive.NewObjectID()
	f.users.users[donorUser] = &models.User{ID: donorUser, FirstName: "Dana"}

	before := testRequest()
	after := *before
	after.ConfirmedDonors = []primitive.ObjectID{donorUser}

	err := f.coordinator.HandleRequestUpdated(context.Background(), before, &after)
	require.NoError(t, err)

	// Records are still written even though no push can be sent.
	assert.Len(t, f.matches.matches, 1)
	assert.Len(t, f.matches.responses, 1)
	assert.Empty(t, f.push.messages)
}

func TestHandleRequestUpdatedDonorLookupFailure(t *testing.T) {
	f := newCoordinatorFixture()

	donorUser := primitive.NewObjectID()
	before := testRequest()
	after := *before
	after.ConfirmedDonors = []primitive.ObjectID{donorUser}
	f.users.users[after.RequesterID] = &models.User{ID: after.RequesterID, FCMToken: "tok-req"}
	f.users.errFor = map[primitive.ObjectID]error{donorUser: errors.New("socket timeout")}

	// A missing profile is skippable, an unreachable store is not.
	err := f.coordinator.HandleRequestUpdated(context.Background(), before, &after)
	assert.Error(t, err)
	assert.Empty(t, f.matches.matches)
	assert.Empty(t, f.push.messages)
}

func TestHandleRequestUpdatedDonorProfileMissing(t *testing.T) {
	f := newCoordinatorFixture()

	donorUser := primitive.NewObjectID()
	before := testRequest()
	after := *before
	after.ConfirmedDonors = []primitive.ObjectID{donorUser}
	f.users.users[after.RequesterID] = &models.User{ID: after.RequesterID, FCMToken: "tok-req"}

	err := f.coordinator.HandleRequestUpdated(context.Background(), before, &after)
	require.NoError(t, err)
	assert.Empty(t, f.matches.matches)
	assert.Empty(t, f.push.messages)
}

func TestHandleRequestDeleted(t *testing.T) {
	f := newCoordinatorFixture()

	reachable := primitive.NewObjectID()
	vanished := primitive.NewObjectID()
	f.users.users[reachable] = &models.User{ID: reachable, FCMToken: "tok-a"}

	before := testRequest()
	before.NotifiedDonors = []primitive.ObjectID{reachable, vanished}

	err := f.coordinator.HandleRequestDeleted(context.Background(), before)
	require.NoError(t, err)

	require.Len(t, f.push.messages, 1)
	assert.Equal(t, []string{"tok-a"}, f.push.messages[0].Tokens)
	assert.Equal(t, models.NotificationTypeRequestCancelled, f.push.messages[0].Data["type"])
}

func TestHandleRequestDeletedNothingToCancel(t *testing.T) {
	f := newCoordinatorFixture()

	err := f.coordinator.HandleRequestDeleted(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, f.push.messages)

	err = f.coordinator.HandleRequestDeleted(context.Background(), nil)
	require.NoError(t, err)
}

func TestDiffConfirmedDonors(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	before := &models.BloodRequest{ConfirmedDonors: []primitive.ObjectID{a}}
	after := &models.BloodRequest{ConfirmedDonors: []primitive.ObjectID{a, b, c, b}}

	added := DiffConfirmedDonors(before, after)
	assert.Equal(t, []primitive.ObjectID{b, c}, added)

	// No before snapshot means everything counts as new.
	added = DiffConfirmedDonors(nil, after)
	assert.Equal(t, []primitive.ObjectID{a, b, c}, added)

	// Identical lists produce an empty diff.
	assert.Empty(t, DiffConfirmedDonors(after, after))
}
