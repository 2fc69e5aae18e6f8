package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/hema_backend/models"
)

// PushSender is the slice of the FCM messaging client the dispatcher
// uses. *messaging.Client satisfies it.
type PushSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// MessageStore persists the append-only side channel written next to
// each push send.
type MessageStore interface {
	InsertMessage(ctx context.Context, message models.DonorMessage) error
	SaveNotification(ctx context.Context, userID primitive.ObjectID, title, message, notifType string, data interface{}) error
}

// DispatchService fans notifications out to the three audiences of a
// blood request: newly matched donors, the requester when a donor
// confirms, and previously notified donors when a request is
// cancelled. Every send is best-effort; failures are logged, never
// propagated.
type DispatchService struct {
	push    PushSender
	records MessageStore
	redis   *redis.Client // optional already-notified guard
}

func NewDispatchService(push PushSender, records MessageStore, redisClient *redis.Client) *DispatchService {
	return &DispatchService{
		push:    push,
		records: records,
		redis:   redisClient,
	}
}

// NotifyNewMatches sends the match notification to every accepted
// candidate and writes each one a message record with the full request
// context. Returns the user ids of every candidate, whether or not a
// push went out this invocation: the duplicate guard only suppresses
// repeated sends, so a redelivered creation event still yields the
// same notified list.
func (s *DispatchService) NotifyNewMatches(ctx context.Context, request *models.BloodRequest, provider *models.Provider, candidates []Candidate) []primitive.ObjectID {
	if len(candidates) == 0 {
		log.Printf("No donors to notify for request %s", request.ID.Hex())
		return nil
	}

	notified := make([]primitive.ObjectID, 0, len(candidates))
	for _, candidate := range candidates {
		notified = append(notified, candidate.Donor.UserID)
	}

	fresh := s.filterAlreadyNotified(ctx, request.ID, candidates)
	if len(fresh) == 0 {
		log.Printf("All %d donors already notified for request %s, skipping sends", len(candidates), request.ID.Hex())
		return notified
	}

	title := "Urgent blood donation request"
	body := fmt.Sprintf("%s needs %d unit(s) of %s blood near you.", provider.Name, request.Quantity, strings.Join(request.BloodGroups, "/"))
	data := map[string]string{
		"type":        models.NotificationTypeBloodRequestMatch,
		"requestId":   request.ID.Hex(),
		"providerId":  request.ProviderID.Hex(),
		"bloodGroups": strings.Join(request.BloodGroups, ","),
		"quantity":    strconv.Itoa(request.Quantity),
	}

	tokens := make([]string, 0, len(fresh))
	recipients := make([]primitive.ObjectID, 0, len(fresh))
	for _, candidate := range fresh {
		tokens = append(tokens, candidate.Profile.FCMToken)
		recipients = append(recipients, candidate.Donor.UserID)

		// The message record is independent of the push send; either
		// side effect may fail without rolling back the other.
		content := fmt.Sprintf("%s at %s needs %d unit(s) of %s blood. You are %.1f km away. Open the app to respond.",
			provider.Name, provider.Address, request.Quantity, strings.Join(request.BloodGroups, "/"), candidate.DistanceKm)
		message := models.DonorMessage{
			MessageID: uuid.NewString(),
			UserID:    candidate.Donor.UserID,
			RequestID: request.ID,
			Role:      "session",
			Content:   content,
			Data: map[string]interface{}{
				"providerId":   request.ProviderID.Hex(),
				"providerName": provider.Name,
				"bloodGroups":  request.BloodGroups,
				"quantity":     request.Quantity,
				"urgency":      request.Urgency,
				"requireBy":    request.RequireBy,
			},
			CreatedAt: time.Now(),
		}
		if err := s.records.InsertMessage(ctx, message); err != nil {
			log.Printf("Failed to write message record for user %s on request %s: %v", candidate.Donor.UserID.Hex(), request.ID.Hex(), err)
		}
		if err := s.records.SaveNotification(ctx, candidate.Donor.UserID, title, body, models.NotificationTypeBloodRequestMatch, data); err != nil {
			log.Printf("Failed to save notification for user %s: %v", candidate.Donor.UserID.Hex(), err)
		}
	}

	s.sendMulticast(ctx, request.ID, title, body, data, tokens, recipients)
	return notified
}

// NotifyDonorConfirmed tells the requester that a donor has confirmed.
// The donor's daytime or nighttime address is chosen by local hour.
func (s *DispatchService) NotifyDonorConfirmed(ctx context.Context, request *models.BloodRequest, requester *models.User, donor *models.User, now time.Time) {
	if requester.FCMToken == "" {
		log.Printf("Requester %s has no FCM token, skipping confirmation push for request %s", requester.ID.Hex(), request.ID.Hex())
		return
	}

	address := donor.ContactAddress(now)
	title := "A donor confirmed"
	body := fmt.Sprintf("%s confirmed for your blood request.", donor.DisplayName())
	if address != "" {
		body = fmt.Sprintf("%s confirmed for your blood request. Reachable at: %s", donor.DisplayName(), address)
	}
	data := map[string]string{
		"type":         models.NotificationTypeDonorConfirmed,
		"requestId":    request.ID.Hex(),
		"donorId":      donor.ID.Hex(),
		"donorName":    donor.DisplayName(),
		"donorAddress": address,
	}

	if err := s.records.SaveNotification(ctx, requester.ID, title, body, models.NotificationTypeDonorConfirmed, data); err != nil {
		log.Printf("Failed to save confirmation notification for requester %s: %v", requester.ID.Hex(), err)
	}

	s.sendMulticast(ctx, request.ID, title, body, data, []string{requester.FCMToken}, []primitive.ObjectID{requester.ID})
}

// NotifyRequestCancelled tells every previously notified donor that
// the request no longer exists.
func (s *DispatchService) NotifyRequestCancelled(ctx context.Context, request *models.BloodRequest, donors []models.User) {
	title := "Blood request cancelled"
	body := "A blood request you were matched with has been cancelled. Thank you for your willingness to help."
	data := map[string]string{
		"type":      models.NotificationTypeRequestCancelled,
		"requestId": request.ID.Hex(),
	}

	tokens := make([]string, 0, len(donors))
	recipients := make([]primitive.ObjectID, 0, len(donors))
	for _, donor := range donors {
		if donor.FCMToken == "" {
			log.Printf("Notified donor %s has no FCM token, skipping cancellation push", donor.ID.Hex())
			continue
		}
		tokens = append(tokens, donor.FCMToken)
		recipients = append(recipients, donor.ID)

		if err := s.records.SaveNotification(ctx, donor.ID, title, body, models.NotificationTypeRequestCancelled, data); err != nil {
			log.Printf("Failed to save cancellation notification for user %s: %v", donor.ID.Hex(), err)
		}
	}
	if len(tokens) == 0 {
		return
	}

	s.sendMulticast(ctx, request.ID, title, body, data, tokens, recipients)
}

// filterAlreadyNotified returns the candidates whose user id is not
// yet in the per-request Redis set, i.e. the ones still owed a push
// and a message record. The guard is best-effort: without Redis, or on
// any Redis error, every candidate passes.
func (s *DispatchService) filterAlreadyNotified(ctx context.Context, requestID primitive.ObjectID, candidates []Candidate) []Candidate {
	if s.redis == nil {
		return candidates
	}

	key := "hema:notified:" + requestID.Hex()
	kept := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		added, err := s.redis.SAdd(ctx, key, candidate.Donor.UserID.Hex()).Result()
		if err != nil {
			kept = append(kept, candidate)
			continue
		}
		if added == 0 {
			log.Printf("Donor %s already notified for request %s, skipping", candidate.Donor.UserID.Hex(), requestID.Hex())
			continue
		}
		kept = append(kept, candidate)
	}
	s.redis.Expire(ctx, key, 72*time.Hour)
	return kept
}

// sendMulticast performs one batched FCM send and logs per-token
// failures and the aggregate outcome.
func (s *DispatchService) sendMulticast(ctx context.Context, requestID primitive.ObjectID, title, body string, data map[string]string, tokens []string, recipients []primitive.ObjectID) {
	if s.push == nil {
		log.Printf("Push gateway not configured, skipping send for request %s", requestID.Hex())
		return
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "hema_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	}

	response, err := s.push.SendEachForMulticast(ctx, message)
	if err != nil {
		log.Printf("Multicast send failed for request %s: %v", requestID.Hex(), err)
		return
	}

	for i, resp := range response.Responses {
		if resp.Error != nil && i < len(recipients) {
			log.Printf("Push to user %s failed for request %s: %v", recipients[i].Hex(), requestID.Hex(), resp.Error)
		}
	}
	log.Printf("Multicast for request %s: %d sent, %d failed", requestID.Hex(), response.SuccessCount, response.FailureCount)
}
