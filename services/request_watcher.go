package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/models"
)

const invocationTimeout = 2 * time.Minute

// requestChangeEvent is the slice of a change stream document the
// watcher cares about.
type requestChangeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument             *models.BloodRequest `bson:"fullDocument"`
	FullDocumentBeforeChange *models.BloodRequest `bson:"fullDocumentBeforeChange"`
}

// RequestWatcher turns the bloodRequests change stream into trigger
// invocations on the coordinator. Each event is handled by its own
// goroutine with no shared mutable state, so concurrent requests from
// the same provider search independently.
type RequestWatcher struct {
	collection  *mongo.Collection
	coordinator *RequestCoordinator
}

func NewRequestWatcher(db *mongo.Client, coordinator *RequestCoordinator) *RequestWatcher {
	return &RequestWatcher{
		collection:  db.Database(config.DBName()).Collection("bloodRequests"),
		coordinator: coordinator,
	}
}

// Run watches the collection until ctx is cancelled, reconnecting with
// a flat backoff when the stream drops.
func (w *RequestWatcher) Run(ctx context.Context) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	for {
		stream, err := w.collection.Watch(ctx, pipeline, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Failed to open blood request change stream: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		log.Println("Watching blood request changes")
		for stream.Next(ctx) {
			var event requestChangeEvent
			if err := stream.Decode(&event); err != nil {
				log.Printf("Failed to decode change event: %v", err)
				continue
			}
			go w.handle(event)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("Blood request change stream error: %v", err)
		}
		stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		time.Sleep(5 * time.Second)
	}
}

// handle runs one stateless trigger invocation. Errors are logged with
// the invocation id; the caller relies on redelivery (or an operator)
// for recovery, never on partial state.
func (w *RequestWatcher) handle(event requestChangeEvent) {
	invocationID := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), invocationTimeout)
	defer cancel()

	var err error
	switch event.OperationType {
	case "insert":
		if event.FullDocument == nil {
			log.Printf("[%s] Insert event for request %s has no document, skipping", invocationID, event.DocumentKey.ID.Hex())
			return
		}
		err = w.coordinator.HandleRequestCreated(ctx, event.FullDocument)
	case "update", "replace":
		if event.FullDocument == nil {
			log.Printf("[%s] Update event for request %s has no post-image (request deleted meanwhile?), skipping", invocationID, event.DocumentKey.ID.Hex())
			return
		}
		err = w.coordinator.HandleRequestUpdated(ctx, event.FullDocumentBeforeChange, event.FullDocument)
	case "delete":
		if event.FullDocumentBeforeChange == nil {
			log.Printf("[%s] Delete event for request %s has no pre-image, cannot notify donors", invocationID, event.DocumentKey.ID.Hex())
			return
		}
		err = w.coordinator.HandleRequestDeleted(ctx, event.FullDocumentBeforeChange)
	default:
		return
	}

	if err != nil {
		log.Printf("[%s] Trigger %s failed for request %s: %v", invocationID, event.OperationType, event.DocumentKey.ID.Hex(), err)
	}
}
