package service

import (
	"context"
	"encoding/json"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/cache"
	"studyhub-be/pkg/events"
	pktNats "studyhub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const consumerModule = "CanvasConsumer"

type IConsumerService interface {
	// Consume forwards locally saved canvases to the broker.
	Consume(ctx context.Context) error
	// ListenRemote drops cached snapshots written by other instances.
	ListenRemote(ctx context.Context, subscriber *pktNats.Subscriber) error
	HandleRemote(ctx context.Context, evt events.Event) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	instanceId     string
	eventPublisher *pktNats.Publisher
	cache          cache.SnapshotCache
	logger         logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	instanceId string,
	eventPublisher *pktNats.Publisher,
	snapshotCache cache.SnapshotCache,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		instanceId:     instanceId,
		eventPublisher: eventPublisher,
		cache:          snapshotCache,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.NoteCanvasSavedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		msg.Ack() // never retried
		return
	}

	cs.logger.Debug(consumerModule, "Canvas saved", map[string]interface{}{
		"user_id":    payload.UserId,
		"page_count": payload.PageCount,
	})

	if cs.eventPublisher != nil {
		evt := events.NewCanvasSaved(payload.UserId, payload.PageCount, payload.UpdatedAt)
		evt.Data["origin"] = cs.instanceId
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn(consumerModule, "Failed to publish CANVAS_SAVED event", map[string]interface{}{
				"user_id": payload.UserId,
				"error":   err.Error(),
			})
		}
	}
	msg.Ack()
}

func (cs *consumerService) ListenRemote(ctx context.Context, subscriber *pktNats.Subscriber) error {
	durable := "canvas-cache-" + cs.instanceId
	return subscriber.Subscribe(ctx, events.CanvasSaved, durable, cs.HandleRemote)
}

// HandleRemote invalidates the cached snapshot of a user saved by another
// instance.
func (cs *consumerService) HandleRemote(ctx context.Context, evt events.Event) error {
	if origin, _ := evt.Payload()["origin"].(string); origin == cs.instanceId {
		return nil
	}
	userId := events.UserID(evt)
	if userId == "" || cs.cache == nil {
		return nil
	}
	return cs.cache.Invalidate(ctx, userId)
}
