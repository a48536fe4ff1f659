package service

import (
	"context"
	"encoding/json"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IUsageConsumerService interface {
	Consume(ctx context.Context) error
}

// usageConsumerService writes every finished chat run to the usage audit log.
type usageConsumerService struct {
	subscriber message.Subscriber
	topicName  string
	usageLog   logger.ILogger
	logger     logger.ILogger
}

func NewUsageConsumerService(subscriber message.Subscriber, topicName string, usageLog, log logger.ILogger) IUsageConsumerService {
	return &usageConsumerService{
		subscriber: subscriber,
		topicName:  topicName,
		usageLog:   usageLog,
		logger:     log,
	}
}

// Consume subscribes and processes messages until ctx is done.
func (cs *usageConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *usageConsumerService) processMessage(msg *message.Message) {
	var payload dto.UsageEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("USAGE", "Failed to unmarshal usage event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Malformed payloads never become valid, so do not redeliver.
		msg.Ack()
		return
	}

	details := map[string]interface{}{
		"run_id":          payload.RunId,
		"kind":            payload.Kind,
		"subject_id":      payload.SubjectId,
		"requested_model": payload.Requested,
		"resolved_model":  payload.Resolved,
		"fallback":        payload.Fallback,
		"final_state":     payload.FinalState,
		"items":           payload.Items,
		"duration_ms":     payload.DurationMs,
	}
	if payload.BlockCode != "" {
		details["block_code"] = payload.BlockCode
	}
	if payload.Error != "" {
		details["error"] = payload.Error
	}
	cs.usageLog.Info("USAGE", "Chat run finished", details)
	msg.Ack()
}
