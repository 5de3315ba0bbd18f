package service

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/chat/summary"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService runs summarization requests queued by summary.QueueTrigger.
// Requests are best effort: failures are logged and acked, never retried.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	summarizer *summary.Summarizer
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	summarizer *summary.Summarizer,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		summarizer: summarizer,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
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
	defer msg.Ack()

	var req summary.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal summarization request", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		return
	}

	summary.Run(ctx, cs.summarizer, cs.logger, req)
}
