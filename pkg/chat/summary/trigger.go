package summary

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/metrics"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type Request struct {
	ChatId uuid.UUID `json:"chatId"`
	UserId uuid.UUID `json:"userId"`
	// Model is the model the turn was answered with.
	Model string `json:"model,omitempty"`
}

// Trigger starts summarization for a chat. Implementations never report
// failure to the caller; errors are logged.
type Trigger interface {
	Trigger(ctx context.Context, req Request)
}

// SyncTrigger runs the summarizer before returning.
type SyncTrigger struct {
	summarizer *Summarizer
	logger     logger.ILogger
}

func NewSyncTrigger(summarizer *Summarizer, logger logger.ILogger) *SyncTrigger {
	return &SyncTrigger{summarizer: summarizer, logger: logger}
}

func (t *SyncTrigger) Trigger(ctx context.Context, req Request) {
	Run(ctx, t.summarizer, t.logger, req)
}

// Run summarizes and logs the outcome. It is shared by the sync trigger and
// the queue consumer.
func Run(ctx context.Context, summarizer *Summarizer, log logger.ILogger, req Request) {
	folded, err := summarizer.Summarize(ctx, req)
	if err != nil {
		metrics.RecordSummarization("failed", 0)
		log.Error("SUMMARY", "Summarization failed", map[string]interface{}{
			"chat_id": req.ChatId.String(),
			"error":   err,
		})
		return
	}
	if folded == 0 {
		metrics.RecordSummarization("skipped", 0)
		return
	}
	metrics.RecordSummarization("ok", folded)
	log.Info("SUMMARY", "Chat summarized", map[string]interface{}{
		"chat_id": req.ChatId.String(),
		"folded":  folded,
	})
}

// QueueTrigger hands the request to a watermill topic consumed in the background.
type QueueTrigger struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
}

func NewQueueTrigger(publisher message.Publisher, topic string, logger logger.ILogger) *QueueTrigger {
	return &QueueTrigger{publisher: publisher, topic: topic, logger: logger}
}

func (t *QueueTrigger) Trigger(ctx context.Context, req Request) {
	payload, err := json.Marshal(req)
	if err != nil {
		t.logger.Error("SUMMARY", "Failed to encode summarization request", map[string]interface{}{"error": err})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := t.publisher.Publish(t.topic, msg); err != nil {
		t.logger.Error("SUMMARY", "Failed to enqueue summarization", map[string]interface{}{
			"chat_id": req.ChatId.String(),
			"error":   err,
		})
	}
}
