package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeChatTurnCompleted = "CHAT_TURN_COMPLETED"
	TypeChatSummarized    = "CHAT_SUMMARIZED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_SUMMARIZED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher is satisfied by the NATS publisher and by NopPublisher.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// ChatTurnCompleted reports the final state of one streamed turn.
// assistantMessageId is uuid.Nil when no assistant message was stored.
func ChatTurnCompleted(chatId, userMessageId, assistantMessageId uuid.UUID, state string) BaseEvent {
	data := map[string]interface{}{
		"chatId":        chatId.String(),
		"userMessageId": userMessageId.String(),
		"state":         state,
	}
	if assistantMessageId != uuid.Nil {
		data["assistantMessageId"] = assistantMessageId.String()
	}
	return BaseEvent{
		Type:       TypeChatTurnCompleted,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

func ChatSummarized(chatId uuid.UUID, folded int) BaseEvent {
	return BaseEvent{
		Type: TypeChatSummarized,
		Data: map[string]interface{}{
			"chatId": chatId.String(),
			"folded": folded,
		},
		OccurredAt: time.Now(),
	}
}
