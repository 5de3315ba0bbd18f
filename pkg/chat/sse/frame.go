// Package sse defines the frames of a streamed chat turn and their
// text/event-stream encoding.
package sse

import "github.com/google/uuid"

const (
	ContentType  = "text/event-stream"
	DoneSentinel = "[DONE]"
	dataPrefix   = "data:"
	pingComment  = ": ping\n\n"
)

// Frame is one of UserPersisted, ContentFragment, AssistantPersisted or End.
type Frame interface {
	frame()
}

// UserPersisted is always the first frame of a turn.
type UserPersisted struct {
	ChatId        uuid.UUID `json:"chatId"`
	UserMessageId uuid.UUID `json:"userMessageId"`
}

type ContentFragment struct {
	Content string `json:"content"`
}

// AssistantPersisted is sent only when the full answer was stored.
type AssistantPersisted struct {
	AssistantMessageId uuid.UUID `json:"assistantMessageId"`
}

// End is the terminal frame, sent exactly once per stream.
type End struct{}

func (UserPersisted) frame()      {}
func (ContentFragment) frame()    {}
func (AssistantPersisted) frame() {}
func (End) frame()                {}
