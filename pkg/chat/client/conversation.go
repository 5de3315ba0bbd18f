// Package client consumes the chat event stream: it keeps the local message
// list in sync with the server and exposes the in-flight answer.
package client

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/chat/sse"

	"github.com/google/uuid"
)

type Message struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is a consistent copy of the conversation state.
type Snapshot struct {
	ChatId           string
	Messages         []Message
	IsStreaming      bool
	StreamingContent string
}

// TurnResult describes one read stream. A turn without AssistantMessageId failed.
type TurnResult struct {
	ChatId             string
	UserMessageId      string
	AssistantMessageId string
	Content            string
	Ended              bool
}

func (r TurnResult) Completed() bool {
	return r.AssistantMessageId != ""
}

// Conversation is safe for concurrent use; a renderer may poll Snapshot while
// ReadStream runs.
type Conversation struct {
	mu               sync.RWMutex
	chatId           string
	messages         []Message
	streaming        bool
	streamingContent strings.Builder

	provisionalId string
	turn          TurnResult
	logger        logger.ILogger
}

func NewConversation(logger logger.ILogger) *Conversation {
	return &Conversation{logger: logger}
}

func (c *Conversation) ChatId() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatId
}

// Load replaces the local state with a chat fetched from the server.
func (c *Conversation) Load(chatId string, messages []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatId = chatId
	c.messages = append([]Message(nil), messages...)
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		ChatId:           c.chatId,
		Messages:         append([]Message(nil), c.messages...),
		IsStreaming:      c.streaming,
		StreamingContent: c.streamingContent.String(),
	}
}

// Begin renders the user message right away under a provisional id and marks
// the conversation as streaming.
func (c *Conversation) Begin(content string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.provisionalId = "local-" + uuid.NewString()
	c.messages = append(c.messages, Message{
		Id:        c.provisionalId,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	})
	c.streaming = true
	c.streamingContent.Reset()
	c.turn = TurnResult{}
	return c.provisionalId
}

// Apply folds one frame into the state.
func (c *Conversation) Apply(f sse.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := f.(type) {
	case sse.UserPersisted:
		c.chatId = v.ChatId.String()
		c.turn.ChatId = c.chatId
		c.turn.UserMessageId = v.UserMessageId.String()
		for i := range c.messages {
			if c.messages[i].Id == c.provisionalId {
				c.messages[i].Id = c.turn.UserMessageId
				break
			}
		}
	case sse.ContentFragment:
		c.streamingContent.WriteString(v.Content)
	case sse.AssistantPersisted:
		c.turn.AssistantMessageId = v.AssistantMessageId.String()
	case sse.End:
		c.turn.Ended = true
		c.endLocked()
	}
}

// Abort ends the turn after a transport error. It is a no-op once End was applied.
func (c *Conversation) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streaming {
		c.endLocked()
	}
}

// endLocked appends the answer, if any, and clears the streaming state.
func (c *Conversation) endLocked() {
	content := c.streamingContent.String()
	c.turn.Content = content
	if content != "" {
		id := c.turn.AssistantMessageId
		if id == "" {
			id = "local-" + uuid.NewString()
		}
		c.messages = append(c.messages, Message{
			Id:        id,
			Role:      "assistant",
			Content:   content,
			CreatedAt: time.Now(),
		})
	}
	c.streamingContent.Reset()
	c.streaming = false
	c.provisionalId = ""
}

// ReadStream applies frames from r until End or EOF. Malformed frames are
// logged and skipped. onFragment, when set, sees each content fragment.
func (c *Conversation) ReadStream(r io.Reader, onFragment func(string)) (TurnResult, error) {
	d := sse.NewDecoder(r)
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, sse.ErrMalformedFrame) {
			c.logger.Warn("CLIENT", "Skipping malformed frame", map[string]interface{}{"error": err})
			continue
		}
		if err != nil {
			c.Abort()
			return c.result(), err
		}

		c.Apply(f)
		if cf, ok := f.(sse.ContentFragment); ok && onFragment != nil {
			onFragment(cf.Content)
		}
		if _, ok := f.(sse.End); ok {
			break
		}
	}

	c.Abort()
	return c.result(), nil
}

func (c *Conversation) result() TurnResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn
}

// LastExchange returns the last assistant message and the user message before it.
func (c *Conversation) LastExchange() (user, assistant Message, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ai := -1
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == "assistant" {
			ai = i
			break
		}
	}
	if ai < 0 {
		return Message{}, Message{}, false
	}
	for i := ai - 1; i >= 0; i-- {
		if c.messages[i].Role == "user" {
			return c.messages[i], c.messages[ai], true
		}
	}
	return Message{}, Message{}, false
}

// Remove drops messages by id.
func (c *Conversation) Remove(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := c.messages[:0]
	for _, m := range c.messages {
		if _, ok := drop[m.Id]; !ok {
			kept = append(kept, m)
		}
	}
	c.messages = kept
}
