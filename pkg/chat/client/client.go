package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client talks to the chat API on behalf of one session.
type Client struct {
	baseURL   string
	sessionId string
	http      *http.Client

	// RetryAfter is how long to wait before the single retry of a 429.
	RetryAfter time.Duration
}

func NewClient(baseURL, sessionId string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionId: sessionId,
		// No overall timeout: a chat stream lasts as long as the answer.
		http:       &http.Client{},
		RetryAfter: time.Second,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(constant.SessionHeader, c.sessionId)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs the request, retrying once after RetryAfter on 429.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt > 0 {
			return resp, nil
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.RetryAfter):
		}
	}
}

func readError(resp *http.Response) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error == "" {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return &APIError{Status: resp.StatusCode, Message: env.Error}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// Bootstrap creates the session's user if needed.
func (c *Client) Bootstrap(ctx context.Context) (*dto.UserResponse, error) {
	var user dto.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListChats(ctx context.Context) ([]dto.ChatResponse, error) {
	var res dto.GetAllChatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &res); err != nil {
		return nil, err
	}
	return res.Chats, nil
}

func (c *Client) GetChat(ctx context.Context, chatId string) (*dto.GetChatResponse, error) {
	var res dto.GetChatResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+chatId, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LoadInto fetches a chat and replaces conv's local state with it.
func (c *Client) LoadInto(ctx context.Context, conv *Conversation, chatId string) error {
	res, err := c.GetChat(ctx, chatId)
	if err != nil {
		return err
	}
	messages := make([]Message, 0, len(res.Messages))
	for _, m := range res.Messages {
		messages = append(messages, Message{
			Id:        m.Id.String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	conv.Load(res.Chat.Id.String(), messages)
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageId string) error {
	return c.do(ctx, http.MethodDelete, "/api/chat/message", dto.DeleteMessageRequest{MessageId: messageId}, nil)
}

// Send posts content to conv's chat (a new chat when it has none) and reads
// the answer stream into conv.
func (c *Client) Send(ctx context.Context, conv *Conversation, content, model string, onFragment func(string)) (TurnResult, error) {
	provisionalId := conv.Begin(content)

	resp, err := c.send(ctx, http.MethodPost, "/api/chat", dto.SendMessageRequest{
		Message: content,
		ChatId:  conv.ChatId(),
		Model:   model,
	})
	if err != nil {
		conv.Abort()
		conv.Remove(provisionalId)
		return TurnResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conv.Abort()
		conv.Remove(provisionalId)
		return TurnResult{}, readError(resp)
	}

	return conv.ReadStream(resp.Body, onFragment)
}

// Regenerate deletes the last exchange on the server and locally, then sends
// the same user message again.
func (c *Client) Regenerate(ctx context.Context, conv *Conversation, model string, onFragment func(string)) (TurnResult, error) {
	user, assistant, ok := conv.LastExchange()
	if !ok {
		return TurnResult{}, fmt.Errorf("nothing to regenerate")
	}

	for _, m := range []Message{assistant, user} {
		if strings.HasPrefix(m.Id, "local-") {
			continue
		}
		if err := c.DeleteMessage(ctx, m.Id); err != nil {
			return TurnResult{}, fmt.Errorf("delete message %s: %w", m.Id, err)
		}
	}
	conv.Remove(assistant.Id, user.Id)

	return c.Send(ctx, conv, user.Content, model, onFragment)
}
