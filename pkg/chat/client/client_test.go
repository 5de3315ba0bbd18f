package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/chat/sse"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendStreamsIntoConversation(t *testing.T) {
	chatId, userId, assistantId := uuid.New(), uuid.New(), uuid.New()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "s1", r.Header.Get(constant.SessionHeader))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", sse.ContentType)
		for _, f := range []sse.Frame{
			sse.UserPersisted{ChatId: chatId, UserMessageId: userId},
			sse.ContentFragment{Content: "Hi there"},
			sse.AssistantPersisted{AssistantMessageId: assistantId},
			sse.End{},
		} {
			raw, _ := sse.Encode(f)
			_, _ = w.Write(raw)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s1")
	conv := NewConversation(logger.NewNopLogger())

	res, err := c.Send(context.Background(), conv, "Hello", "", nil)
	require.NoError(t, err)
	assert.True(t, res.Completed())
	assert.Equal(t, "Hello", got["message"])
	assert.Equal(t, chatId.String(), conv.ChatId())

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, userId.String(), snap.Messages[0].Id)
	assert.Equal(t, assistantId.String(), snap.Messages[1].Id)
}

func TestClient_SendRejectedDropsProvisionalMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"code":404,"message":"User not found","error":"User not found"}`))
	}))
	defer srv.Close()

	conv := NewConversation(logger.NewNopLogger())
	_, err := NewClient(srv.URL, "s1").Send(context.Background(), conv, "Hello", "", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "User not found", apiErr.Message)

	snap := conv.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.IsStreaming)
}

func TestClient_RetriesOnceOnTooManyRequests(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":"Too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Message deleted"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s1")
	c.RetryAfter = 10 * time.Millisecond

	require.NoError(t, c.DeleteMessage(context.Background(), uuid.NewString()))
	assert.Equal(t, 2, calls)
}

func TestClient_Regenerate(t *testing.T) {
	chatId, userId, assistantId := uuid.New(), uuid.New(), uuid.New()
	oldUser, oldAssistant := uuid.NewString(), uuid.NewString()

	var mu sync.Mutex
	var deleted []string
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/chat/message":
			mu.Lock()
			deleted = append(deleted, body["messageId"])
			mu.Unlock()
			_, _ = w.Write([]byte(`{"success":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
			sent = body["message"]
			assert.Equal(t, chatId.String(), body["chatId"])
			for _, f := range []sse.Frame{
				sse.UserPersisted{ChatId: chatId, UserMessageId: userId},
				sse.ContentFragment{Content: "again"},
				sse.AssistantPersisted{AssistantMessageId: assistantId},
				sse.End{},
			} {
				raw, _ := sse.Encode(f)
				_, _ = w.Write(raw)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conv := NewConversation(logger.NewNopLogger())
	conv.Load(chatId.String(), []Message{
		{Id: oldUser, Role: "user", Content: "question"},
		{Id: oldAssistant, Role: "assistant", Content: "answer"},
	})

	res, err := NewClient(srv.URL, "s1").Regenerate(context.Background(), conv, "", nil)
	require.NoError(t, err)
	assert.True(t, res.Completed())

	assert.Equal(t, []string{oldAssistant, oldUser}, deleted)
	assert.Equal(t, "question", sent)

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, userId.String(), snap.Messages[0].Id)
	assert.Equal(t, "again", snap.Messages[1].Content)
}
