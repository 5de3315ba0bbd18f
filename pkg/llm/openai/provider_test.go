package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Model     string `json:"model"`
	Stream    bool   `json:"stream"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAIProvider_Stream(t *testing.T) {
	var seen seenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", srv.URL, "mistral-small-latest")
	s, err := p.Stream(context.Background(), []llm.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "Hi"},
	}, llm.WithModel("mistral-large-latest"))
	require.NoError(t, err)
	defer s.Close()

	var got string
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got += frag
	}

	assert.Equal(t, "Hello", got)
	assert.True(t, seen.Stream)
	assert.Equal(t, "mistral-large-latest", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
}

func TestOpenAIProvider_Chat(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "reply",
			body: `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Summary."}}]}`,
			want: "Summary.",
		},
		{
			name:    "no choices",
			body:    `{"id":"1","object":"chat.completion","choices":[]}`,
			wantErr: llm.ErrEmptyCompletion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen seenRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			reply, err := NewOpenAIProvider("key", srv.URL, "m").Chat(context.Background(),
				[]llm.Message{{Role: "user", Content: "x"}}, llm.WithMaxTokens(128))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, 128, seen.MaxTokens)
			assert.False(t, seen.Stream)
		})
	}
}

func TestOpenAIProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("key", srv.URL, "m").Stream(context.Background(), []llm.Message{{Role: "user", Content: "x"}})
	assert.Error(t, err)
}
