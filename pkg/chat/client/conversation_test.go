package client

import (
	"strings"
	"testing"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/chat/sse"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeAll(t *testing.T, frames ...sse.Frame) string {
	t.Helper()
	var b strings.Builder
	for _, f := range frames {
		raw, err := sse.Encode(f)
		require.NoError(t, err)
		b.Write(raw)
	}
	return b.String()
}

func TestConversation_ReconcilesIdsInPlace(t *testing.T) {
	conv := NewConversation(logger.NewNopLogger())
	conv.Load("", []Message{{Id: "m0", Role: "assistant", Content: "earlier"}})

	provisional := conv.Begin("Hi")
	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, provisional, snap.Messages[1].Id)
	assert.True(t, snap.IsStreaming)

	chatId, userId, assistantId := uuid.New(), uuid.New(), uuid.New()
	conv.Apply(sse.UserPersisted{ChatId: chatId, UserMessageId: userId})

	snap = conv.Snapshot()
	assert.Equal(t, chatId.String(), snap.ChatId)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, userId.String(), snap.Messages[1].Id)
	assert.Equal(t, "Hi", snap.Messages[1].Content)

	conv.Apply(sse.ContentFragment{Content: "Hel"})
	conv.Apply(sse.ContentFragment{Content: "lo"})
	assert.Equal(t, "Hello", conv.Snapshot().StreamingContent)

	conv.Apply(sse.AssistantPersisted{AssistantMessageId: assistantId})
	conv.Apply(sse.End{})

	snap = conv.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Empty(t, snap.StreamingContent)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, assistantId.String(), snap.Messages[2].Id)
	assert.Equal(t, "assistant", snap.Messages[2].Role)
	assert.Equal(t, "Hello", snap.Messages[2].Content)
}

func TestConversation_ReadStream(t *testing.T) {
	chatId, userId, assistantId := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name          string
		body          string
		wantCompleted bool
		wantEnded     bool
		wantMessages  int
		wantFragments []string
	}{
		{
			name: "full turn",
			body: encodeAll(t,
				sse.UserPersisted{ChatId: chatId, UserMessageId: userId},
				sse.ContentFragment{Content: "Hello, "},
				sse.ContentFragment{Content: "world"},
				sse.AssistantPersisted{AssistantMessageId: assistantId},
				sse.End{},
			),
			wantCompleted: true,
			wantEnded:     true,
			wantMessages:  2,
			wantFragments: []string{"Hello, ", "world"},
		},
		{
			name: "malformed frames are skipped",
			body: encodeAll(t, sse.UserPersisted{ChatId: chatId, UserMessageId: userId}) +
				"data: {not json\n\n" +
				"garbage line\n\n" +
				encodeAll(t,
					sse.ContentFragment{Content: "ok"},
					sse.AssistantPersisted{AssistantMessageId: assistantId},
					sse.End{},
				),
			wantCompleted: true,
			wantEnded:     true,
			wantMessages:  2,
			wantFragments: []string{"ok"},
		},
		{
			name: "mid-stream failure keeps partial text",
			body: encodeAll(t,
				sse.UserPersisted{ChatId: chatId, UserMessageId: userId},
				sse.ContentFragment{Content: "Hello, "},
				sse.End{},
			),
			wantEnded:     true,
			wantMessages:  2,
			wantFragments: []string{"Hello, "},
		},
		{
			name: "eof without end",
			body: encodeAll(t,
				sse.UserPersisted{ChatId: chatId, UserMessageId: userId},
			),
			wantMessages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConversation(logger.NewNopLogger())
			conv.Begin("Hi")

			var fragments []string
			res, err := conv.ReadStream(strings.NewReader(tt.body), func(s string) {
				fragments = append(fragments, s)
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCompleted, res.Completed())
			assert.Equal(t, tt.wantEnded, res.Ended)
			assert.Equal(t, userId.String(), res.UserMessageId)
			assert.Equal(t, tt.wantFragments, fragments)

			snap := conv.Snapshot()
			assert.False(t, snap.IsStreaming)
			assert.Empty(t, snap.StreamingContent)
			assert.Len(t, snap.Messages, tt.wantMessages)
			assert.Equal(t, userId.String(), snap.Messages[0].Id)
		})
	}
}

func TestConversation_LastExchangeAndRemove(t *testing.T) {
	conv := NewConversation(logger.NewNopLogger())

	_, _, ok := conv.LastExchange()
	assert.False(t, ok)

	conv.Load("c1", []Message{
		{Id: "u1", Role: "user", Content: "first"},
		{Id: "a1", Role: "assistant", Content: "one"},
		{Id: "u2", Role: "user", Content: "second"},
		{Id: "a2", Role: "assistant", Content: "two"},
	})

	user, assistant, ok := conv.LastExchange()
	require.True(t, ok)
	assert.Equal(t, "u2", user.Id)
	assert.Equal(t, "a2", assistant.Id)

	conv.Remove("u2", "a2")
	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "a1", snap.Messages[1].Id)
}
