package history

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store *memory.Store, chatId uuid.UUID, n int) {
	t.Helper()
	ctx := context.Background()
	uow := memory.NewRepositoryFactory(store).NewUnitOfWork(ctx)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := constant.MessageRoleUser
		if i%2 == 1 {
			role = constant.MessageRoleAssistant
		}
		require.NoError(t, uow.MessageRepository().Create(ctx, &entity.Message{
			ChatId:    chatId,
			Role:      role,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestLoader_LoadContext(t *testing.T) {
	persona := "Prefers short answers."
	summary := "Earlier they discussed channels."

	tests := []struct {
		name         string
		stored       int
		limit        int
		chat         entity.Chat
		wantMessages int
		wantFirst    string
		wantPersona  bool
		wantSummary  bool
	}{
		{name: "fewer than limit", stored: 3, limit: 10, wantMessages: 3, wantFirst: "m0"},
		{name: "window is a hard cap", stored: 25, limit: 10, wantMessages: 10, wantFirst: "m15"},
		{name: "persona applied when chat flag set", stored: 2, limit: 10, chat: entity.Chat{UsePersona: true}, wantMessages: 2, wantFirst: "m0", wantPersona: true},
		{name: "summary included", stored: 2, limit: 10, chat: entity.Chat{Summary: &summary}, wantMessages: 2, wantFirst: "m0", wantSummary: true},
		{name: "zero limit falls back to default", stored: 25, limit: 0, wantMessages: constant.MessageHistoryLimitDefault, wantFirst: "m5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			chat := tt.chat
			chat.Id = uuid.New()
			seed(t, store, chat.Id, tt.stored)
			user := &entity.User{Persona: &persona, MessageHistoryLimit: tt.limit}

			got, err := NewLoader(memory.NewRepositoryFactory(store)).LoadContext(context.Background(), &chat, user)
			require.NoError(t, err)

			require.Len(t, got, tt.wantMessages+1)
			assert.Equal(t, constant.MessageRoleSystem, got[0].Role)
			assert.Equal(t, tt.wantFirst, got[1].Content)
			assert.Equal(t, fmt.Sprintf("m%d", tt.stored-1), got[len(got)-1].Content)
			assert.Equal(t, tt.wantPersona, strings.Contains(got[0].Content, persona))
			assert.Equal(t, tt.wantSummary, strings.Contains(got[0].Content, summary))
			for _, m := range got[1:] {
				assert.NotEqual(t, constant.MessageRoleSystem, m.Role)
			}
		})
	}
}

func TestLoader_PersonaIgnoredWhenChatFlagOff(t *testing.T) {
	persona := "Secret persona"
	store := memory.NewStore()
	chat := &entity.Chat{Id: uuid.New(), UsePersona: false}
	user := &entity.User{Persona: &persona, UsePersona: true, MessageHistoryLimit: 10}

	got, err := NewLoader(memory.NewRepositoryFactory(store)).LoadContext(context.Background(), chat, user)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, strings.Contains(got[0].Content, persona))
}
