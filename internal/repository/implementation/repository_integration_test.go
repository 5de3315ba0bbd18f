package implementation_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Chat{}, &model.Message{}))

	return unitofwork.NewRepositoryFactory(db)
}

func TestGormRepositories_ChatLifecycle(t *testing.T) {
	ctx := context.Background()
	factory := setupFactory(t)
	uow := factory.NewUnitOfWork(ctx)

	sessionId := "it-" + uuid.NewString()
	user, err := uow.UserRepository().Upsert(ctx, sessionId, &entity.User{
		PreferredModel:      "mistral-small-latest",
		MessageHistoryLimit: 20,
	})
	require.NoError(t, err)

	again, err := uow.UserRepository().Upsert(ctx, sessionId, &entity.User{MessageHistoryLimit: 10})
	require.NoError(t, err)
	assert.Equal(t, user.Id, again.Id)
	assert.Equal(t, 20, again.MessageHistoryLimit)

	t.Cleanup(func() {
		_ = uow.MessageRepository().DeleteAllByUserId(ctx, user.Id)
		_ = uow.ChatRepository().DeleteAllByUserId(ctx, user.Id)
	})

	chat := &entity.Chat{UserId: user.Id}
	require.NoError(t, uow.ChatRepository().Create(ctx, chat))

	base := time.Now().Add(-time.Minute)
	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		m := &entity.Message{ChatId: chat.Id, Role: "user", Content: "m", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, uow.MessageRepository().Create(ctx, m))
		ids = append(ids, m.Id)
	}

	t.Run("recent newest first", func(t *testing.T) {
		recent, err := uow.MessageRepository().FindRecentByChatId(ctx, chat.Id, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, ids[5], recent[0].Id)
	})

	t.Run("summarize guard", func(t *testing.T) {
		tx := factory.NewUnitOfWork(ctx)
		require.NoError(t, tx.Begin(ctx))
		defer tx.Rollback()

		require.NoError(t, tx.ChatRepository().UpdateSummary(ctx, chat.Id, "summary"))
		n, err := tx.MessageRepository().MarkSummarized(ctx, ids[:3])
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		require.NoError(t, tx.Commit())

		n, err = uow.MessageRepository().MarkSummarized(ctx, ids[:3])
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		count, err := uow.MessageRepository().CountUnsummarized(ctx, chat.Id)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})

	t.Run("ownership", func(t *testing.T) {
		found, err := uow.ChatRepository().FindOwned(ctx, chat.Id, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
