package contract

import (
	"context"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	Update(ctx context.Context, message *entity.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByChatId(ctx context.Context, chatId uuid.UUID) error
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Message, error)
	FindAllByChatId(ctx context.Context, chatId uuid.UUID) ([]*entity.Message, error)

	// FindRecentByChatId returns up to limit messages, newest first.
	FindRecentByChatId(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error)
	CountUnsummarized(ctx context.Context, chatId uuid.UUID) (int64, error)
	// FindOldestUnsummarized returns up to limit unsummarized messages, oldest first.
	FindOldestUnsummarized(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error)
	// MarkSummarized flips is_summarized for the given ids that are still unsummarized
	// and reports how many rows changed.
	MarkSummarized(ctx context.Context, ids []uuid.UUID) (int64, error)
}
