package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	Update(ctx context.Context, chat *entity.Chat) error
	UpdateSummary(ctx context.Context, chatId uuid.UUID, summary string) error
	Touch(ctx context.Context, chatId uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
	// FindOwned returns nil, nil when the chat does not exist or belongs to another user.
	FindOwned(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*entity.Chat, error)
	FindAllByUserId(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error)
}
