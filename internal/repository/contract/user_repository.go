package contract

import (
	"context"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type UserRepository interface {
	// Upsert returns the user owning sessionId, creating it from defaults when absent.
	Upsert(ctx context.Context, sessionId string, defaults *entity.User) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	FindBySessionId(ctx context.Context, sessionId string) (*entity.User, error)
	FindById(ctx context.Context, id uuid.UUID) (*entity.User, error)
}
