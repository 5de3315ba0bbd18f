package memory

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
	tx    *txLog
}

func (r *userRepository) Upsert(ctx context.Context, sessionId string, defaults *entity.User) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.SessionId == sessionId {
			cp := *u
			return &cp, nil
		}
	}

	u := *defaults
	u.SessionId = sessionId
	if u.Id == uuid.Nil {
		u.Id = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.store.users[u.Id] = &u

	cp := u
	return &cp, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now()
	stored := *user
	return r.store.write(r.tx, func(s *Store) error {
		s.users[stored.Id] = &stored
		return nil
	})
}

func (r *userRepository) FindBySessionId(ctx context.Context, sessionId string) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.SessionId == sessionId {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *userRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
