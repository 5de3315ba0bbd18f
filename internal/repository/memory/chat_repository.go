package memory

import (
	"context"
	"sort"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type chatRepository struct {
	store *Store
	tx    *txLog
}

func (r *chatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.Id == uuid.Nil {
		chat.Id = uuid.New()
	}
	now := time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now

	stored := *chat
	return r.store.write(r.tx, func(s *Store) error {
		s.chats[stored.Id] = &stored
		return nil
	})
}

func (r *chatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()
	stored := *chat
	return r.store.write(r.tx, func(s *Store) error {
		s.chats[stored.Id] = &stored
		return nil
	})
}

func (r *chatRepository) UpdateSummary(ctx context.Context, chatId uuid.UUID, summary string) error {
	return r.store.write(r.tx, func(s *Store) error {
		c, ok := s.chats[chatId]
		if !ok {
			return nil
		}
		cp := *c
		cp.Summary = &summary
		cp.UpdatedAt = time.Now()
		s.chats[chatId] = &cp
		return nil
	})
}

func (r *chatRepository) Touch(ctx context.Context, chatId uuid.UUID, at time.Time) error {
	return r.store.write(r.tx, func(s *Store) error {
		c, ok := s.chats[chatId]
		if !ok {
			return nil
		}
		cp := *c
		cp.UpdatedAt = at
		s.chats[chatId] = &cp
		return nil
	})
}

func (r *chatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.write(r.tx, func(s *Store) error {
		delete(s.chats, id)
		return nil
	})
}

func (r *chatRepository) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.store.write(r.tx, func(s *Store) error {
		for id, c := range s.chats {
			if c.UserId == userId {
				delete(s.chats, id)
			}
		}
		return nil
	})
}

func (r *chatRepository) FindOwned(ctx context.Context, id uuid.UUID, userId uuid.UUID) (*entity.Chat, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.chats[id]
	if !ok || c.UserId != userId {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *chatRepository) FindAllByUserId(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var chats []*entity.Chat
	for _, c := range r.store.chats {
		if c.UserId == userId {
			cp := *c
			chats = append(chats, &cp)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}
