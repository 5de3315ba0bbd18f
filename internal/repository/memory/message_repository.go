package memory

import (
	"context"
	"sort"
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

type messageRepository struct {
	store *Store
	tx    *txLog
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.UpdatedAt = message.CreatedAt

	stored := *message
	return r.store.write(r.tx, func(s *Store) error {
		s.messages[stored.Id] = &stored
		return nil
	})
}

func (r *messageRepository) Update(ctx context.Context, message *entity.Message) error {
	message.UpdatedAt = time.Now()
	stored := *message
	return r.store.write(r.tx, func(s *Store) error {
		s.messages[stored.Id] = &stored
		return nil
	})
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.write(r.tx, func(s *Store) error {
		delete(s.messages, id)
		return nil
	})
}

func (r *messageRepository) DeleteByChatId(ctx context.Context, chatId uuid.UUID) error {
	return r.store.write(r.tx, func(s *Store) error {
		for id, m := range s.messages {
			if m.ChatId == chatId {
				delete(s.messages, id)
			}
		}
		return nil
	})
}

func (r *messageRepository) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.store.write(r.tx, func(s *Store) error {
		for id, m := range s.messages {
			if c, ok := s.chats[m.ChatId]; ok && c.UserId == userId {
				delete(s.messages, id)
			}
		}
		return nil
	})
}

func (r *messageRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *messageRepository) FindAllByChatId(ctx context.Context, chatId uuid.UUID) ([]*entity.Message, error) {
	return r.filterSorted(chatId, false, false), nil
}

func (r *messageRepository) FindRecentByChatId(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error) {
	return truncate(r.filterSorted(chatId, false, true), limit), nil
}

func (r *messageRepository) CountUnsummarized(ctx context.Context, chatId uuid.UUID) (int64, error) {
	return int64(len(r.filterSorted(chatId, true, false))), nil
}

func (r *messageRepository) FindOldestUnsummarized(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error) {
	return truncate(r.filterSorted(chatId, true, false), limit), nil
}

func (r *messageRepository) MarkSummarized(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.store.mu.RLock()
	var affected int64
	for _, id := range ids {
		if m, ok := r.store.messages[id]; ok && !m.IsSummarized {
			affected++
		}
	}
	r.store.mu.RUnlock()

	err := r.store.write(r.tx, func(s *Store) error {
		for _, id := range ids {
			m, ok := s.messages[id]
			if !ok {
				continue
			}
			if m.IsSummarized {
				return ErrSummarizeConflict
			}
			cp := *m
			cp.IsSummarized = true
			s.messages[id] = &cp
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *messageRepository) filterSorted(chatId uuid.UUID, unsummarizedOnly bool, desc bool) []*entity.Message {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Message
	for _, m := range r.store.messages {
		if m.ChatId != chatId {
			continue
		}
		if unsummarizedOnly && m.IsSummarized {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func truncate(messages []*entity.Message, limit int) []*entity.Message {
	if limit >= 0 && len(messages) > limit {
		return messages[:limit]
	}
	return messages
}
