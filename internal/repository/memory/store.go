// Package memory is an in-process storage backend implementing the repository
// contracts. It backs tests and DB_DRIVER=memory local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrSummarizeConflict = errors.New("message already summarized")

type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*entity.User
	chats    map[uuid.UUID]*entity.Chat
	messages map[uuid.UUID]*entity.Message
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*entity.User),
		chats:    make(map[uuid.UUID]*entity.Chat),
		messages: make(map[uuid.UUID]*entity.Message),
	}
}

// clone copies the maps; entities are replaced, never mutated in place, so a
// shallow copy of each map is enough.
func (s *Store) clone() *Store {
	c := NewStore()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.chats {
		c.chats[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	return c
}

// mutation is a write deferred until commit when a unit of work is in a transaction.
type mutation func(s *Store) error

// write applies m immediately, or queues it on the active transaction.
func (s *Store) write(tx *txLog, m mutation) error {
	if tx != nil && tx.active {
		tx.pending = append(tx.pending, m)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m(s)
}

type txLog struct {
	active  bool
	pending []mutation
}

// commit applies all pending writes to a copy and swaps it in only when every
// write succeeded.
func (s *Store) commit(tx *txLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.clone()
	for _, m := range tx.pending {
		if err := m(staged); err != nil {
			return err
		}
	}
	s.users, s.chats, s.messages = staged.users, staged.chats, staged.messages
	return nil
}

// Unit of work

type unitOfWork struct {
	store *Store
	tx    *txLog
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx.active {
		return fmt.Errorf("transaction already started")
	}
	u.tx.active = true
	u.tx.pending = nil
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.tx.active {
		return fmt.Errorf("no transaction to commit")
	}
	u.tx.active = false
	pending := &txLog{pending: u.tx.pending}
	u.tx.pending = nil
	return u.store.commit(pending)
}

func (u *unitOfWork) Rollback() error {
	u.tx.active = false
	u.tx.pending = nil
	return nil
}

func (u *unitOfWork) UserRepository() contract.UserRepository {
	return &userRepository{store: u.store, tx: u.tx}
}

func (u *unitOfWork) ChatRepository() contract.ChatRepository {
	return &chatRepository{store: u.store, tx: u.tx}
}

func (u *unitOfWork) MessageRepository() contract.MessageRepository {
	return &messageRepository{store: u.store, tx: u.tx}
}

// Factory

type RepositoryFactory struct {
	store *Store
}

func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactory{store: store}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.store, tx: &txLog{}}
}
