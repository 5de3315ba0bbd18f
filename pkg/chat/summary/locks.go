package summary

import (
	"sync"

	"github.com/google/uuid"
)

// chatLocks serializes summarization per chat. Entries are dropped once no
// goroutine holds or waits on them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[uuid.UUID]*chatLock)}
}

func (c *chatLocks) lock(chatId uuid.UUID) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[chatId]
	if !ok {
		l = &chatLock{}
		c.locks[chatId] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatId)
		}
		c.mu.Unlock()
	}
}
