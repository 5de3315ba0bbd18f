package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

// Unsummarized keeps messages not yet folded into the chat summary.
type Unsummarized struct{}

func (s Unsummarized) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_summarized = ?", false)
}

// ChatOwnedBy filters messages to chats owned by the user.
type ChatOwnedBy struct {
	UserID uuid.UUID
}

func (s ChatOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	subQuery := db.Session(&gorm.Session{NewDB: true}).Table("chats").Select("id").Where("user_id = ?", s.UserID)
	return db.Where("chat_id IN (?)", subQuery)
}
