package model

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId       uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_chat_created,priority:1"`
	Role         string    `gorm:"type:varchar(20);not null"`
	Content      string    `gorm:"type:text;not null"`
	IsSummarized bool      `gorm:"not null;default:false;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_messages_chat_created,priority:2"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Message) TableName() string {
	return "messages"
}
