package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id           uuid.UUID
	ChatId       uuid.UUID
	Role         string
	Content      string
	IsSummarized bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
