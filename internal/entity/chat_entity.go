package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	Title      *string
	Summary    *string
	UsePersona bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Chat) SummaryText() string {
	if c.Summary == nil {
		return ""
	}
	return *c.Summary
}
