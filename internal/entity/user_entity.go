package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id                  uuid.UUID
	SessionId           string
	Name                *string
	PreferredModel      string
	Persona             *string
	UsePersona          bool
	EnableSummarization bool
	MessageHistoryLimit int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PersonaText returns the persona or "" when none is set.
func (u *User) PersonaText() string {
	if u.Persona == nil {
		return ""
	}
	return *u.Persona
}
