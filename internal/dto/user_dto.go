package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	Id                  uuid.UUID `json:"id"`
	SessionId           string    `json:"sessionId"`
	Name                *string   `json:"name"`
	PreferredModel      string    `json:"preferredModel"`
	Persona             *string   `json:"persona"`
	UsePersona          bool      `json:"usePersona"`
	EnableSummarization bool      `json:"enableSummarization"`
	MessageHistoryLimit int       `json:"messageHistoryLimit"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// UpdateProfileRequest leaves nil fields untouched. An empty persona clears it.
type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Persona    *string `json:"persona" validate:"omitempty,max=4000"`
	UsePersona *bool   `json:"usePersona"`
}

type AISettingsResponse struct {
	EnableSummarization bool   `json:"enableSummarization"`
	MessageHistoryLimit int    `json:"messageHistoryLimit"`
	PreferredModel      string `json:"preferredModel"`
}

// UpdateAISettingsRequest leaves nil fields untouched; the history limit is
// clamped to the supported range rather than rejected.
type UpdateAISettingsRequest struct {
	EnableSummarization *bool `json:"enableSummarization"`
	MessageHistoryLimit *int  `json:"messageHistoryLimit"`
}

type UpdatePreferredModelRequest struct {
	PreferredModel string `json:"preferredModel" validate:"notblank,max=100"`
}

type ExportMessage struct {
	Id           uuid.UUID `json:"id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	IsSummarized bool      `json:"isSummarized"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ExportChat struct {
	Id         uuid.UUID       `json:"id"`
	Title      *string         `json:"title"`
	Summary    *string         `json:"summary"`
	UsePersona bool            `json:"usePersona"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Messages   []ExportMessage `json:"messages"`
}

type ExportResponse struct {
	UserResponse
	Chats []ExportChat `json:"chats"`
}
