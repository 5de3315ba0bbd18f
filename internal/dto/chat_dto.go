package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	Message string `json:"message" validate:"notblank"`
	// ChatId that is empty, malformed or not owned by the caller starts a new chat.
	ChatId string `json:"chatId,omitempty"`
	Model  string `json:"model,omitempty"`
}

type ChatResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      *string   `json:"title"`
	Summary    *string   `json:"summary,omitempty"`
	UsePersona bool      `json:"usePersona"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type GetAllChatsResponse struct {
	Chats []ChatResponse `json:"chats"`
}

type MessageResponse struct {
	Id           uuid.UUID `json:"id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	IsSummarized bool      `json:"isSummarized"`
	CreatedAt    time.Time `json:"createdAt"`
}

type GetChatResponse struct {
	Chat     ChatResponse      `json:"chat"`
	Messages []MessageResponse `json:"messages"`
}

type RenameChatRequest struct {
	ChatId string `json:"chatId" validate:"required,uuid"`
	Title  string `json:"title" validate:"notblank,max=200"`
}

type DeleteChatRequest struct {
	ChatId string `json:"chatId" validate:"required,uuid"`
}

type UpdateMessageRequest struct {
	MessageId string `json:"messageId" validate:"required,uuid"`
	Content   string `json:"content" validate:"notblank"`
}

type DeleteMessageRequest struct {
	MessageId string `json:"messageId" validate:"required,uuid"`
}
