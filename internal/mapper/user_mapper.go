package mapper

import (
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:                  u.Id,
		SessionId:           u.SessionId,
		Name:                u.Name,
		PreferredModel:      u.PreferredModel,
		Persona:             u.Persona,
		UsePersona:          u.UsePersona,
		EnableSummarization: u.EnableSummarization,
		MessageHistoryLimit: u.MessageHistoryLimit,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:                  u.Id,
		SessionId:           u.SessionId,
		Name:                u.Name,
		PreferredModel:      u.PreferredModel,
		Persona:             u.Persona,
		UsePersona:          u.UsePersona,
		EnableSummarization: u.EnableSummarization,
		MessageHistoryLimit: u.MessageHistoryLimit,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
