package service

import (
	"context"
	"strings"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	// Bootstrap returns the user for sessionId, creating it on first contact.
	Bootstrap(ctx context.Context, sessionId string) (*dto.UserResponse, error)
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	GetAISettings(ctx context.Context, userId uuid.UUID) (*dto.AISettingsResponse, error)
	UpdateAISettings(ctx context.Context, userId uuid.UUID, req *dto.UpdateAISettingsRequest) (*dto.AISettingsResponse, error)
	UpdatePreferredModel(ctx context.Context, userId uuid.UUID, req *dto.UpdatePreferredModelRequest) error
	Export(ctx context.Context, userId uuid.UUID) (*dto.ExportResponse, error)
}

type UserDefaults struct {
	PreferredModel      string
	MessageHistoryLimit int
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	defaults   UserDefaults
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, defaults UserDefaults) IUserService {
	if defaults.PreferredModel == "" {
		defaults.PreferredModel = constant.DefaultPreferredModel
	}
	defaults.MessageHistoryLimit = constant.ClampHistoryLimit(defaults.MessageHistoryLimit)
	return &userService{
		uowFactory: uowFactory,
		defaults:   defaults,
	}
}

func (s *userService) Bootstrap(ctx context.Context, sessionId string) (*dto.UserResponse, error) {
	sessionId = strings.TrimSpace(sessionId)
	if sessionId == "" {
		return nil, serverutils.NewValidationError("Session ID is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().Upsert(ctx, sessionId, &entity.User{
		PreferredModel:      s.defaults.PreferredModel,
		EnableSummarization: true,
		MessageHistoryLimit: s.defaults.MessageHistoryLimit,
	})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return nil, err
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := s.findUser(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		user.Name = &name
	}
	if req.Persona != nil {
		if persona := strings.TrimSpace(*req.Persona); persona != "" {
			user.Persona = &persona
		} else {
			user.Persona = nil
		}
	}
	if req.UsePersona != nil {
		user.UsePersona = *req.UsePersona
	}

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) GetAISettings(ctx context.Context, userId uuid.UUID) (*dto.AISettingsResponse, error) {
	user, err := s.findUser(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return nil, err
	}
	return toAISettings(user), nil
}

func (s *userService) UpdateAISettings(ctx context.Context, userId uuid.UUID, req *dto.UpdateAISettingsRequest) (*dto.AISettingsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := s.findUser(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	if req.EnableSummarization != nil {
		user.EnableSummarization = *req.EnableSummarization
	}
	if req.MessageHistoryLimit != nil {
		user.MessageHistoryLimit = constant.ClampHistoryLimit(*req.MessageHistoryLimit)
	}

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	return toAISettings(user), nil
}

func (s *userService) UpdatePreferredModel(ctx context.Context, userId uuid.UUID, req *dto.UpdatePreferredModelRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := s.findUser(ctx, uow, userId)
	if err != nil {
		return err
	}

	user.PreferredModel = strings.TrimSpace(req.PreferredModel)
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *userService) Export(ctx context.Context, userId uuid.UUID) (*dto.ExportResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := s.findUser(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	chats, err := uow.ChatRepository().FindAllByUserId(ctx, userId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	res := &dto.ExportResponse{
		UserResponse: toUserResponse(user),
		Chats:        make([]dto.ExportChat, 0, len(chats)),
	}
	for _, chat := range chats {
		messages, err := uow.MessageRepository().FindAllByChatId(ctx, chat.Id)
		if err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}

		exported := dto.ExportChat{
			Id:         chat.Id,
			Title:      chat.Title,
			Summary:    chat.Summary,
			UsePersona: chat.UsePersona,
			CreatedAt:  chat.CreatedAt,
			UpdatedAt:  chat.UpdatedAt,
			Messages:   make([]dto.ExportMessage, 0, len(messages)),
		}
		for _, m := range messages {
			exported.Messages = append(exported.Messages, dto.ExportMessage{
				Id:           m.Id,
				Role:         m.Role,
				Content:      m.Content,
				IsSummarized: m.IsSummarized,
				CreatedAt:    m.CreatedAt,
			})
		}
		res.Chats = append(res.Chats, exported)
	}
	return res, nil
}

func (s *userService) findUser(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*entity.User, error) {
	user, err := uow.UserRepository().FindById(ctx, userId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if user == nil {
		return nil, serverutils.NewNotFoundError("User not found")
	}
	return user, nil
}

func toUserResponse(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		Id:                  user.Id,
		SessionId:           user.SessionId,
		Name:                user.Name,
		PreferredModel:      user.PreferredModel,
		Persona:             user.Persona,
		UsePersona:          user.UsePersona,
		EnableSummarization: user.EnableSummarization,
		MessageHistoryLimit: user.MessageHistoryLimit,
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
}

func toAISettings(user *entity.User) *dto.AISettingsResponse {
	return &dto.AISettingsResponse{
		EnableSummarization: user.EnableSummarization,
		MessageHistoryLimit: user.MessageHistoryLimit,
		PreferredModel:      user.PreferredModel,
	}
}
