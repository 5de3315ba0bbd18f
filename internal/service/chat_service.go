package service

import (
	"context"
	"strings"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chat/stream"

	"github.com/google/uuid"
)

type IChatService interface {
	// PrepareTurn resolves or creates the chat and stores the user message.
	// Errors here happen before any byte of the stream is written.
	PrepareTurn(ctx context.Context, user *entity.User, request *dto.SendMessageRequest) (*stream.Turn, error)
	StreamTurn(ctx context.Context, w stream.FrameWriter, turn *stream.Turn) stream.Result

	GetAllChats(ctx context.Context, userId uuid.UUID) (*dto.GetAllChatsResponse, error)
	GetChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetChatResponse, error)
	RenameChat(ctx context.Context, userId uuid.UUID, request *dto.RenameChatRequest) error
	DeleteChat(ctx context.Context, userId uuid.UUID, request *dto.DeleteChatRequest) error
	DeleteAllChats(ctx context.Context, userId uuid.UUID) error
	UpdateMessage(ctx context.Context, userId uuid.UUID, request *dto.UpdateMessageRequest) error
	DeleteMessage(ctx context.Context, userId uuid.UUID, request *dto.DeleteMessageRequest) error
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	responder    *stream.Responder
	defaultModel string
	logger       logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	responder *stream.Responder,
	defaultModel string,
	logger logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		responder:    responder,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// ChatTitle is the first 50 characters of the message, with an ellipsis when cut.
func ChatTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= constant.ChatTitleMaxLength {
		return message
	}
	return string(runes[:constant.ChatTitleMaxLength]) + constant.ChatTitleEllipsis
}

func (s *chatService) PrepareTurn(ctx context.Context, user *entity.User, request *dto.SendMessageRequest) (*stream.Turn, error) {
	if strings.TrimSpace(request.Message) == "" {
		return nil, serverutils.NewValidationError("Message is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	var chat *entity.Chat
	if chatId, err := uuid.Parse(request.ChatId); err == nil {
		chat, err = uow.ChatRepository().FindOwned(ctx, chatId, user.Id)
		if err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if chat == nil {
		title := ChatTitle(request.Message)
		chat = &entity.Chat{
			Id:         uuid.New(),
			UserId:     user.Id,
			Title:      &title,
			UsePersona: user.UsePersona,
		}
		if err := uow.ChatRepository().Create(ctx, chat); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
	}

	userMessage, err := s.responder.PersistUserMessage(ctx, uow, chat.Id, request.Message)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	model := request.Model
	if model == "" {
		model = user.PreferredModel
	}
	if model == "" {
		model = s.defaultModel
	}

	return &stream.Turn{
		User:        user,
		Chat:        chat,
		UserMessage: userMessage,
		Model:       model,
	}, nil
}

func (s *chatService) StreamTurn(ctx context.Context, w stream.FrameWriter, turn *stream.Turn) stream.Result {
	return s.responder.Respond(ctx, w, *turn)
}

func (s *chatService) GetAllChats(ctx context.Context, userId uuid.UUID) (*dto.GetAllChatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chats, err := uow.ChatRepository().FindAllByUserId(ctx, userId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	res := &dto.GetAllChatsResponse{Chats: make([]dto.ChatResponse, 0, len(chats))}
	for _, chat := range chats {
		res.Chats = append(res.Chats, toChatResponse(chat))
	}
	return res, nil
}

func (s *chatService) GetChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, chatId, userId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.MessageRepository().FindAllByChatId(ctx, chat.Id)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	res := &dto.GetChatResponse{
		Chat:     toChatResponse(chat),
		Messages: make([]dto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.MessageResponse{
			Id:           m.Id,
			Role:         m.Role,
			Content:      m.Content,
			IsSummarized: m.IsSummarized,
			CreatedAt:    m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) RenameChat(ctx context.Context, userId uuid.UUID, request *dto.RenameChatRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, uuid.MustParse(request.ChatId), userId)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(request.Title)
	chat.Title = &title
	if err := uow.ChatRepository().Update(ctx, chat); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *chatService) DeleteChat(ctx context.Context, userId uuid.UUID, request *dto.DeleteChatRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, uuid.MustParse(request.ChatId), userId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByChatId(ctx, chat.Id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.ChatRepository().Delete(ctx, chat.Id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.Commit(); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *chatService) DeleteAllChats(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.ChatRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.Commit(); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *chatService) UpdateMessage(ctx context.Context, userId uuid.UUID, request *dto.UpdateMessageRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	message, err := s.findOwnedMessage(ctx, uow, uuid.MustParse(request.MessageId), userId)
	if err != nil {
		return err
	}

	message.Content = strings.TrimSpace(request.Content)
	if err := uow.MessageRepository().Update(ctx, message); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *chatService) DeleteMessage(ctx context.Context, userId uuid.UUID, request *dto.DeleteMessageRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	message, err := s.findOwnedMessage(ctx, uow, uuid.MustParse(request.MessageId), userId)
	if err != nil {
		return err
	}

	if err := uow.MessageRepository().Delete(ctx, message.Id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

func (s *chatService) findOwnedChat(ctx context.Context, uow unitofwork.UnitOfWork, chatId, userId uuid.UUID) (*entity.Chat, error) {
	chat, err := uow.ChatRepository().FindOwned(ctx, chatId, userId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if chat == nil {
		return nil, serverutils.NewNotFoundError("Chat not found")
	}
	return chat, nil
}

func (s *chatService) findOwnedMessage(ctx context.Context, uow unitofwork.UnitOfWork, messageId, userId uuid.UUID) (*entity.Message, error) {
	message, err := uow.MessageRepository().FindById(ctx, messageId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if message == nil {
		return nil, serverutils.NewNotFoundError("Message not found")
	}

	chat, err := uow.ChatRepository().FindOwned(ctx, message.ChatId, userId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if chat == nil {
		return nil, serverutils.NewNotFoundError("Message not found")
	}
	return message, nil
}

func toChatResponse(chat *entity.Chat) dto.ChatResponse {
	return dto.ChatResponse{
		Id:         chat.Id,
		Title:      chat.Title,
		Summary:    chat.Summary,
		UsePersona: chat.UsePersona,
		CreatedAt:  chat.CreatedAt,
		UpdatedAt:  chat.UpdatedAt,
	}
}
