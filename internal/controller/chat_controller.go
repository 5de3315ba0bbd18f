package controller

import (
	"bufio"
	"context"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/chat/sse"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, gate fiber.Handler)
	SendMessage(ctx *fiber.Ctx) error
	GetAllChats(ctx *fiber.Ctx) error
	GetChat(ctx *fiber.Ctx) error
	RenameChat(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
	DeleteAllChats(ctx *fiber.Ctx) error
	UpdateMessage(ctx *fiber.Ctx) error
	DeleteMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

// RegisterRoutes attaches gate per route so it runs exactly once per request.
func (c *chatController) RegisterRoutes(r fiber.Router, gate fiber.Handler) {
	r.Get("/chats", gate, c.GetAllChats)

	r.Post("/chat", gate, c.SendMessage)
	r.Patch("/chat", gate, c.RenameChat)
	r.Delete("/chat", gate, c.DeleteChat)
	r.Delete("/chat/delete-all", gate, c.DeleteAllChats)
	r.Put("/chat/message", gate, c.UpdateMessage)
	r.Delete("/chat/message", gate, c.DeleteMessage)
	r.Get("/chat/:chatId", gate, c.GetChat)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, err := c.service.PrepareTurn(ctx.UserContext(), user, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, sse.ContentType)
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")
	ctx.Status(fiber.StatusOK)

	// The stream outlives this handler; it must not touch ctx. fasthttp gives
	// the body writer no close signal, so the responder detects a departed
	// client by pinging the connection.
	streamCtx := context.WithoutCancel(ctx.UserContext())
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		c.service.StreamTurn(streamCtx, sse.NewWriter(w), turn)
	})
	return nil
}

func (c *chatController) GetAllChats(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	res, err := c.service.GetAllChats(ctx.UserContext(), user.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chats", res))
}

func (c *chatController) GetChat(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	chatId, err := uuid.Parse(ctx.Params("chatId"))
	if err != nil {
		return serverutils.NewNotFoundError("Chat not found")
	}

	res, err := c.service.GetChat(ctx.UserContext(), user.Id, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat", res))
}

func (c *chatController) RenameChat(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.RenameChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.RenameChat(ctx.UserContext(), user.Id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat renamed", nil))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.DeleteChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.DeleteChat(ctx.UserContext(), user.Id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat deleted", nil))
}

func (c *chatController) DeleteAllChats(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	if err := c.service.DeleteAllChats(ctx.UserContext(), user.Id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("All chats deleted", nil))
}

func (c *chatController) UpdateMessage(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.UpdateMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.UpdateMessage(ctx.UserContext(), user.Id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Message updated", nil))
}

func (c *chatController) DeleteMessage(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.DeleteMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.DeleteMessage(ctx.UserContext(), user.Id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Message deleted", nil))
}
