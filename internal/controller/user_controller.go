package controller

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router, gate fiber.Handler)
	Bootstrap(ctx *fiber.Ctx) error
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	GetAISettings(ctx *fiber.Ctx) error
	UpdateAISettings(ctx *fiber.Ctx) error
	UpdatePreferredModel(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
}

type userController struct {
	service service.IUserService
}

func NewUserController(service service.IUserService) IUserController {
	return &userController{service: service}
}

func (c *userController) RegisterRoutes(r fiber.Router, gate fiber.Handler) {
	// Bootstrap creates the user, so it cannot sit behind the gate.
	r.Post("/user", c.Bootstrap)

	r.Get("/user/profile", gate, c.GetProfile)
	r.Patch("/user/profile", gate, c.UpdateProfile)
	r.Get("/user/ai-settings", gate, c.GetAISettings)
	r.Post("/user/ai-settings", gate, c.UpdateAISettings)
	r.Patch("/user/ai-settings", gate, c.UpdatePreferredModel)
	r.Get("/user/export", gate, c.Export)
}

func (c *userController) Bootstrap(ctx *fiber.Ctx) error {
	res, err := c.service.Bootstrap(ctx.UserContext(), ctx.Get(constant.SessionHeader))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User ready", res))
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	res, err := c.service.GetProfile(ctx.UserContext(), user.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User profile", res))
}

func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateProfile(ctx.UserContext(), user.Id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}

func (c *userController) GetAISettings(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	res, err := c.service.GetAISettings(ctx.UserContext(), user.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("AI settings", res))
}

func (c *userController) UpdateAISettings(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.UpdateAISettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}

	res, err := c.service.UpdateAISettings(ctx.UserContext(), user.Id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("AI settings updated", res))
}

func (c *userController) UpdatePreferredModel(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	var req dto.UpdatePreferredModelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.UpdatePreferredModel(ctx.UserContext(), user.Id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Preferred model updated", nil))
}

func (c *userController) Export(ctx *fiber.Ctx) error {
	user := serverutils.CurrentUser(ctx)

	res, err := c.service.Export(ctx.UserContext(), user.Id)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ai-bot-data-%d.json"`, time.Now().UnixMilli()))
	return ctx.Send(body)
}
