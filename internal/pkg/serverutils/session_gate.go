package serverutils

import (
	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/metrics"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

const userLocalKey = "user"

// SessionGate resolves X-Session-Id to a user. Checks run in order: header
// present, rate limit per (session, path), user exists. The gate never
// creates users.
func SessionGate(uowFactory unitofwork.RepositoryFactory, limiter *ratelimit.Limiter, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		sessionId := ctx.Get(constant.SessionHeader)
		if sessionId == "" {
			metrics.RecordGateRejection("missing_session")
			return NewValidationError("Session ID is required")
		}

		allowed, err := limiter.Allow(ctx.UserContext(), sessionId, ctx.Path())
		if err != nil {
			// Store outage: let the request through rather than lock everyone out.
			log.Warn("GATE", "Rate limit store unavailable", map[string]interface{}{"error": err})
			allowed = true
		}
		if !allowed {
			metrics.RecordGateRejection("rate_limited")
			return NewRateLimitError("Too many requests")
		}

		user, err := uowFactory.NewUnitOfWork(ctx.UserContext()).UserRepository().FindBySessionId(ctx.UserContext(), sessionId)
		if err != nil {
			return NewPersistenceError(err)
		}
		if user == nil {
			metrics.RecordGateRejection("unknown_session")
			return NewNotFoundError("User not found")
		}

		ctx.Locals(userLocalKey, user)
		return ctx.Next()
	}
}

// CurrentUser returns the user resolved by SessionGate.
func CurrentUser(ctx *fiber.Ctx) *entity.User {
	user, _ := ctx.Locals(userLocalKey).(*entity.User)
	return user
}
