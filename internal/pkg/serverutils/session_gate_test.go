package serverutils

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateApp(t *testing.T) *fiber.App {
	t.Helper()
	factory := memory.NewRepositoryFactory(memory.NewStore())
	_, err := factory.NewUnitOfWork(context.Background()).UserRepository().
		Upsert(context.Background(), "known", &entity.User{MessageHistoryLimit: 20})
	require.NoError(t, err)

	log := logger.NewNopLogger()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(time.Minute), time.Second)

	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(log))
	gated := app.Group("/api", SessionGate(factory, limiter, log))
	gated.Get("/a", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", CurrentUser(ctx).SessionId))
	})
	gated.Get("/b", func(ctx *fiber.Ctx) error {
		return ctx.SendString("b")
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, session string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if session != "" {
		req.Header.Set("X-Session-Id", session)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(body, &out)
	return resp.StatusCode, out
}

func TestSessionGate(t *testing.T) {
	tests := []struct {
		name      string
		session   string
		wantCode  int
		wantError string
	}{
		{name: "missing header", session: "", wantCode: 400, wantError: "Session ID is required"},
		{name: "unknown session", session: "stranger", wantCode: 404, wantError: "User not found"},
		{name: "known session", session: "known", wantCode: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newGateApp(t)
			code, body := call(t, app, "/api/a", tt.session)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.Equal(t, "known", body["data"])
			}
		})
	}
}

func TestSessionGate_RateLimitPerRoute(t *testing.T) {
	app := newGateApp(t)

	code, _ := call(t, app, "/api/a", "known")
	assert.Equal(t, 200, code)

	code, body := call(t, app, "/api/a", "known")
	assert.Equal(t, 429, code)
	assert.Equal(t, "Too many requests", body["error"])

	// Another route has its own window.
	code, _ = call(t, app, "/api/b", "known")
	assert.Equal(t, 200, code)
}

func TestSessionGate_RateLimitAppliesBeforeLookup(t *testing.T) {
	app := newGateApp(t)

	code, _ := call(t, app, "/api/a", "stranger")
	assert.Equal(t, 404, code)

	code, _ = call(t, app, "/api/a", "stranger")
	assert.Equal(t, 429, code)
}
