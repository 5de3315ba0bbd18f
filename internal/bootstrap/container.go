package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/chat/history"
	"ai-chat-be/pkg/chat/stream"
	"ai-chat-be/pkg/chat/summary"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/factory"
	"ai-chat-be/pkg/ratelimit"

	pktNats "ai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	ChatController controller.IChatController
	UserController controller.IUserController

	// SessionGate guards every route except user bootstrap.
	SessionGate fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func()
}

// Options lets callers (tests, the CLI) swap infrastructure pieces.
type Options struct {
	// DB selects the GORM backend; nil uses the in-memory store.
	DB *gorm.DB
	// Provider overrides the configured model backend.
	Provider llm.LLMProvider
	Logger   logger.ILogger
}

func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	// 1. Core Facades
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}

	var uowFactory unitofwork.RepositoryFactory
	if opts.DB != nil {
		uowFactory = unitofwork.NewRepositoryFactory(opts.DB)
	} else {
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
		sysLogger.Warn("BOOTSTRAP", "Using in-memory storage; data is lost on restart", nil)
	}

	c := &Container{Logger: sysLogger}

	// 2. Model backend
	provider := opts.Provider
	if provider == nil {
		p, err := factory.NewLLMProvider(factory.ProviderConfig{
			ProviderType: cfg.Ai.LLMProvider,
			ModelName:    cfg.Ai.LLMModel,
			BaseURL:      cfg.Ai.LLMBaseURL,
			APIKey:       cfg.Ai.LLMAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		provider = p
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.Ai.RequestsPerSec, 1)
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Infrastructure
	limiter, err := c.newLimiter(cfg)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(context.Background(), cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, domain events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 4. Summarization
	summarizer := summary.NewSummarizer(uowFactory, provider, publisher, sysLogger, cfg.Ai.SummaryMaxTokens, cfg.Ai.SummaryTimeout)

	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var trigger summary.Trigger
	if cfg.Chat.SummarizationMode == "async" {
		trigger = summary.NewQueueTrigger(pubSub, cfg.Chat.SummarizationTopic, sysLogger)
	} else {
		trigger = summary.NewSyncTrigger(summarizer, sysLogger)
	}
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Chat.SummarizationTopic, summarizer, sysLogger)

	// 5. Services
	loader := history.NewLoader(uowFactory)
	responder := stream.NewResponder(uowFactory, loader, provider, trigger, publisher, sysLogger, cfg.Ai.StreamTimeout, cfg.Ai.HeartbeatEvery)

	chatService := service.NewChatService(uowFactory, responder, cfg.Ai.LLMModel, sysLogger)
	userService := service.NewUserService(uowFactory, service.UserDefaults{
		PreferredModel:      cfg.Ai.LLMModel,
		MessageHistoryLimit: cfg.Chat.DefaultHistoryLimit,
	})

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.UserController = controller.NewUserController(userService)
	c.SessionGate = serverutils.SessionGate(uowFactory, limiter, sysLogger)

	return c, nil
}

func (c *Container) newLimiter(cfg *config.Config) (*ratelimit.Limiter, error) {
	if cfg.Chat.RateLimitStore != "redis" {
		return ratelimit.NewLimiter(ratelimit.NewMemoryStore(time.Minute), cfg.Chat.RateLimitInterval), nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	return ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb, "ratelimit:"), cfg.Chat.RateLimitInterval), nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
