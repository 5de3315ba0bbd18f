// Package stream drives one streamed chat turn: it forwards model fragments as
// SSE frames and stores the assistant answer at most once.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/metrics"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chat/history"
	"ai-chat-be/pkg/chat/sse"
	"ai-chat-be/pkg/chat/summary"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle          State = "idle"
	StateUserPersisted State = "user_persisted"
	StateStreaming     State = "streaming"
	StateCompleted     State = "completed"
	StateStreamFailed  State = "stream_failed"
	StatePersistFailed State = "persist_failed"
)

// FrameWriter is implemented by *sse.Writer. A write error means the client is gone.
type FrameWriter interface {
	WriteFrame(f sse.Frame) error
}

// Pinger is a FrameWriter that can also send a keep-alive the client ignores.
// Ping may be called concurrently with WriteFrame.
type Pinger interface {
	Ping() error
}

var errClientGone = errors.New("client disconnected")

// Turn is a chat turn whose user message is already stored.
type Turn struct {
	User        *entity.User
	Chat        *entity.Chat
	UserMessage *entity.Message
	Model       string
}

type Result struct {
	State              State
	AssistantMessageId uuid.UUID
	Content            string
	Err                error
}

type Responder struct {
	uowFactory unitofwork.RepositoryFactory
	loader     *history.Loader
	provider   llm.LLMProvider
	trigger    summary.Trigger
	publisher  events.Publisher
	logger     logger.ILogger
	timeout    time.Duration
	heartbeat  time.Duration
}

// NewResponder builds a Responder. timeout bounds the model stream; heartbeat
// is how often an idle stream is pinged to notice a departed client (0 disables).
func NewResponder(
	uowFactory unitofwork.RepositoryFactory,
	loader *history.Loader,
	provider llm.LLMProvider,
	trigger summary.Trigger,
	publisher events.Publisher,
	logger logger.ILogger,
	timeout time.Duration,
	heartbeat time.Duration,
) *Responder {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Responder{
		uowFactory: uowFactory,
		loader:     loader,
		provider:   provider,
		trigger:    trigger,
		publisher:  publisher,
		logger:     logger,
		timeout:    timeout,
		heartbeat:  heartbeat,
	}
}

// PersistUserMessage stores the incoming message. It must succeed before
// Respond is called so the user's text survives any model failure.
func (r *Responder) PersistUserMessage(ctx context.Context, uow unitofwork.UnitOfWork, chatId uuid.UUID, content string) (*entity.Message, error) {
	msg := &entity.Message{
		Id:        uuid.New(),
		ChatId:    chatId,
		Role:      constant.MessageRoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	return msg, nil
}

// Respond writes the frames of one turn to w. The End frame is written exactly
// once, last, whatever state the turn ends in.
func (r *Responder) Respond(ctx context.Context, w FrameWriter, turn Turn) (result Result) {
	started := time.Now()
	result.State = StateUserPersisted

	defer func() {
		if err := w.WriteFrame(sse.End{}); err != nil {
			r.logger.Debug("STREAM", "Terminal frame not delivered", map[string]interface{}{
				"chat_id": turn.Chat.Id.String(),
				"error":   err,
			})
		}
		r.finish(ctx, turn, result, started)
	}()

	if err := w.WriteFrame(sse.UserPersisted{ChatId: turn.Chat.Id, UserMessageId: turn.UserMessage.Id}); err != nil {
		return failed(result, StateStreamFailed, fmt.Errorf("write first frame: %w", err))
	}

	content, err := r.consume(ctx, w, turn, &result)
	if err != nil {
		return failed(result, StateStreamFailed, err)
	}
	result.Content = content
	if content == "" {
		result.State = StateCompleted
		return result
	}

	assistant := &entity.Message{
		Id:        uuid.New(),
		ChatId:    turn.Chat.Id,
		Role:      constant.MessageRoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MessageRepository().Create(ctx, assistant); err != nil {
		return failed(result, StatePersistFailed, fmt.Errorf("persist assistant message: %w", err))
	}
	result.AssistantMessageId = assistant.Id
	result.State = StateCompleted

	if err := w.WriteFrame(sse.AssistantPersisted{AssistantMessageId: assistant.Id}); err != nil {
		r.logger.Warn("STREAM", "Assistant id frame not delivered", map[string]interface{}{
			"chat_id": turn.Chat.Id.String(),
			"error":   err,
		})
	}

	if err := uow.ChatRepository().Touch(ctx, turn.Chat.Id, time.Now()); err != nil {
		r.logger.Warn("STREAM", "Failed to touch chat", map[string]interface{}{
			"chat_id": turn.Chat.Id.String(),
			"error":   err,
		})
	}

	if turn.User.EnableSummarization && r.trigger != nil {
		r.trigger.Trigger(ctx, summary.Request{ChatId: turn.Chat.Id, UserId: turn.User.Id, Model: turn.Model})
	}
	return result
}

// consume streams fragments to w and returns their concatenation. Any error
// aborts the turn; the partial text is discarded by the caller.
func (r *Responder) consume(ctx context.Context, w FrameWriter, turn Turn, result *Result) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx, stop := r.watchClient(ctx, w)
	defer stop()

	messages, err := r.loader.LoadContext(ctx, turn.Chat, turn.User)
	if err != nil {
		return "", err
	}

	var opts []llm.Option
	if turn.Model != "" {
		opts = append(opts, llm.WithModel(turn.Model))
	}

	result.State = StateStreaming
	fragments, err := r.provider.Stream(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("open model stream: %w", aborted(ctx, err))
	}
	defer fragments.Close()

	var acc strings.Builder
	for {
		fragment, err := fragments.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("receive fragment: %w", aborted(ctx, err))
		}
		if fragment == "" {
			continue
		}
		if err := w.WriteFrame(sse.ContentFragment{Content: fragment}); err != nil {
			return "", fmt.Errorf("client disconnected: %w", err)
		}
		metrics.RecordFragment()
		acc.WriteString(fragment)
	}
	return acc.String(), nil
}

// watchClient pings w every r.heartbeat until stop is called. A failed ping
// cancels the returned context so a silent model is abandoned early.
func (r *Responder) watchClient(ctx context.Context, w FrameWriter) (context.Context, func()) {
	pinger, ok := w.(Pinger)
	if !ok || r.heartbeat <= 0 {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pinger.Ping(); err != nil {
					cancel(fmt.Errorf("%w: %v", errClientGone, err))
					return
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

// aborted prefers the reason ctx ended over the provider's own error.
func aborted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return err
}

func failed(result Result, state State, err error) Result {
	result.State = state
	result.Err = err
	return result
}

func (r *Responder) finish(ctx context.Context, turn Turn, result Result, started time.Time) {
	metrics.RecordStream(string(result.State), started)

	details := map[string]interface{}{
		"chat_id":         turn.Chat.Id.String(),
		"user_message_id": turn.UserMessage.Id.String(),
		"state":           string(result.State),
		"duration_ms":     time.Since(started).Milliseconds(),
	}
	if result.Err != nil {
		details["error"] = result.Err
		r.logger.Error("STREAM", "Chat turn ended without an assistant message", details)
	} else {
		r.logger.Info("STREAM", "Chat turn completed", details)
	}

	event := events.ChatTurnCompleted(turn.Chat.Id, turn.UserMessage.Id, result.AssistantMessageId, string(result.State))
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, event); err != nil {
		r.logger.Warn("STREAM", "Failed to publish turn event", map[string]interface{}{"error": err})
	}
}
