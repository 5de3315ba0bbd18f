// Package summary folds the oldest unsummarized messages of a chat into its
// rolling summary once the backlog exceeds the user's history window.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chat/prompt"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrUserNotFound = errors.New("user not found")
	// ErrConcurrentSummary means some selected messages were summarized by
	// another run between selection and commit; nothing was changed.
	ErrConcurrentSummary = errors.New("messages summarized concurrently")
)

type Summarizer struct {
	uowFactory unitofwork.RepositoryFactory
	provider   llm.LLMProvider
	publisher  events.Publisher
	logger     logger.ILogger
	maxTokens  int
	timeout    time.Duration
	locks      *chatLocks
}

func NewSummarizer(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.LLMProvider,
	publisher events.Publisher,
	logger logger.ILogger,
	maxTokens int,
	timeout time.Duration,
) *Summarizer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Summarizer{
		uowFactory: uowFactory,
		provider:   provider,
		publisher:  publisher,
		logger:     logger,
		maxTokens:  maxTokens,
		timeout:    timeout,
		locks:      newChatLocks(),
	}
}

// Summarize folds unsummarizedCount - messageHistoryLimit of the oldest
// unsummarized messages into the chat summary and returns how many were folded.
// The summary update and the flag flips commit together or not at all.
// req.Model selects the model; the user's preferred model is used when empty.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (int, error) {
	chatId, userId := req.ChatId, req.UserId

	unlock := s.locks.lock(chatId)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindById(ctx, userId)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	if !user.EnableSummarization {
		return 0, nil
	}

	chat, err := uow.ChatRepository().FindOwned(ctx, chatId, userId)
	if err != nil {
		return 0, fmt.Errorf("load chat: %w", err)
	}
	if chat == nil {
		return 0, ErrChatNotFound
	}

	limit := user.MessageHistoryLimit
	if limit <= 0 {
		limit = constant.MessageHistoryLimitDefault
	}

	count, err := uow.MessageRepository().CountUnsummarized(ctx, chatId)
	if err != nil {
		return 0, fmt.Errorf("count unsummarized: %w", err)
	}
	excess := int(count) - limit
	if excess <= 0 {
		return 0, nil
	}

	batch, err := uow.MessageRepository().FindOldestUnsummarized(ctx, chatId, excess)
	if err != nil {
		return 0, fmt.Errorf("load messages to summarize: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	model := req.Model
	if model == "" {
		model = user.PreferredModel
	}

	summary, err := s.generate(ctx, chat.SummaryText(), model, batch)
	if err != nil {
		return 0, err
	}

	if err := s.commit(ctx, uow, chatId, summary, batch); err != nil {
		return 0, err
	}

	if err := s.publisher.Publish(ctx, events.ChatSummarized(chatId, len(batch))); err != nil {
		s.logger.Warn("SUMMARY", "Failed to publish summarized event", map[string]interface{}{
			"chat_id": chatId.String(),
			"error":   err,
		})
	}
	return len(batch), nil
}

// generate is bounded by s.timeout so a stalled model cannot hold the caller.
func (s *Summarizer) generate(ctx context.Context, previous, model string, batch []*entity.Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var opts []llm.Option
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if s.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.maxTokens))
	}

	text, err := s.provider.Chat(ctx, prompt.SummarizationMessages(previous, batch), opts...)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return text, nil
}

func (s *Summarizer) commit(ctx context.Context, uow unitofwork.UnitOfWork, chatId uuid.UUID, summary string, batch []*entity.Message) error {
	ids := make([]uuid.UUID, len(batch))
	for i, m := range batch {
		ids[i] = m.Id
	}

	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin summary transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ChatRepository().UpdateSummary(ctx, chatId, summary); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	affected, err := uow.MessageRepository().MarkSummarized(ctx, ids)
	if err != nil {
		return fmt.Errorf("mark summarized: %w", err)
	}
	if affected != int64(len(ids)) {
		return ErrConcurrentSummary
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit summary transaction: %w", err)
	}
	return nil
}
