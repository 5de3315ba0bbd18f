package history

import (
	"context"
	"fmt"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chat/prompt"
	"ai-chat-be/pkg/llm"
)

// Loader builds the bounded context sent to the model for a chat turn.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{uowFactory: uowFactory}
}

// LoadContext returns one system message followed by at most
// user.MessageHistoryLimit messages in chronological order. Older messages
// reach the model only through the chat summary.
func (l *Loader) LoadContext(ctx context.Context, chat *entity.Chat, user *entity.User) ([]llm.Message, error) {
	limit := user.MessageHistoryLimit
	if limit <= 0 {
		limit = constant.MessageHistoryLimitDefault
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)
	recent, err := uow.MessageRepository().FindRecentByChatId(ctx, chat.Id, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	persona := ""
	if chat.UsePersona {
		persona = user.PersonaText()
	}

	messages := make([]llm.Message, 0, len(recent)+1)
	messages = append(messages, llm.Message{
		Role:    constant.MessageRoleSystem,
		Content: prompt.NewSystemBuilder(chat.SummaryText(), persona).Build(),
	})
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    recent[i].Role,
			Content: recent[i].Content,
		})
	}
	return messages, nil
}
