// Package echo is an offline backend that answers with the last user message,
// word by word. It lets the server run without model credentials.
package echo

import (
	"context"
	"io"
	"strings"

	"ai-chat-be/pkg/llm"
)

type EchoProvider struct{}

var _ llm.LLMProvider = &EchoProvider{}

func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

func (p *EchoProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return lastUserContent(history), nil
}

func (p *EchoProvider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	return &wordStream{ctx: ctx, words: strings.SplitAfter(lastUserContent(history), " ")}, nil
}

func lastUserContent(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}

type wordStream struct {
	ctx   context.Context
	words []string
	pos   int
}

func (s *wordStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.words) {
		return "", io.EOF
	}
	w := s.words[s.pos]
	s.pos++
	return w, nil
}

func (s *wordStream) Close() error {
	return nil
}
