// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"context"
	"io"
	"sync"

	"ai-chat-be/pkg/llm"
)

// Provider replays Fragments on Stream and ChatReply on Chat. StreamErr is
// returned by Recv once all fragments have been delivered. With Hang set, Recv
// blocks after the last fragment until the context ends; ChatHang does the same
// for Chat.
type Provider struct {
	Fragments []string
	StreamErr error
	OpenErr   error
	Hang      bool

	ChatReply string
	ChatErr   error
	ChatHang  bool

	mu          sync.Mutex
	streamCalls [][]llm.Message
	chatCalls   [][]llm.Message
	chatModels  []string
	closed      int
}

var _ llm.LLMProvider = &Provider{}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.mu.Lock()
	p.chatCalls = append(p.chatCalls, append([]llm.Message(nil), history...))
	p.chatModels = append(p.chatModels, llm.ApplyOptions(llm.Options{}, opts...).Model)
	p.mu.Unlock()

	if p.ChatHang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.ChatErr != nil {
		return "", p.ChatErr
	}
	return p.ChatReply, nil
}

func (p *Provider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	p.mu.Lock()
	p.streamCalls = append(p.streamCalls, append([]llm.Message(nil), history...))
	p.mu.Unlock()

	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	return &stream{ctx: ctx, parent: p, fragments: p.Fragments, err: p.StreamErr, hang: p.Hang}, nil
}

// StreamCalls returns the message lists passed to Stream, in call order.
func (p *Provider) StreamCalls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.streamCalls...)
}

// ChatCalls returns the message lists passed to Chat, in call order.
func (p *Provider) ChatCalls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.chatCalls...)
}

// ChatModels returns the model option of each Chat call, "" when none was set.
func (p *Provider) ChatModels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.chatModels...)
}

// Closed reports how many streams were closed.
func (p *Provider) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type stream struct {
	ctx       context.Context
	parent    *Provider
	fragments []string
	err       error
	hang      bool
	pos       int
}

func (s *stream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	if s.hang {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *stream) Close() error {
	s.parent.mu.Lock()
	s.parent.closed++
	s.parent.mu.Unlock()
	return nil
}
