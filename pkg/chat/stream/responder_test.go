package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/chat/history"
	"ai-chat-be/pkg/chat/sse"
	"ai-chat-be/pkg/chat/summary"
	"ai-chat-be/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	frames   []sse.Frame
	failFrom int // 0 disables
	writes   int
}

func (r *recorder) WriteFrame(f sse.Frame) error {
	r.writes++
	if r.failFrom > 0 && r.writes >= r.failFrom {
		return errors.New("broken pipe")
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) count(match func(sse.Frame) bool) int {
	n := 0
	for _, f := range r.frames {
		if match(f) {
			n++
		}
	}
	return n
}

type recordingTrigger struct {
	mu       sync.Mutex
	requests []summary.Request
}

func (t *recordingTrigger) Trigger(ctx context.Context, req summary.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
}

type harness struct {
	factory   unitofwork.RepositoryFactory
	trigger   *recordingTrigger
	responder *Responder
	turn      Turn
}

func newHarness(t *testing.T, factory unitofwork.RepositoryFactory, provider *llmtest.Provider, summarize bool) *harness {
	t.Helper()
	ctx := context.Background()
	if factory == nil {
		factory = memory.NewRepositoryFactory(memory.NewStore())
	}
	uow := factory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().Upsert(ctx, "session-1", &entity.User{
		EnableSummarization: summarize,
		MessageHistoryLimit: 10,
	})
	require.NoError(t, err)
	chat := &entity.Chat{UserId: user.Id, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, uow.ChatRepository().Create(ctx, chat))

	trigger := &recordingTrigger{}
	responder := NewResponder(factory, history.NewLoader(factory), provider, trigger, nil, logger.NewNopLogger(), time.Second, 0)

	userMsg, err := responder.PersistUserMessage(ctx, uow, chat.Id, "hi there")
	require.NoError(t, err)

	return &harness{
		factory:   factory,
		trigger:   trigger,
		responder: responder,
		turn:      Turn{User: user, Chat: chat, UserMessage: userMsg, Model: "m"},
	}
}

func (h *harness) messages(t *testing.T, role string) []*entity.Message {
	t.Helper()
	ctx := context.Background()
	all, err := h.factory.NewUnitOfWork(ctx).MessageRepository().FindAllByChatId(ctx, h.turn.Chat.Id)
	require.NoError(t, err)
	var out []*entity.Message
	for _, m := range all {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func isEnd(f sse.Frame) bool { _, ok := f.(sse.End); return ok }

func TestResponder_Completed(t *testing.T) {
	provider := &llmtest.Provider{Fragments: []string{"Hello", "", ", ", "world"}}
	h := newHarness(t, nil, provider, true)
	w := &recorder{}

	result := h.responder.Respond(context.Background(), w, h.turn)

	require.Equal(t, StateCompleted, result.State)
	require.NoError(t, result.Err)
	assert.Equal(t, "Hello, world", result.Content)

	require.Len(t, w.frames, 6)
	assert.Equal(t, sse.UserPersisted{ChatId: h.turn.Chat.Id, UserMessageId: h.turn.UserMessage.Id}, w.frames[0])
	assert.Equal(t, sse.ContentFragment{Content: "Hello"}, w.frames[1])
	assert.Equal(t, sse.ContentFragment{Content: ", "}, w.frames[2])
	assert.Equal(t, sse.ContentFragment{Content: "world"}, w.frames[3])
	assert.Equal(t, sse.AssistantPersisted{AssistantMessageId: result.AssistantMessageId}, w.frames[4])
	assert.Equal(t, sse.End{}, w.frames[5])

	users := h.messages(t, constant.MessageRoleUser)
	require.Len(t, users, 1)
	assert.Equal(t, h.turn.UserMessage.Id, users[0].Id)

	assistants := h.messages(t, constant.MessageRoleAssistant)
	require.Len(t, assistants, 1)
	assert.Equal(t, "Hello, world", assistants[0].Content)
	assert.Equal(t, result.AssistantMessageId, assistants[0].Id)

	assert.Equal(t, []summary.Request{{ChatId: h.turn.Chat.Id, UserId: h.turn.User.Id, Model: "m"}}, h.trigger.requests)
	assert.Equal(t, 1, provider.Closed())

	// The model saw exactly one system message followed by the stored user message.
	calls := provider.StreamCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, constant.MessageRoleSystem, calls[0][0].Role)
	assert.Equal(t, "hi there", calls[0][1].Content)
}

func TestResponder_TouchesChat(t *testing.T) {
	h := newHarness(t, nil, &llmtest.Provider{Fragments: []string{"ok"}}, false)
	before := h.turn.Chat.UpdatedAt

	h.responder.Respond(context.Background(), &recorder{}, h.turn)

	ctx := context.Background()
	chat, err := h.factory.NewUnitOfWork(ctx).ChatRepository().FindOwned(ctx, h.turn.Chat.Id, h.turn.User.Id)
	require.NoError(t, err)
	assert.True(t, chat.UpdatedAt.After(before) || chat.UpdatedAt.Equal(before))
}

func TestResponder_FailureExits(t *testing.T) {
	tests := []struct {
		name          string
		provider      *llmtest.Provider
		failFrom      int
		wantState     State
		wantFrames    []sse.Frame
		wantEndWrites int
	}{
		{
			name:      "model raises mid-stream",
			provider:  &llmtest.Provider{Fragments: []string{"Hello, "}, StreamErr: errors.New("upstream reset")},
			wantState: StateStreamFailed,
			wantFrames: []sse.Frame{
				sse.ContentFragment{Content: "Hello, "},
				sse.End{},
			},
		},
		{
			name:       "model stream cannot be opened",
			provider:   &llmtest.Provider{OpenErr: errors.New("401")},
			wantState:  StateStreamFailed,
			wantFrames: []sse.Frame{sse.End{}},
		},
		{
			name:       "model returns nothing",
			provider:   &llmtest.Provider{Fragments: []string{"", ""}},
			wantState:  StateCompleted,
			wantFrames: []sse.Frame{sse.End{}},
		},
		{
			name:      "client disconnects",
			provider:  &llmtest.Provider{Fragments: []string{"a", "b", "c"}},
			failFrom:  3,
			wantState: StateStreamFailed,
			wantFrames: []sse.Frame{
				sse.ContentFragment{Content: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, tt.provider, true)
			w := &recorder{failFrom: tt.failFrom}

			result := h.responder.Respond(context.Background(), w, h.turn)

			assert.Equal(t, tt.wantState, result.State)
			assert.Equal(t, tt.wantFrames, w.frames[1:])
			assert.LessOrEqual(t, w.count(isEnd), 1)
			assert.Empty(t, h.messages(t, constant.MessageRoleAssistant))
			assert.Len(t, h.messages(t, constant.MessageRoleUser), 1)
			assert.Empty(t, h.trigger.requests)
		})
	}
}

func TestResponder_EndWrittenOnceEvenWhenWritesFail(t *testing.T) {
	provider := &llmtest.Provider{Fragments: []string{"a", "b"}}
	h := newHarness(t, nil, provider, false)
	w := &recorder{failFrom: 1}

	result := h.responder.Respond(context.Background(), w, h.turn)

	assert.Equal(t, StateStreamFailed, result.State)
	// First frame failed, then exactly one End attempt.
	assert.Equal(t, 2, w.writes)
	assert.Empty(t, provider.StreamCalls())
}

func TestResponder_Timeout(t *testing.T) {
	provider := &llmtest.Provider{Fragments: []string{"slow"}, Hang: true}
	h := newHarness(t, nil, provider, false)
	h.responder.timeout = 20 * time.Millisecond
	w := &recorder{}

	result := h.responder.Respond(context.Background(), w, h.turn)

	assert.Equal(t, StateStreamFailed, result.State)
	assert.Equal(t, []sse.Frame{sse.ContentFragment{Content: "slow"}, sse.End{}}, w.frames[1:])
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	assert.Empty(t, h.messages(t, constant.MessageRoleAssistant))
}

// failingFactory stores everything except assistant messages.
type failingFactory struct {
	unitofwork.RepositoryFactory
}

func (f failingFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return failingUow{f.RepositoryFactory.NewUnitOfWork(ctx)}
}

type failingUow struct {
	unitofwork.UnitOfWork
}

func (u failingUow) MessageRepository() contract.MessageRepository {
	return failingMessages{u.UnitOfWork.MessageRepository()}
}

type failingMessages struct {
	contract.MessageRepository
}

func (m failingMessages) Create(ctx context.Context, message *entity.Message) error {
	if message.Role == constant.MessageRoleAssistant {
		return errors.New("disk full")
	}
	return m.MessageRepository.Create(ctx, message)
}

func TestResponder_PersistFailed(t *testing.T) {
	factory := failingFactory{memory.NewRepositoryFactory(memory.NewStore())}
	h := newHarness(t, factory, &llmtest.Provider{Fragments: []string{"answer"}}, true)
	w := &recorder{}

	result := h.responder.Respond(context.Background(), w, h.turn)

	assert.Equal(t, StatePersistFailed, result.State)
	require.Error(t, result.Err)
	assert.Equal(t, []sse.Frame{
		sse.UserPersisted{ChatId: h.turn.Chat.Id, UserMessageId: h.turn.UserMessage.Id},
		sse.ContentFragment{Content: "answer"},
		sse.End{},
	}, w.frames)
	assert.Empty(t, h.trigger.requests)
}

// seed stores n alternating messages older than the harness's user message.
func (h *harness) seed(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	uow := h.factory.NewUnitOfWork(ctx)
	base := time.Now().Add(-30 * time.Minute)
	for i := 0; i < n; i++ {
		role := constant.MessageRoleUser
		if i%2 == 1 {
			role = constant.MessageRoleAssistant
		}
		require.NoError(t, uow.MessageRepository().Create(ctx, &entity.Message{
			ChatId:    h.turn.Chat.Id,
			Role:      role,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
}

// summarizeSync swaps the recording trigger for a real synchronous summarizer.
func (h *harness) summarizeSync(provider *llmtest.Provider, timeout time.Duration) {
	s := summary.NewSummarizer(h.factory, provider, nil, logger.NewNopLogger(), 0, timeout)
	h.responder.trigger = summary.NewSyncTrigger(s, logger.NewNopLogger())
}

func (h *harness) chatSummary(t *testing.T) *string {
	t.Helper()
	ctx := context.Background()
	chat, err := h.factory.NewUnitOfWork(ctx).ChatRepository().FindOwned(ctx, h.turn.Chat.Id, h.turn.User.Id)
	require.NoError(t, err)
	require.NotNil(t, chat)
	return chat.Summary
}

func (h *harness) allMessages(t *testing.T) []*entity.Message {
	t.Helper()
	ctx := context.Background()
	all, err := h.factory.NewUnitOfWork(ctx).MessageRepository().FindAllByChatId(ctx, h.turn.Chat.Id)
	require.NoError(t, err)
	return all
}

func summarizedCount(messages []*entity.Message) int {
	n := 0
	for _, m := range messages {
		if m.IsSummarized {
			n++
		}
	}
	return n
}

// endHook runs onEnd just before the End frame is recorded.
type endHook struct {
	recorder
	onEnd func()
}

func (w *endHook) WriteFrame(f sse.Frame) error {
	if _, ok := f.(sse.End); ok && w.onEnd != nil {
		w.onEnd()
	}
	return w.recorder.WriteFrame(f)
}

func TestResponder_SummarizesBeforeEnd(t *testing.T) {
	provider := &llmtest.Provider{Fragments: []string{"answer"}, ChatReply: "Seven messages about greetings."}
	h := newHarness(t, nil, provider, true)
	h.seed(t, 15)
	h.summarizeSync(provider, time.Second)

	var summaryAtEnd *string
	foldedAtEnd := -1
	w := &endHook{onEnd: func() {
		summaryAtEnd = h.chatSummary(t)
		foldedAtEnd = summarizedCount(h.allMessages(t))
	}}

	result := h.responder.Respond(context.Background(), w, h.turn)

	require.Equal(t, StateCompleted, result.State)
	require.NoError(t, result.Err)

	// Assistant persisted, then summary committed, then the terminal frame.
	require.Len(t, w.frames, 4)
	assert.Equal(t, sse.AssistantPersisted{AssistantMessageId: result.AssistantMessageId}, w.frames[2])
	assert.Equal(t, sse.End{}, w.frames[3])
	require.NotNil(t, summaryAtEnd)
	assert.Equal(t, "Seven messages about greetings.", *summaryAtEnd)
	assert.Equal(t, 7, foldedAtEnd)

	// 15 prior + user + assistant = 17; the oldest 7 are folded.
	all := h.allMessages(t)
	require.Len(t, all, 17)
	for i, m := range all {
		if i < 7 {
			assert.True(t, m.IsSummarized, "message %d (%s) should be folded", i, m.Content)
			assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		} else {
			assert.False(t, m.IsSummarized, "message %d (%s) should stay in the window", i, m.Content)
		}
	}
	assert.Equal(t, "hi there", all[15].Content)
	assert.Equal(t, result.AssistantMessageId, all[16].Id)

	// The summary is generated with the model the turn was answered with.
	assert.Equal(t, []string{"m"}, provider.ChatModels())
}

func TestResponder_StalledSummaryStillEnds(t *testing.T) {
	provider := &llmtest.Provider{Fragments: []string{"answer"}, ChatHang: true}
	h := newHarness(t, nil, provider, true)
	h.seed(t, 10)
	h.summarizeSync(provider, 50*time.Millisecond)
	w := &recorder{}

	done := make(chan Result, 1)
	go func() {
		done <- h.responder.Respond(context.WithoutCancel(context.Background()), w, h.turn)
	}()

	var result Result
	select {
	case result = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Respond blocked on a silent summarization model")
	}

	assert.Equal(t, StateCompleted, result.State)
	require.NotEmpty(t, w.frames)
	assert.Equal(t, sse.End{}, w.frames[len(w.frames)-1])
	assert.Equal(t, 1, w.count(isEnd))
	assert.Len(t, provider.ChatCalls(), 1)

	// The failed summary leaves the chat as it was.
	assert.Nil(t, h.chatSummary(t))
	assert.Zero(t, summarizedCount(h.allMessages(t)))
	assert.Len(t, h.messages(t, constant.MessageRoleAssistant), 1)
}

// pingRecorder is a recorder whose keep-alives can fail.
type pingRecorder struct {
	recorder
	mu      sync.Mutex
	pings   int
	pingErr error
}

func (r *pingRecorder) WriteFrame(f sse.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorder.WriteFrame(f)
}

func (r *pingRecorder) Ping() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings++
	return r.pingErr
}

func TestResponder_Heartbeat(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		timeout time.Duration
		wantErr error
	}{
		{name: "departed client aborts a silent model", pingErr: errors.New("broken pipe"), timeout: 5 * time.Second, wantErr: errClientGone},
		{name: "present client waits for the deadline", timeout: 100 * time.Millisecond, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &llmtest.Provider{Hang: true}
			h := newHarness(t, nil, provider, false)
			h.responder.timeout = tt.timeout
			h.responder.heartbeat = 10 * time.Millisecond
			w := &pingRecorder{pingErr: tt.pingErr}

			started := time.Now()
			result := h.responder.Respond(context.WithoutCancel(context.Background()), w, h.turn)

			assert.Less(t, time.Since(started), 2*time.Second)
			assert.Equal(t, StateStreamFailed, result.State)
			assert.ErrorIs(t, result.Err, tt.wantErr)
			assert.Positive(t, w.pings)
			assert.Equal(t, 1, provider.Closed())
			assert.Empty(t, h.messages(t, constant.MessageRoleAssistant))
		})
	}
}
