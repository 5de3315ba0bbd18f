package prompt

import (
	"strings"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/pkg/llm"
)

// SystemBuilder assembles the single system message sent ahead of the history window.
type SystemBuilder struct {
	summary string
	persona string
}

// NewSystemBuilder takes the chat's rolling summary and the persona to apply.
// Empty strings omit their section.
func NewSystemBuilder(summary, persona string) *SystemBuilder {
	return &SystemBuilder{
		summary: strings.TrimSpace(summary),
		persona: strings.TrimSpace(persona),
	}
}

func (b *SystemBuilder) Build() string {
	var prompt strings.Builder
	prompt.WriteString(constant.SystemPromptV1)

	if b.summary != "" {
		writeSection(&prompt, constant.SummaryContextHeader, b.summary)
	}
	if b.persona != "" {
		writeSection(&prompt, constant.PersonaContextHeader, b.persona)
	}
	return prompt.String()
}

func writeSection(prompt *strings.Builder, header, body string) {
	prompt.WriteString("\n\n")
	prompt.WriteString(header)
	prompt.WriteString("\n\n")
	prompt.WriteString(body)
}

// Transcript renders messages as "User: ..." / "Assistant: ..." blocks.
func Transcript(messages []*entity.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Assistant"
		if m.Role == constant.MessageRoleUser {
			speaker = "User"
		}
		parts = append(parts, speaker+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// SummarizationMessages builds the non-streaming request that folds messages
// into the existing summary, or starts a new one when existing is empty.
func SummarizationMessages(existing string, messages []*entity.Message) []llm.Message {
	transcript := Transcript(messages)

	var user string
	if strings.TrimSpace(existing) != "" {
		user = "## Existing Summary:\n" + existing + "\n\n## New Messages to Integrate:\n" + transcript
	} else {
		user = "## Conversation to Summarize:\n" + transcript
	}

	return []llm.Message{
		{Role: constant.MessageRoleSystem, Content: constant.SummarizationPromptV1},
		{Role: constant.MessageRoleUser, Content: user},
	}
}
