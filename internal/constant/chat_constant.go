package constant

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"

	SessionHeader = "X-Session-Id"

	ChatTitleMaxLength = 50
	ChatTitleEllipsis  = "..."

	MessageHistoryLimitMin     = 10
	MessageHistoryLimitMax     = 30
	MessageHistoryLimitDefault = 20

	DefaultPreferredModel = "mistral-small-latest"

	RateLimitInterval = 1 * time.Second

	// SSE sentinel payload closing every stream.
	StreamDoneSentinel = "[DONE]"
)

// ClampHistoryLimit bounds a requested history window to the supported range.
func ClampHistoryLimit(limit int) int {
	if limit < MessageHistoryLimitMin {
		return MessageHistoryLimitMin
	}
	if limit > MessageHistoryLimitMax {
		return MessageHistoryLimitMax
	}
	return limit
}
