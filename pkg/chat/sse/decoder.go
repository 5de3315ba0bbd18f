package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

var ErrMalformedFrame = errors.New("malformed frame")

// MalformedError carries the offending line. Readers log it and keep going.
type MalformedError struct {
	Line string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%v: %q: %v", ErrMalformedFrame, e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedFrame }

type wireFrame struct {
	ChatId             *uuid.UUID `json:"chatId"`
	UserMessageId      *uuid.UUID `json:"userMessageId"`
	Content            *string    `json:"content"`
	AssistantMessageId *uuid.UUID `json:"assistantMessageId"`
}

// ParseLine decodes one "data: ..." line. Every payload maps to exactly one
// frame type; anything else is a *MalformedError.
func ParseLine(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, &MalformedError{Line: line, Err: errors.New("missing data prefix")}
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))

	if payload == DoneSentinel {
		return End{}, nil
	}

	var w wireFrame
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, &MalformedError{Line: line, Err: err}
	}

	switch {
	case w.ChatId != nil && w.UserMessageId != nil && w.Content == nil && w.AssistantMessageId == nil:
		return UserPersisted{ChatId: *w.ChatId, UserMessageId: *w.UserMessageId}, nil
	case w.Content != nil && w.ChatId == nil && w.UserMessageId == nil && w.AssistantMessageId == nil:
		return ContentFragment{Content: *w.Content}, nil
	case w.AssistantMessageId != nil && w.ChatId == nil && w.UserMessageId == nil && w.Content == nil:
		return AssistantPersisted{AssistantMessageId: *w.AssistantMessageId}, nil
	default:
		return nil, &MalformedError{Line: line, Err: errors.New("unrecognized payload shape")}
	}
}

// Decoder reads frames from an event stream. Blank separator lines and
// non-data fields (comments, event:, id:) are skipped.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next frame, a *MalformedError for a bad data line (the
// decoder stays usable), or io.EOF when the stream ends.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, err := d.r.ReadString('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" && strings.HasPrefix(trimmed, dataPrefix) {
			return ParseLine(trimmed)
		}
		if trimmed != "" && !isKnownField(trimmed) {
			return nil, &MalformedError{Line: trimmed, Err: errors.New("unknown field")}
		}
		if err != nil {
			return nil, err
		}
	}
}

func isKnownField(line string) bool {
	return strings.HasPrefix(line, ":") ||
		strings.HasPrefix(line, "event:") ||
		strings.HasPrefix(line, "id:") ||
		strings.HasPrefix(line, "retry:")
}
