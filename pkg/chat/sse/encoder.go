package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Encode renders f as a single "data: ...\n\n" event.
func Encode(f Frame) ([]byte, error) {
	var payload []byte
	switch v := f.(type) {
	case End:
		payload = []byte(DoneSentinel)
	case UserPersisted, ContentFragment, AssistantPersisted:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		payload = b
	default:
		return nil, fmt.Errorf("encode frame: unknown frame type %T", f)
	}

	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)
	return out, nil
}

// FlushWriter is satisfied by *bufio.Writer, which is what fasthttp hands to
// body stream writers.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Writer writes frames and flushes after each one so the client sees them
// immediately. It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  FlushWriter
}

func NewWriter(w FlushWriter) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteFrame(f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	return w.write(b)
}

// Ping sends a comment line. Decoders skip it; a failed flush means the
// client has gone away.
func (w *Writer) Ping() error {
	return w.write([]byte(pingComment))
}

func (w *Writer) write(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.Flush()
}
