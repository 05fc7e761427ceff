package authkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// EventSink receives session events from a [DispatcherRecorder] worker.
type EventSink interface {
	Emit(ctx context.Context, event SessionEvent)
}

// NoOpRecorder discards all events. Used when no recorder is configured.
type NoOpRecorder struct{}

// RecordSessionIssued implements [EventRecorder].
func (NoOpRecorder) RecordSessionIssued(context.Context, SessionEvent) error { return nil }

// ChannelRecorder hands events to a buffered channel. Recording fails when
// the buffer is full, which exercises the engine's log-and-continue path;
// it never blocks.
type ChannelRecorder struct {
	events chan SessionEvent
}

// NewChannelRecorder creates a ChannelRecorder with the given capacity.
func NewChannelRecorder(buffer int) *ChannelRecorder {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelRecorder{events: make(chan SessionEvent, buffer)}
}

// RecordSessionIssued implements [EventRecorder].
func (r *ChannelRecorder) RecordSessionIssued(ctx context.Context, event SessionEvent) error {
	select {
	case r.events <- event:
		return nil
	default:
		return errEventBufferFull
	}
}

// Events exposes the receiving side of the channel.
func (r *ChannelRecorder) Events() <-chan SessionEvent {
	return r.events
}

// JSONWriterSink writes one JSON-encoded event per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit implements [EventSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event SessionEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
