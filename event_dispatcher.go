package authkit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	errEventBufferFull       = errors.New("event buffer full")
	errEventDispatcherClosed = errors.New("event dispatcher closed")
)

// DispatcherRecorder is an [EventRecorder] that delivers events to an
// [EventSink] from a single background worker. It decouples sink latency
// from the login/refresh hot path entirely: Record either enqueues or, when
// DropIfFull is set and the buffer is full, drops and counts.
type DispatcherRecorder struct {
	cfg       EventConfig
	sink      EventSink
	ch        chan SessionEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcherRecorder starts the worker goroutine. Close drains the
// buffer before returning.
func NewDispatcherRecorder(cfg EventConfig, sink EventSink) *DispatcherRecorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &DispatcherRecorder{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan SessionEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *DispatcherRecorder) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// RecordSessionIssued implements [EventRecorder].
func (d *DispatcherRecorder) RecordSessionIssued(ctx context.Context, event SessionEvent) error {
	if d == nil || d.closed.Load() {
		return errEventDispatcherClosed
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
			return nil
		case <-d.done:
			return errEventDispatcherClosed
		default:
			d.dropped.Add(1)
			return errEventBufferFull
		}
	}

	select {
	case d.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return errEventDispatcherClosed
	}
}

// Close stops the worker after draining buffered events.
func (d *DispatcherRecorder) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many events were discarded because the buffer was
// full.
func (d *DispatcherRecorder) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
