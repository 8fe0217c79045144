package consoleauth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher hands events to the sink on a single worker goroutine so
// request paths never wait on sink I/O. A nil dispatcher discards everything.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	// mu orders sends against close(queue): senders hold the read lock.
	mu     sync.RWMutex
	queue  chan AuditEvent
	closed bool

	stopped chan struct{}
	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stopped:    make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *auditDispatcher) worker() {
	defer close(d.stopped)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver isolates sink panics so one bad event does not stop the worker.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() { _ = recover() }()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With dropIfFull a full queue drops and counts the
// event; otherwise Emit waits for room or for ctx. Events emitted after
// Close are discarded.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-done:
	}
}

// Close stops intake, then waits until every queued event reached the sink.
// It is idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
