package goSession

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// criticalEmitWait bounds how long a critical event may wait for buffer space
// when DropIfFull is set.
const criticalEmitWait = 50 * time.Millisecond

// criticalAuditEvents are the outcomes an operator must see even under load:
// token theft signals and provider grants that may still be live.
var criticalAuditEvents = map[string]bool{
	auditEventRefreshReuseDetected:   true,
	auditEventUpstreamRevocationFail: true,
	auditEventDisconnect:             true,
}

// auditDispatcher moves events off the request path onto one sink goroutine.
// Drops are counted in total and per event type.
type auditDispatcher struct {
	dropIfFull bool
	sink       AuditSink
	logger     zerolog.Logger

	queue chan AuditEvent
	stop  chan struct{}
	wg    sync.WaitGroup

	dropped    atomic.Uint64
	dropMu     sync.Mutex
	dropByType map[string]uint64

	closing   atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		logger:     logger,
		queue:      make(chan AuditEvent, size),
		stop:       make(chan struct{}),
		dropByType: make(map[string]uint64),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver hands ev to the sink. A panicking sink loses that event only.
func (d *auditDispatcher) deliver(ev AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.countDrop(ev.EventType)
			d.logger.Error().Interface("panic", r).Str("event_type", ev.EventType).Msg("audit sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues ev. With DropIfFull, ordinary events are dropped when the
// buffer is full; critical events wait up to criticalEmitWait first. Without
// it, Emit blocks until there is room or ctx ends.
func (d *auditDispatcher) Emit(ctx context.Context, ev AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case d.queue <- ev:
		return
	case <-d.stop:
		return
	default:
	}

	var wait <-chan time.Time
	if d.dropIfFull {
		if !criticalAuditEvents[ev.EventType] {
			d.countDrop(ev.EventType)
			return
		}
		t := time.NewTimer(criticalEmitWait)
		defer t.Stop()
		wait = t.C
	}

	select {
	case d.queue <- ev:
	case <-wait:
		d.countDrop(ev.EventType)
	case <-ctx.Done():
		d.countDrop(ev.EventType)
	case <-d.stop:
	}
}

func (d *auditDispatcher) countDrop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.dropByType[eventType]++
	d.dropMu.Unlock()
}

// Close stops intake and delivers what is already buffered.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByEvent returns a copy of the per-event-type drop counts.
func (d *auditDispatcher) DroppedByEvent() map[string]uint64 {
	if d == nil {
		return nil
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	out := make(map[string]uint64, len(d.dropByType))
	for k, v := range d.dropByType {
		out[k] = v
	}
	return out
}
