package goSession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// stalledSink holds the dispatcher goroutine inside Emit until release is
// closed, so the buffer behind it can be filled deterministically.
type stalledSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStalledSink() *stalledSink {
	return &stalledSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stalledSink) Emit(context.Context, AuditEvent) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

// stallDispatcher returns a dispatcher whose worker is parked on one event
// and whose single-slot buffer is full.
func stallDispatcher(t *testing.T, dropIfFull bool) (*auditDispatcher, *stalledSink) {
	t.Helper()
	sink := newStalledSink()
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: dropIfFull}, sink, zerolog.Nop())
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, SubjectID: "alice"})
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never reached the sink")
	}
	d.Emit(context.Background(), AuditEvent{EventType: auditEventRefreshSuccess, SubjectID: "alice"})
	return d, sink
}

type panickySink struct {
	delivered atomic.Int64
}

func (s *panickySink) Emit(_ context.Context, ev AuditEvent) {
	if ev.EventType == auditEventScopesMissing {
		panic("sink bug")
	}
	s.delivered.Add(1)
}

func auditTestConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false
	return cfg
}

func collectEvents(sink *captureSink, n int) []AuditEvent {
	events := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev := <-sink.events:
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	e, done := newTestEngine(t, testConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	loginAlice(t, e, nil)
	_, _ = e.Refresh(context.Background(), "garbage")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(8)
	e, done := newTestEngine(t, auditTestConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "test-agent")
	if _, err := e.CompleteLogin(ctx, LoginInput{Identity: Identity{SubjectID: "alice"}}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	events := collectEvents(sink, 1)
	if len(events) != 1 {
		t.Fatal("expected audit event to be received")
	}
	ev := events[0]
	if ev.EventType != auditEventLoginSuccess || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.SubjectID != "alice" || ev.IP != "198.51.100.33" || ev.UserAgent != "test-agent" {
		t.Fatalf("unexpected event fields %+v", ev)
	}
}

func TestAuditRefreshReuseEvent(t *testing.T) {
	sink := newCaptureSink(16)
	e, done := newTestEngine(t, auditTestConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	pair := loginAlice(t, e, nil)
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = e.Refresh(context.Background(), pair.RefreshToken)

	events := collectEvents(sink, 3)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[2]
	if last.EventType != auditEventRefreshReuseDetected || last.Success || last.Error != "refresh_reuse" {
		t.Fatalf("unexpected reuse event %+v", last)
	}
}

func TestAuditFullBufferDropsRoutineEvents(t *testing.T) {
	d, sink := stallDispatcher(t, true)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	start := time.Now()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventRefreshSuccess, SubjectID: "bob"})
	d.Emit(context.Background(), AuditEvent{EventType: auditEventScopesMissing, SubjectID: "bob"})
	if time.Since(start) > criticalEmitWait {
		t.Fatal("routine events must not wait on a full buffer")
	}

	byEvent := d.DroppedByEvent()
	if d.Dropped() != 2 || byEvent[auditEventRefreshSuccess] != 1 || byEvent[auditEventScopesMissing] != 1 {
		t.Fatalf("unexpected drop accounting total=%d by_event=%v", d.Dropped(), byEvent)
	}
}

func TestAuditFullBufferCriticalEventWaitsForRoom(t *testing.T) {
	d, sink := stallDispatcher(t, true)

	go func() {
		time.Sleep(criticalEmitWait / 5)
		close(sink.release)
	}()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventRefreshReuseDetected, SubjectID: "alice"})
	d.Close()

	if got := d.DroppedByEvent()[auditEventRefreshReuseDetected]; got != 0 {
		t.Fatalf("reuse event dropped although room appeared in time, drops=%d", got)
	}
}

func TestAuditFullBufferCriticalEventDroppedAfterWait(t *testing.T) {
	d, sink := stallDispatcher(t, true)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	start := time.Now()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventUpstreamRevocationFail, SubjectID: "alice"})
	if elapsed := time.Since(start); elapsed < criticalEmitWait {
		t.Fatalf("critical event gave up after %s", elapsed)
	}
	if got := d.DroppedByEvent()[auditEventUpstreamRevocationFail]; got != 1 {
		t.Fatalf("expected the revocation failure to be counted as dropped, got %d", got)
	}
}

func TestAuditBlockingModeWaitsForRoom(t *testing.T) {
	d, sink := stallDispatcher(t, false)
	defer d.Close()

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, SubjectID: "alice"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while the buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	close(sink.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed once the sink drains")
	}
	if d.Dropped() != 0 {
		t.Fatalf("blocking mode must not drop, got %d", d.Dropped())
	}
}

func TestAuditBlockingModeHonorsContext(t *testing.T) {
	d, sink := stallDispatcher(t, false)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, AuditEvent{EventType: auditEventLogout, SubjectID: "alice"})

	if got := d.DroppedByEvent()[auditEventLogout]; got != 1 {
		t.Fatalf("expected the abandoned logout event to be counted, got %d", got)
	}
}

func TestAuditSinkPanicLosesOnlyThatEvent(t *testing.T) {
	var logs syncBuffer
	sink := &panickySink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink, zerolog.New(&logs))

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, SubjectID: "alice"})
	d.Emit(context.Background(), AuditEvent{EventType: auditEventScopesMissing, SubjectID: "alice"})
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, SubjectID: "alice"})
	d.Close()

	if got := sink.delivered.Load(); got != 2 {
		t.Fatalf("expected the events around the panic to be delivered, got %d", got)
	}
	if got := d.DroppedByEvent()[auditEventScopesMissing]; got != 1 {
		t.Fatalf("expected the panicking event to be counted, got %d", got)
	}
	if !logs.Contains("audit sink panicked") {
		t.Fatal("expected the sink panic to be logged")
	}
}

func TestEngineReportsAuditDropsByEvent(t *testing.T) {
	e, done := newTestEngine(t, testConfig())
	defer done()

	if got := e.AuditDroppedByEvent(); len(got) != 0 {
		t.Fatalf("disabled audit must report no drops, got %v", got)
	}
	if e.AuditDropped() != 0 {
		t.Fatal("disabled audit must report zero drops")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		SubjectID: "u1",
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"subject_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain subject id")
	}
}

func TestAuditDispatcherCloseDrainsAndIgnoresLateEmits(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4, DropIfFull: true}, sink, zerolog.Nop())

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess})
	d.Emit(context.Background(), AuditEvent{EventType: auditEventDisconnect})
	d.Close()
	d.Close()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})

	if got := sink.Count(); got != 2 {
		t.Fatalf("expected buffered events delivered on close, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("late emit after close is ignored, not dropped; got %d", d.Dropped())
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	revoker := &fakeRevoker{err: errors.New("provider down")}
	sink := newCaptureSink(32)
	e, done := newTestEngine(t, auditTestConfig(), func(b *Builder) {
		b.WithAuditSink(sink).WithRevoker(revoker)
	})
	defer done()

	providerAccess := "ya29.super-secret-access"
	providerRefresh := "1//super-secret-refresh"
	pair := loginAlice(t, e, &ProviderTokens{
		AccessToken:  providerAccess,
		RefreshToken: providerRefresh,
		Expiry:       time.Now().Add(time.Hour),
	})
	next, err := e.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := e.Disconnect(context.Background(), "alice"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	secretNeedles := []string{
		providerAccess,
		providerRefresh,
		pair.RefreshToken,
		next.RefreshToken,
		next.AccessToken,
	}

	events := collectEvents(sink, 4)
	if len(events) == 0 {
		t.Fatal("expected at least one audit event")
	}

	for _, ev := range events {
		for _, needle := range secretNeedles {
			if stringContains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if stringContains(k, needle) || stringContains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

func TestZerologSinkWritesFields(t *testing.T) {
	var buf syncBuffer
	sink := NewZerologSink(zerolog.New(&buf))
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventRefreshReuseDetected,
		SubjectID: "alice",
		Error:     "refresh_reuse",
		Metadata:  map[string]string{"k": "v"},
	})

	for _, want := range []string{`"level":"warn"`, `"event_type":"refresh_reuse_detected"`, `"subject_id":"alice"`, `"error_code":"refresh_reuse"`} {
		if !buf.Contains(want) {
			t.Fatalf("expected %s in %s", want, string(buf.buf))
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stringContains(string(b.buf), v)
}

func stringContains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	if len(sub) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
