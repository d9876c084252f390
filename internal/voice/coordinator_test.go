package voice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"foxie/internal/domain"
)

func fastConfig() CoordinatorConfig {
	return CoordinatorConfig{
		RestartSettle:   10 * time.Millisecond,
		RestartCooldown: 30 * time.Millisecond,
		TransientRetry:  10 * time.Millisecond,
		FinalDedupe:     1500 * time.Millisecond,
	}
}

type countingHandler struct {
	mu    sync.Mutex
	texts []string
	block chan struct{}
}

func (h *countingHandler) handle(_ context.Context, u domain.Utterance) {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.texts = append(h.texts, u.Text)
	h.mu.Unlock()
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.texts)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestDuplicateFinalWithinWindowIsDiscarded(t *testing.T) {
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), nil, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	base := time.Now()
	c.Ingest(domain.Utterance{Text: "feed me", IsFinal: true, Timestamp: base})
	waitFor(t, func() bool { return h.count() == 1 }, "first final handled")

	c.Ingest(domain.Utterance{Text: "feed me", IsFinal: true, Timestamp: base.Add(500 * time.Millisecond)})
	time.Sleep(50 * time.Millisecond)
	if got := h.count(); got != 1 {
		t.Fatalf("duplicate within window should be discarded, handled %d times", got)
	}

	c.Ingest(domain.Utterance{Text: "feed me", IsFinal: true, Timestamp: base.Add(2 * time.Second)})
	waitFor(t, func() bool { return h.count() == 2 }, "final outside window handled")
}

func TestInterimsNeverReachTheHandler(t *testing.T) {
	h := &countingHandler{}
	var interims []string
	c := NewCoordinator(fastConfig(), nil, h.handle, testLogger(),
		WithInterimHandler(func(text string) { interims = append(interims, text) }))
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	c.Ingest(domain.Utterance{Text: "fee", IsFinal: false, Timestamp: time.Now()})
	c.Ingest(domain.Utterance{Text: "feed m", IsFinal: false, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	if h.count() != 0 {
		t.Fatalf("interim results must not be dispatched")
	}
	if len(interims) != 2 {
		t.Fatalf("expected 2 interim callbacks, got %d", len(interims))
	}
}

func TestSingleFlightDropsFinalsWhileResolving(t *testing.T) {
	h := &countingHandler{block: make(chan struct{})}
	c := NewCoordinator(fastConfig(), nil, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	base := time.Now()
	c.Ingest(domain.Utterance{Text: "open the notes", IsFinal: true, Timestamp: base})
	time.Sleep(20 * time.Millisecond)
	// Resolution of the first command is still blocked; this one must drop.
	c.Ingest(domain.Utterance{Text: "start a timer", IsFinal: true, Timestamp: base.Add(100 * time.Millisecond)})

	close(h.block)
	waitFor(t, func() bool { return h.count() == 1 }, "blocked final released")
	time.Sleep(50 * time.Millisecond)
	if got := h.count(); got != 1 {
		t.Fatalf("expected 1 handled command, got %d", got)
	}

	h.block = nil
	c.Ingest(domain.Utterance{Text: "sit down", IsFinal: true, Timestamp: base.Add(3 * time.Second)})
	waitFor(t, func() bool { return h.count() == 2 }, "post-release final handled")
}

func TestAutoRestartAfterStreamEnd(t *testing.T) {
	engine := NewMockEngine()
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	engine.End()
	waitFor(t, func() bool { return engine.Opens() == 2 }, "stream reopened after end")
	waitFor(t, func() bool { return c.State() == StateListening }, "listening after restart")
}

func TestRestartCooldownAbsorbsRapidEndCycles(t *testing.T) {
	engine := NewMockEngine()
	cfg := fastConfig()
	cfg.RestartCooldown = 200 * time.Millisecond
	h := &countingHandler{}
	c := NewCoordinator(cfg, engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	engine.End()
	time.Sleep(50 * time.Millisecond)
	if engine.Opens() != 1 {
		t.Fatalf("restart fired before the cooldown elapsed")
	}
	waitFor(t, func() bool { return engine.Opens() == 2 }, "restart after cooldown")
}

func TestTransientErrorRetries(t *testing.T) {
	engine := NewMockEngine()
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	engine.Fail(ErrNetwork, fmt.Errorf("socket closed"))
	waitFor(t, func() bool { return engine.Opens() == 2 }, "stream reopened after network error")
}

func TestNotAllowedStopsTheSession(t *testing.T) {
	engine := NewMockEngine()
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	engine.Fail(ErrNotAllowed, fmt.Errorf("permission denied"))
	waitFor(t, func() bool { return c.State() == StateErrored }, "errored after not-allowed")
	time.Sleep(50 * time.Millisecond)
	if engine.Opens() != 1 {
		t.Fatalf("not-allowed must not trigger a restart, opens=%d", engine.Opens())
	}
}

func TestNotAllowedFollowedByEndDoesNotRestart(t *testing.T) {
	engine := NewMockEngine()
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	// Browser engines emit an end event right after a permission error.
	engine.Fail(ErrNotAllowed, fmt.Errorf("permission denied"))
	engine.End()

	waitFor(t, func() bool { return c.State() == StateErrored }, "errored after not-allowed")
	time.Sleep(100 * time.Millisecond)
	if engine.Opens() != 1 {
		t.Fatalf("permission-denied session must stay down, opens=%d", engine.Opens())
	}
	if c.State() != StateErrored {
		t.Fatalf("expected errored state to stick, got %s", c.State())
	}
}

func TestDroppedFinalDoesNotPoisonDedup(t *testing.T) {
	h := &countingHandler{block: make(chan struct{})}
	c := NewCoordinator(fastConfig(), nil, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	base := time.Now()
	c.Ingest(domain.Utterance{Text: "feed me", IsFinal: true, Timestamp: base})
	time.Sleep(20 * time.Millisecond)
	// Dropped by the single-flight guard while the first command resolves.
	c.Ingest(domain.Utterance{Text: "open the notes", IsFinal: true, Timestamp: base.Add(100 * time.Millisecond)})

	close(h.block)
	waitFor(t, func() bool { return h.count() == 1 }, "blocked final released")
	time.Sleep(50 * time.Millisecond)
	h.block = nil

	// The user repeats the lost command inside the dedup window; it was never
	// accepted, so it must be handled now.
	c.Ingest(domain.Utterance{Text: "open the notes", IsFinal: true, Timestamp: base.Add(550 * time.Millisecond)})
	waitFor(t, func() bool { return h.count() == 2 }, "repeated dropped final handled")

	h.mu.Lock()
	last := h.texts[len(h.texts)-1]
	h.mu.Unlock()
	if last != "open the notes" {
		t.Fatalf("expected the repeated command to be handled, got %q", last)
	}
}

func TestIngestOnlyModeListensWithoutEngine(t *testing.T) {
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), nil, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	if c.State() != StateListening {
		t.Fatalf("expected listening in ingest-only mode, got %s", c.State())
	}
	c.Ingest(domain.Utterance{Text: "hey foxie", IsFinal: true, Timestamp: time.Now()})
	waitFor(t, func() bool { return h.count() == 1 }, "ingested final handled")
}

func TestStartWhileListeningIsANoOp(t *testing.T) {
	engine := NewMockEngine()
	h := &countingHandler{}
	c := NewCoordinator(fastConfig(), engine, h.handle, testLogger())
	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()

	if err := c.Start(context.Background(), "s1"); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if engine.Opens() != 1 {
		t.Fatalf("second start must not open a new stream, opens=%d", engine.Opens())
	}
}
