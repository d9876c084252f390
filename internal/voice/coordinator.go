package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"foxie/internal/domain"
)

// SessionState is the coordinator's lifecycle state.
type SessionState string

const (
	StateStopped   SessionState = "stopped"
	StateStarting  SessionState = "starting"
	StateListening SessionState = "listening"
	StateErrored   SessionState = "errored"
)

type CoordinatorConfig struct {
	// RestartSettle is how long to wait after a stream ends before reopening.
	RestartSettle time.Duration
	// RestartCooldown is the minimum gap between restart attempts; it absorbs
	// engines that cycle end events rapidly.
	RestartCooldown time.Duration
	// TransientRetry is the delay before retrying after a recoverable error.
	TransientRetry time.Duration
	// FinalDedupe is the window within which an identical final is discarded.
	FinalDedupe time.Duration
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		RestartSettle:   250 * time.Millisecond,
		RestartCooldown: 800 * time.Millisecond,
		TransientRetry:  1000 * time.Millisecond,
		FinalDedupe:     1500 * time.Millisecond,
	}
}

// Coordinator owns the recognition session lifecycle: start/stop, auto-restart
// with cooldown, duplicate-final suppression, and the single-flight guard
// around asynchronous command resolution. Events may come from a managed
// Engine stream or be injected directly with Ingest (the MQTT path); both go
// through the same guards.
type Coordinator struct {
	cfg       CoordinatorConfig
	engine    Engine
	handler   func(ctx context.Context, u domain.Utterance)
	onInterim func(text string)
	onStatus  func(state SessionState, err error)
	logger    *slog.Logger
	now       func() time.Time

	mu            sync.Mutex
	ctx           context.Context
	state         SessionState
	desired       bool
	stream        Stream
	sessionID     string
	lastFinalText string
	lastFinalAt   time.Time
	lastRestartAt time.Time
	inFlight      bool
	restartTimer  *time.Timer
}

type CoordinatorOption func(*Coordinator)

// WithInterimHandler sets the live-transcript callback. Interims never trigger
// parsing or wake refresh.
func WithInterimHandler(fn func(text string)) CoordinatorOption {
	return func(c *Coordinator) { c.onInterim = fn }
}

// WithStatusHandler sets the callback for lifecycle changes, used to surface
// non-recoverable errors (microphone permission) to the presentation layer.
func WithStatusHandler(fn func(state SessionState, err error)) CoordinatorOption {
	return func(c *Coordinator) { c.onStatus = fn }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(cfg CoordinatorConfig, engine Engine, handler func(ctx context.Context, u domain.Utterance), logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	if cfg.FinalDedupe <= 0 {
		cfg = DefaultCoordinatorConfig()
	}
	c := &Coordinator{
		cfg:     cfg,
		engine:  engine,
		handler: handler,
		logger:  logger,
		now:     time.Now,
		state:   StateStopped,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the recognition stream. Calling Start while already listening is
// a no-op, as is the engine reporting the stream already started.
func (c *Coordinator) Start(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.desired && c.state == StateListening {
		c.mu.Unlock()
		return nil
	}
	c.desired = true
	c.ctx = ctx
	c.sessionID = sessionID
	c.state = StateStarting
	c.mu.Unlock()

	if c.engine == nil {
		// Ingest-only mode: events are pushed from the hub.
		c.setState(StateListening, nil)
		return nil
	}

	stream, err := c.engine.Open(sessionID, c.eventHandler())
	if errors.Is(err, ErrAlreadyStarted) {
		c.setState(StateListening, nil)
		return nil
	}
	if err != nil {
		c.mu.Lock()
		c.desired = false
		c.mu.Unlock()
		c.setState(StateErrored, err)
		return err
	}

	c.mu.Lock()
	c.stream = stream
	c.lastRestartAt = c.now()
	c.mu.Unlock()
	c.setState(StateListening, nil)
	return nil
}

// Stop shuts the session down and cancels any pending restart. Safe to call
// repeatedly.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.desired = false
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			c.logger.Warn("close recognition stream failed", "error", err)
		}
	}
	c.setState(StateStopped, nil)
}

// Ingest feeds an externally received recognition event through the same
// dedupe and single-flight guards as engine-delivered events.
func (c *Coordinator) Ingest(u domain.Utterance) {
	c.handleResult(u)
}

func (c *Coordinator) eventHandler() EventHandler {
	return EventHandler{
		OnResult: c.handleResult,
		OnEnd:    c.handleEnd,
		OnError:  c.handleError,
	}
}

func (c *Coordinator) handleResult(u domain.Utterance) {
	normalized := Normalize(u.Text)
	if normalized == "" {
		return
	}
	at := u.Timestamp
	if at.IsZero() {
		at = c.now()
	}

	if !u.IsFinal {
		if c.onInterim != nil {
			c.onInterim(normalized)
		}
		return
	}

	c.mu.Lock()
	if normalized == c.lastFinalText && at.Sub(c.lastFinalAt) < c.cfg.FinalDedupe {
		c.mu.Unlock()
		c.logger.Debug("duplicate final discarded", "text", normalized)
		return
	}
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug("final dropped: command resolution in flight", "text", normalized)
		return
	}
	// Only accepted finals enter the dedup window: a repeat of a dropped
	// final is a fresh command, not a duplicate.
	c.inFlight = true
	c.lastFinalText = normalized
	c.lastFinalAt = at
	ctx := c.ctx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer func() {
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		}()
		u.Text = normalized
		u.Timestamp = at
		c.handler(ctx, u)
	}()
}

func (c *Coordinator) handleEnd() {
	c.mu.Lock()
	if !c.desired {
		c.mu.Unlock()
		return
	}
	delay := c.cfg.RestartSettle
	if since := c.now().Sub(c.lastRestartAt); since < c.cfg.RestartCooldown {
		if remaining := c.cfg.RestartCooldown - since; remaining > delay {
			delay = remaining
		}
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.restartTimer = time.AfterFunc(delay, c.restart)
	c.mu.Unlock()

	c.logger.Debug("recognition stream ended, restart scheduled")
}

func (c *Coordinator) handleError(code ErrorCode, err error) {
	c.mu.Lock()
	desired := c.desired
	c.mu.Unlock()

	if code.Recoverable() && desired {
		c.logger.Warn("transient recognition error, retrying", "code", code, "error", err)
		c.mu.Lock()
		if c.restartTimer != nil {
			c.restartTimer.Stop()
		}
		c.restartTimer = time.AfterFunc(c.cfg.TransientRetry, c.restart)
		c.mu.Unlock()
		return
	}
	if code == ErrNoSpeech {
		// Engines emit this on silence; the end handler drives the restart.
		return
	}

	// Non-recoverable: stand down fully so the end event engines emit right
	// after the error cannot resurrect the session.
	c.mu.Lock()
	c.desired = false
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	c.mu.Unlock()

	c.logger.Error("recognition error", "code", code, "error", err)
	c.setState(StateErrored, err)
}

func (c *Coordinator) restart() {
	c.mu.Lock()
	if !c.desired || c.engine == nil {
		c.mu.Unlock()
		return
	}
	old := c.stream
	c.stream = nil
	c.state = StateStarting
	c.lastRestartAt = c.now()
	sessionID := c.sessionID
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	stream, err := c.engine.Open(sessionID, c.eventHandler())
	if errors.Is(err, ErrAlreadyStarted) {
		c.setState(StateListening, nil)
		return
	}
	if err != nil {
		c.logger.Warn("recognition restart failed, retrying", "error", err)
		c.mu.Lock()
		if c.desired {
			if c.restartTimer != nil {
				c.restartTimer.Stop()
			}
			c.restartTimer = time.AfterFunc(c.cfg.TransientRetry, c.restart)
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()
	c.setState(StateListening, nil)
}

func (c *Coordinator) setState(s SessionState, err error) {
	c.mu.Lock()
	c.state = s
	cb := c.onStatus
	c.mu.Unlock()
	if cb != nil {
		cb(s, err)
	}
}
