package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"foxie/internal/domain"
	"foxie/internal/llm"
	"foxie/internal/memory"
	"foxie/internal/persona"
	"foxie/internal/sim"
	"foxie/internal/terminal"
	"foxie/internal/voice"
)

// Publisher pushes utterances and state snapshots out to terminals.
type Publisher interface {
	PublishUtterance(terminalID string, payload domain.UtterancePayload) error
	PublishState(terminalID string, payload domain.StateUpdatePayload) error
}

// ActionInvoker asks a terminal to perform a desktop side effect.
type ActionInvoker interface {
	InvokeAction(ctx context.Context, terminalID string, req domain.ActionRequest) (domain.ActionResult, error)
}

// Store persists the pet's state and interaction history.
type Store interface {
	SaveProfileState(ctx context.Context, petID string, traits domain.PersonalityTraits, needs domain.Needs, emotion domain.EmotionStats, behavior domain.BehaviorState) error
	AppendMemoryRecord(ctx context.Context, petID string, rec domain.MemoryRecord) error
	AppendTranscript(ctx context.Context, petID, terminalID, text string, cmd domain.CommandType) error
}

// Presence reports which terminals are reachable right now.
type Presence interface {
	ListOnline() []terminal.State
}

type Config struct {
	LLMModel string
}

// Session owns one pet: its simulation, persona, wake gate, and parser. All
// state mutations go through its mutex; the publisher, invoker, and store are
// optional and nil-safe.
type Session struct {
	cfg     Config
	parser  *voice.Parser
	llm     llm.Provider
	pub     Publisher
	invoker ActionInvoker
	store   Store
	pres    Presence
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.Mutex
	activeTerminal string
	profile        domain.PetProfile
	sim            *sim.Simulator
	engine         *persona.Engine
	wake           *voice.WakeDetector
	memlog         *memory.Log
	traits         domain.PersonalityTraits
	emotion        domain.EmotionStats
	mood           domain.Mood
	lastNeedsTick  time.Time
	lastNag        string
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func WithStore(store Store) SessionOption {
	return func(s *Session) { s.store = store }
}

func WithPresence(p Presence) SessionOption {
	return func(s *Session) { s.pres = p }
}

func NewSession(
	cfg Config,
	profile domain.PetProfile,
	simulator *sim.Simulator,
	engine *persona.Engine,
	wake *voice.WakeDetector,
	parser *voice.Parser,
	memlog *memory.Log,
	provider llm.Provider,
	pub Publisher,
	invoker ActionInvoker,
	logger *slog.Logger,
	opts ...SessionOption,
) *Session {
	s := &Session{
		cfg:     cfg,
		parser:  parser,
		llm:     provider,
		pub:     pub,
		invoker: invoker,
		logger:  logger,
		now:     time.Now,
		profile: profile,
		sim:     simulator,
		engine:  engine,
		wake:    wake,
		memlog:  memlog,
		traits:  profile.Traits,
		emotion: profile.Emotion,
		mood:    domain.MoodCurious,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastNeedsTick = s.now()
	return s
}

// AttachTransport wires the publisher and invoker once the hub is connected.
func (s *Session) AttachTransport(pub Publisher, invoker ActionInvoker) {
	s.mu.Lock()
	s.pub = pub
	s.invoker = invoker
	s.mu.Unlock()
}

// SetActiveTerminal records which terminal spoke last so replies route back
// to it.
func (s *Session) SetActiveTerminal(terminalID string) {
	s.mu.Lock()
	s.activeTerminal = terminalID
	s.mu.Unlock()
}

func (s *Session) ActiveTerminal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTerminal
}

// HandleUtterance runs one final recognition result through the pipeline:
// wake gate, parse, dispatch, reply.
func (s *Session) HandleUtterance(ctx context.Context, terminalID string, u domain.Utterance) {
	norm := voice.Normalize(u.Text)
	if norm == "" {
		return
	}
	now := s.now()

	s.mu.Lock()
	awake, triggered := s.wake.Check(norm, now)
	s.mu.Unlock()

	if !awake {
		s.logger.Debug("asleep, ignoring", "text", norm)
		return
	}

	// Parse outside the lock: the fallback tier can block on the LLM.
	cmd := s.parser.Parse(ctx, norm)

	reply := s.dispatch(ctx, terminalID, cmd, now)

	s.mu.Lock()
	s.wake.Refresh(s.now())
	s.mu.Unlock()

	if triggered {
		s.logger.Info("wake phrase heard", "terminal_id", terminalID)
	}
	s.logger.Info("utterance handled", "terminal_id", terminalID, "command", cmd.Type, "text", norm)

	s.recordTranscript(ctx, terminalID, norm, cmd.Type)
	if reply != "" {
		s.sayTo(terminalID, reply, cmd.Type)
	}
	s.broadcastState()
	s.persistState(ctx)
}

// Care applies one direct care action, the kind the desktop care panel
// offers outside the voice pipeline.
func (s *Session) Care(ctx context.Context, action, kind string) (string, error) {
	now := s.now()
	var reply string
	s.mu.Lock()
	switch action {
	case "feed":
		reply = s.sim.Feed(sim.FoodKind(kind), now)
	case "water":
		reply = s.sim.GiveWater(now)
	case "rest":
		reply = s.sim.Rest(10*time.Second, now)
	case "bathe":
		reply = s.sim.Bathe(now)
	case "play":
		reply = s.sim.Play(now)
	case "praise":
		reply = s.sim.Praise()
	default:
		s.mu.Unlock()
		return "", fmt.Errorf("unknown care action: %s", action)
	}
	s.mu.Unlock()

	s.remember(ctx, action, kind, now)
	s.broadcastState()
	s.persistState(ctx)
	return reply, nil
}

// Snapshot returns the avatar-facing view of the whole simulation.
func (s *Session) Snapshot() domain.StateUpdatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.StateUpdatePayload {
	return domain.StateUpdatePayload{
		Needs:    s.sim.Needs(),
		Traits:   s.traits,
		Emotion:  s.emotion,
		Mood:     s.mood,
		Behavior: s.engine.Behavior(),
		Awake:    s.wake.Awake(s.now()),
		TS:       s.now().UTC().Format(time.RFC3339Nano),
	}
}

// RecentMemories returns up to n entries from the interaction log.
func (s *Session) RecentMemories(n int) []domain.MemoryRecord {
	return s.memlog.Recent(n)
}

func (s *Session) sayTo(terminalID, text string, cmd domain.CommandType) {
	if s.pub == nil || terminalID == "" {
		return
	}
	err := s.pub.PublishUtterance(terminalID, domain.UtterancePayload{
		Text:    text,
		Command: cmd,
	})
	if err != nil {
		s.logger.Warn("publish utterance failed", "terminal_id", terminalID, "error", err)
	}
}

func (s *Session) broadcastState() {
	if s.pub == nil || s.pres == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, t := range s.pres.ListOnline() {
		if err := s.pub.PublishState(t.TerminalID, snap); err != nil {
			s.logger.Warn("publish state failed", "terminal_id", t.TerminalID, "error", err)
		}
	}
}

func (s *Session) persistState(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	petID := s.profile.PetID
	traits := s.traits
	needs := s.sim.Needs()
	emotion := s.emotion
	behavior := s.engine.Behavior()
	s.mu.Unlock()

	if err := s.store.SaveProfileState(ctx, petID, traits, needs, emotion, behavior); err != nil {
		s.logger.Warn("save profile state failed", "pet_id", petID, "error", err)
	}
}

func (s *Session) remember(ctx context.Context, kind, detail string, at time.Time) {
	rec := s.memlog.Append(kind, detail, at)
	if s.store == nil {
		return
	}
	if err := s.store.AppendMemoryRecord(ctx, s.profile.PetID, rec); err != nil {
		s.logger.Warn("append memory record failed", "error", err)
	}
}

func (s *Session) recordTranscript(ctx context.Context, terminalID, text string, cmd domain.CommandType) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendTranscript(ctx, s.profile.PetID, terminalID, text, cmd); err != nil {
		s.logger.Warn("append transcript failed", "error", err)
	}
}
