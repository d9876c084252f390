package orchestrator

import (
	"context"
	"fmt"
	"time"

	"foxie/internal/domain"
	"foxie/internal/persona"
)

// RunNeedsTicker decays the pet's needs on a fixed cadence and nags the user
// when a need crosses an urgency threshold.
func (s *Session) RunNeedsTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("needs ticker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case tickAt := <-ticker.C:
			s.tickNeeds(ctx, tickAt)
		}
	}
}

func (s *Session) tickNeeds(ctx context.Context, now time.Time) {
	s.mu.Lock()
	elapsed := now.Sub(s.lastNeedsTick)
	s.lastNeedsTick = now
	s.sim.Tick(now, elapsed)

	needs := s.sim.Needs()
	// Energy tracks rest, happiness mirrors the simulation's derived value.
	s.emotion.Energy = needs.Sleep
	s.emotion.Happiness = needs.Happiness

	report, urgent := s.sim.UrgentNeed()
	nagKey := ""
	if urgent {
		nagKey = fmt.Sprintf("%s/%s", report.Need, report.Urgency)
	}
	nagChanged := nagKey != "" && nagKey != s.lastNag
	s.lastNag = nagKey
	s.mu.Unlock()

	if nagChanged {
		s.nag(report)
	}
	s.broadcastState()
	s.persistState(ctx)
}

func (s *Session) nag(report domain.NeedReport) {
	if s.pub == nil || s.pres == nil {
		return
	}
	text := fmt.Sprintf("🦊 *whimpers* My %s is getting low...", report.Need)
	if report.Urgency == domain.UrgencyCritical {
		text = fmt.Sprintf("🦊 *whines loudly* I really need %s!", needVerb(report.Need))
	}
	for _, t := range s.pres.ListOnline() {
		if err := s.pub.PublishUtterance(t.TerminalID, domain.UtterancePayload{Text: text}); err != nil {
			s.logger.Warn("publish nag failed", "terminal_id", t.TerminalID, "error", err)
		}
	}
}

func needVerb(need string) string {
	switch need {
	case "hunger":
		return "food"
	case "thirst":
		return "water"
	case "sleep":
		return "a nap"
	case "hygiene":
		return "a bath"
	default:
		return need
	}
}

// RunMoodTicker reclassifies the mood and advances the behavior state machine.
func (s *Session) RunMoodTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("mood ticker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickMood()
		}
	}
}

func (s *Session) tickMood() {
	s.mu.Lock()
	prevMood := s.mood
	prevBehavior := s.engine.Behavior()
	s.mood = persona.Mood(s.emotion)
	behavior := s.engine.Step(s.traits, persona.TriggerNone)
	changed := s.mood != prevMood || behavior != prevBehavior
	s.mu.Unlock()

	if changed {
		s.broadcastState()
	}
}

// RunTraitDriftTicker lets personality traits wander slowly over a session.
func (s *Session) RunTraitDriftTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("trait drift ticker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.traits = s.engine.Drift(s.traits)
			s.mu.Unlock()
		}
	}
}
