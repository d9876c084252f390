package persona

import (
	"math/rand"

	"foxie/internal/domain"
)

// Trigger preempts random behavior selection for one transition.
type Trigger string

const (
	TriggerNone     Trigger = ""
	TriggerStartled Trigger = "startled"
	TriggerPlay     Trigger = "play"
	TriggerSleep    Trigger = "sleep"
	TriggerSit      Trigger = "sit"
	TriggerJump     Trigger = "jump"
	TriggerRun      Trigger = "run"
	TriggerTailWag  Trigger = "tail_wag"
	TriggerIdle     Trigger = "idle"
)

const driftStep = 0.05

// Engine picks moods and behavior transitions. Randomness comes from the
// injected source so runs are reproducible under a fixed seed. The caller
// serializes access.
type Engine struct {
	rng *rand.Rand

	behavior domain.BehaviorState
	// tiredness captured when sleep began; the pet wakes only once the
	// current trait has drifted below it.
	sleepEntryTiredness float64
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng, behavior: domain.BehaviorIdle}
}

// Behavior returns the current behavior state.
func (e *Engine) Behavior() domain.BehaviorState { return e.behavior }

// SetBehavior force-sets the state, bypassing the transition table.
func (e *Engine) SetBehavior(b domain.BehaviorState) { e.behavior = b }

// Mood classifies emotion stats. Rules are checked in priority order and the
// first match wins; curious is the fallback.
func Mood(s domain.EmotionStats) domain.Mood {
	switch {
	case s.Stress > 70:
		return domain.MoodStartled
	case s.Energy < 20:
		return domain.MoodTired
	case s.Happiness > 80 && s.Energy > 60:
		return domain.MoodPlayful
	case s.Focus > 75:
		return domain.MoodConcentrated
	case s.Trust > 80 && s.Happiness > 60:
		return domain.MoodAffectionate
	case s.Energy < 40 && s.Happiness < 40:
		return domain.MoodBored
	default:
		return domain.MoodCurious
	}
}

// Step advances the behavior state machine once. A non-empty trigger preempts
// the random transition table.
func (e *Engine) Step(traits domain.PersonalityTraits, trigger Trigger) domain.BehaviorState {
	if trigger != TriggerNone {
		e.behavior = e.applyTrigger(traits, trigger)
		return e.behavior
	}

	if e.behavior == domain.BehaviorSleeping {
		// Sleep ends only when tiredness has fallen below where it was
		// at sleep entry.
		if traits.Tiredness < e.sleepEntryTiredness {
			e.behavior = domain.BehaviorIdle
		}
		return e.behavior
	}

	candidates := e.transitions(traits)
	e.behavior = candidates[e.rng.Intn(len(candidates))]
	if e.behavior == domain.BehaviorSleeping {
		e.sleepEntryTiredness = traits.Tiredness
	}
	return e.behavior
}

func (e *Engine) applyTrigger(traits domain.PersonalityTraits, trigger Trigger) domain.BehaviorState {
	switch trigger {
	case TriggerStartled:
		return domain.BehaviorStartled
	case TriggerPlay:
		return domain.BehaviorPlayful
	case TriggerSleep:
		e.sleepEntryTiredness = traits.Tiredness
		return domain.BehaviorSleeping
	case TriggerSit:
		return domain.BehaviorSitting
	case TriggerJump:
		return domain.BehaviorJumping
	case TriggerRun:
		return domain.BehaviorRunning
	case TriggerTailWag:
		return domain.BehaviorTailWag
	default:
		return domain.BehaviorIdle
	}
}

// transitions returns the candidate next states for the current behavior.
// Every state has at least one exit so the machine can never wedge.
func (e *Engine) transitions(traits domain.PersonalityTraits) []domain.BehaviorState {
	switch e.behavior {
	case domain.BehaviorIdle:
		out := []domain.BehaviorState{
			domain.BehaviorSniffing,
			domain.BehaviorWalking,
			domain.BehaviorTailWag,
			domain.BehaviorSitting,
		}
		if traits.Playfulness > 0.7 {
			out = append(out, domain.BehaviorPlayful)
		}
		if traits.Tiredness > 0.7 {
			out = append(out, domain.BehaviorSitting, domain.BehaviorSleeping)
		}
		return out
	case domain.BehaviorSniffing:
		return []domain.BehaviorState{domain.BehaviorIdle, domain.BehaviorWalking}
	case domain.BehaviorWalking:
		if traits.Playfulness > 0.7 {
			return []domain.BehaviorState{domain.BehaviorPlayful, domain.BehaviorJumping, domain.BehaviorIdle}
		}
		return []domain.BehaviorState{domain.BehaviorIdle, domain.BehaviorSniffing}
	case domain.BehaviorJumping, domain.BehaviorPlayful, domain.BehaviorTailWag,
		domain.BehaviorScratching, domain.BehaviorStartled, domain.BehaviorRunning:
		return []domain.BehaviorState{domain.BehaviorIdle}
	case domain.BehaviorSitting:
		if traits.Tiredness > 0.6 {
			return []domain.BehaviorState{domain.BehaviorSleeping}
		}
		return []domain.BehaviorState{domain.BehaviorIdle, domain.BehaviorScratching}
	default:
		return []domain.BehaviorState{domain.BehaviorIdle}
	}
}

// Drift nudges every trait by a uniform step in [-driftStep, +driftStep].
func (e *Engine) Drift(t domain.PersonalityTraits) domain.PersonalityTraits {
	t.Playfulness = clamp01(t.Playfulness + e.jitter())
	t.Tiredness = clamp01(t.Tiredness + e.jitter())
	t.Curiosity = clamp01(t.Curiosity + e.jitter())
	t.Sociability = clamp01(t.Sociability + e.jitter())
	return t
}

func (e *Engine) jitter() float64 {
	return (e.rng.Float64()*2 - 1) * driftStep
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
