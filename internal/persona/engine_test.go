package persona

import (
	"math/rand"
	"testing"

	"foxie/internal/domain"
)

func newTestEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)))
}

func TestMoodRulesApplyInPriorityOrder(t *testing.T) {
	cases := []struct {
		name  string
		stats domain.EmotionStats
		want  domain.Mood
	}{
		{"stress wins over everything", domain.EmotionStats{Stress: 80, Happiness: 90, Energy: 90}, domain.MoodStartled},
		{"low energy", domain.EmotionStats{Energy: 10, Happiness: 90}, domain.MoodTired},
		{"happy and energetic", domain.EmotionStats{Happiness: 85, Energy: 70}, domain.MoodPlayful},
		{"deep focus", domain.EmotionStats{Focus: 80, Energy: 50}, domain.MoodConcentrated},
		{"trusting and content", domain.EmotionStats{Trust: 85, Happiness: 65, Energy: 50}, domain.MoodAffectionate},
		{"listless", domain.EmotionStats{Energy: 30, Happiness: 30}, domain.MoodBored},
		{"default", domain.EmotionStats{Energy: 50, Happiness: 50}, domain.MoodCurious},
	}
	for _, c := range cases {
		if got := Mood(c.stats); got != c.want {
			t.Fatalf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestTriggerPreemptsRandomTransition(t *testing.T) {
	e := newTestEngine(1)
	traits := domain.PersonalityTraits{Playfulness: 0.5, Tiredness: 0.5}

	if got := e.Step(traits, TriggerSleep); got != domain.BehaviorSleeping {
		t.Fatalf("got %s, want sleeping", got)
	}
	e.SetBehavior(domain.BehaviorIdle)
	if got := e.Step(traits, TriggerStartled); got != domain.BehaviorStartled {
		t.Fatalf("got %s, want startled", got)
	}
}

func TestSleepExitsOnlyWhenTirednessDrops(t *testing.T) {
	e := newTestEngine(1)
	traits := domain.PersonalityTraits{Tiredness: 0.8}

	e.Step(traits, TriggerSleep)
	if got := e.Step(traits, TriggerNone); got != domain.BehaviorSleeping {
		t.Fatalf("woke up without tiredness dropping, got %s", got)
	}

	traits.Tiredness = 0.5
	if got := e.Step(traits, TriggerNone); got != domain.BehaviorIdle {
		t.Fatalf("expected idle after tiredness dropped, got %s", got)
	}
}

func TestTiredSittingLeadsToSleep(t *testing.T) {
	e := newTestEngine(1)
	traits := domain.PersonalityTraits{Tiredness: 0.7}

	e.SetBehavior(domain.BehaviorSitting)
	if got := e.Step(traits, TriggerNone); got != domain.BehaviorSleeping {
		t.Fatalf("tired sitting pet should fall asleep, got %s", got)
	}
}

func TestEveryStateHasAnExit(t *testing.T) {
	states := []domain.BehaviorState{
		domain.BehaviorIdle, domain.BehaviorSniffing, domain.BehaviorWalking,
		domain.BehaviorJumping, domain.BehaviorPlayful, domain.BehaviorSitting,
		domain.BehaviorTailWag, domain.BehaviorScratching,
		domain.BehaviorStartled, domain.BehaviorRunning,
	}
	e := newTestEngine(1)
	traits := domain.PersonalityTraits{Playfulness: 0.2, Tiredness: 0.2}
	for _, st := range states {
		e.SetBehavior(st)
		// A handful of steps must always be able to leave the state.
		left := false
		for i := 0; i < 50; i++ {
			if e.Step(traits, TriggerNone) != st {
				left = true
				break
			}
		}
		if !left {
			t.Fatalf("state %s never transitioned away", st)
		}
	}
}

func TestSeededTransitionsAreReproducible(t *testing.T) {
	a := newTestEngine(42)
	b := newTestEngine(42)
	traits := domain.PersonalityTraits{Playfulness: 0.8, Tiredness: 0.4}

	for i := 0; i < 100; i++ {
		ga := a.Step(traits, TriggerNone)
		gb := b.Step(traits, TriggerNone)
		if ga != gb {
			t.Fatalf("step %d diverged: %s vs %s", i, ga, gb)
		}
	}
}

func TestHighPlayfulnessUnlocksPlayfulFromWalking(t *testing.T) {
	e := newTestEngine(7)
	traits := domain.PersonalityTraits{Playfulness: 0.9}

	seen := map[domain.BehaviorState]bool{}
	for i := 0; i < 200; i++ {
		e.SetBehavior(domain.BehaviorWalking)
		seen[e.Step(traits, TriggerNone)] = true
	}
	if !seen[domain.BehaviorPlayful] && !seen[domain.BehaviorJumping] {
		t.Fatalf("high playfulness should reach playful or jumping from walking, saw %v", seen)
	}
}

func TestDriftStaysWithinUnitInterval(t *testing.T) {
	e := newTestEngine(3)
	traits := domain.PersonalityTraits{Playfulness: 1, Tiredness: 0, Curiosity: 0.99, Sociability: 0.01}

	for i := 0; i < 1000; i++ {
		traits = e.Drift(traits)
		for name, v := range map[string]float64{
			"playfulness": traits.Playfulness,
			"tiredness":   traits.Tiredness,
			"curiosity":   traits.Curiosity,
			"sociability": traits.Sociability,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("trait %s escaped [0,1]: %.4f", name, v)
			}
		}
	}
}

func TestDriftStepIsBounded(t *testing.T) {
	e := newTestEngine(9)
	traits := domain.PersonalityTraits{Playfulness: 0.5, Tiredness: 0.5, Curiosity: 0.5, Sociability: 0.5}
	next := e.Drift(traits)

	if d := next.Playfulness - traits.Playfulness; d > driftStep || d < -driftStep {
		t.Fatalf("drift step out of bounds: %.4f", d)
	}
}
