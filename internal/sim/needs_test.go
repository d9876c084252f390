package sim

import (
	"math"
	"testing"
	"time"

	"foxie/internal/domain"
)

func baseNeeds() domain.Needs {
	return domain.Needs{
		Hunger:    80,
		Thirst:    80,
		Sleep:     80,
		Hygiene:   80,
		Happiness: 70,
	}
}

func assertNear(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("got %.6f, want %.6f", got, want)
	}
}

func TestAdvanceAppliesPerMinuteDecay(t *testing.T) {
	n := Advance(baseNeeds(), 10, DefaultConfig())
	assertNear(t, n.Hunger, 75)  // 0.5/min
	assertNear(t, n.Thirst, 73)  // 0.7/min
	assertNear(t, n.Sleep, 77)   // 0.3/min
	assertNear(t, n.Hygiene, 78) // 0.2/min
}

func TestAdvanceClampsAtZero(t *testing.T) {
	n := baseNeeds()
	n.Thirst = 2
	out := Advance(n, 60, DefaultConfig())
	if out.Thirst != 0 {
		t.Fatalf("thirst should clamp at 0, got %.2f", out.Thirst)
	}
	if out.Hunger < 0 || out.Sleep < 0 || out.Hygiene < 0 {
		t.Fatalf("needs went negative: %+v", out)
	}
}

func TestAdvanceDerivesHealthAndHappiness(t *testing.T) {
	n := domain.Needs{Hunger: 100, Thirst: 100, Sleep: 100, Hygiene: 100, Happiness: 50}
	out := Advance(n, 0, DefaultConfig())
	assertNear(t, out.Health, 100)
	// 0.3*100 + 0.2*100 + 0.2*100 + 0.1*100 + 0.2*50
	assertNear(t, out.Happiness, 90)
}

func TestAdvanceIgnoresNegativeElapsed(t *testing.T) {
	out := Advance(baseNeeds(), -5, DefaultConfig())
	assertNear(t, out.Hunger, 80)
}

func TestFeedPremiumClampsAt100(t *testing.T) {
	n := baseNeeds()
	n.Hunger = 95
	s := NewSimulator(DefaultConfig(), n)

	reply := s.Feed(FoodPremium, time.Now())
	if got := s.Needs().Hunger; got != 100 {
		t.Fatalf("hunger should clamp at 100, got %.2f", got)
	}
	if reply == "" {
		t.Fatalf("feed must return an acknowledgment")
	}
}

func TestFeedKinds(t *testing.T) {
	cases := []struct {
		kind FoodKind
		want float64
	}{
		{FoodNormal, 70},
		{FoodPremium, 90},
		{FoodTreat, 55},
	}
	for _, c := range cases {
		n := baseNeeds()
		n.Hunger = 40
		s := NewSimulator(DefaultConfig(), n)
		s.Feed(c.kind, time.Now())
		if got := s.Needs().Hunger; got != c.want {
			t.Fatalf("feed(%s): hunger %.2f, want %.2f", c.kind, got, c.want)
		}
	}
}

func TestGiveWater(t *testing.T) {
	n := baseNeeds()
	n.Thirst = 30
	s := NewSimulator(DefaultConfig(), n)
	now := time.Now()

	s.GiveWater(now)
	if got := s.Needs().Thirst; got != 70 {
		t.Fatalf("thirst %.2f, want 70", got)
	}
	if s.Needs().LastDrank != now {
		t.Fatalf("last drank not recorded")
	}
}

func TestRestBoostAppliesAfterDurationElapses(t *testing.T) {
	n := baseNeeds()
	n.Sleep = 30
	s := NewSimulator(DefaultConfig(), n)
	start := time.Now()

	s.Rest(10*time.Second, start)
	if s.Stage() != StageSleeping {
		t.Fatalf("expected sleeping stage, got %s", s.Stage())
	}

	s.Tick(start.Add(5*time.Second), 5*time.Second)
	if s.Stage() != StageSleeping {
		t.Fatalf("woke up before the rest duration elapsed")
	}

	s.Tick(start.Add(11*time.Second), 6*time.Second)
	if s.Stage() != StageNormal {
		t.Fatalf("expected stage back to normal, got %s", s.Stage())
	}
	if got := s.Needs().Sleep; got < 79 {
		t.Fatalf("sleep boost not applied, got %.2f", got)
	}
}

func TestBatheResetsHygiene(t *testing.T) {
	n := baseNeeds()
	n.Hygiene = 10
	s := NewSimulator(DefaultConfig(), n)
	s.Bathe(time.Now())
	if got := s.Needs().Hygiene; got != 100 {
		t.Fatalf("hygiene %.2f, want 100", got)
	}
}

func TestPlayTradesSleepAndHungerForHappiness(t *testing.T) {
	s := NewSimulator(DefaultConfig(), baseNeeds())
	before := s.Needs()
	s.Play(time.Now())
	after := s.Needs()

	if after.Happiness != clamp100(before.Happiness+15) {
		t.Fatalf("happiness %.2f, want %.2f", after.Happiness, clamp100(before.Happiness+15))
	}
	if after.Sleep != before.Sleep-5 || after.Hunger != before.Hunger-5 {
		t.Fatalf("play should cost 5 sleep and 5 hunger: %+v", after)
	}
}

func TestUrgentNeedCriticalBeatsWarning(t *testing.T) {
	n := baseNeeds()
	n.Hunger = 10
	n.Thirst = 50
	s := NewSimulator(DefaultConfig(), n)

	report, ok := s.UrgentNeed()
	if !ok {
		t.Fatalf("expected an urgent need")
	}
	if report.Need != "hunger" || report.Urgency != domain.UrgencyCritical {
		t.Fatalf("got %+v, want hunger/critical", report)
	}
}

func TestUrgentNeedScansCriticalTierFirst(t *testing.T) {
	// Hunger only warns, thirst is critical: critical wins despite priority.
	n := baseNeeds()
	n.Hunger = 30
	n.Thirst = 10
	s := NewSimulator(DefaultConfig(), n)

	report, ok := s.UrgentNeed()
	if !ok {
		t.Fatalf("expected an urgent need")
	}
	if report.Need != "thirst" || report.Urgency != domain.UrgencyCritical {
		t.Fatalf("got %+v, want thirst/critical", report)
	}
}

func TestUrgentNeedNoneWhenHealthy(t *testing.T) {
	s := NewSimulator(DefaultConfig(), baseNeeds())
	if _, ok := s.UrgentNeed(); ok {
		t.Fatalf("healthy pet should have no urgent need")
	}
}
