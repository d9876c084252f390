package sim

import (
	"fmt"
	"time"

	"foxie/internal/domain"
)

// LifeStage is a transient activity overlay on top of the behavior state.
type LifeStage string

const (
	StageNormal   LifeStage = "normal"
	StageSleeping LifeStage = "sleeping"
	StagePlaying  LifeStage = "playing"
)

// FoodKind selects the feeding portion size.
type FoodKind string

const (
	FoodNormal  FoodKind = "normal"
	FoodPremium FoodKind = "premium"
	FoodTreat   FoodKind = "treat"
)

// Config holds the decay and replenish rates. Rates are per elapsed minute so
// any tick period of a second or more works unchanged.
type Config struct {
	HungerDecayPerMin  float64
	ThirstDecayPerMin  float64
	SleepDecayPerMin   float64
	HygieneDecayPerMin float64
}

func DefaultConfig() Config {
	return Config{
		HungerDecayPerMin:  0.5,
		ThirstDecayPerMin:  0.7,
		SleepDecayPerMin:   0.3,
		HygieneDecayPerMin: 0.2,
	}
}

var feedAmounts = map[FoodKind]float64{
	FoodNormal:  30,
	FoodPremium: 50,
	FoodTreat:   15,
}

// Advance applies decay for the elapsed wall time and recomputes the derived
// values. Pure: the input is not mutated.
func Advance(n domain.Needs, elapsedMinutes float64, cfg Config) domain.Needs {
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}
	n.Hunger = clamp100(n.Hunger - cfg.HungerDecayPerMin*elapsedMinutes)
	n.Thirst = clamp100(n.Thirst - cfg.ThirstDecayPerMin*elapsedMinutes)
	n.Sleep = clamp100(n.Sleep - cfg.SleepDecayPerMin*elapsedMinutes)
	n.Hygiene = clamp100(n.Hygiene - cfg.HygieneDecayPerMin*elapsedMinutes)
	return derive(n)
}

func derive(n domain.Needs) domain.Needs {
	n.Health = clamp100((n.Hunger + n.Thirst + n.Sleep + n.Hygiene) / 4)
	n.Happiness = clamp100(0.3*n.Hunger + 0.2*n.Thirst + 0.2*n.Sleep + 0.1*n.Hygiene + 0.2*n.Happiness)
	return n
}

// Simulator owns one pet's needs record. It is not internally locked: the
// session serializes every tick and action against it.
type Simulator struct {
	cfg        Config
	needs      domain.Needs
	stage      LifeStage
	stageUntil time.Time
}

func NewSimulator(cfg Config, initial domain.Needs) *Simulator {
	if cfg.HungerDecayPerMin <= 0 {
		cfg = DefaultConfig()
	}
	return &Simulator{cfg: cfg, needs: derive(initial), stage: StageNormal}
}

// Needs returns the current record.
func (s *Simulator) Needs() domain.Needs { return s.needs }

// Stage returns the transient life stage.
func (s *Simulator) Stage() LifeStage { return s.stage }

// Tick advances the simulation by the elapsed wall time and resolves an
// expired transient stage. Resting replenishment lands when the stage ends.
func (s *Simulator) Tick(now time.Time, elapsed time.Duration) {
	s.needs = Advance(s.needs, elapsed.Minutes(), s.cfg)

	if s.stage != StageNormal && !now.Before(s.stageUntil) {
		if s.stage == StageSleeping {
			s.needs.Sleep = clamp100(s.needs.Sleep + 50)
			s.needs.Happiness = clamp100(s.needs.Happiness + 10)
			s.needs.LastSlept = now
		}
		s.stage = StageNormal
		s.stageUntil = time.Time{}
	}
}

// Feed applies a portion by kind; unknown kinds get the normal portion.
func (s *Simulator) Feed(kind FoodKind, now time.Time) string {
	amount, ok := feedAmounts[kind]
	if !ok {
		amount = feedAmounts[FoodNormal]
	}
	s.needs.Hunger = clamp100(s.needs.Hunger + amount)
	s.needs.Happiness = clamp100(s.needs.Happiness + 5)
	s.needs.LastFed = now
	return "🍖 Yum! That hit the spot."
}

func (s *Simulator) GiveWater(now time.Time) string {
	s.needs.Thirst = clamp100(s.needs.Thirst + 40)
	s.needs.Happiness = clamp100(s.needs.Happiness + 3)
	s.needs.LastDrank = now
	return "💧 Slurp slurp... refreshing!"
}

// Rest puts the pet into the sleeping stage; the sleep and happiness boost
// applies once the duration has elapsed (resolved by Tick).
func (s *Simulator) Rest(duration time.Duration, now time.Time) string {
	s.stage = StageSleeping
	s.stageUntil = now.Add(duration)
	return "😴 Curling up for a nap..."
}

func (s *Simulator) Bathe(now time.Time) string {
	s.needs.Hygiene = 100
	s.needs.Happiness = clamp100(s.needs.Happiness + 5)
	s.needs.LastBathed = now
	return "🛁 All clean and fluffy again!"
}

func (s *Simulator) Play(now time.Time) string {
	s.needs.Happiness = clamp100(s.needs.Happiness + 15)
	s.needs.Sleep = clamp100(s.needs.Sleep - 5)
	s.needs.Hunger = clamp100(s.needs.Hunger - 5)
	s.stage = StagePlaying
	s.stageUntil = now.Add(10 * time.Second)
	return "🎾 Wheee! Let's play!"
}

func (s *Simulator) Praise() string {
	s.needs.Happiness = clamp100(s.needs.Happiness + 10)
	return "🦊 *happy tail wag*"
}

// urgentThresholds is scanned in priority order: the first critical match
// wins, else the first warning match.
var urgentThresholds = []struct {
	need              string
	critical, warning float64
	value             func(domain.Needs) float64
}{
	{"hunger", 20, 40, func(n domain.Needs) float64 { return n.Hunger }},
	{"thirst", 15, 35, func(n domain.Needs) float64 { return n.Thirst }},
	{"sleep", 25, 45, func(n domain.Needs) float64 { return n.Sleep }},
	{"hygiene", 30, 50, func(n domain.Needs) float64 { return n.Hygiene }},
}

// UrgentNeed reports the most pressing need, if any.
func (s *Simulator) UrgentNeed() (domain.NeedReport, bool) {
	for _, t := range urgentThresholds {
		if v := t.value(s.needs); v < t.critical {
			return domain.NeedReport{Need: t.need, Urgency: domain.UrgencyCritical, Value: v}, true
		}
	}
	for _, t := range urgentThresholds {
		if v := t.value(s.needs); v < t.warning {
			return domain.NeedReport{Need: t.need, Urgency: domain.UrgencyWarning, Value: v}, true
		}
	}
	return domain.NeedReport{}, false
}

// StatusLine renders a short spoken status summary.
func (s *Simulator) StatusLine() string {
	n := s.needs
	return fmt.Sprintf("Hunger %.0f, thirst %.0f, sleep %.0f, hygiene %.0f. Health %.0f, happiness %.0f.",
		n.Hunger, n.Thirst, n.Sleep, n.Hygiene, n.Health, n.Happiness)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
