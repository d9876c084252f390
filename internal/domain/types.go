package domain

import "time"

// CommandType enumerates everything the voice pipeline can ask the pet to do.
type CommandType string

const (
	CommandSleep       CommandType = "sleep"
	CommandPlay        CommandType = "play"
	CommandDance       CommandType = "dance"
	CommandSit         CommandType = "sit"
	CommandJump        CommandType = "jump"
	CommandSpin        CommandType = "spin"
	CommandStatus      CommandType = "status"
	CommandFeed        CommandType = "feed"
	CommandDrink       CommandType = "drink"
	CommandPraise      CommandType = "praise"
	CommandLove        CommandType = "love"
	CommandFocusMode   CommandType = "focus_mode"
	CommandBreakMode   CommandType = "break_mode"
	CommandOpenApp     CommandType = "open_app"
	CommandStartTimer  CommandType = "start_timer"
	CommandChangeTheme CommandType = "change_theme"
	CommandChat        CommandType = "chat"
	CommandWake        CommandType = "wake"
	CommandUnknown     CommandType = "unknown"
)

// Command is produced by the parser and consumed exactly once by the
// dispatcher. Only the fields relevant to Type are populated.
type Command struct {
	Type            CommandType `json:"type"`
	App             string      `json:"app,omitempty"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	Theme           string      `json:"theme,omitempty"`
	Text            string      `json:"text,omitempty"`
	// Reply is a ready reply crafted during parsing; the dispatcher speaks
	// it verbatim instead of generating one.
	Reply string `json:"reply,omitempty"`
}

// Utterance is one recognition event from a speech source.
type Utterance struct {
	Text       string    `json:"text"`
	IsFinal    bool      `json:"is_final"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Needs holds the pet's simulated vitals. All scalar values live in [0,100].
type Needs struct {
	Hunger    float64 `json:"hunger"`
	Thirst    float64 `json:"thirst"`
	Sleep     float64 `json:"sleep"`
	Hygiene   float64 `json:"hygiene"`
	Happiness float64 `json:"happiness"`
	Health    float64 `json:"health"`

	LastFed    time.Time `json:"last_fed"`
	LastDrank  time.Time `json:"last_drank"`
	LastSlept  time.Time `json:"last_slept"`
	LastBathed time.Time `json:"last_bathed"`
}

// NeedUrgency grades how badly a need wants attention.
type NeedUrgency string

const (
	UrgencyCritical NeedUrgency = "critical"
	UrgencyWarning  NeedUrgency = "warning"
)

// NeedReport names the most pressing need, if any.
type NeedReport struct {
	Need    string      `json:"need"`
	Urgency NeedUrgency `json:"urgency"`
	Value   float64     `json:"value"`
}

// PersonalityTraits drift slowly over a session. All values live in [0,1].
type PersonalityTraits struct {
	Playfulness float64 `json:"playfulness"`
	Tiredness   float64 `json:"tiredness"`
	Curiosity   float64 `json:"curiosity"`
	Sociability float64 `json:"sociability"`
}

// EmotionStats feed the mood classifier. All values live in [0,100].
type EmotionStats struct {
	Energy    float64 `json:"energy"`
	Happiness float64 `json:"happiness"`
	Focus     float64 `json:"focus"`
	Stress    float64 `json:"stress"`
	Trust     float64 `json:"trust"`
}

// Mood is a pure classification over EmotionStats, recomputed each tick.
type Mood string

const (
	MoodStartled     Mood = "startled"
	MoodTired        Mood = "tired"
	MoodPlayful      Mood = "playful"
	MoodConcentrated Mood = "concentrated"
	MoodAffectionate Mood = "affectionate"
	MoodBored        Mood = "bored"
	MoodCurious      Mood = "curious"
)

// BehaviorState is the pet's current discrete activity mode.
type BehaviorState string

const (
	BehaviorIdle       BehaviorState = "idle"
	BehaviorSniffing   BehaviorState = "sniffing"
	BehaviorWalking    BehaviorState = "walking"
	BehaviorJumping    BehaviorState = "jumping"
	BehaviorPlayful    BehaviorState = "playful"
	BehaviorSitting    BehaviorState = "sitting"
	BehaviorSleeping   BehaviorState = "sleeping"
	BehaviorTailWag    BehaviorState = "tail_wag"
	BehaviorScratching BehaviorState = "scratching"
	BehaviorStartled   BehaviorState = "startled"
	BehaviorRunning    BehaviorState = "running"
)

// MemoryRecord is one entry in the bounded interaction log.
type MemoryRecord struct {
	Type      string    `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PetProfile is the persisted identity and state of one pet.
type PetProfile struct {
	PetID     string            `json:"pet_id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Traits    PersonalityTraits `json:"traits"`
	Needs     Needs             `json:"needs"`
	Emotion   EmotionStats      `json:"emotion"`
	Behavior  BehaviorState     `json:"behavior"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// MQTT payloads

// SpeechEventPayload is published by the terminal for every recognition event.
type SpeechEventPayload struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
	TS         string  `json:"ts,omitempty"`
}

// UtterancePayload is what Foxie says back to the terminal.
type UtterancePayload struct {
	Text    string      `json:"text"`
	Command CommandType `json:"command,omitempty"`
	TS      string      `json:"ts"`
}

// StateUpdatePayload is the avatar-facing snapshot of the whole simulation.
type StateUpdatePayload struct {
	Needs    Needs             `json:"needs"`
	Traits   PersonalityTraits `json:"traits"`
	Emotion  EmotionStats      `json:"emotion"`
	Mood     Mood              `json:"mood"`
	Behavior BehaviorState     `json:"behavior"`
	Awake    bool              `json:"awake"`
	TS       string            `json:"ts"`
}

// ActionRequest asks the terminal to perform a desktop-side effect.
type ActionRequest struct {
	RequestID       string `json:"request_id"`
	Action          string `json:"action"`
	App             string `json:"app,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Theme           string `json:"theme,omitempty"`
}

// ActionResult is the terminal's acknowledgment of an ActionRequest.
type ActionResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LLM plumbing

type Message struct {
	Role    string
	Content string
}

type LLMRequest struct {
	Model    string
	System   string
	Messages []Message
}

type LLMResponse struct {
	Content string
}
