package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"foxie/internal/domain"
	"foxie/internal/llm"
)

// keywordEntry maps any-of keywords to a fixed command. The table is ordered:
// the first entry with any substring match wins, so whole-phrase entries
// (themes, modes) sit above single-word ones.
type keywordEntry struct {
	keywords []string
	command  domain.Command
}

var keywordTable = []keywordEntry{
	{[]string{"dark mode", "night mode"}, domain.Command{Type: domain.CommandChangeTheme, Theme: "dark"}},
	{[]string{"light mode", "day mode"}, domain.Command{Type: domain.CommandChangeTheme, Theme: "light"}},
	{[]string{"focus mode", "focus time", "do not disturb"}, domain.Command{Type: domain.CommandFocusMode}},
	{[]string{"break mode", "break time", "take a break"}, domain.Command{Type: domain.CommandBreakMode}},
	{[]string{"good boy", "good girl", "good fox", "well done"}, domain.Command{Type: domain.CommandPraise}},
	{[]string{"love you", "i love"}, domain.Command{Type: domain.CommandLove}},
	{[]string{"status", "how are you", "how do you feel"}, domain.Command{Type: domain.CommandStatus}},
	{[]string{"feed", "hungry", "food"}, domain.Command{Type: domain.CommandFeed}},
	{[]string{"water", "drink", "thirsty"}, domain.Command{Type: domain.CommandDrink}},
	{[]string{"sleep", "nap", "bedtime"}, domain.Command{Type: domain.CommandSleep}},
	{[]string{"dance"}, domain.Command{Type: domain.CommandDance}},
	{[]string{"jump"}, domain.Command{Type: domain.CommandJump}},
	{[]string{"spin", "turn around"}, domain.Command{Type: domain.CommandSpin}},
	{[]string{"sit"}, domain.Command{Type: domain.CommandSit}},
	{[]string{"play", "fetch"}, domain.Command{Type: domain.CommandPlay}},
}

// appTokens maps spoken app names to the canonical terminal app ids.
// Multi-word tokens are checked first.
var appTokens = []struct {
	token string
	app   string
}{
	{"task manager", "Task Manager"},
	{"foxie assistant", "Foxie Assistant"},
	{"assistant", "Foxie Assistant"},
	{"pomodoro", "Pomodoro"},
	{"dashboard", "Dashboard"},
	{"notes", "Notes"},
	{"tasks", "Task Manager"},
}

var timerPhrases = []string{
	"start timer", "start a timer", "set timer", "set a timer",
	"start pomodoro", "start a pomodoro", "set a pomodoro",
}

var durationRe = regexp.MustCompile(`(\d+)\s*(hour|hr|minute|min|second|sec)`)

// minimum residue length before the LLM fallback is worth a round trip.
const llmFallbackMinLen = 5

// Parser resolves a normalized utterance to exactly one Command through a
// strictly ordered cascade: keyword table, structured patterns, LLM fallback,
// chat fallback. It never fails and never panics.
type Parser struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

func NewParser(provider llm.Provider, model string, logger *slog.Logger) *Parser {
	return &Parser{provider: provider, model: model, logger: logger}
}

// Parse maps normalized text to a Command. A wake-only utterance (nothing left
// after stripping the wake phrase) yields CommandWake.
func (p *Parser) Parse(ctx context.Context, normalized string) domain.Command {
	// Strip twice: engines occasionally duplicate the wake phrase.
	residue := StripWakePhrase(StripWakePhrase(normalized))
	if residue == "" {
		return domain.Command{Type: domain.CommandWake}
	}

	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(residue, kw) {
				return entry.command
			}
		}
	}

	if cmd, ok := matchOpenApp(residue); ok {
		return cmd
	}
	if cmd, ok := matchStartTimer(residue); ok {
		return cmd
	}

	if len(residue) > llmFallbackMinLen && p.provider != nil {
		if cmd, ok := p.llmFallback(ctx, residue); ok {
			return cmd
		}
	}

	return domain.Command{Type: domain.CommandChat, Text: residue}
}

func matchOpenApp(text string) (domain.Command, bool) {
	if !strings.Contains(text, "open") && !strings.Contains(text, "launch") {
		return domain.Command{}, false
	}
	for _, t := range appTokens {
		if strings.Contains(text, t.token) {
			return domain.Command{Type: domain.CommandOpenApp, App: t.app}, true
		}
	}
	return domain.Command{}, false
}

func matchStartTimer(text string) (domain.Command, bool) {
	matched := false
	for _, phrase := range timerPhrases {
		if strings.Contains(text, phrase) {
			matched = true
			break
		}
	}
	if !matched {
		return domain.Command{}, false
	}
	return domain.Command{Type: domain.CommandStartTimer, DurationSeconds: ExtractDurationSeconds(text)}, true
}

// ExtractDurationSeconds sums every "<n> <unit>" pair in the text into total
// seconds. Returns zero when no duration token is present; the default is
// resolved by the terminal.
func ExtractDurationSeconds(text string) int {
	total := 0
	for _, m := range durationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "hour", "hr":
			total += n * 3600
		case "minute", "min":
			total += n * 60
		case "second", "sec":
			total += n
		}
	}
	return total
}

const fallbackSystemPrompt = `You classify a desktop-pet voice command into strict JSON.
Output ONLY a JSON object, no markdown, no explanations:
{"type":"OPEN_APP"|"START_TIMER"|"CHAT"|"SPIN","app":"Notes"|"Task Manager"|"Pomodoro"|"Dashboard"|"Foxie Assistant","duration_seconds":<int>,"text":"<reply or original text>"}
Omit fields that do not apply. If the utterance is conversational, use CHAT.`

type fallbackResult struct {
	Type            string `json:"type"`
	App             string `json:"app"`
	DurationSeconds int    `json:"duration_seconds"`
	Text            string `json:"text"`
}

func (p *Parser) llmFallback(ctx context.Context, text string) (domain.Command, bool) {
	resp, err := p.provider.Complete(ctx, domain.LLMRequest{
		Model:    p.model,
		System:   fallbackSystemPrompt,
		Messages: []domain.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		p.logger.Warn("llm fallback failed", "error", err)
		return domain.Command{}, false
	}

	raw := stripCodeFences(resp.Content)
	var out fallbackResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		p.logger.Warn("llm fallback returned non-json", "error", err, "raw", raw)
		return domain.Command{}, false
	}

	switch strings.ToUpper(strings.TrimSpace(out.Type)) {
	case "OPEN_APP":
		if out.App == "" {
			return domain.Command{}, false
		}
		return domain.Command{Type: domain.CommandOpenApp, App: out.App}, true
	case "START_TIMER":
		return domain.Command{Type: domain.CommandStartTimer, DurationSeconds: out.DurationSeconds}, true
	case "SPIN":
		return domain.Command{Type: domain.CommandSpin}, true
	case "CHAT":
		// The model already crafted the reply; carry it so dispatch does not
		// spend a second completion on the same utterance.
		return domain.Command{Type: domain.CommandChat, Text: text, Reply: strings.TrimSpace(out.Text)}, true
	default:
		return domain.Command{}, false
	}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
