package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"foxie/internal/domain"
)

type stubProvider struct {
	content string
	err     error
	calls   int
}

func (p *stubProvider) Complete(_ context.Context, _ domain.LLMRequest) (domain.LLMResponse, error) {
	p.calls++
	if p.err != nil {
		return domain.LLMResponse{}, p.err
	}
	return domain.LLMResponse{Content: p.content}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseWakeOnlyYieldsWakeCommand(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cmd := p.Parse(context.Background(), "hey foxie")
	if cmd.Type != domain.CommandWake {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandWake)
	}
}

func TestParseKeywordTier(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cases := []struct {
		in   string
		want domain.CommandType
	}{
		{"feed me please", domain.CommandFeed},
		{"good boy", domain.CommandPraise},
		{"i love you foxie", domain.CommandLove},
		{"how are you doing", domain.CommandStatus},
		{"time for a nap", domain.CommandSleep},
		{"go fetch", domain.CommandPlay},
		{"turn around", domain.CommandSpin},
	}
	for _, c := range cases {
		if got := p.Parse(context.Background(), c.in); got.Type != c.want {
			t.Fatalf("Parse(%q) = %s, want %s", c.in, got.Type, c.want)
		}
	}
}

func TestParseThemeBeforeSingleWords(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cmd := p.Parse(context.Background(), "switch to dark mode")
	if cmd.Type != domain.CommandChangeTheme || cmd.Theme != "dark" {
		t.Fatalf("got %+v, want change_theme/dark", cmd)
	}
}

func TestParseFocusModeIsKeywordNotTimer(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cmd := p.Parse(context.Background(), "focus mode please")
	if cmd.Type != domain.CommandFocusMode {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandFocusMode)
	}
}

func TestParseOpenApp(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cmd := p.Parse(context.Background(), "hey foxie open the notes")
	if cmd.Type != domain.CommandOpenApp || cmd.App != "Notes" {
		t.Fatalf("got %+v, want open_app/Notes", cmd)
	}
}

func TestParseStartTimerWithDuration(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	cmd := p.Parse(context.Background(), "hey foxie, start a timer for 10 minutes")
	if cmd.Type != domain.CommandStartTimer {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandStartTimer)
	}
	if cmd.DurationSeconds != 600 {
		t.Fatalf("got %d seconds, want 600", cmd.DurationSeconds)
	}
}

func TestExtractDurationSecondsSumsUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1 hour 30 minutes", 5400},
		{"25 min", 1500},
		{"90 seconds", 90},
		{"2 hr", 7200},
		{"no duration here", 0},
	}
	for _, c := range cases {
		if got := ExtractDurationSeconds(c.in); got != c.want {
			t.Fatalf("ExtractDurationSeconds(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseLLMFallbackStrictJSON(t *testing.T) {
	provider := &stubProvider{content: "```json\n{\"type\":\"OPEN_APP\",\"app\":\"Pomodoro\"}\n```"}
	p := NewParser(provider, "test-model", testLogger())

	cmd := p.Parse(context.Background(), "bring up that tomato thing")
	if cmd.Type != domain.CommandOpenApp || cmd.App != "Pomodoro" {
		t.Fatalf("got %+v, want open_app/Pomodoro", cmd)
	}
	if provider.calls != 1 {
		t.Fatalf("expected one llm call, got %d", provider.calls)
	}
}

func TestParseLLMRejectDegradesToChat(t *testing.T) {
	provider := &stubProvider{content: "Sure! I can help with that."}
	p := NewParser(provider, "test-model", testLogger())

	in := "what is the meaning of all this"
	cmd := p.Parse(context.Background(), in)
	if cmd.Type != domain.CommandChat {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandChat)
	}
	if cmd.Text != in {
		t.Fatalf("chat fallback should carry the original text, got %q", cmd.Text)
	}
	if cmd.Reply != "" {
		t.Fatalf("rejected output must not become a crafted reply, got %q", cmd.Reply)
	}
}

func TestParseLLMChatCarriesCraftedReply(t *testing.T) {
	provider := &stubProvider{content: `{"type":"CHAT","text":"🦊 Yip! The meaning is belly rubs."}`}
	p := NewParser(provider, "test-model", testLogger())

	in := "what is the meaning of all this"
	cmd := p.Parse(context.Background(), in)
	if cmd.Type != domain.CommandChat {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandChat)
	}
	if cmd.Text != in {
		t.Fatalf("chat command should keep the original text, got %q", cmd.Text)
	}
	if cmd.Reply != "🦊 Yip! The meaning is belly rubs." {
		t.Fatalf("crafted reply should pass through, got %q", cmd.Reply)
	}
	if provider.calls != 1 {
		t.Fatalf("expected one llm call, got %d", provider.calls)
	}
}

func TestParseLLMErrorDegradesToChat(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("connection refused")}
	p := NewParser(provider, "test-model", testLogger())

	cmd := p.Parse(context.Background(), "tell me something interesting")
	if cmd.Type != domain.CommandChat {
		t.Fatalf("got %s, want %s", cmd.Type, domain.CommandChat)
	}
}

func TestParseIsTotalWithoutProvider(t *testing.T) {
	p := NewParser(nil, "", testLogger())
	inputs := []string{
		"xyzzy plugh",
		"1234567890",
		"the quick brown fox did absolutely nothing",
	}
	for _, in := range inputs {
		cmd := p.Parse(context.Background(), in)
		if cmd.Type != domain.CommandChat {
			t.Fatalf("Parse(%q) = %s, want chat fallback", in, cmd.Type)
		}
	}
}
