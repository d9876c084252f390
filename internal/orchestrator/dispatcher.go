package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foxie/internal/domain"
	"foxie/internal/persona"
	"foxie/internal/sim"
)

var cannedChatReplies = []string{
	"🦊 Yip! *tilts head*",
	"🦊 *wags tail expectantly*",
	"🦊 *sniffs the air curiously*",
	"🦊 Arf! *spins around once*",
}

// dispatch applies exactly one parsed command to the simulation and returns
// the spoken reply.
func (s *Session) dispatch(ctx context.Context, terminalID string, cmd domain.Command, now time.Time) string {
	switch cmd.Type {
	case domain.CommandWake:
		// Acknowledgment only: waking up is not a behavioral command.
		return "🦊 Yip! I'm listening."

	case domain.CommandFeed:
		s.mu.Lock()
		reply := s.sim.Feed(sim.FoodPremium, now)
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Happiness = clamp100(e.Happiness + 5)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerTailWag)
		s.remember(ctx, "fed", "", now)
		return reply

	case domain.CommandDrink:
		s.mu.Lock()
		reply := s.sim.GiveWater(now)
		s.mu.Unlock()
		s.remember(ctx, "drank", "", now)
		return reply

	case domain.CommandSleep:
		s.mu.Lock()
		reply := s.sim.Rest(10*time.Second, now)
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerSleep)
		s.remember(ctx, "slept", "", now)
		return reply

	case domain.CommandPlay:
		s.mu.Lock()
		reply := s.sim.Play(now)
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Happiness = clamp100(e.Happiness + 10)
			e.Energy = clamp100(e.Energy - 5)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerPlay)
		s.remember(ctx, "played", "", now)
		return reply

	case domain.CommandDance:
		s.applyTrigger(persona.TriggerPlay)
		return "🦊 *bounces to an imaginary beat*"

	case domain.CommandJump:
		s.applyTrigger(persona.TriggerJump)
		return "🦊 Boing!"

	case domain.CommandSpin:
		s.applyTrigger(persona.TriggerPlay)
		return "🦊 *spins in a happy circle*"

	case domain.CommandSit:
		s.applyTrigger(persona.TriggerSit)
		return "🦊 *sits obediently*"

	case domain.CommandPraise:
		s.mu.Lock()
		reply := s.sim.Praise()
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Trust = clamp100(e.Trust + 5)
			e.Happiness = clamp100(e.Happiness + 5)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerTailWag)
		s.remember(ctx, "praised", "", now)
		return reply

	case domain.CommandLove:
		s.mu.Lock()
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Trust = clamp100(e.Trust + 10)
			e.Happiness = clamp100(e.Happiness + 5)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerTailWag)
		s.remember(ctx, "loved", "", now)
		return "🦊 ❤️ *nuzzles your cursor*"

	case domain.CommandStatus:
		s.mu.Lock()
		line := s.sim.StatusLine()
		mood := s.mood
		s.mu.Unlock()
		return fmt.Sprintf("%s Feeling %s.", line, mood)

	case domain.CommandFocusMode:
		s.mu.Lock()
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Focus = clamp100(e.Focus + 30)
			e.Stress = clamp100(e.Stress - 5)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerSit)
		s.invokeTerminal(ctx, terminalID, domain.ActionRequest{Action: "focus_mode"})
		return "🦊 Focus mode on. I'll keep quiet."

	case domain.CommandBreakMode:
		s.mu.Lock()
		s.adjustEmotionLocked(func(e *domain.EmotionStats) {
			e.Focus = clamp100(e.Focus - 20)
			e.Stress = clamp100(e.Stress - 10)
		})
		s.mu.Unlock()
		s.applyTrigger(persona.TriggerPlay)
		s.invokeTerminal(ctx, terminalID, domain.ActionRequest{Action: "break_mode"})
		return "🦊 Break time! Stretch those paws."

	case domain.CommandOpenApp:
		if ok := s.invokeTerminal(ctx, terminalID, domain.ActionRequest{Action: "open_app", App: cmd.App}); !ok {
			return fmt.Sprintf("🦊 *paws at the screen* Couldn't open %s.", cmd.App)
		}
		return fmt.Sprintf("🦊 Opening %s for you!", cmd.App)

	case domain.CommandStartTimer:
		if ok := s.invokeTerminal(ctx, terminalID, domain.ActionRequest{Action: "start_timer", DurationSeconds: cmd.DurationSeconds}); !ok {
			return "🦊 *scratches ear* The timer wouldn't start."
		}
		return fmt.Sprintf("🦊 Timer set for %s!", formatDuration(cmd.DurationSeconds))

	case domain.CommandChangeTheme:
		s.invokeTerminal(ctx, terminalID, domain.ActionRequest{Action: "change_theme", Theme: cmd.Theme})
		return fmt.Sprintf("🦊 Switching to the %s theme.", cmd.Theme)

	case domain.CommandChat:
		if cmd.Reply != "" {
			return cmd.Reply
		}
		return s.chat(ctx, cmd.Text)

	default:
		s.applyTrigger(persona.TriggerTailWag)
		return "🦊 *tilts head* Yip?"
	}
}

func (s *Session) applyTrigger(trigger persona.Trigger) {
	s.mu.Lock()
	s.engine.Step(s.traits, trigger)
	s.mu.Unlock()
}

// adjustEmotionLocked mutates emotion stats; the caller holds the mutex.
func (s *Session) adjustEmotionLocked(fn func(*domain.EmotionStats)) {
	fn(&s.emotion)
}

// invokeTerminal fires a desktop action and reports whether it was acked.
func (s *Session) invokeTerminal(ctx context.Context, terminalID string, req domain.ActionRequest) bool {
	if s.invoker == nil || terminalID == "" {
		return false
	}
	result, err := s.invoker.InvokeAction(ctx, terminalID, req)
	if err != nil {
		s.logger.Warn("terminal action failed", "terminal_id", terminalID, "action", req.Action, "error", err)
		return false
	}
	s.logger.Info("terminal action done", "terminal_id", terminalID, "action", req.Action, "output", result.Output)
	return true
}

// chat answers free-form speech through the LLM, degrading to a canned bark
// when the provider is missing or fails.
func (s *Session) chat(ctx context.Context, text string) string {
	if s.llm == nil {
		return pickCanned(text)
	}

	s.mu.Lock()
	mood := s.mood
	status := s.sim.StatusLine()
	name := s.profile.Name
	s.mu.Unlock()

	var memories []string
	for _, rec := range s.memlog.Recent(5) {
		memories = append(memories, rec.Type)
	}

	system := fmt.Sprintf(
		"You are %s, a small desktop fox companion. Current mood: %s. Vitals: %s Recent events: %s. Reply in one or two short playful sentences, first person, with at most one emoji.",
		name, mood, status, strings.Join(memories, ", "),
	)

	resp, err := s.llm.Complete(ctx, domain.LLMRequest{
		Model:    s.cfg.LLMModel,
		System:   system,
		Messages: []domain.Message{{Role: "user", Content: text}},
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			s.logger.Warn("chat completion failed", "error", err)
		}
		return pickCanned(text)
	}
	return resp.Content
}

func pickCanned(text string) string {
	return cannedChatReplies[len(text)%len(cannedChatReplies)]
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%.0f hours", d.Hours())
	}
	if d >= time.Minute {
		return fmt.Sprintf("%.0f minutes", d.Minutes())
	}
	return fmt.Sprintf("%d seconds", seconds)
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
