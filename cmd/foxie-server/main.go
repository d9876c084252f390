package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"foxie/internal/config"
	"foxie/internal/db"
	"foxie/internal/domain"
	"foxie/internal/llm"
	"foxie/internal/memory"
	"foxie/internal/mqtt"
	"foxie/internal/orchestrator"
	"foxie/internal/persona"
	"foxie/internal/sim"
	"foxie/internal/terminal"
	"foxie/internal/voice"
)

func main() {
	var envFile string
	var logLevel string
	pflag.StringVar(&envFile, "env-file", "", "optional .env file to load")
	pflag.StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	pflag.Parse()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("load env file failed", "path", envFile, "error", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	}))

	cfg, err := config.LoadFoxieServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("connect db failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate db failed", "error", err)
		os.Exit(1)
	}

	llmProvider, err := llm.NewProvider(llm.Config{
		Provider:         strings.ToLower(cfg.LLMProvider),
		Model:            cfg.LLMModel,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
	})
	if err != nil {
		logger.Error("init llm provider failed", "error", err)
		os.Exit(1)
	}

	profile, err := store.LoadOrCreateProfile(ctx, cfg.UserID, cfg.PetName, defaultProfile())
	if err != nil {
		logger.Error("load pet profile failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pet profile loaded", "pet_id", profile.PetID, "name", profile.Name)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	engine := persona.NewEngine(rng)
	engine.SetBehavior(profile.Behavior)
	simulator := sim.NewSimulator(sim.DefaultConfig(), profile.Needs)
	wake := voice.NewWakeDetector(cfg.WakeTimeout)
	parser := voice.NewParser(llmProvider, cfg.LLMModel, logger)
	memlog := memory.NewLog(memory.DefaultCapacity)
	registry := terminal.NewRegistry(cfg.TerminalTTL)

	session := orchestrator.NewSession(
		orchestrator.Config{LLMModel: cfg.LLMModel},
		profile,
		simulator,
		engine,
		wake,
		parser,
		memlog,
		llmProvider,
		nil, // publisher wired after the hub exists
		nil,
		logger,
		orchestrator.WithStore(store),
		orchestrator.WithPresence(registry),
	)

	var speechEngine voice.Engine
	if cfg.SpeechBridgeURL != "" {
		speechEngine = &voice.WSBridgeEngine{BaseURL: cfg.SpeechBridgeURL}
	}
	coord := voice.NewCoordinator(
		voice.DefaultCoordinatorConfig(),
		speechEngine,
		func(ctx context.Context, u domain.Utterance) {
			session.HandleUtterance(ctx, session.ActiveTerminal(), u)
		},
		logger,
	)

	hub := mqtt.NewHub(mqtt.HubConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
	}, registry, func(terminalID string, u domain.Utterance) {
		session.SetActiveTerminal(terminalID)
		coord.Ingest(u)
	}, logger)
	if err := hub.Start(ctx); err != nil {
		logger.Error("start mqtt hub failed", "error", err)
		os.Exit(1)
	}
	session.AttachTransport(hub, hub)

	if err := coord.Start(ctx, uuid.NewString()); err != nil {
		logger.Error("start recognition failed", "error", err)
		os.Exit(1)
	}
	defer coord.Stop()

	go session.RunNeedsTicker(ctx, cfg.NeedsInterval)
	go session.RunMoodTicker(ctx, cfg.MoodInterval)
	go session.RunTraitDriftTicker(ctx, cfg.DriftInterval)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/v1/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, session.Snapshot())
	})
	r.Get("/v1/memories", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, session.RecentMemories(0))
	})
	r.Post("/v1/care", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Action string `json:"action"`
			Kind   string `json:"kind"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		reply, err := session.Care(req.Context(), body.Action, body.Kind)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
	})
	r.Post("/v1/say", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Text       string `json:"text"`
			TerminalID string `json:"terminal_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(body.Text) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "text is required"})
			return
		}
		if body.TerminalID != "" {
			session.SetActiveTerminal(body.TerminalID)
		}
		coord.Ingest(domain.Utterance{Text: body.Text, IsFinal: true, Confidence: 1, Timestamp: time.Now()})
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("foxie server started", "addr", cfg.HTTPAddr, "seed", seed)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

func defaultProfile() domain.PetProfile {
	return domain.PetProfile{
		Traits: domain.PersonalityTraits{
			Playfulness: 0.5,
			Tiredness:   0.3,
			Curiosity:   0.6,
			Sociability: 0.5,
		},
		Needs: domain.Needs{
			Hunger:    80,
			Thirst:    80,
			Sleep:     80,
			Hygiene:   80,
			Happiness: 70,
		},
		Emotion: domain.EmotionStats{
			Energy:    80,
			Happiness: 70,
			Focus:     50,
			Stress:    20,
			Trust:     50,
		},
		Behavior: domain.BehaviorIdle,
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
