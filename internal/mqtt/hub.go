package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"foxie/internal/domain"
	"foxie/internal/terminal"
)

const actionTimeout = 10 * time.Second

type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// SpeechHandler receives every recognition event a terminal publishes.
type SpeechHandler func(terminalID string, u domain.Utterance)

type Hub struct {
	cfg      HubConfig
	client   paho.Client
	registry *terminal.Registry
	onSpeech SpeechHandler
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]chan domain.ActionResult
}

func NewHub(cfg HubConfig, registry *terminal.Registry, onSpeech SpeechHandler, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		registry: registry,
		onSpeech: onSpeech,
		logger:   logger,
		pending:  make(map[string]chan domain.ActionResult),
	}
}

func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if err := h.subscribeHandlers(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) subscribeHandlers() error {
	if token := h.client.Subscribe(TopicTerminalSpeech(h.cfg.TopicPrefix), 1, h.handleSpeech); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalOnline(h.cfg.TopicPrefix), 1, h.handleOnline); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalHeartbeat(h.cfg.TopicPrefix), 1, h.handleHeartbeat); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalResult(h.cfg.TopicPrefix), 1, h.handleActionResult); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) handleSpeech(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid speech topic", "topic", msg.Topic(), "error", err)
		return
	}

	var payload domain.SpeechEventPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		h.logger.Warn("invalid speech payload", "terminal_id", terminalID, "error", err)
		return
	}

	ts := time.Now()
	if payload.TS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, payload.TS); err == nil {
			ts = parsed
		}
	}

	h.registry.Heartbeat(terminalID)
	if h.onSpeech != nil {
		h.onSpeech(terminalID, domain.Utterance{
			Text:       payload.Text,
			IsFinal:    payload.IsFinal,
			Confidence: payload.Confidence,
			Timestamp:  ts,
		})
	}
}

func (h *Hub) handleOnline(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid online topic", "topic", msg.Topic(), "error", err)
		return
	}

	payload := strings.TrimSpace(strings.ToLower(string(msg.Payload())))
	online := payload == "1" || payload == "true" || payload == "online"
	h.registry.SetOnline(terminalID, online)
	h.logger.Info("terminal online status", "terminal_id", terminalID, "online", online)
}

func (h *Hub) handleHeartbeat(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid heartbeat topic", "topic", msg.Topic(), "error", err)
		return
	}
	h.registry.Heartbeat(terminalID)
}

func (h *Hub) handleActionResult(_ paho.Client, msg paho.Message) {
	requestID := ParseRequestID(msg.Topic())
	if requestID == "" {
		return
	}

	var result domain.ActionResult
	if err := json.Unmarshal(msg.Payload(), &result); err != nil {
		h.logger.Warn("invalid action result", "topic", msg.Topic(), "error", err)
		return
	}
	if result.RequestID == "" {
		result.RequestID = requestID
	}

	h.pendingMu.Lock()
	ch, ok := h.pending[result.RequestID]
	h.pendingMu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- result:
	default:
	}
}

// PublishUtterance sends a spoken reply to one terminal.
func (h *Hub) PublishUtterance(terminalID string, payload domain.UtterancePayload) error {
	if payload.TS == "" {
		payload.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := h.client.Publish(TopicUtterance(h.cfg.TopicPrefix, terminalID), 1, false, body)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// PublishState sends the avatar-facing state snapshot to one terminal.
func (h *Hub) PublishState(terminalID string, payload domain.StateUpdatePayload) error {
	if payload.TS == "" {
		payload.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := h.client.Publish(TopicState(h.cfg.TopicPrefix, terminalID), 1, false, body)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// InvokeAction asks a terminal to perform a desktop side effect and waits for
// its acknowledgment.
func (h *Hub) InvokeAction(ctx context.Context, terminalID string, req domain.ActionRequest) (domain.ActionResult, error) {
	requestID := uuid.NewString()
	req.RequestID = requestID

	body, err := json.Marshal(req)
	if err != nil {
		return domain.ActionResult{}, err
	}

	resultCh := make(chan domain.ActionResult, 1)
	h.pendingMu.Lock()
	h.pending[requestID] = resultCh
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, requestID)
		h.pendingMu.Unlock()
	}()

	topic := TopicAction(h.cfg.TopicPrefix, terminalID, requestID)
	if token := h.client.Publish(topic, 1, false, body); token.Wait() && token.Error() != nil {
		return domain.ActionResult{}, token.Error()
	}

	select {
	case <-ctx.Done():
		return domain.ActionResult{}, ctx.Err()
	case result := <-resultCh:
		if !result.OK {
			if result.Error == "" {
				result.Error = "action failed"
			}
			return result, fmt.Errorf("%s", result.Error)
		}
		return result, nil
	case <-time.After(actionTimeout):
		return domain.ActionResult{}, fmt.Errorf("action timeout")
	}
}
