package voice

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"foxie/internal/domain"
)

// WSBridgeEngine connects to a renderer-hosted speech bridge: the desktop
// terminal runs the browser speech engine and forwards every recognition
// event as a JSON frame over a websocket.
type WSBridgeEngine struct {
	BaseURL string
}

const (
	bridgeDialAttempts   = 10
	bridgeDialRetryDelay = 1 * time.Second
)

func (e *WSBridgeEngine) Name() string { return "ws-bridge" }

func (e *WSBridgeEngine) Open(sessionID string, h EventHandler) (Stream, error) {
	if e.BaseURL == "" {
		return nil, fmt.Errorf("speech bridge URL is empty")
	}

	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speech bridge URL: %w", err)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()

	var conn *websocket.Conn
	for attempt := 1; attempt <= bridgeDialAttempts; attempt++ {
		conn, _, err = websocket.DefaultDialer.Dial(u.String(), nil)
		if err == nil {
			break
		}
		if attempt < bridgeDialAttempts {
			time.Sleep(bridgeDialRetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect speech bridge failed after %d attempts: %w", bridgeDialAttempts, err)
	}

	s := &wsBridgeStream{conn: conn, handler: h}
	go s.readLoop()
	return s, nil
}

type bridgeFrame struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
	TS         string  `json:"ts,omitempty"`
}

type wsBridgeStream struct {
	conn    *websocket.Conn
	handler EventHandler
	once    sync.Once
}

func (s *wsBridgeStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *wsBridgeStream) readLoop() {
	defer func() {
		if s.handler.OnEnd != nil {
			s.handler.OnEnd()
		}
	}()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame bridgeFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		if frame.Error != "" {
			if s.handler.OnError != nil {
				s.handler.OnError(ErrorCode(frame.Error), fmt.Errorf("bridge reported %s", frame.Error))
			}
			continue
		}

		at := time.Now()
		if frame.TS != "" {
			if parsed, perr := time.Parse(time.RFC3339Nano, frame.TS); perr == nil {
				at = parsed
			}
		}
		if s.handler.OnResult != nil {
			s.handler.OnResult(domain.Utterance{
				Text:       frame.Text,
				IsFinal:    frame.IsFinal,
				Confidence: frame.Confidence,
				Timestamp:  at,
			})
		}
	}
}
