package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/pkg/audio"
)

// LiveEventType enumerates what a live session reports.
type LiveEventType string

const (
	EventOpen         LiveEventType = "open"
	EventAudio        LiveEventType = "audio"
	EventInterrupted  LiveEventType = "interrupted"
	EventTurnComplete LiveEventType = "turn_complete"
	EventClosed       LiveEventType = "closed"
)

// LiveEvent is one message from the gateway. Err is set only on EventClosed after a failure.
type LiveEvent struct {
	Type       LiveEventType
	Audio      []byte
	SampleRate int
	Err        error
}

// LiveConfig configures a bidirectional audio session.
type LiveConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
	InputSampleRate   int
	OutputSampleRate  int
}

// LiveSession is an open bidirectional audio stream. Events is closed after EventClosed.
type LiveSession interface {
	Events() <-chan LiveEvent
	SendAudio(ctx context.Context, frame []byte) error
	Close() error
}

type liveSetup struct {
	Setup struct {
		Model             string            `json:"model"`
		GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
		SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	} `json:"setup"`
}

type liveRealtimeInput struct {
	RealtimeInput struct {
		MediaChunks []Blob `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []Part `json:"parts"`
		} `json:"modelTurn,omitempty"`
		Interrupted  bool `json:"interrupted,omitempty"`
		TurnComplete bool `json:"turnComplete,omitempty"`
	} `json:"serverContent,omitempty"`
}

// OpenLive dials the gateway and sends session setup. EventOpen arrives once the gateway confirms it.
func (c *Client) OpenLive(ctx context.Context, cfg LiveConfig) (LiveSession, error) {
	if cfg.Model == "" {
		cfg.Model = c.cfg.LiveModel
	}
	if cfg.Voice == "" {
		cfg.Voice = c.cfg.TTSVoice
	}

	endpoint, err := url.Parse(c.cfg.LiveURL)
	if err != nil {
		return nil, fmt.Errorf("gemini: live url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, endpoint.String(), http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("gemini: dial live session: %w", err)
	}

	var setup liveSetup
	setup.Setup.Model = "models/" + cfg.Model
	setup.Setup.GenerationConfig = &generationConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &speechConfig{VoiceConfig: voiceConfig{
			PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
		}},
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("gemini: send live setup: %w", err)
	}

	s := &liveSession{
		conn:      conn,
		events:    make(chan LiveEvent, 32),
		done:      make(chan struct{}),
		inputMime: audio.PCMMime(cfg.InputSampleRate),
		outRate:   cfg.OutputSampleRate,
		logger:    c.logger,
	}
	go s.readLoop()
	return s, nil
}

type liveSession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	events    chan LiveEvent
	done      chan struct{}
	closeOnce sync.Once
	inputMime string
	outRate   int
	logger    *zap.Logger
}

func (s *liveSession) Events() <-chan LiveEvent {
	return s.events
}

func (s *liveSession) SendAudio(ctx context.Context, frame []byte) error {
	var msg liveRealtimeInput
	msg.RealtimeInput.MediaChunks = []Blob{{
		MimeType: s.inputMime,
		Data:     base64.StdEncoding.EncodeToString(frame),
	}}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	} else {
		_ = s.conn.SetWriteDeadline(time.Time{})
	}
	return s.conn.WriteJSON(msg)
}

func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *liveSession) emit(ev LiveEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *liveSession) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr error
			if !isExpectedClose(err) {
				select {
				case <-s.done:
				default:
					closeErr = err
				}
			}
			s.emit(LiveEvent{Type: EventClosed, Err: closeErr})
			return
		}

		var msg liveServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("skip undecodable live message", zap.Error(err))
			continue
		}
		for _, ev := range s.translate(msg) {
			if !s.emit(ev) {
				return
			}
		}
	}
}

func (s *liveSession) translate(msg liveServerMessage) []LiveEvent {
	var out []LiveEvent
	if msg.SetupComplete != nil {
		out = append(out, LiveEvent{Type: EventOpen})
	}
	content := msg.ServerContent
	if content == nil {
		return out
	}
	if content.Interrupted {
		out = append(out, LiveEvent{Type: EventInterrupted})
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				s.logger.Debug("skip undecodable live audio", zap.Error(err))
				continue
			}
			out = append(out, LiveEvent{
				Type:       EventAudio,
				Audio:      pcm,
				SampleRate: audio.RateFromMIME(part.InlineData.MimeType, s.outRate),
			})
		}
	}
	if content.TurnComplete {
		out = append(out, LiveEvent{Type: EventTurnComplete})
	}
	return out
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
