package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/pkg/audio"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
	"github.com/noah-isme/lesson-planner-api/pkg/playback"
)

const liveInstruction = `You are a friendly tutor talking with an Indonesian school teacher.
Keep spoken answers short and conversational, and answer in the language the teacher uses.`

var (
	errLiveStopped      = errors.New("live session stopped by client")
	errLiveClientGone   = errors.New("live client disconnected")
	errLiveRemoteClosed = errors.New("live gateway closed the session")
)

type liveGateway interface {
	OpenLive(ctx context.Context, cfg gemini.LiveConfig) (gemini.LiveSession, error)
}

// LiveConn is the client side of a live session socket.
type LiveConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// LiveServiceConfig describes the live session audio formats.
type LiveServiceConfig struct {
	Model            string
	Voice            string
	InputSampleRate  int
	OutputSampleRate int
	FrameSamples     int
	IdleTimeout      time.Duration
}

// LiveService relays one voice session per user between the client socket and the gateway.
type LiveService struct {
	gateway liveGateway
	metrics *MetricsService
	logger  *zap.Logger
	cfg     LiveServiceConfig
	now     func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

// NewLiveService constructs the live session relay.
func NewLiveService(gateway liveGateway, metrics *MetricsService, logger *zap.Logger, cfg LiveServiceConfig) *LiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InputSampleRate <= 0 {
		cfg.InputSampleRate = 16000
	}
	if cfg.OutputSampleRate <= 0 {
		cfg.OutputSampleRate = 24000
	}
	if cfg.FrameSamples <= 0 {
		cfg.FrameSamples = 4096
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	return &LiveService{
		gateway: gateway,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		active:  make(map[string]struct{}),
	}
}

// Active reports whether the user already holds a session.
func (s *LiveService) Active(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	return ok
}

func (s *LiveService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[userID]; ok {
		return false
	}
	s.active[userID] = struct{}{}
	return true
}

func (s *LiveService) release(userID string) {
	s.mu.Lock()
	delete(s.active, userID)
	s.mu.Unlock()
}

// Serve runs a session until the client stops or disconnects, the gateway closes, or an error occurs.
// The client socket and gateway session are closed and the user's slot released on every exit path.
func (s *LiveService) Serve(ctx context.Context, userID string, conn LiveConn) error {
	if !s.acquire(userID) {
		_ = conn.WriteJSON(dto.LiveMessage{Type: dto.LiveMessageError, Error: appErrors.ErrSessionBusy.Message})
		_ = conn.Close()
		return appErrors.Clone(appErrors.ErrSessionBusy, "")
	}

	ctx, cancel := context.WithCancel(ctx)
	sess := &liveRelay{
		svc:       s,
		userID:    userID,
		conn:      conn,
		cancel:    cancel,
		framer:    audio.NewFramer(s.cfg.FrameSamples),
		scheduler: playback.NewScheduler(s.now),
		logger:    s.logger.With(zap.String("user_id", userID)),
	}
	s.metrics.LiveSessionStarted()
	defer sess.teardown()

	sess.state(dto.LiveStateConnecting, "")
	remote, err := s.gateway.OpenLive(ctx, gemini.LiveConfig{
		Model:             s.cfg.Model,
		Voice:             s.cfg.Voice,
		SystemInstruction: liveInstruction,
		InputSampleRate:   s.cfg.InputSampleRate,
		OutputSampleRate:  s.cfg.OutputSampleRate,
	})
	if err != nil {
		sess.state(dto.LiveStateError, "failed to open live session")
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to open live session")
	}
	sess.remote = remote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.uplink(gctx) })
	g.Go(func() error { return sess.downlink(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		sess.interruptRead()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, errLiveStopped) || errors.Is(err, errLiveClientGone) || errors.Is(err, errLiveRemoteClosed) || errors.Is(err, context.Canceled) {
		sess.state(dto.LiveStateIdle, "")
		return nil
	}
	sess.logger.Warn("live session failed", zap.Error(err))
	sess.state(dto.LiveStateError, "live session failed")
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "live session failed")
}

type liveRelay struct {
	svc       *LiveService
	userID    string
	conn      LiveConn
	remote    gemini.LiveSession
	cancel    context.CancelFunc
	framer    *audio.Framer
	scheduler *playback.Scheduler
	logger    *zap.Logger
	opened    atomic.Bool

	writeMu    sync.Mutex
	deadlineMu sync.Mutex
	stopping   bool
	closeOne   sync.Once
}

// extendRead pushes the idle deadline forward unless the relay is shutting down.
func (r *liveRelay) extendRead() bool {
	r.deadlineMu.Lock()
	defer r.deadlineMu.Unlock()
	if r.stopping {
		return false
	}
	_ = r.conn.SetReadDeadline(time.Now().Add(r.svc.cfg.IdleTimeout))
	return true
}

// interruptRead fails the pending client read while leaving the socket writable for the final state.
func (r *liveRelay) interruptRead() {
	r.deadlineMu.Lock()
	defer r.deadlineMu.Unlock()
	r.stopping = true
	_ = r.conn.SetReadDeadline(time.Now())
}

func (r *liveRelay) send(msg dto.LiveMessage) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteJSON(msg)
}

func (r *liveRelay) state(state, reason string) {
	if err := r.send(dto.LiveMessage{Type: dto.LiveMessageState, State: state, Error: reason}); err != nil {
		r.logger.Debug("live state not delivered", zap.String("state", state), zap.Error(err))
	}
}

// uplink forwards microphone audio once the gateway is open. Bytes received earlier are dropped.
func (r *liveRelay) uplink(ctx context.Context) error {
	for {
		if !r.extendRead() {
			return ctx.Err()
		}
		kind, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Debug("live client read ended", zap.Error(err))
			return errLiveClientGone
		}

		switch kind {
		case websocket.BinaryMessage:
			if !r.opened.Load() {
				continue
			}
			for _, frame := range r.framer.Push(data) {
				if err := r.remote.SendAudio(ctx, frame); err != nil {
					return err
				}
			}
		case websocket.TextMessage:
			var msg dto.LiveMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == dto.LiveMessageStop {
				return errLiveStopped
			}
		}
	}
}

// downlink schedules model audio back to back on the playback clock and relays it.
func (r *liveRelay) downlink(ctx context.Context) error {
	events := r.remote.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errLiveRemoteClosed
			}
			switch ev.Type {
			case gemini.EventOpen:
				r.opened.Store(true)
				r.state(dto.LiveStateConnected, "")
			case gemini.EventAudio:
				rate := ev.SampleRate
				if rate <= 0 {
					rate = r.svc.cfg.OutputSampleRate
				}
				slot := r.scheduler.Schedule(audio.Duration(len(ev.Audio), rate))
				if err := r.send(dto.LiveMessage{
					Type:     dto.LiveMessageAudio,
					Data:     base64.StdEncoding.EncodeToString(ev.Audio),
					MimeType: audio.PCMMime(rate),
					StartAt:  slot.Start.Seconds(),
					Duration: slot.Duration.Seconds(),
				}); err != nil {
					return errLiveClientGone
				}
			case gemini.EventInterrupted:
				r.scheduler.Interrupt()
				if err := r.send(dto.LiveMessage{Type: dto.LiveMessageInterrupted}); err != nil {
					return errLiveClientGone
				}
			case gemini.EventClosed:
				if ev.Err != nil {
					return ev.Err
				}
				return errLiveRemoteClosed
			}
		}
	}
}

func (r *liveRelay) teardown() {
	r.closeOne.Do(func() {
		r.cancel()
		if r.remote != nil {
			if err := r.remote.Close(); err != nil {
				r.logger.Debug("live gateway close failed", zap.Error(err))
			}
		}
		_ = r.conn.Close()
		r.svc.release(r.userID)
		r.svc.metrics.LiveSessionEnded()
		r.logger.Info("live session closed")
	})
}
