package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"

	"chat-sync/internal/apierr"
	"chat-sync/internal/auth"
	"chat-sync/internal/observability"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultMaxReconnect   = time.Minute
	DefaultPingInterval   = 30 * time.Second

	writeWait = 10 * time.Second
)

// Event is one inbound frame together with the channel it arrived on.
type Event struct {
	Key        ChannelKey
	Payload    []byte
	ReceivedAt time.Time
}

// ErrorSink receives channel failures. The store's error slot implements it.
type ErrorSink interface {
	SetError(err *apierr.Error)
	ClearError(kinds ...apierr.Kind)
}

type noopSink struct{}

func (noopSink) SetError(*apierr.Error)   {}
func (noopSink) ClearError(...apierr.Kind) {}

// Config wires a Supervisor.
type Config struct {
	// BaseURL is the websocket origin, e.g. ws://localhost:8001.
	BaseURL string
	Tokens  auth.TokenSource
	Dialer  Dialer
	Clock   clockwork.Clock
	Errors  ErrorSink
	// NewBackOff builds the reconnect policy for one channel. Defaults to DefaultBackOff.
	NewBackOff func() backoff.BackOff
	// MaxReconnectAttempts caps consecutive reconnects; zero means unlimited.
	MaxReconnectAttempts uint64
	// PingInterval enables protocol-level pings; zero disables them. A channel that sees no
	// pong within two intervals is treated as dropped.
	PingInterval time.Duration
	EventBuffer  int
}

// DefaultBackOff is capped exponential backoff with jitter starting at five seconds.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultReconnectDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = DefaultMaxReconnect
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Supervisor owns every channel connection: it opens them, reads frames onto a single
// event queue, and reconnects after abnormal closes.
type Supervisor struct {
	cfg    Config
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	handles map[ChannelKey]*Handle
	onOpen  []func(key ChannelKey, reconnect bool)
}

// NewSupervisor creates a supervisor with defaults applied to cfg.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Dialer == nil {
		cfg.Dialer = NewGorillaDialer(10 * time.Second)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Errors == nil {
		cfg.Errors = noopSink{}
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = DefaultBackOff
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:     cfg,
		events:  make(chan Event, cfg.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[ChannelKey]*Handle),
	}
}

// Events is the queue every inbound frame is pushed onto.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// OnOpen registers a hook run after a channel opens. reconnect is true for every open after the first.
func (s *Supervisor) OnOpen(fn func(key ChannelKey, reconnect bool)) {
	s.mu.Lock()
	s.onOpen = append(s.onOpen, fn)
	s.mu.Unlock()
}

// Connect starts supervising key. Without a token it fails with an authentication error and
// opens nothing. Connecting a key that is already supervised returns the existing handle.
func (s *Supervisor) Connect(ctx context.Context, key ChannelKey) (*Handle, error) {
	token, err := s.cfg.Tokens.Token(ctx)
	if err != nil || token == "" {
		authErr := apierr.New(apierr.KindAuthentication, "open "+key.String(), auth.ErrNoToken.Error())
		if err != nil {
			authErr.Err = err
		}
		s.cfg.Errors.SetError(authErr)
		return nil, authErr
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil, apierr.New(apierr.KindWebSocket, "open "+key.String(), "supervisor closed")
	}
	if h, ok := s.handles[key]; ok && !h.isStopped() {
		s.mu.Unlock()
		return h, nil
	}
	backOff := s.cfg.NewBackOff()
	if s.cfg.MaxReconnectAttempts > 0 {
		backOff = backoff.WithMaxRetries(backOff, s.cfg.MaxReconnectAttempts)
	}
	h := &Handle{sup: s, key: key, state: StateConnecting, backOff: backOff}
	s.handles[key] = h
	s.mu.Unlock()

	log.Printf("ws: connecting channel=%s", key)
	go h.connect(token)
	return h, nil
}

// Handle returns the handle supervising key.
func (s *Supervisor) Handle(key ChannelKey) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[key]
	return h, ok
}

// State reports the state of key; unknown keys are idle.
func (s *Supervisor) State(key ChannelKey) State {
	h, ok := s.Handle(key)
	if !ok {
		return StateIdle
	}
	return h.State()
}

// ChannelStatus is a snapshot of one channel for status views.
type ChannelStatus struct {
	State     State         `json:"state"`
	Attempts  int           `json:"attempts"`
	LastError *apierr.Error `json:"last_error,omitempty"`
}

// Status snapshots every supervised channel keyed by its name.
func (s *Supervisor) Status() map[string]ChannelStatus {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	out := make(map[string]ChannelStatus, len(handles))
	for _, h := range handles {
		h.mu.Lock()
		st := ChannelStatus{State: h.state, Attempts: h.attempts}
		if h.lastErr != nil {
			cp := *h.lastErr
			st.LastError = &cp
		}
		h.mu.Unlock()
		out[h.key.String()] = st
	}
	return out
}

// Send writes v as a JSON frame. The channel must be open.
func (s *Supervisor) Send(key ChannelKey, v any) error {
	h, ok := s.Handle(key)
	if !ok {
		return apierr.New(apierr.KindWebSocket, "send "+key.String(), "channel not connected")
	}
	return h.Send(v)
}

// Disconnect closes key with normal closure so no reconnect follows.
func (s *Supervisor) Disconnect(key ChannelKey) {
	s.mu.Lock()
	h, ok := s.handles[key]
	delete(s.handles, key)
	s.mu.Unlock()
	if ok {
		h.close()
	}
}

// DisconnectAll closes every channel with normal closure and cancels pending reconnects.
func (s *Supervisor) DisconnectAll() {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[ChannelKey]*Handle)
	s.mu.Unlock()

	for _, h := range handles {
		h.close()
	}
	log.Printf("ws: disconnected all channels count=%d", len(handles))
}

// Close disconnects everything and stops the supervisor for good.
func (s *Supervisor) Close() {
	s.DisconnectAll()
	s.cancel()
}

func (s *Supervisor) openHooks() []func(ChannelKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]func(ChannelKey, bool){}, s.onOpen...)
}

func (s *Supervisor) push(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Handle is one supervised channel.
type Handle struct {
	sup *Supervisor
	key ChannelKey

	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	conn     Conn
	timer    clockwork.Timer
	backOff  backoff.BackOff
	stopped  bool
	active   bool
	attempts int
	opens    int
	info     ConnInfo
	lastErr  *apierr.Error
	pingStop chan struct{}
}

func (h *Handle) Key() ChannelKey { return h.key }

func (h *Handle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Send writes v as a JSON text frame when the channel is open.
func (h *Handle) Send(v any) error {
	op := "send " + h.key.String()
	h.mu.Lock()
	state, conn := h.state, h.conn
	h.mu.Unlock()
	if state != StateOpen || conn == nil {
		return apierr.New(apierr.KindWebSocket, op, fmt.Sprintf("channel is %s, not open", state))
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return apierr.Wrap(apierr.KindValidation, op, err)
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return apierr.Wrap(apierr.KindWebSocket, op, err)
	}
	return nil
}

func (h *Handle) connect(token string) {
	sup := h.sup
	rawURL, err := channelURL(sup.cfg.BaseURL, h.key, token)
	if err != nil {
		h.fail(apierr.Wrap(apierr.KindWebSocket, "open "+h.key.String(), err), false)
		return
	}

	ctx, span := otel.Tracer("chat-sync/ws").Start(sup.ctx, "ws.handshake")
	conn, err := sup.cfg.Dialer.Dial(ctx, rawURL)
	traceID := observability.TraceID(ctx)
	span.End()

	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Kind == apierr.KindAuthentication {
			h.fail(apiErr, false)
			return
		}
		h.fail(apierr.Wrap(apierr.KindWebSocket, "open "+h.key.String(), err), true)
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conn = conn
	h.state = StateOpen
	h.active = true
	h.opens++
	h.attempts = 0
	h.lastErr = nil
	h.backOff.Reset()
	h.info = ConnInfo{
		ConnID:      newConnID(),
		Key:         h.key,
		Attempt:     h.opens,
		TraceID:     traceID,
		ConnectedAt: sup.cfg.Clock.Now(),
	}
	reconnect := h.opens > 1
	info := h.info
	if interval := sup.cfg.PingInterval; interval > 0 {
		pongWait := 2 * interval
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		h.pingStop = make(chan struct{})
		go h.pingLoop(conn, interval, h.pingStop)
	}
	h.mu.Unlock()

	sup.cfg.Errors.ClearError(apierr.KindWebSocket, apierr.KindNetwork)
	observability.IncWSActive(string(h.key.Kind))
	observability.IncWSEvent(string(h.key.Kind), "ws_connect")
	h.publish(info, "ws_connect", "", 0)
	log.Printf("ws: channel open channel=%s conn_id=%s reconnect=%t", h.key, info.ConnID, reconnect)

	// Hooks finish before the first frame is read, so a resync after a reconnect is applied
	// ahead of the frames that arrive on the new connection.
	for _, fn := range sup.openHooks() {
		fn(h.key, reconnect)
	}

	go h.readLoop(conn, info)
}

func (h *Handle) readLoop(conn Conn, info ConnInfo) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.closed(conn, info, err)
			return
		}
		if !h.sup.push(Event{Key: h.key, Payload: data, ReceivedAt: h.sup.cfg.Clock.Now()}) {
			return
		}
	}
}

// closed handles the end of a read loop. Normal closure is terminal, anything else reconnects.
func (h *Handle) closed(conn Conn, info ConnInfo, err error) {
	_ = conn.Close()
	code := websocket.CloseAbnormalClosure
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
	}

	h.mu.Lock()
	if h.conn != conn {
		h.mu.Unlock()
		return
	}
	h.conn = nil
	h.stopPingLocked()
	wasActive := h.active
	h.active = false
	stopped := h.stopped
	h.mu.Unlock()

	kind := string(h.key.Kind)
	if wasActive {
		observability.DecWSActive(kind)
	}
	observability.IncWSEvent(kind, "ws_disconnect")
	h.publish(info, "ws_disconnect", err.Error(), code)

	if stopped {
		return
	}
	if code == websocket.CloseNormalClosure {
		h.mu.Lock()
		h.state = StateIdle
		h.stopped = true
		h.mu.Unlock()
		log.Printf("ws: channel closed normally channel=%s", h.key)
		return
	}

	log.Printf("ws: channel closed unexpectedly channel=%s code=%d err=%v", h.key, code, err)
	observability.IncWSEvent(kind, "ws_error")
	h.publish(info, "ws_error", err.Error(), code)
	h.fail(apierr.Wrap(apierr.KindWebSocket, h.key.String()+" connection", err), true)
}

// fail records err and, when retry is set, schedules exactly one reconnect.
func (h *Handle) fail(err *apierr.Error, retry bool) {
	h.sup.cfg.Errors.SetError(err)

	h.mu.Lock()
	h.lastErr = err
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if !retry {
		h.state = StateIdle
		h.stopped = true
		h.mu.Unlock()
		return
	}
	h.state = StateError

	delay := h.backOff.NextBackOff()
	if delay == backoff.Stop {
		h.state = StateIdle
		h.stopped = true
		maxErr := apierr.New(apierr.KindWebSocket, h.key.String(), "max reconnect attempts reached")
		h.lastErr = maxErr
		attempts := h.attempts
		h.mu.Unlock()
		h.sup.cfg.Errors.SetError(maxErr)
		log.Printf("ws: giving up channel=%s attempts=%d", h.key, attempts)
		return
	}
	h.attempts++
	h.state = StateReconnectPending
	h.timer = h.sup.cfg.Clock.AfterFunc(delay, h.reconnect)
	attempt := h.attempts
	h.mu.Unlock()

	observability.IncWSEvent(string(h.key.Kind), "reconnect_scheduled")
	log.Printf("ws: reconnect scheduled channel=%s delay=%s attempt=%d", h.key, delay, attempt)
}

func (h *Handle) reconnect() {
	h.mu.Lock()
	if h.stopped || h.state != StateReconnectPending {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	h.state = StateConnecting
	h.mu.Unlock()

	token, err := h.sup.cfg.Tokens.Token(h.sup.ctx)
	if err != nil || token == "" {
		authErr := apierr.New(apierr.KindAuthentication, "reopen "+h.key.String(), auth.ErrNoToken.Error())
		authErr.Err = err
		h.fail(authErr, false)
		return
	}
	h.connect(token)
}

// close performs a normal-closure shutdown and cancels any pending reconnect.
func (h *Handle) close() {
	h.mu.Lock()
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	conn := h.conn
	h.conn = nil
	wasActive := h.active
	h.active = false
	h.stopPingLocked()
	info := h.info
	if conn != nil {
		h.state = StateClosing
	}
	h.mu.Unlock()

	if conn != nil {
		h.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			log.Printf("ws: close frame failed channel=%s err=%v", h.key, err)
		}
		h.writeMu.Unlock()
		_ = conn.Close()
	}
	if wasActive {
		observability.DecWSActive(string(h.key.Kind))
		observability.IncWSEvent(string(h.key.Kind), "ws_disconnect")
		h.publish(info, "ws_disconnect", "client closed", websocket.CloseNormalClosure)
	}

	h.mu.Lock()
	h.state = StateIdle
	h.mu.Unlock()
}

func (h *Handle) stopPingLocked() {
	if h.pingStop != nil {
		close(h.pingStop)
		h.pingStop = nil
	}
}

func (h *Handle) pingLoop(conn Conn, interval time.Duration, stop <-chan struct{}) {
	ticker := h.sup.cfg.Clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			h.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			h.writeMu.Unlock()
			if err != nil {
				log.Printf("ws: ping failed channel=%s err=%v", h.key, err)
			}
		}
	}
}

func (h *Handle) publish(info ConnInfo, event, reason string, code int) {
	_ = observability.PublishEvent(h.sup.ctx, observability.RoutingKeyFor(string(h.key.Kind)), observability.EventEnvelope{
		EventType:  "ws_events",
		EventName:  event,
		OccurredAt: h.sup.cfg.Clock.Now().UTC(),
		TraceID:    info.TraceID,
		Payload: observability.WSPayload{
			Kind:       string(h.key.Kind),
			Room:       h.key.Room,
			Event:      event,
			ConnID:     info.ConnID,
			DurationMS: h.sup.cfg.Clock.Now().Sub(info.ConnectedAt).Milliseconds(),
			Reason:     reason,
			CloseCode:  code,
		},
	})
}
