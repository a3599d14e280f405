// Package session is the consumer-facing surface: state snapshots, change subscriptions and actions
// over one shared store and one set of supervised channels.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"chat-sync/internal/actions"
	"chat-sync/internal/apierr"
	"chat-sync/internal/history"
	"chat-sync/internal/models"
	"chat-sync/internal/router"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

// Backend is the REST client as the session uses it.
type Backend interface {
	history.Backend
	actions.Backend
}

type Config struct {
	Backend    Backend
	Supervisor *ws.Supervisor
	Store      *store.Store
	Audit      *telemetry.AuditEmitter
	Clock      clockwork.Clock
}

// Session wires history loading, channel supervision, frame routing and actions. Every consumer
// shares the same store, so all of them observe the same state.
type Session struct {
	*actions.Dispatcher

	store  *store.Store
	sup    *ws.Supervisor
	loader *history.Loader
	router *router.Router

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config) *Session {
	st := cfg.Store
	if st == nil {
		st = store.New()
	}
	s := &Session{
		Dispatcher: actions.NewDispatcher(cfg.Backend, cfg.Supervisor, st, cfg.Audit, cfg.Clock),
		store:      st,
		sup:        cfg.Supervisor,
		loader:     history.NewLoader(cfg.Backend, cfg.Supervisor, st),
		router:     router.New(st),
	}
	cfg.Supervisor.OnOpen(s.onOpen)
	return s
}

// resyncTimeout bounds the history fetch made when a channel reopens.
const resyncTimeout = 10 * time.Second

// Start seeds rooms and notifications, opens the global presence and notification channels and
// starts routing frames. Calling it again after a success is a no-op; after a failure it retries.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.Run(runCtx, s.sup.Events())
	}()

	if err := s.seedAndConnect(ctx); err != nil {
		cancel()
		<-done
		return err
	}
	s.started = true
	s.cancel = cancel
	s.done = done
	log.Printf("session: started rooms=%d notifications=%d", len(s.store.Rooms()), len(s.store.Notifications()))
	return nil
}

func (s *Session) seedAndConnect(ctx context.Context) error {
	for _, load := range []func(context.Context) error{
		s.loader.LoadRooms,
		s.loader.LoadNotifications,
		s.loader.LoadUnreadCount,
	} {
		if err := load(ctx); err != nil {
			log.Printf("session: seed failed err=%v", err)
			if apierr.KindOf(err) == apierr.KindAuthentication {
				return err
			}
		}
	}

	for _, key := range []ws.ChannelKey{ws.PresenceKey(), ws.NotificationsKey()} {
		if _, err := s.sup.Connect(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// JoinRoom loads the room history and then opens its chat channel.
func (s *Session) JoinRoom(ctx context.Context, roomName string) error {
	return s.loader.JoinRoom(ctx, roomName)
}

// LeaveRoom closes the room channel normally. Messages already loaded stay in state.
func (s *Session) LeaveRoom(roomName string) {
	s.StopTyping(roomName)
	s.sup.Disconnect(ws.ChatKey(roomName))
}

// ReloadHistory replaces a room's messages with the server history.
func (s *Session) ReloadHistory(ctx context.Context, roomName string) error {
	return s.loader.LoadMessageHistory(ctx, roomName)
}

// Close disconnects every channel, whether or not Start succeeded, and stops routing.
func (s *Session) Close() {
	s.sup.DisconnectAll()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.started = false
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// onOpen resyncs a reopened channel. It runs before the channel reads its first frame.
func (s *Session) onOpen(key ws.ChannelKey, reconnect bool) {
	if !reconnect {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()
	switch key.Kind {
	case ws.KindChat:
		if _, err := s.loader.ResyncRoom(ctx, key.Room); err != nil {
			log.Printf("session: resync failed channel=%s err=%v", key, err)
		}
	case ws.KindNotifications:
		if err := s.loader.ResyncNotifications(ctx); err != nil {
			log.Printf("session: resync failed channel=%s err=%v", key, err)
		}
	}
}

func (s *Session) Rooms() []models.Room { return s.store.Rooms() }

func (s *Session) Messages(roomName string) []models.Message { return s.store.Messages(roomName) }

func (s *Session) TypingUsers() map[int]models.TypingState { return s.store.Typing() }

func (s *Session) Presence() map[int]models.UserStatus { return s.store.Presence() }

func (s *Session) OnlineUsers() []models.User { return s.store.OnlineUsers() }

func (s *Session) Notifications() []models.Notification { return s.store.Notifications() }

func (s *Session) UnreadCount() int { return s.store.UnreadCount() }

func (s *Session) Error() *apierr.Error { return s.store.Error() }

func (s *Session) ClearError() { s.store.ClearError() }

// ConnectionState reports one channel's state.
func (s *Session) ConnectionState(key ws.ChannelKey) ws.State { return s.sup.State(key) }

// Channels reports every supervised channel.
func (s *Session) Channels() map[string]ws.ChannelStatus { return s.sup.Status() }

// Subscribe streams store changes to the caller until cancel is called.
func (s *Session) Subscribe(buffer int) (<-chan store.Change, func()) {
	return s.store.Subscribe(buffer)
}
