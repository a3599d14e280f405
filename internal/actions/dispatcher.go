// Package actions turns consumer intents into outbound frames and REST calls.
package actions

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"chat-sync/internal/apierr"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

// DefaultTypingIdle is how long after the last keystroke a stop-typing frame is sent.
const DefaultTypingIdle = 3 * time.Second

// Backend is the REST surface actions call.
type Backend interface {
	CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	EditMessage(ctx context.Context, messageID int, content string) (models.Message, error)
	MarkMessageRead(ctx context.Context, messageID int) error
	AddReaction(ctx context.Context, messageID int, reactionType models.ReactionType) (models.Reaction, error)
	UploadFile(ctx context.Context, roomName, filename string, content io.Reader) (string, error)
	ActiveUsers(ctx context.Context, search string) ([]models.User, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context) (int, error)
	ClearAllNotifications(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

// Socket writes frames to supervised channels.
type Socket interface {
	Send(key ws.ChannelKey, frame any) error
	State(key ws.ChannelKey) ws.State
}

type Dispatcher struct {
	backend Backend
	socket  Socket
	store   *store.Store
	audit   *telemetry.AuditEmitter
	clock   clockwork.Clock

	TypingIdle time.Duration

	typingMu sync.Mutex
	typing   map[string]*typingTimer
}

type typingTimer struct {
	timer clockwork.Timer
}

func NewDispatcher(backend Backend, socket Socket, st *store.Store, audit *telemetry.AuditEmitter, clk clockwork.Clock) *Dispatcher {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Dispatcher{
		backend:    backend,
		socket:     socket,
		store:      st,
		audit:      audit,
		clock:      clk,
		TypingIdle: DefaultTypingIdle,
		typing:     make(map[string]*typingTimer),
	}
}

// SendMessage writes a message frame to the room channel. The message shows up in state
// only when the server echoes it back.
func (d *Dispatcher) SendMessage(ctx context.Context, content, roomName string) error {
	if strings.TrimSpace(content) == "" {
		return d.fail(apierr.New(apierr.KindValidation, "send message", "message content is empty"))
	}
	return d.sendMessage(ctx, roomName, models.OutboundMessage{Type: models.FrameMessage, Message: content})
}

// SendMessageWithFile uploads the attachment and then sends a message frame carrying its URL.
func (d *Dispatcher) SendMessageWithFile(ctx context.Context, content, roomName, filename string, file io.Reader) error {
	if key := ws.ChatKey(roomName); d.socket.State(key) != ws.StateOpen {
		return d.fail(apierr.New(apierr.KindWebSocket, "send message "+key.String(), "channel not open"))
	}
	fileURL, err := d.UploadFile(ctx, roomName, filename, file)
	if err != nil {
		return err
	}
	return d.sendMessage(ctx, roomName, models.OutboundMessage{Type: models.FrameMessage, Message: content, FileURL: &fileURL})
}

func (d *Dispatcher) sendMessage(ctx context.Context, roomName string, frame models.OutboundMessage) error {
	if err := d.socket.Send(ws.ChatKey(roomName), frame); err != nil {
		return d.fail(apierr.From("send message", err))
	}
	d.audit.Emit(ctx, "info", "message.send", roomName, "message sent")
	return nil
}

// SendTypingStatus is fire-and-forget and changes no local state.
func (d *Dispatcher) SendTypingStatus(roomName string, isTyping bool) {
	err := d.socket.Send(ws.ChatKey(roomName), models.OutboundTyping{Type: models.FrameTyping, IsTyping: isTyping})
	if err != nil {
		log.Printf("actions: typing frame dropped room=%s err=%v", roomName, err)
	}
}

// Typing reports a keystroke. The first keystroke sends is_typing=true; a false frame follows
// once no keystroke arrives for TypingIdle.
func (d *Dispatcher) Typing(roomName string) {
	d.typingMu.Lock()
	prev, active := d.typing[roomName]
	if active {
		prev.timer.Stop()
	}
	entry := &typingTimer{}
	entry.timer = d.clock.AfterFunc(d.TypingIdle, func() {
		d.typingMu.Lock()
		if d.typing[roomName] != entry {
			d.typingMu.Unlock()
			return
		}
		delete(d.typing, roomName)
		d.typingMu.Unlock()
		d.SendTypingStatus(roomName, false)
	})
	d.typing[roomName] = entry
	d.typingMu.Unlock()

	if !active {
		d.SendTypingStatus(roomName, true)
	}
}

// StopTyping cancels a pending idle timer and sends is_typing=false right away.
func (d *Dispatcher) StopTyping(roomName string) {
	d.typingMu.Lock()
	entry, active := d.typing[roomName]
	delete(d.typing, roomName)
	d.typingMu.Unlock()
	if !active {
		return
	}
	entry.timer.Stop()
	d.SendTypingStatus(roomName, false)
}

// AddReaction sends the reaction frame and records the reaction over REST. The REST result
// is upserted locally; a repeated reaction fails with a duplicate_reaction error.
func (d *Dispatcher) AddReaction(ctx context.Context, roomName string, messageID int, reactionType models.ReactionType) (models.Reaction, error) {
	if !reactionType.Valid() {
		return models.Reaction{}, d.fail(apierr.New(apierr.KindValidation, "add reaction", "unknown reaction type "+string(reactionType)))
	}

	frame := models.OutboundReaction{Type: models.FrameReaction, MessageID: messageID, ReactionType: reactionType}
	if err := d.socket.Send(ws.ChatKey(roomName), frame); err != nil {
		log.Printf("actions: reaction frame not sent room=%s message=%d err=%v", roomName, messageID, err)
	}

	reaction, err := d.backend.AddReaction(ctx, messageID, reactionType)
	if err != nil {
		return models.Reaction{}, d.fail(apierr.From("add reaction", err))
	}
	if reaction.Message == 0 {
		reaction.Message = messageID
	}
	d.store.UpsertReaction(reaction)
	d.audit.Emit(ctx, "info", "reaction.add", roomName, string(reactionType))
	return reaction, nil
}

// EditMessage updates content over REST and applies the edited message locally.
func (d *Dispatcher) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, d.fail(apierr.New(apierr.KindValidation, "edit message", "message content is empty"))
	}
	edited, err := d.backend.EditMessage(ctx, messageID, content)
	if err != nil {
		return models.Message{}, d.fail(apierr.From("edit message", err))
	}
	d.store.UpdateMessage(messageID, func(m *models.Message) {
		m.Content = edited.Content
		m.IsEdited = true
		m.EditedAt = edited.EditedAt
		if m.EditedAt == nil {
			now := d.clock.Now()
			m.EditedAt = &now
		}
	})
	d.audit.Emit(ctx, "info", "message.edit", "", "message edited")
	return edited, nil
}

func (d *Dispatcher) MarkMessageRead(ctx context.Context, messageID int) error {
	if err := d.backend.MarkMessageRead(ctx, messageID); err != nil {
		return d.fail(apierr.From("mark message read", err))
	}
	d.store.UpdateMessage(messageID, func(m *models.Message) { m.IsRead = true })
	return nil
}

// MarkNotificationRead is idempotent: a notification already read locally is not sent again
// and the unread counter only drops on an unread to read transition.
func (d *Dispatcher) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	if n, ok := d.store.Notification(id); ok && n.IsRead {
		return nil
	}
	if err := d.backend.MarkNotificationRead(ctx, id); err != nil {
		return d.fail(apierr.From("mark notification read", err))
	}
	if d.store.MarkNotificationRead(id) {
		d.audit.Emit(ctx, "info", "notification.read", id.String(), "notification marked read")
	}
	return nil
}

func (d *Dispatcher) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	marked, err := d.backend.MarkAllNotificationsRead(ctx)
	if err != nil {
		return 0, d.fail(apierr.From("mark all notifications read", err))
	}
	d.store.MarkAllNotificationsRead()
	d.audit.Emit(ctx, "info", "notification.read_all", "", "all notifications marked read")
	return marked, nil
}

// ClearAllNotifications deletes read notifications, matching what the server removes.
func (d *Dispatcher) ClearAllNotifications(ctx context.Context) (int, error) {
	deleted, err := d.backend.ClearAllNotifications(ctx)
	if err != nil {
		return 0, d.fail(apierr.From("clear notifications", err))
	}
	d.store.RemoveReadNotifications()
	d.audit.Emit(ctx, "info", "notification.clear_all", "", "read notifications cleared")
	return deleted, nil
}

func (d *Dispatcher) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	if err := d.backend.DeleteNotification(ctx, id); err != nil {
		return d.fail(apierr.From("delete notification", err))
	}
	d.store.RemoveNotification(id)
	d.audit.Emit(ctx, "info", "notification.delete", id.String(), "notification deleted")
	return nil
}

// UploadFile stores an attachment and returns its URL.
func (d *Dispatcher) UploadFile(ctx context.Context, roomName, filename string, file io.Reader) (string, error) {
	fileURL, err := d.backend.UploadFile(ctx, roomName, filename, file)
	if err != nil {
		return "", d.fail(apierr.From("upload file", err))
	}
	d.audit.Emit(ctx, "info", "file.upload", roomName, filename)
	return fileURL, nil
}

func (d *Dispatcher) GetActiveUsers(ctx context.Context, search string) ([]models.User, error) {
	users, err := d.backend.ActiveUsers(ctx, search)
	if err != nil {
		return nil, d.fail(apierr.From("active users", err))
	}
	return users, nil
}

// CreateRoom creates a room, adds it locally and refreshes the room list.
func (d *Dispatcher) CreateRoom(ctx context.Context, in models.CreateRoomRequest) (models.Room, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Room{}, d.fail(apierr.New(apierr.KindValidation, "create room", "room name is required"))
	}
	room, err := d.backend.CreateRoom(ctx, in)
	if err != nil {
		return models.Room{}, d.fail(apierr.From("create room", err))
	}
	d.store.AddRoom(room)
	if rooms, err := d.backend.ListRooms(ctx); err != nil {
		log.Printf("actions: room list refresh failed err=%v", err)
	} else {
		d.store.SetRooms(rooms)
	}
	d.audit.Emit(ctx, "info", "room.create", room.Name, string(room.RoomType))
	return room, nil
}

func (d *Dispatcher) fail(err *apierr.Error) *apierr.Error {
	d.store.SetError(err)
	return err
}
