package actions_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/actions"
	"chat-sync/internal/apierr"
	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

type fixture struct {
	backend *mocks.BackendMock
	socket  *mocks.SocketMock
	pub     *mocks.PublisherMock
	store   *store.Store
	clock   *clockwork.FakeClock
	d       *actions.Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		backend: new(mocks.BackendMock),
		socket:  new(mocks.SocketMock),
		pub:     new(mocks.PublisherMock),
		store:   store.New(),
		clock:   clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.pub.On("Publish", mock.Anything, "audit.actions", mock.Anything).Return(nil).Maybe()
	audit := telemetry.NewAuditEmitter(f.pub, "audit.actions", "chat-sync", "test")
	f.d = actions.NewDispatcher(f.backend, f.socket, f.store, audit, f.clock)
	return f
}

func TestSendMessageOnClosedChannelFails(t *testing.T) {
	f := newFixture()
	key := ws.ChatKey("case-1")
	f.socket.On("Send", key, mock.Anything).
		Return(apierr.New(apierr.KindWebSocket, "send chat-case-1", "channel is connecting, not open"))

	err := f.d.SendMessage(context.Background(), "hello", "case-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrWebSocket)
	assert.Empty(t, f.store.Messages("case-1"), "no optimistic insert")
	require.NotNil(t, f.store.Error())
	assert.Equal(t, apierr.KindWebSocket, f.store.Error().Kind)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageWritesFrame(t *testing.T) {
	f := newFixture()
	f.socket.On("Send", ws.ChatKey("case-1"), models.OutboundMessage{Type: "message", Message: "hello"}).Return(nil)

	require.NoError(t, f.d.SendMessage(context.Background(), "hello", "case-1"))

	f.socket.AssertExpectations(t)
	assert.Empty(t, f.store.Messages("case-1"))
	f.pub.AssertCalled(t, "Publish", mock.Anything, "audit.actions", mock.Anything)
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	f := newFixture()

	err := f.d.SendMessage(context.Background(), "   ", "case-1")

	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	f.socket.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendMessageWithFileUploadsFirst(t *testing.T) {
	f := newFixture()
	key := ws.ChatKey("case-1")
	url := "http://files.test/contract.pdf"
	f.socket.On("State", key).Return(ws.StateOpen)
	f.backend.On("UploadFile", mock.Anything, "case-1", "contract.pdf", mock.Anything).Return(url, nil)
	f.socket.On("Send", key, models.OutboundMessage{Type: "message", Message: "see attached", FileURL: &url}).Return(nil)

	err := f.d.SendMessageWithFile(context.Background(), "see attached", "case-1", "contract.pdf", strings.NewReader("%PDF"))

	require.NoError(t, err)
	f.backend.AssertExpectations(t)
	f.socket.AssertExpectations(t)
}

func TestSendMessageWithFileSkipsUploadWhenClosed(t *testing.T) {
	f := newFixture()
	f.socket.On("State", ws.ChatKey("case-1")).Return(ws.StateReconnectPending)

	err := f.d.SendMessageWithFile(context.Background(), "x", "case-1", "a.txt", strings.NewReader("a"))

	assert.Equal(t, apierr.KindWebSocket, apierr.KindOf(err))
	f.backend.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTypingDebounce(t *testing.T) {
	f := newFixture()
	key := ws.ChatKey("case-1")
	stopped := make(chan struct{}, 1)
	f.socket.On("Send", key, models.OutboundTyping{Type: "typing", IsTyping: true}).Return(nil).Once()
	f.socket.On("Send", key, models.OutboundTyping{Type: "typing", IsTyping: false}).Return(nil).Once().
		Run(func(mock.Arguments) { stopped <- struct{}{} })

	f.d.Typing("case-1")
	f.clock.Advance(2 * time.Second)
	f.d.Typing("case-1")
	f.clock.Advance(2 * time.Second)
	f.d.Typing("case-1")

	f.socket.AssertNumberOfCalls(t, "Send", 1)

	f.clock.Advance(3 * time.Second)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("no is_typing=false frame after the idle timeout")
	}
	f.socket.AssertExpectations(t)
	assert.Empty(t, f.store.Typing(), "typing frames never change local state")
}

func TestStopTypingSendsFalseImmediately(t *testing.T) {
	f := newFixture()
	key := ws.ChatKey("case-1")
	var sent atomic.Int32
	f.socket.On("Send", key, mock.Anything).Return(nil).Run(func(mock.Arguments) { sent.Add(1) })

	f.d.Typing("case-1")
	f.d.StopTyping("case-1")
	assert.Equal(t, int32(2), sent.Load())

	f.clock.Advance(time.Minute)
	f.d.StopTyping("case-1")

	assert.Never(t, func() bool { return sent.Load() != 2 }, 50*time.Millisecond, 5*time.Millisecond,
		"the cancelled idle timer must not send another frame")
}

func TestAddReactionUpsertsServerResult(t *testing.T) {
	f := newFixture()
	f.store.ReplaceMessages("case-1", []models.Message{{ID: 11}})
	f.socket.On("Send", ws.ChatKey("case-1"), mock.Anything).Return(nil)
	f.backend.On("AddReaction", mock.Anything, 11, models.ReactionHeart).
		Return(models.Reaction{ID: 3, Message: 11, User: models.User{ID: 5}, ReactionType: models.ReactionHeart}, nil)

	r, err := f.d.AddReaction(context.Background(), "case-1", 11, models.ReactionHeart)

	require.NoError(t, err)
	assert.Equal(t, 3, r.ID)
	msgs := f.store.Messages("case-1")
	require.Len(t, msgs[0].Reactions, 1)
	assert.Equal(t, models.ReactionHeart, msgs[0].Reactions[0].ReactionType)
}

func TestAddReactionDuplicateSurfaces(t *testing.T) {
	f := newFixture()
	f.socket.On("Send", mock.Anything, mock.Anything).Return(nil)
	f.backend.On("AddReaction", mock.Anything, 11, models.ReactionLike).
		Return(nil, apierr.FromResponse("add reaction", 400, []byte(`{"error":"Reaction already exists for this message"}`)))

	_, err := f.d.AddReaction(context.Background(), "case-1", 11, models.ReactionLike)

	assert.ErrorIs(t, err, apierr.ErrDuplicateReaction)
	assert.Equal(t, apierr.KindDuplicateReaction, f.store.Error().Kind)
}

func TestAddReactionRejectsUnknownType(t *testing.T) {
	f := newFixture()

	_, err := f.d.AddReaction(context.Background(), "case-1", 11, models.ReactionType("ANGRY"))

	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	f.backend.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditAndMarkMessageRead(t *testing.T) {
	f := newFixture()
	f.store.ReplaceMessages("case-1", []models.Message{{ID: 11, Content: "draft"}})
	f.backend.On("EditMessage", mock.Anything, 11, "final").Return(models.Message{ID: 11, Content: "final", IsEdited: true}, nil)
	f.backend.On("MarkMessageRead", mock.Anything, 11).Return(nil)

	_, err := f.d.EditMessage(context.Background(), 11, "final")
	require.NoError(t, err)
	require.NoError(t, f.d.MarkMessageRead(context.Background(), 11))

	msg := f.store.Messages("case-1")[0]
	assert.Equal(t, "final", msg.Content)
	assert.True(t, msg.IsEdited)
	require.NotNil(t, msg.EditedAt)
	assert.True(t, msg.IsRead)
}

func TestMarkNotificationReadTwiceDecrementsOnce(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.store.SetNotifications([]models.Notification{{ID: id}})
	f.store.SetUnreadCount(3)
	f.backend.On("MarkNotificationRead", mock.Anything, id).Return(nil).Once()

	require.NoError(t, f.d.MarkNotificationRead(context.Background(), id))
	require.NoError(t, f.d.MarkNotificationRead(context.Background(), id))

	assert.Equal(t, 2, f.store.UnreadCount())
	f.backend.AssertNumberOfCalls(t, "MarkNotificationRead", 1)
}

func TestMarkNotificationReadFailureKeepsState(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.store.SetNotifications([]models.Notification{{ID: id}})
	f.store.SetUnreadCount(1)
	f.backend.On("MarkNotificationRead", mock.Anything, id).Return(apierr.New(apierr.KindNotFound, "mark read", "Not found."))

	err := f.d.MarkNotificationRead(context.Background(), id)

	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Equal(t, 1, f.store.UnreadCount())
	assert.False(t, f.store.Notifications()[0].IsRead)
}

func TestNotificationBulkActions(t *testing.T) {
	f := newFixture()
	read, unread, other := uuid.New(), uuid.New(), uuid.New()
	f.store.SetNotifications([]models.Notification{{ID: read, IsRead: true}, {ID: unread}, {ID: other}})
	f.store.SetUnreadCount(2)
	f.backend.On("DeleteNotification", mock.Anything, other).Return(nil)
	f.backend.On("ClearAllNotifications", mock.Anything).Return(1, nil)
	f.backend.On("MarkAllNotificationsRead", mock.Anything).Return(1, nil)

	require.NoError(t, f.d.DeleteNotification(context.Background(), other))
	assert.Equal(t, 1, f.store.UnreadCount())

	deleted, err := f.d.ClearAllNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	require.Len(t, f.store.Notifications(), 1)
	assert.Equal(t, unread, f.store.Notifications()[0].ID)

	marked, err := f.d.MarkAllNotificationsRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, 0, f.store.UnreadCount())
	assert.True(t, f.store.Notifications()[0].IsRead)
}

func TestCreateRoomRefreshesRoomList(t *testing.T) {
	f := newFixture()
	in := models.CreateRoomRequest{Name: "case-9", RoomType: models.RoomGroup, Participants: []string{"a@x.test"}}
	created := models.Room{ID: 9, Name: "case-9", RoomType: models.RoomGroup}
	f.backend.On("CreateRoom", mock.Anything, in).Return(created, nil)
	f.backend.On("ListRooms", mock.Anything).Return([]models.Room{{ID: 1, Name: "case-1"}, created}, nil)

	room, err := f.d.CreateRoom(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, 9, room.ID)
	assert.Len(t, f.store.Rooms(), 2)
	name, ok := f.store.RoomNameByID(9)
	require.True(t, ok)
	assert.Equal(t, "case-9", name)
}

func TestGetActiveUsersFailureSetsError(t *testing.T) {
	f := newFixture()
	f.backend.On("ActiveUsers", mock.Anything, "ann").Return(nil, apierr.New(apierr.KindNetwork, "active users", "dial tcp: refused"))

	users, err := f.d.GetActiveUsers(context.Background(), "ann")

	assert.Nil(t, users)
	assert.ErrorIs(t, err, apierr.ErrNetwork)
	assert.Equal(t, apierr.KindNetwork, f.store.Error().Kind)
}
