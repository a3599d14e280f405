package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/repositories"
	"chat-sync/internal/store"
)

func TestArchiverSavesAppendedAndUpdatedMessages(t *testing.T) {
	msgs := new(mocks.MessageRepositoryMock)
	notes := new(mocks.NotificationRepositoryMock)
	st := store.New()
	a := repositories.NewArchiver(msgs, notes, st)

	appended := models.Message{ID: 1, Content: "hello"}
	msgs.On("SaveMessage", mock.Anything, "case-42", appended).Return(nil)

	require.NoError(t, a.Apply(context.Background(), store.Change{Kind: store.ChangeMessageAppended, Room: "case-42", Message: &appended}))
	require.NoError(t, a.Apply(context.Background(), store.Change{Kind: store.ChangeTyping}))

	msgs.AssertExpectations(t)
	notes.AssertNotCalled(t, "SaveNotification", mock.Anything, mock.Anything)
}

func TestArchiverInsertsNewNotificationsThenMarksRead(t *testing.T) {
	msgs := new(mocks.MessageRepositoryMock)
	notes := new(mocks.NotificationRepositoryMock)
	st := store.New()
	a := repositories.NewArchiver(msgs, notes, st)
	id := uuid.New()
	st.SetNotifications([]models.Notification{{ID: id}})
	st.SetUnreadCount(1)

	notes.On("SaveNotification", mock.Anything, mock.MatchedBy(func(n models.Notification) bool { return n.ID == id })).Return(nil).Once()
	notes.On("MarkRead", mock.Anything, []uuid.UUID(nil)).Return(nil).Once()
	require.NoError(t, a.Apply(context.Background(), store.Change{Kind: store.ChangeNotifications}))

	st.MarkNotificationRead(id)
	notes.On("MarkRead", mock.Anything, []uuid.UUID{id}).Return(nil).Once()
	require.NoError(t, a.Apply(context.Background(), store.Change{Kind: store.ChangeNotifications}))

	notes.AssertExpectations(t)
}

func TestArchiverRunFollowsStore(t *testing.T) {
	msgs := new(mocks.MessageRepositoryMock)
	notes := new(mocks.NotificationRepositoryMock)
	st := store.New()
	a := repositories.NewArchiver(msgs, notes, st)

	saved := make(chan models.Message, 64)
	msgs.On("SaveMessage", mock.Anything, "case-42", mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(2).(models.Message) }).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	next := 0
	require.Eventually(t, func() bool {
		next++
		st.AppendMessage("case-42", models.Message{ID: next, Content: "archived"})
		return len(saved) > 0
	}, time.Second, 10*time.Millisecond)

	got := <-saved
	assert.Equal(t, "archived", got.Content)
}
