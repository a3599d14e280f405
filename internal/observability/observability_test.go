package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.keys = append(p.keys, routingKey)
	return p.err
}

func TestPublishEventWithoutPublisherIsNoop(t *testing.T) {
	SetPublisher(nil)
	require.NoError(t, PublishEvent(context.Background(), RoutingKeyChat, EventEnvelope{}))
}

func TestPublishEventUsesConfiguredPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	SetPublisher(pub)
	defer SetPublisher(nil)

	require.NoError(t, PublishEvent(context.Background(), RoutingKeyFor("presence"), EventEnvelope{EventName: "ws_connect"}))
	assert.Equal(t, []string{RoutingKeyPresence}, pub.keys)
}

func TestPublishEventPropagatesErrors(t *testing.T) {
	pub := &recordingPublisher{err: assert.AnError}
	SetPublisher(pub)
	defer SetPublisher(nil)

	assert.ErrorIs(t, PublishEvent(context.Background(), RoutingKeyChat, nil), assert.AnError)
}

func TestRoutingKeyFor(t *testing.T) {
	assert.Equal(t, RoutingKeyChat, RoutingKeyFor("chat"))
	assert.Equal(t, RoutingKeyNotifications, RoutingKeyFor("notifications"))
}

func TestRequestIDFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.NotEmpty(t, RequestIDFromRequest(req))

	req.Header.Set(RequestIDHeader, "abc")
	assert.Equal(t, "abc", RequestIDFromRequest(req))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "chat-sync", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, TraceID(context.Background()))
}
