package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-sync/internal/mocks"
	"chat-sync/internal/telemetry"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(pub, "audit.chat", "chat-sync", "test")
	ctx := telemetry.WithRequestID(context.Background(), "req-1")

	pub.On("Publish", ctx, "audit.chat", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.EventType == "audit_log" &&
			env.RequestID == "req-1" &&
			env.Service == "chat-sync" &&
			env.Payload.Action == "mark_notification_read" &&
			env.Payload.Target == "abc"
	})).Return(nil).Once()

	emitter.Emit(ctx, "INFO", "mark_notification_read", "abc", "notification marked read")

	pub.AssertExpectations(t)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(pub, "audit.chat", "chat-sync", "test")
	pub.On("Publish", mock.Anything, "audit.chat", mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "send_message", "legal-team", "sent")
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "x", "", "")
	})
}
