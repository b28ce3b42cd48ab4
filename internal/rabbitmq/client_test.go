package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/GoArmGo/GeoPhoto/internal/logger"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func delivery(ack amqp.Acknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	ack := &ackRecorder{}
	var got payloads.CleanupPayload

	handleDelivery(context.Background(),
		delivery(ack, `{"kind":"blob","key":"k.jpg","reason":"record save failed"}`),
		func(_ context.Context, p payloads.CleanupPayload) error { got = p; return nil },
		logger.Discard())

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)
	assert.Equal(t, payloads.CleanupPayload{Kind: payloads.CleanupKindBlob, Key: "k.jpg", Reason: "record save failed"}, got)
}

func TestHandleDeliveryRequeuesOnHandlerError(t *testing.T) {
	ack := &ackRecorder{}

	handleDelivery(context.Background(),
		delivery(ack, `{"kind":"legacy_file","key":"old.jpg"}`),
		func(context.Context, payloads.CleanupPayload) error { return errors.New("disk busy") },
		logger.Discard())

	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleDeliveryDropsMalformed(t *testing.T) {
	ack := &ackRecorder{}
	called := false

	handleDelivery(context.Background(),
		delivery(ack, `not json`),
		func(context.Context, payloads.CleanupPayload) error { called = true; return nil },
		logger.Discard())

	assert.False(t, called)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestDropPublisher(t *testing.T) {
	p := NewDropPublisher(logger.Discard())
	assert.NoError(t, p.PublishCleanupJob(context.Background(), payloads.CleanupPayload{Kind: "blob", Key: "x"}))
}
