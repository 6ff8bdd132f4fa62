package rabbitmq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/rabbitmq"
	"fulfillment/internal/pkg/outbox"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Channel() (rabbitmq.Channel, error) {
	args := m.Called()
	if ch := args.Get(0); ch != nil {
		return ch.(rabbitmq.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func testEvent(id int64) outbox.Event {
	return outbox.Event{
		ID:          id,
		AggregateID: "7f0c",
		Type:        outbox.TypeOrderRefundRequested,
		Payload:     []byte(`{"orderId":"7f0c","amount":"320.00"}`),
		Headers:     map[string]string{"traceparent": "00-abc-def-01"},
		CreatedAt:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_DeclaresOnceAndRoutesByType(t *testing.T) {
	conn := new(MockConnection)
	ch := new(MockChannel)
	conn.On("Channel").Return(ch, nil).Once()
	ch.On("ExchangeDeclare", "fulfillment.events", "topic", true, false, false, false, amqp.Table(nil)).Return(nil).Once()

	var published []amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, "fulfillment.events", outbox.TypeOrderRefundRequested, false, false, mock.Anything).
		Run(func(args mock.Arguments) { published = append(published, args.Get(5).(amqp.Publishing)) }).
		Return(nil).Twice()

	publisher := rabbitmq.NewPublisher(conn, "fulfillment.events")
	require.NoError(t, publisher.Publish(t.Context(), testEvent(1)))
	require.NoError(t, publisher.Publish(t.Context(), testEvent(2)))

	require.Len(t, published, 2)
	msg := published[0]
	assert.Equal(t, "1", msg.MessageId)
	assert.Equal(t, "7f0c", msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, outbox.TypeOrderRefundRequested, msg.Headers["event_type"])
	assert.Equal(t, "00-abc-def-01", msg.Headers["traceparent"])
	conn.AssertExpectations(t)
	ch.AssertExpectations(t)
}

func TestPublisher_ReopensChannelAfterFailure(t *testing.T) {
	conn := new(MockConnection)
	broken := new(MockChannel)
	healthy := new(MockChannel)
	conn.On("Channel").Return(broken, nil).Once()
	conn.On("Channel").Return(healthy, nil).Once()
	for _, ch := range []*MockChannel{broken, healthy} {
		ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	}
	closedErr := errors.New("channel/connection is not open")
	broken.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(closedErr).Once()
	broken.On("Close").Return(nil).Once()
	healthy.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	publisher := rabbitmq.NewPublisher(conn, "fulfillment.events")

	err := publisher.Publish(t.Context(), testEvent(1))
	require.ErrorIs(t, err, closedErr)
	require.NoError(t, publisher.Publish(t.Context(), testEvent(1)))

	conn.AssertExpectations(t)
	broken.AssertExpectations(t)
	healthy.AssertExpectations(t)
}

func TestPublisher_ChannelUnavailable(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Channel").Return(nil, errors.New("connection refused")).Once()

	err := rabbitmq.NewPublisher(conn, "fulfillment.events").Publish(t.Context(), testEvent(1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
