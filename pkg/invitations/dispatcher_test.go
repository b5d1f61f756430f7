package invitations

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	Topic string
	Key   string
	Value []byte
}

type fakePublisher struct {
	published []publishedMessage
	failKeys  map[string]bool
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	if f.failKeys[key] {
		return assert.AnError
	}
	f.published = append(f.published, publishedMessage{Topic: topic, Key: key, Value: value})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newDispatcherFixture(t *testing.T, publisher *fakePublisher) (*Dispatcher, sqlmock.Sqlmock, *observability.Metrics) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewDispatcher(NewStore(db), publisher, "BENJAMIN.EMAIL", logger, metrics), mock, metrics
}

func expectEvents(mock sqlmock.Sqlmock, events ...*OutboxEvent) {
	rows := sqlmock.NewRows([]string{"event_id", "receiver_email", "topic", "message", "created_at"})
	for _, e := range events {
		rows.AddRow(e.EventID, e.ReceiverEmail, e.Topic, e.Message, time.Now())
	}
	mock.ExpectQuery("SELECT event_id, receiver_email").
		WithArgs(defaultBatchSize).
		WillReturnRows(rows)
}

func expectPendingCount(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestDispatcherTick(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher, mock, metrics := newDispatcherFixture(t, publisher)

	event := &OutboxEvent{
		EventID:       uuid.New(),
		ReceiverEmail: "bob@example.com",
		Topic:         "Invitation to project Apollo",
		Message:       "you are invited",
	}
	expectEvents(mock, event)
	mock.ExpectExec("DELETE FROM invitation_events").
		WithArgs(event.EventID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectPendingCount(mock, 0)

	dispatcher.Tick(context.Background())

	require.Len(t, publisher.published, 1)
	msg := publisher.published[0]
	assert.Equal(t, "BENJAMIN.EMAIL", msg.Topic)
	assert.Equal(t, event.EventID.String(), msg.Key)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "bob@example.com", payload["receiver_email"])
	assert.Equal(t, "Invitation to project Apollo", payload["topic"])
	assert.Equal(t, "you are invited", payload["message"])
	assert.Equal(t, event.EventID.String(), payload["event_id"])

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.OutboxPublishTotal.WithLabelValues("success")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatcherKeepsEventOnPublishFailure(t *testing.T) {
	failing := &OutboxEvent{EventID: uuid.New(), ReceiverEmail: "a@example.com", Topic: "Invitation to project Apollo", Message: "m1"}
	delivered := &OutboxEvent{EventID: uuid.New(), ReceiverEmail: "b@example.com", Topic: "Invitation to project Apollo", Message: "m2"}

	publisher := &fakePublisher{failKeys: map[string]bool{failing.EventID.String(): true}}
	dispatcher, mock, metrics := newDispatcherFixture(t, publisher)

	expectEvents(mock, failing, delivered)
	// Only the delivered event is deleted; the failed one stays for the next tick
	mock.ExpectExec("DELETE FROM invitation_events").
		WithArgs(delivered.EventID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectPendingCount(mock, 1)

	dispatcher.Tick(context.Background())

	require.Len(t, publisher.published, 1)
	assert.Equal(t, delivered.EventID.String(), publisher.published[0].Key)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.OutboxPublishTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.OutboxPendingSize))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatcherEmptyOutbox(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher, mock, _ := newDispatcherFixture(t, publisher)

	expectEvents(mock)
	expectPendingCount(mock, 0)

	dispatcher.Tick(context.Background())

	assert.Empty(t, publisher.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}
