package invitations

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/platinummonkey/benjamin/pkg/bus"
	"github.com/platinummonkey/benjamin/pkg/observability"
)

const defaultBatchSize = 100

// Dispatcher drains the notification outbox to the message bus. Events are
// deleted only after the bus accepts them, so a crash between publish and
// delete re-sends the event on the next tick (at-least-once delivery).
type Dispatcher struct {
	store     *Store
	publisher bus.Publisher
	topic     string
	logger    *observability.Logger
	metrics   *observability.Metrics
	batchSize int

	// mu prevents overlapping ticks when a drain outlasts the interval
	mu sync.Mutex
}

// NewDispatcher creates an outbox dispatcher publishing to the given bus
// topic. metrics may be nil.
func NewDispatcher(store *Store, publisher bus.Publisher, topic string, logger *observability.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		metrics:   metrics,
		batchSize: defaultBatchSize,
	}
}

// Tick drains one batch of staged events. If a previous tick is still
// running it returns immediately instead of queueing behind it.
func (d *Dispatcher) Tick(ctx context.Context) {
	if !d.mu.TryLock() {
		d.logger.Debug("outbox tick skipped, previous tick still running")
		return
	}
	defer d.mu.Unlock()

	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.OutboxTickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	events, err := d.store.ListEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.WithError(err).Error("failed to list outbox events")
		return
	}

	for _, event := range events {
		if err := d.publish(ctx, event); err != nil {
			d.logger.WithError(err).
				WithField("event_id", event.EventID.String()).
				Error("failed to publish outbox event")
			d.observePublish("failure")
			continue
		}

		if err := d.store.DeleteEvent(ctx, event.EventID); err != nil {
			// The event will be re-published next tick; consumers must
			// deduplicate on event_id
			d.logger.WithError(err).
				WithField("event_id", event.EventID.String()).
				Error("failed to delete delivered outbox event")
			continue
		}

		d.observePublish("success")
	}

	if d.metrics != nil {
		if pending, err := d.store.PendingEvents(ctx); err == nil {
			d.metrics.OutboxPendingSize.Set(float64(pending))
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event *OutboxEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, d.topic, event.EventID.String(), payload)
}

func (d *Dispatcher) observePublish(status string) {
	if d.metrics != nil {
		d.metrics.OutboxPublishTotal.WithLabelValues(status).Inc()
	}
}
