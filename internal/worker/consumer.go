package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// WakeupSource delivers wake-up hints published by producers
type WakeupSource interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Acknowledger is the part of amqp.Delivery the listener needs
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// listenWakeups turns RabbitMQ deliveries into pool wake-ups. Jobs live in Postgres,
// so messages are acked right away and never carry work themselves.
func (w *Worker) listenWakeups(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed, relying on polling")
				return
			}
			w.handleWakeup(delivery.Body, delivery)
		}
	}
}

func (w *Worker) handleWakeup(body []byte, ack Acknowledger) {
	var msg queue.WakeupMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.Error("Failed to parse wake-up message",
			slog.String("error", err.Error()),
			slog.String("body", string(body)),
		)
		// malformed messages go to the dead-letter exchange if one is bound
		if nackErr := ack.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK malformed message",
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		w.logger.Error("Invalid job_id format - not a UUID",
			slog.String("job_id", msg.JobID),
		)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK message with invalid job_id",
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	if err := ack.Ack(false); err != nil {
		w.logger.Warn("Failed to ACK wake-up message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}

	if !slices.Contains(w.queues, msg.Queue) {
		return
	}

	w.logger.Debug("Wake-up received",
		slog.String("job_id", msg.JobID),
		slog.String("queue", msg.Queue),
	)
	w.wake()
}
