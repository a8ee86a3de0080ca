package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
)

const (
	screeningQueueName = "screening_queue"
	deadQueueSuffix    = ".dead"

	maxAttempts        = 3
	defaultBackoffBase = 2 * time.Second
	publishTimeout     = 5 * time.Second
)

// JobHandler processes one screening job. A nil return acknowledges the
// job; an error triggers the retry/dead-letter policy.
type JobHandler func(ctx context.Context, job domain.ScreeningJob) error

// Queue is the durable RabbitMQ work queue carrying screening jobs.
// Delivery is at-least-once; jobs failing maxAttempts times move to the
// dead-letter queue.
type publishFunc func(ctx context.Context, routingKey string, job domain.ScreeningJob) error

type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	dead    amqp.Queue
	logger  *zap.Logger

	backoffBase time.Duration
	publish     publishFunc
}

func NewQueue(url string, logger *zap.Logger) (*Queue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(screeningQueueName, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	dead, err := ch.QueueDeclare(screeningQueueName+deadQueueSuffix, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare dead-letter queue: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", q.Name))
	queue := &Queue{
		conn:        conn,
		channel:     ch,
		queue:       q,
		dead:        dead,
		logger:      logger,
		backoffBase: defaultBackoffBase,
	}
	queue.publish = queue.publishAMQP
	return queue, nil
}

// Enqueue publishes a first-attempt screening job for the application.
func (q *Queue) Enqueue(ctx context.Context, applicationID uuid.UUID) error {
	return q.publish(ctx, q.queue.Name, domain.ScreeningJob{
		ApplicationID: applicationID,
		Attempt:       1,
		EnqueuedAt:    time.Now().UTC(),
	})
}

func (q *Queue) publishAMQP(ctx context.Context, routingKey string, job domain.ScreeningJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = q.channel.PublishWithContext(pctx, "", routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Consume delivers jobs to handler until ctx is cancelled or the
// channel closes. Each delivery runs in its own goroutine; actual
// pipeline concurrency is bounded by the worker's governor, so the
// prefetch only needs to keep that many deliveries in flight.
func (q *Queue) Consume(ctx context.Context, prefetch int, handler JobHandler) error {
	if prefetch > 0 {
		if err := q.channel.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	msgs, err := q.channel.Consume(q.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				go q.handle(ctx, d, handler)
			}
		}
	}()
	return nil
}

func (q *Queue) handle(ctx context.Context, d amqp.Delivery, handler JobHandler) {
	var job domain.ScreeningJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.logger.Error("invalid job payload, dropping", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	// External publishers may omit the attempt counter; treat such a
	// delivery as a first attempt so the backoff shift stays in range.
	if job.Attempt < 1 {
		job.Attempt = 1
	}

	err := handler(ctx, job)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	if job.Attempt >= maxAttempts {
		q.logger.Error("job exhausted retries, dead-lettering",
			zap.String("application_id", job.ApplicationID.String()),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		if pubErr := q.publish(ctx, q.dead.Name, job); pubErr != nil {
			q.logger.Error("dead-letter publish failed", zap.Error(pubErr))
		}
		_ = d.Ack(false)
		return
	}

	// Exponential backoff before the next attempt: base * 2^(n-1).
	backoff := q.backoffBase << (job.Attempt - 1)
	q.logger.Warn("job failed, retrying",
		zap.String("application_id", job.ApplicationID.String()),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(err),
	)

	select {
	case <-ctx.Done():
		// Shutting down; leave the message unacked so the broker
		// redelivers it.
		_ = d.Nack(false, true)
		return
	case <-time.After(backoff):
	}

	job.Attempt++
	if pubErr := q.publish(ctx, q.queue.Name, job); pubErr != nil {
		q.logger.Error("retry publish failed, requeueing delivery", zap.Error(pubErr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close tears down the channel and connection.
func (q *Queue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
