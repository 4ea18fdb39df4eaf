package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultAMQPQueue = "rentboard.webhooks"

// AMQPConfig wires the RabbitMQ-backed queue.
type AMQPConfig struct {
	URL         string
	Queue       string
	Prefetch    int
	TaskTimeout time.Duration
	Logger      *zap.Logger
}

// AMQPQueue publishes tasks to a durable RabbitMQ queue and consumes them in Run. Deliveries
// are acknowledged after the handler returns whatever the outcome, so a failed task is never
// redelivered; failures are the handler's to record.
type AMQPQueue struct {
	conn        *amqp.Connection
	queue       string
	prefetch    int
	taskTimeout time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	publishCh *amqp.Channel
}

// DialAMQP connects to the broker and declares the durable task queue.
func DialAMQP(cfg AMQPConfig) (*AMQPQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	name := cfg.Queue
	if name == "" {
		name = DefaultAMQPQueue
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = DefaultWorkers
	}
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", name, err)
	}

	return &AMQPQueue{
		conn:        conn,
		queue:       name,
		prefetch:    prefetch,
		taskTimeout: timeout,
		logger:      logger.With(zap.String("component", "webhook-queue"), zap.String("queue", name)),
		publishCh:   ch,
	}, nil
}

// Enqueue publishes the task as a persistent JSON message.
func (q *AMQPQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishCh == nil || q.publishCh.IsClosed() {
		return ErrQueueClosed
	}

	err = q.publishCh.PublishWithContext(publishCtx,
		"",      // default exchange
		q.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.ID.String(),
			Timestamp:    task.ReceivedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish task: %w", err)
	}
	return nil
}

// Run consumes tasks with prefetch-many concurrent handlers until ctx is cancelled or the
// broker closes the channel.
func (q *AMQPQueue) Run(ctx context.Context, handle Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %q: %w", q.queue, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.prefetch)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case d, ok := <-deliveries:
			if !ok {
				_ = g.Wait()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			g.Go(func() error {
				q.deliver(gctx, d, handle)
				return nil
			})
		}
	}
}

func (q *AMQPQueue) deliver(ctx context.Context, d amqp.Delivery, handle Handler) {
	var task Task
	if err := json.Unmarshal(d.Body, &task); err != nil {
		q.logger.Error("dropping undecodable webhook task", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	runTask(context.WithoutCancel(ctx), q.taskTimeout, q.logger, task, handle)
	if err := d.Ack(false); err != nil {
		q.logger.Warn("ack webhook task", zap.String("task_id", task.ID.String()), zap.Error(err))
	}
}

// Close shuts the publishing channel and the connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs []error
	if q.publishCh != nil {
		errs = append(errs, q.publishCh.Close())
		q.publishCh = nil
	}
	if q.conn != nil && !q.conn.IsClosed() {
		errs = append(errs, q.conn.Close())
	}
	return errors.Join(errs...)
}
