// Package queue carries budget reconciliation requests over AMQP from the
// API to the reconcile worker.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Handler processes a reconciliation request. Returning an error schedules a retry.
type Handler func(ctx context.Context, msg ReconcileMessage) error

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

const (
	// MaxAttempts is how often a request is handled before it is dead-lettered.
	MaxAttempts = 5

	maxBackoff = 5 * time.Minute
)

// Backoff returns how long a request waits after its nth failed attempt.
func Backoff(attempt int) time.Duration {
	d := time.Second
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 4
	}
	return min(d, maxBackoff)
}

func (c *Client) retryQueue() string { return c.queueName + ".retry" }
func (c *Client) deadQueue() string  { return c.queueName + ".dead" }

// setup declares the exchange and three queues bound to it by their names.
// Failed requests wait in the retry queue until their expiration dead-letters
// them back to the main queue. Requests that failed MaxAttempts times end up
// in the dead queue.
func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queues := []struct {
		name string
		args amqp091.Table
	}{
		{c.queueName, amqp091.Table{
			"x-dead-letter-exchange":    c.exchangeName,
			"x-dead-letter-routing-key": c.deadQueue(),
		}},
		{c.retryQueue(), amqp091.Table{
			"x-dead-letter-exchange":    c.exchangeName,
			"x-dead-letter-routing-key": c.queueName,
		}},
		{c.deadQueue(), nil},
	}

	for _, q := range queues {
		_, err = c.channel.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			q.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}

		err = c.channel.QueueBind(q.name, q.name, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}

	return nil
}

// RequestReconciliation publishes a persistent reconciliation request.
func (c *Client) RequestReconciliation(ctx context.Context, userID, categoryID uuid.UUID) error {
	if err := c.publish(ctx, c.queueName, NewReconcileMessage(userID, categoryID), 0); err != nil {
		return err
	}

	log.Info().
		Str("userId", userID.String()).
		Str("categoryId", categoryID.String()).
		Str("queue", c.queueName).
		Msg("requested budget reconciliation")

	return nil
}

// retry parks msg in the retry queue for delay.
func (c *Client) retry(ctx context.Context, msg ReconcileMessage, delay time.Duration) error {
	return c.publish(ctx, c.retryQueue(), msg, delay)
}

func (c *Client) publish(ctx context.Context, routingKey string, msg ReconcileMessage, expiration time.Duration) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	if expiration > 0 {
		publishing.Expiration = strconv.FormatInt(expiration.Milliseconds(), 10)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

// Consume handles reconciliation requests until ctx is cancelled. Up to
// concurrency messages are handled at the same time.
func (c *Client) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	if err := c.channel.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Info().Str("queue", c.queueName).Int("concurrency", concurrency).Msg("consuming reconciliation requests")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				_ = g.Wait()
				return errors.New("delivery channel closed")
			}

			g.Go(func() error {
				process(gctx, delivery, delivery.Body, handler, c.retry)
				return nil
			})
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type retryFunc func(ctx context.Context, msg ReconcileMessage, delay time.Duration) error

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process hands one delivery to the handler. Undecodable messages are
// dead-lettered. Failed ones are retried with backoff until MaxAttempts is
// reached, then dead-lettered.
func process(ctx context.Context, d acknowledger, body []byte, handler Handler, retry retryFunc) {
	msg, err := ReconcileMessageFromJSON(body)
	if err != nil {
		log.Error().Err(err).Msg("dead-lettering undecodable reconciliation request")
		_ = d.Nack(false, false)
		return
	}

	logger := log.With().
		Str("userId", msg.UserID.String()).
		Str("categoryId", msg.CategoryID.String()).
		Logger()

	err = handler(ctx, msg)
	if err == nil {
		_ = d.Ack(false)
		logger.Info().Msg("reconciled budgets")
		return
	}

	msg.Attempt++
	if msg.Attempt >= MaxAttempts {
		logger.Error().Err(err).Int("attempt", msg.Attempt).Msg("reconciliation failed, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	delay := Backoff(msg.Attempt)
	if rerr := retry(ctx, msg, delay); rerr != nil {
		// The request must not get lost, put it back as it is
		logger.Error().Err(rerr).Msg("could not schedule retry, requeueing")
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
	logger.Warn().Err(err).Int("attempt", msg.Attempt).Dur("delay", delay).Msg("reconciliation failed, retrying later")
}
