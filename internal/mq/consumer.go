package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
//
// nil — сообщение подтверждается. Ошибка, обёрнутая в ErrDiscard, отправляет
// сообщение в DLQ; любая другая ошибка возвращает его в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// Ошибки потребления.
var (
	// ErrDiscard — сообщение не может быть обработано и не должно повторяться.
	ErrDiscard = errors.New("discard message")

	// errDeliveriesClosed — брокер закрыл канал доставки.
	errDeliveriesClosed = errors.New("deliveries channel closed")
)

// Outcome — чем заканчивается обработка сообщения.
type Outcome string

const (
	OutcomeAck     Outcome = "ack"
	OutcomeRequeue Outcome = "requeue"
	OutcomeDiscard Outcome = "discard"
)

// OutcomeOf сопоставляет результат обработчика с действием над сообщением.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAck
	case errors.Is(err, ErrDiscard):
		return OutcomeDiscard
	default:
		return OutcomeRequeue
	}
}

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — конверт сообщения. Payload полученных сообщений — json.RawMessage.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает сообщение.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение: requeue=false отправляет его в DLQ.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Settle применяет outcome к сообщению.
func (d *Delivery) Settle(outcome Outcome) error {
	switch outcome {
	case OutcomeAck:
		return d.Ack()
	case OutcomeRequeue:
		return d.Nack(true)
	default:
		return d.Nack(false)
	}
}

// decodeDelivery разбирает конверт, оставляя payload сырым.
func decodeDelivery(raw amqp.Delivery) (*Delivery, error) {
	var envelope struct {
		Message
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw.Body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Type == "" {
		return nil, errors.New("message has no type")
	}

	msg := envelope.Message
	msg.Payload = envelope.Payload
	return &Delivery{Message: msg, Raw: raw}, nil
}

// Consumer потребляет сообщения одной очереди и переживает переподключения.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений брокер выдаёт заранее.
	// По умолчанию 1.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: cfg.Prefetch,
	}
}

// Start потребляет сообщения, пока не отменён ctx или не вызван Stop.
//
// Каждая подписка живёт до закрытия канала доставки; после этого
// consumer ждёт переподключения Connection и подписывается заново.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer session ended, waiting for reconnect", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// session подписывается на очередь и обрабатывает сообщения до обрыва канала.
func (c *Consumer) session(ctx context.Context) error {
	deliveries, err := c.subscribe()
	if err != nil {
		return err
	}
	c.logger.Info("consumer started", "prefetch", c.prefetch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

// subscribe настраивает prefetch и открывает канал доставки с ручным ack.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// handleDelivery обрабатывает одно сообщение и подтверждает или отклоняет его.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	delivery, err := decodeDelivery(raw)
	if err != nil {
		c.logger.Error("undecodable message", "error", err, "body", string(raw.Body))
		delivery = &Delivery{Raw: raw}
		c.settle(delivery, OutcomeDiscard)
		return
	}

	logger := c.logger.With("message_id", delivery.Message.ID, "type", delivery.Message.Type)
	logger.Debug("received message")

	err = c.handler(ctx, delivery)
	outcome := OutcomeOf(err)
	if err != nil {
		logger.Error("handler failed", "outcome", outcome, "error", err)
	}
	c.settle(delivery, outcome)
}

// settle применяет outcome; ошибка ack только логируется.
func (c *Consumer) settle(d *Delivery, outcome Outcome) {
	if err := d.Settle(outcome); err != nil {
		c.logger.Warn("failed to settle message", "outcome", outcome, "error", err)
	}
}

// ParsePayload разбирает payload сообщения в указанный тип.
//
// Payload полученного сообщения — json.RawMessage; у сообщения, созданного
// в процессе, это исходное значение, и оно проходит через JSON.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, ok := msg.Payload.(json.RawMessage)
	if !ok {
		var err error
		if data, err = json.Marshal(msg.Payload); err != nil {
			return result, fmt.Errorf("marshal payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
