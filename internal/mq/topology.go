package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePrompts Exchange = "nodeflow.prompts"
	ExchangeDLQ     Exchange = "nodeflow.dlq"
)

// Queues — имена очередей.
const (
	QueuePromptsQueued Queue = "prompts.queued"
	QueueDLQPrompts    Queue = "dlq.prompts"
)

// Routing keys.
const (
	RoutingKeyQueued     RoutingKey = "queued"
	RoutingKeyDLQPrompts RoutingKey = "prompts"
)

// exchangeDecl — объявление обменника.
type exchangeDecl struct {
	name Exchange
	kind string
}

// queueDecl — объявление очереди.
type queueDecl struct {
	name Queue
	args amqp.Table
}

// bindingDecl — привязка очереди к обменнику.
type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology возвращает полное описание топологии.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangePrompts, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues := []queueDecl{
		// prompts.queued — отклонённые без requeue сообщения уходят в DLQ
		{QueuePromptsQueued, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPrompts),
		}},
		{QueueDLQPrompts, nil},
	}

	bindings := []bindingDecl{
		{QueuePromptsQueued, RoutingKeyQueued, ExchangePrompts},
		{QueueDLQPrompts, RoutingKeyDLQPrompts, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
