// Package mq — очередь асинхронных запусков поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений с ручным ack
//
// Типы сообщений:
//   - prompt.queued — run в статусе PENDING ожидает выполнения
//
// Exchanges:
//   - nodeflow.prompts — события запусков
//   - nodeflow.dlq     — dead letter (сообщения, которые нельзя обработать)
package mq
