package queue

// This file contains the background consumer that listens to the
// registration.completed queue and retries commerce-platform order
// creation for each completed registration.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OrderEnsurer is the callback the consumer drives for every completed
// registration.  It must be idempotent: messages are redelivered and
// the synchronous bridge may already have created the order.
type OrderEnsurer func(ctx context.Context, registrationID string) error

// StartOrderRetryConsumer connects to RabbitMQ, declares the
// registration.completed queue (durable), and starts consuming
// messages. Each message triggers the ensure callback, which creates
// the commerce-platform order when one does not exist yet. The
// function runs a reconnect loop; it keeps running and logs any
// processing errors while rejecting the offending message so the
// server continues operating.
func StartOrderRetryConsumer(ensure OrderEnsurer) error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("order-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, ensure); err != nil {
			log.Printf("order-consumer: consume loop ended: %v; reconnecting", err)
			// Sleep briefly before reconnect
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, ensure OrderEnsurer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("order-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(completedQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(completedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, ensure); err != nil {
			log.Printf("order-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, ensure OrderEnsurer) error {
	var ev RegistrationCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.RegistrationID == "" {
		return errors.New("event missing registration_id")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensure(ctx, ev.RegistrationID); err != nil {
		return fmt.Errorf("ensure order for %s: %w", ev.RegistrationID, err)
	}
	return nil
}
