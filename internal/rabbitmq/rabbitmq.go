package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type MQConn struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func New(url string) (*MQConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &MQConn{
		conn: conn,
		ch:   ch,
	}, nil
}

func (c *MQConn) declare(queue string) error {
	_, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)
	return err
}

// Consume declares queue as durable and starts a manual-ack consumer on it.
func (c *MQConn) Consume(queue string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.declare(queue); err != nil {
		return nil, err
	}

	return c.ch.Consume(queue, "", false, false, false, false, nil)
}

func (c *MQConn) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.declare(queue); err != nil {
		return err
	}

	return c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (c *MQConn) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
