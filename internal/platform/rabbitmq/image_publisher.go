package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"chartqa/internal/model"
)

// ImagePublisher enqueues extracted-image records for asynchronous persistence.
type ImagePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewImagePublisher(conn *amqp.Connection, queueName string) *ImagePublisher {
	return &ImagePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ImagePublisher) Publish(ctx context.Context, img model.Image) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("marshal image payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish image record failed: %w", err)
	}
	return nil
}
