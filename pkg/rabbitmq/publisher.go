package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/davidnge/ytconverter-dev/config"
	"github.com/davidnge/ytconverter-dev/dto"
)

// Publisher enqueues conversion messages for the worker pool.
type Publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) *Publisher {
	return &Publisher{conn: conn, cfg: cfg}
}

// Publish sends one persistent ConversionMessage to the conversion exchange.
func (p *Publisher) Publish(ctx context.Context, message dto.ConversionMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(exchangeName, p.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
