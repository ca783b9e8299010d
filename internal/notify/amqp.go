package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rocketshoes/cart/internal/cart/app"
)

const ExchangeType = "topic"

// SetupConn dials the broker and declares the notice exchange.
func SetupConn(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}

// AMQP publishes notices to a topic exchange so a toast pipeline (or any
// other consumer) can surface them. Routing key: cart.notice.<kind>.
type AMQP struct {
	ch       *amqp.Channel
	exchange string
	log      *slog.Logger
}

func NewAMQP(ch *amqp.Channel, exchange string, log *slog.Logger) *AMQP {
	return &AMQP{ch: ch, exchange: exchange, log: log}
}

func (a *AMQP) Notify(ctx context.Context, n app.Notice) {
	body, err := json.Marshal(n)
	if err != nil {
		a.log.Error("could not marshal notice", slog.Any("err", err))
		return
	}

	routingKey := "cart.notice." + n.Kind
	err = a.ch.PublishWithContext(ctx,
		a.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		a.log.Error("notice publish failed", slog.Any("err", err), slog.String("kind", n.Kind))
	}
}
