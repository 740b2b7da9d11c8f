package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
)

const (
	ExchangeName = "restaurant.orders"
	ExchangeType = "topic"
)

// SetupConn dials the broker, retrying while it starts, and declares the
// order exchange.
func SetupConn(url string, attempts int, wait time.Duration) (*amqp.Connection, *amqp.Channel, error) {
	log := logging.WithComponent("notify")
	if attempts < 1 {
		attempts = 1
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn("failed to connect to RabbitMQ", "attempt", i+1, "error", err.Error())
		if i+1 < attempts {
			time.Sleep(wait)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
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

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes each update as JSON on the topic exchange.
type AMQPNotifier struct {
	ch publishChannel
}

func NewAMQPNotifier(ch *amqp.Channel) *AMQPNotifier {
	return &AMQPNotifier{ch: ch}
}

type orderEvent struct {
	OrderID     string    `json:"order_id"`
	TableNumber int       `json:"table_number"`
	Status      string    `json:"status"`
	Items       int       `json:"items"`
	Total       float64   `json:"total"`
	At          time.Time `json:"at"`
}

// RoutingKey is order.<table>.<status>, e.g. order.12.ready.
func RoutingKey(order model.Order) string {
	return fmt.Sprintf("order.%d.%s", order.TableNumber, strings.ToLower(string(order.Status)))
}

func (n *AMQPNotifier) OrderUpdated(ctx context.Context, order model.Order) error {
	body, err := json.Marshal(orderEvent{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Status:      string(order.Status),
		Items:       len(order.Items),
		Total:       order.Total(),
		At:          time.Now(),
	})
	if err != nil {
		return fmt.Errorf("could not marshal order event: %w", err)
	}

	return n.ch.PublishWithContext(ctx,
		ExchangeName,      // exchange
		RoutingKey(order), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
