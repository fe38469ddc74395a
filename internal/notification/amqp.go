package notification

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// publisher is the part of *amqp.Channel the sink needs
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes match events to a topic exchange. Routing key is
// <chain>.<direction>.<address>, so consumers can bind e.g. "eth.inbound.#".
type AMQPSink struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   publisher
}

// NewAMQPSink dials the broker and declares the exchange
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	if exchange == "" {
		exchange = "watcher.events"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeExternal, "Failed to connect to message broker", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, utils.WrapError(utils.ErrCodeExternal, "Failed to open broker channel", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, utils.WrapError(utils.ErrCodeExternal, "Failed to declare exchange", err)
	}

	return &AMQPSink{exchange: exchange, conn: conn, ch: ch}, nil
}

func newAMQPSinkWithPublisher(exchange string, p publisher) *AMQPSink {
	return &AMQPSink{exchange: exchange, ch: p}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(_ context.Context, n *Notification) error {
	body, err := json.Marshal(n.Event)
	if err != nil {
		return utils.WrapError(utils.ErrCodeInternal, "Failed to marshal event", err)
	}

	msg := amqp.Publishing{
		Headers:      amqp.Table{"x-event-id": n.Event.ID},
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.Event.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Broker channel closed", "")
	}
	if err := s.ch.Publish(s.exchange, RoutingKey(n), false, false, msg); err != nil {
		return utils.WrapError(utils.ErrCodeExternal, "Failed to publish event", err)
	}
	return nil
}

// RoutingKey builds the topic key for a notification
func RoutingKey(n *Notification) string {
	return strings.Join([]string{
		strings.ToLower(n.Event.ChainID),
		strings.ToLower(string(n.Event.Direction)),
		n.Event.MatchedAddress,
	}, ".")
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.ch != nil {
		err = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.conn = nil
	}
	return err
}
