package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	domain "main/internal/domain/entity/marketdata"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher fans finalized bars out to a durable fanout exchange. A bar is
// published twice over its lifetime: provisional at seal time and again
// when its volume settles. Consumers dedupe on (instrument_uid, open_time).
type Publisher struct {
	exchange string
	logger   *logrus.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher connects and declares the exchange.
func NewPublisher(url, exchange string, logger *logrus.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	logger.Infof("rabbitmq publisher started: exchange=%s", exchange)
	return &Publisher{exchange: exchange, logger: logger, conn: conn, channel: ch}, nil
}

// PublishBar sends one bar as a persistent JSON message.
func (p *Publisher) PublishBar(ctx context.Context, bar *domain.IndicatorBar) error {
	if bar == nil {
		return errors.New("nil bar")
	}
	body, err := json.Marshal(BaseMessage{Bar: bar})
	if err != nil {
		return fmt.Errorf("encode bar: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return errors.New("publisher closed")
	}
	return p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
