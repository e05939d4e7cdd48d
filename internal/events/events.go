package events

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/shoplite/shoplite-golang/internal/models"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

const defaultOrderTopic = "order-events"

// OrderCreated is the payload published after an order commits.
type OrderCreated struct {
	EventID     string    `json:"event_id"`
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher emits order lifecycle events to Kafka. It is disabled entirely
// when no brokers are configured, so a plain deployment runs without a
// broker present.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisherFromEnv reads KAFKA_BROKERS (comma separated) and
// KAFKA_ORDER_TOPIC. An empty broker list yields a disabled publisher.
func NewPublisherFromEnv() *Publisher {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &Publisher{}
	}

	topic := os.Getenv("KAFKA_ORDER_TOPIC")
	if topic == "" {
		topic = defaultOrderTopic
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// PublishOrderCreated sends the event, best effort: a publish failure is
// logged and never propagated to the order path.
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) {
	if !p.Enabled() {
		return
	}

	event := OrderCreated{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.String(),
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to encode order event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to publish order event")
		return
	}
	logger.Info().Str("event_id", event.EventID).Int64("order_id", order.ID).Msg("order event published")
}

// Close flushes the writer at shutdown.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
