package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlwanWZ/shophub/internal/domain"
	pkgkafka "github.com/AlwanWZ/shophub/pkg/kafka"
	"github.com/AlwanWZ/shophub/pkg/logger"
)

// TopicCartUpdated carries a full cart view after every successful mutation.
const TopicCartUpdated = "shophub.cart.updated"

// AggregateTypeCart is the aggregate type of cart events.
const AggregateTypeCart = "cart"

// SourceShophub identifies events published by this service.
const SourceShophub = "shophub"

// CartUpdatedData is the payload for a cart.updated event. Money values are
// fixed two-decimal strings.
type CartUpdatedData struct {
	SessionID string         `json:"session_id"`
	Operation string         `json:"operation"`
	Lines     []CartLineData `json:"lines"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	Tax       string         `json:"tax"`
	Total     string         `json:"total"`
}

// CartLineData is one line within a cart event.
type CartLineData struct {
	ProductID int    `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event keyed by session.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID, operation string, cart *domain.Cart) error {
	lines := make([]CartLineData, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = CartLineData{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price.StringFixed(2),
			Quantity:  l.Quantity,
		}
	}

	data := CartUpdatedData{
		SessionID: sessionID,
		Operation: operation,
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal().StringFixed(2),
		Tax:       cart.Tax().StringFixed(2),
		Total:     cart.Total().StringFixed(2),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, sessionID, AggregateTypeCart, SourceShophub, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", sessionID),
		slog.String("operation", operation),
		slog.Int("item_count", data.ItemCount),
	)

	return nil
}
