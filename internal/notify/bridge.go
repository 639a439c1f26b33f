// Package notify bridges committed market events from the ledger's Redis
// Pub/Sub channels to a RabbitMQ topic exchange, so downstream consumers
// (notification services, analytics) can subscribe by routing key without
// touching Redis. The bridge is observational only: losing it never affects
// market state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/dyluth/gavel/pkg/ledger"
)

// publisher is the slice of amqp.Channel the bridge needs; narrowed for
// testing with a fake.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Connect dials RabbitMQ and opens a channel.
func Connect(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}

// DeclareExchange declares the durable topic exchange the bridge publishes
// to. Idempotent; safe to call on every start.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Bridge republishes market events to an AMQP topic exchange.
// Routing key is the event kind (e.g. "bid.placed"), body is the event JSON.
type Bridge struct {
	ch       publisher
	exchange string
	log      zerolog.Logger
}

// NewBridge creates a bridge publishing to the given exchange.
func NewBridge(ch *amqp.Channel, exchange string, log zerolog.Logger) *Bridge {
	return &Bridge{ch: ch, exchange: exchange, log: log}
}

// Publish forwards one market event to the exchange.
func (b *Bridge) Publish(ctx context.Context, event *ledger.MarketEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = b.ch.PublishWithContext(ctx, b.exchange, string(event.Kind), false, false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.exchange, err)
	}

	return nil
}

// Run forwards events from both ledger channels until the context is
// cancelled or both subscriptions close. Publish failures are logged and
// skipped; Redis Pub/Sub is at-most-once anyway.
func (b *Bridge) Run(ctx context.Context, auctions, sales *ledger.Subscription) error {
	b.log.Info().Str("exchange", b.exchange).Msg("event bridge running")

	auctionEvents := auctions.Events()
	saleEvents := sales.Events()
	auctionErrs := auctions.Errors()
	saleErrs := sales.Errors()

	for auctionEvents != nil || saleEvents != nil {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("event bridge shutting down")
			return nil

		case event, ok := <-auctionEvents:
			if !ok {
				auctionEvents = nil
				continue
			}
			b.forward(ctx, event)

		case event, ok := <-saleEvents:
			if !ok {
				saleEvents = nil
				continue
			}
			b.forward(ctx, event)

		case err, ok := <-auctionErrs:
			if !ok {
				auctionErrs = nil
				continue
			}
			b.log.Warn().Err(err).Msg("auction subscription error")

		case err, ok := <-saleErrs:
			if !ok {
				saleErrs = nil
				continue
			}
			b.log.Warn().Err(err).Msg("sale subscription error")
		}
	}

	return nil
}

func (b *Bridge) forward(ctx context.Context, event *ledger.MarketEvent) {
	if err := b.Publish(ctx, event); err != nil {
		b.log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("failed to forward event")
		return
	}
	b.log.Debug().Str("kind", string(event.Kind)).Str("asset", event.Asset).
		Msg("event forwarded")
}
