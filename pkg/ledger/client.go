package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the market ledger.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple
// goroutines; per-asset mutations go through UpdateAsset (see tx.go).
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new ledger client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetAuction retrieves the auction record for an asset.
// Returns (nil, redis.Nil) if no record exists; use IsNotFound to check.
func (c *Client) GetAuction(ctx context.Context, asset string) (*Auction, error) {
	key := AuctionKey(c.instanceName, asset)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read auction from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	auction, err := HashToAuction(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize auction: %w", err)
	}

	return auction, nil
}

// GetListing retrieves the fixed-price listing for an asset.
// Returns (nil, redis.Nil) if no listing exists.
func (c *Client) GetListing(ctx context.Context, asset string) (*Listing, error) {
	key := ListingKey(c.instanceName, asset)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read listing from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	listing, err := HashToListing(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize listing: %w", err)
	}

	return listing, nil
}

// GetEscrow retrieves all escrow balances for an asset's auction as a map of
// bidder → amount. Returns an empty map if no escrow exists (not an error).
func (c *Client) GetEscrow(ctx context.Context, asset string) (map[string]int64, error) {
	key := EscrowKey(c.instanceName, asset)

	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read escrow from Redis: %w", err)
	}

	return HashToEscrow(raw)
}

// GetProceeds retrieves a seller's withdrawable balance.
// A seller with no recorded proceeds has balance 0 (not an error).
func (c *Client) GetProceeds(ctx context.Context, seller string) (int64, error) {
	key := ProceedsKey(c.instanceName, seller)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read proceeds from Redis: %w", err)
	}

	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proceeds balance: %w", err)
	}

	return balance, nil
}

// CreditProceeds atomically adds amount to a seller's withdrawable balance.
// Used by settlement and to restore a balance after a failed outbound send.
func (c *Client) CreditProceeds(ctx context.Context, seller string, amount int64) error {
	key := ProceedsKey(c.instanceName, seller)
	if err := c.rdb.IncrBy(ctx, key, amount).Err(); err != nil {
		return fmt.Errorf("failed to credit proceeds: %w", err)
	}
	return nil
}

// CreditEscrow atomically adds amount back to a bidder's escrow balance.
// Used to restore escrow after a failed outbound send.
func (c *Client) CreditEscrow(ctx context.Context, asset, bidder string, amount int64) error {
	key := EscrowKey(c.instanceName, asset)
	if err := c.rdb.HIncrBy(ctx, key, bidder, amount).Err(); err != nil {
		return fmt.Errorf("failed to credit escrow: %w", err)
	}
	return nil
}

// ListAssets returns asset identifiers with live market state, oldest first.
func (c *Client) ListAssets(ctx context.Context) ([]string, error) {
	key := AssetIndexKey(c.instanceName)

	assets, err := c.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	return assets, nil
}

// PublishAuctionEvent publishes a market event on the auction channel.
// Validates the event before publishing.
func (c *Client) PublishAuctionEvent(ctx context.Context, event *MarketEvent) error {
	return c.publishEvent(ctx, AuctionEventsChannel(c.instanceName), event)
}

// PublishSaleEvent publishes a market event on the sale channel.
func (c *Client) PublishSaleEvent(ctx context.Context, event *MarketEvent) error {
	return c.publishEvent(ctx, SaleEventsChannel(c.instanceName), event)
}

func (c *Client) publishEvent(ctx context.Context, channel string, event *MarketEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to market events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *MarketEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of market events.
// The channel is closed when the subscription is closed or the context is
// cancelled.
func (s *Subscription) Events() <-chan *MarketEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeAuctionEvents subscribes to auction lifecycle and bid events for
// this instance. Caller must call subscription.Close() when done.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// Redis Pub/Sub is at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeAuctionEvents(ctx context.Context) (*Subscription, error) {
	return c.subscribe(ctx, AuctionEventsChannel(c.instanceName))
}

// SubscribeSaleEvents subscribes to instant-sale and proceeds events for
// this instance. Caller must call subscription.Close() when done.
func (c *Client) SubscribeSaleEvents(ctx context.Context) (*Subscription, error) {
	return c.subscribe(ctx, SaleEventsChannel(c.instanceName))
}

func (c *Client) subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *MarketEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event MarketEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal market event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
