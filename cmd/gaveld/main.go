package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dyluth/gavel/internal/config"
	"github.com/dyluth/gavel/internal/notify"
	"github.com/dyluth/gavel/internal/observability"
	"github.com/dyluth/gavel/pkg/ledger"
)

func main() {
	log := observability.InitLogger("gaveld")

	// 1. Load gavel.yml configuration
	configPath := os.Getenv("GAVEL_CONFIG")
	if configPath == "" {
		configPath = "gavel.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	// 2. Connect to the instance's ledger
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis_url")
	}

	client, err := ledger.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create ledger client")
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Redis not accessible")
	}

	log.Info().Str("instance", cfg.Instance).Msg("gaveld starting")

	// 3. Subscribe to market events
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	auctions, err := client.SubscribeAuctionEvents(runCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to auction events")
	}
	defer auctions.Close()

	sales, err := client.SubscribeSaleEvents(runCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to sale events")
	}
	defer sales.Close()

	// 4. Run the AMQP bridge if configured, otherwise just log events
	errCh := make(chan error, 1)
	if cfg.Events != nil {
		conn, ch, err := notify.Connect(cfg.Events.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer conn.Close()

		if err := notify.DeclareExchange(ch, cfg.Events.Exchange); err != nil {
			log.Fatal().Err(err).Msg("failed to declare exchange")
		}

		bridge := notify.NewBridge(ch, cfg.Events.Exchange, log)
		go func() {
			errCh <- bridge.Run(runCtx, auctions, sales)
		}()
	} else {
		go func() {
			errCh <- logEvents(runCtx, log, auctions, sales)
		}()
	}

	// 5. Wait for shutdown signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			log.Fatal().Err(runErr).Msg("event loop failed")
		}
	}

	log.Info().Msg("gaveld stopped")
}

// logEvents consumes both subscriptions and writes every event to the log.
func logEvents(ctx context.Context, log zerolog.Logger, auctions, sales *ledger.Subscription) error {
	auctionEvents := auctions.Events()
	saleEvents := sales.Events()

	for auctionEvents != nil || saleEvents != nil {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-auctionEvents:
			if !ok {
				auctionEvents = nil
				continue
			}
			logEvent(log, event)

		case event, ok := <-saleEvents:
			if !ok {
				saleEvents = nil
				continue
			}
			logEvent(log, event)
		}
	}

	return nil
}

func logEvent(log zerolog.Logger, event *ledger.MarketEvent) {
	log.Info().
		Str("kind", string(event.Kind)).
		Str("asset", event.Asset).
		Str("actor", event.Actor).
		Int64("amount", event.Amount).
		Msg("market event")
}
