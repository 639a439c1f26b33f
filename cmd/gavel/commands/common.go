package commands

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/custody"
	"github.com/dyluth/gavel/internal/engine"
	"github.com/dyluth/gavel/internal/funds"
	"github.com/dyluth/gavel/internal/instance"
	"github.com/dyluth/gavel/pkg/ledger"
)

var (
	flagRedisURL string
	flagInstance string
	flagCaller   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRedisURL, "redis", "",
		"Redis URL (defaults to GAVEL_REDIS_URL, then redis://localhost:6379)")
	rootCmd.PersistentFlags().StringVar(&flagInstance, "instance", "",
		"Gavel instance name (defaults to GAVEL_INSTANCE)")
	rootCmd.PersistentFlags().StringVar(&flagCaller, "as", "",
		"Identity performing the operation (defaults to GAVEL_IDENTITY)")
}

// redisOptions resolves the Redis connection from flags and environment.
func redisOptions() (*redis.Options, error) {
	url := flagRedisURL
	if url == "" {
		url = os.Getenv("GAVEL_REDIS_URL")
	}
	if url == "" {
		url = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL %q: %w", url, err)
	}
	return opts, nil
}

// instanceName resolves and validates the target instance.
func instanceName() (string, error) {
	name := flagInstance
	if name == "" {
		name = os.Getenv("GAVEL_INSTANCE")
	}
	if name == "" {
		return "", fmt.Errorf("no instance specified: use --instance or set GAVEL_INSTANCE")
	}
	if err := instance.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// caller resolves the identity performing a state-changing operation.
func caller() (string, error) {
	id := flagCaller
	if id == "" {
		id = os.Getenv("GAVEL_IDENTITY")
	}
	if id == "" {
		return "", fmt.Errorf("no identity specified: use --as or set GAVEL_IDENTITY")
	}
	return id, nil
}

// market bundles everything a command needs to run an operation.
type market struct {
	client  *ledger.Client
	custody *custody.Registry
	bank    *funds.Bank
	engine  *engine.Engine
}

// openMarket connects to the instance's ledger and collaborators.
// Caller must call close() when done.
func openMarket(cmd *cobra.Command) (*market, func(), error) {
	opts, err := redisOptions()
	if err != nil {
		return nil, nil, err
	}

	name, err := instanceName()
	if err != nil {
		return nil, nil, err
	}

	client, err := ledger.NewClient(opts, name)
	if err != nil {
		return nil, nil, err
	}

	registry, err := custody.NewRegistry(opts, name)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	bank, err := funds.NewBank(opts, name)
	if err != nil {
		client.Close()
		registry.Close()
		return nil, nil, err
	}

	// CLI output goes through the printer; keep the engine quiet.
	eng := engine.New(client, registry, bank, zerolog.Nop())

	m := &market{client: client, custody: registry, bank: bank, engine: eng}
	closeAll := func() {
		client.Close()
		registry.Close()
		bank.Close()
	}
	return m, closeAll, nil
}
