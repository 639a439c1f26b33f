package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
	"github.com/dyluth/gavel/pkg/ledger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream market events in real time",
	Long: `Stream auction and sale events for the instance as they commit.

Events are delivered over Redis Pub/Sub (at-most-once): this is a live
view, not a replayable history. Press Ctrl-C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	auctions, err := m.client.SubscribeAuctionEvents(ctx)
	if err != nil {
		return err
	}
	defer auctions.Close()

	sales, err := m.client.SubscribeSaleEvents(ctx)
	if err != nil {
		return err
	}
	defer sales.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	printer.Info("watching market events on instance '%s' (Ctrl-C to stop)\n\n",
		m.client.InstanceName())

	for {
		select {
		case <-sigCh:
			printer.Info("\nstopped\n")
			return nil

		case event, ok := <-auctions.Events():
			if !ok {
				return nil
			}
			printEvent(event)

		case event, ok := <-sales.Events():
			if !ok {
				return nil
			}
			printEvent(event)

		case err, ok := <-auctions.Errors():
			if ok && err != nil {
				printer.Warning("event error: %v\n", err)
			}

		case err, ok := <-sales.Errors():
			if ok && err != nil {
				printer.Warning("event error: %v\n", err)
			}
		}
	}
}

func printEvent(event *ledger.MarketEvent) {
	at := time.UnixMilli(event.AtMs).Format("15:04:05")
	if event.Asset == "" {
		printer.Info("%s  %-20s %-14s amount=%d\n", at, event.Kind, event.Actor, event.Amount)
		return
	}
	printer.Info("%s  %-20s %-14s asset=%s amount=%d\n",
		at, event.Kind, event.Actor, event.Asset, event.Amount)
}
