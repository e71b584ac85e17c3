package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turbinefl/turbine/aggregatord"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aggregatord",
		Short: "Aggregation Daemon",
		Long:  `Aggregation Daemon runs the federated model aggregation service.`,
	}

	rootCmd.AddCommand(aggregatord.NewServerCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
