package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
	"github.com/mikey/delivery-monitor/internal/di"
	"github.com/mikey/delivery-monitor/internal/factory"
)

func main() {
	flags := di.ParseFlags()
	if flags.ServerID <= 0 {
		fmt.Println("a positive -server-id is required")
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		os.Exit(1)
	}
}

// run executes one pipeline pass for the requested server and reports
// the verdict on stdout.
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	stores *factory.PlatformStores,
	orchestrator *core.TestOrchestrator,
) error {
	defer logger.Sync()
	defer stores.DB.Close()

	err := orchestrator.RunForServer(context.Background(), flags.ServerID)
	if err != nil {
		logger.Error("Delivery test failed",
			zap.Int64("server_id", flags.ServerID),
			zap.Error(err))
		fmt.Printf("FAILED: %v\n", err)
		return err
	}

	fmt.Println("Test completed successfully")
	return nil
}
