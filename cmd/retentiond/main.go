// Command retentiond runs the data retention job on a cron schedule until
// interrupted. Schedule, dry-run mode and policy file are taken from
// configuration (CONFIG_PATH / environment).
//
// Exit codes: 0 = clean shutdown, 1 = startup or scheduler error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/retentiond/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	if err := a.RunDaemon(ctx); err != nil {
		a.Logger.Error("daemon failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
