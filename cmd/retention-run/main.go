// Command retention-run executes the retention job once and exits. It is
// intended to be invoked by an external cron job or by an operator.
//
// Dry run is the default; pass -dry-run=false to actually delete.
//
// Exit codes: 0 = batch finished (individual policy failures included),
// 1 = fatal error (startup failure or unreachable audit store).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartmarshall/retentiond/internal/app"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "count matching rows without deleting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	summary, err := a.Orchestrator.Run(ctx, *dryRun)
	if err != nil {
		a.Logger.Error("retention job aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("retention job finished in %s: %d completed, %d failed, %d skipped, %d records deleted (dry_run=%v)\n",
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
		summary.Completed, summary.Failed, summary.Skipped, summary.TotalDeleted, summary.DryRun,
	)
	for _, r := range summary.Results {
		line := fmt.Sprintf("  %-30s %-10s %d", r.PolicyName, r.Outcome, r.RecordCount)
		if r.Error != "" {
			line += " error: " + r.Error
		}
		if r.Warning != "" {
			line += " warning: " + r.Warning
		}
		fmt.Println(line)
	}
}
