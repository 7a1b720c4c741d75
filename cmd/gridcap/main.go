package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/gridcap-etl/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		l := slog.Default()
		if logger != nil {
			l = logger
		}
		l.Error("gridcap failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrAPIColumns):
		return 2
	case errors.Is(err, pipeline.ErrWorkbookColumns):
		return 3
	default:
		return 1
	}
}
