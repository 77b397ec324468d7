package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/habedi/pldl/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configureLogLevelFromEnv()

	ctx, stop := setupInterruptContext()
	defer stop()
	go handleInterrupt(ctx, func(msg string) { log.Info().Msg(msg) })

	cmd.ExecuteContext(ctx)
}

// configureLogLevelFromEnv enables debug logging to stderr when DEBUG_PLDL is set to anything
// other than "", "0" or "false", and disables logging otherwise.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_PLDL") {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// setupInterruptContext returns a context that is cancelled on the first interrupt.
func setupInterruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// handleInterrupt reports the interrupt once ctx is cancelled. Running commands observe the
// same context and stop on their own, so downloads clean up their partial files.
func handleInterrupt(ctx context.Context, logFn func(string)) {
	<-ctx.Done()
	logFn("Interrupt signal received. Stopping...")
}
