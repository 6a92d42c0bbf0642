// Command relay serves the ShotGrid webhook endpoint and relays matching
// events to Slack until it receives SIGINT or SIGTERM.
//
// Configuration comes from CONFIG_PATH (or ./config.yaml) and the
// environment; see configs/config.example.yaml.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/wwfxuk/shotgunEvents/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("relay: %v", err)
	}
}
