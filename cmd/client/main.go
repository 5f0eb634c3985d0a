package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophfocus/internal/client/cli"
	"github.com/dmitrijs2005/gophfocus/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, cleanup, err := cli.Bootstrap(ctx, cfg, os.Stdin, os.Stdout)

	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer cleanup()

	go app.StartBackgroundSync(ctx, cfg.RefreshInterval)
	app.Run(ctx)

}
