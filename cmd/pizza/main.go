package main

import (
	"context"
	"log"
	"os"
	"time"

	"pizza-service/internal/app"
	"pizza-service/internal/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.NewApp(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("pizza init: %v", err)
	}
	if err := a.Start(); err != nil {
		log.Fatalf("pizza start: %v", err)
	}
	app.WaitForShutdown(a)
}
