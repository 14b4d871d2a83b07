package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	admincmd "github.com/louisbranch/blue2048/internal/cmd/admin"
)

func main() {
	log.SetPrefix("[ADMIN] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := admincmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatalf("admin: %v", err)
	}
}
