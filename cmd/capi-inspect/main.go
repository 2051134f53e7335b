package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"capi-inspector/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx, commands.OSEnv(), os.Args[1:])
	stop()
	os.Exit(code)
}
