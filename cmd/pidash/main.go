package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/pidash/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override pidash config path (optional)")
	baseURL := flag.String("url", "", "device base URL, e.g. http://raspberrypi.local:8080 (optional)")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		BaseURL:    *baseURL,
		Debug:      *debug,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "pidash: %v\n", err)
		return 1
	}
	return 0
}
