package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/Pranavrh53/Geo-Watch/internal/cli"
	"github.com/Pranavrh53/Geo-Watch/internal/notification"
	"github.com/Pranavrh53/Geo-Watch/internal/ui"
	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"
)

func run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			location := "Unknown location"
			if ok {
				location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
			}
			ui.PrintError(fmt.Sprintf("PANIC: %v\nLocation: %s", r, location))

			errMessage := fmt.Sprintf("GeoWatch CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
			if nerr := notification.SendDiscordErrorNotification(errMessage); nerr != nil {
				ui.PrintError(fmt.Sprintf("Failed to send notification: %s", nerr))
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cli.ExecuteContext(ctx)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}
	godal.RegisterAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
