package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/freekieb7/thimble/http"
	"github.com/freekieb7/thimble/schedule"
	"github.com/freekieb7/thimble/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	port := flag.Int("port", http.DefaultPort, "port to listen on")
	debug := flag.Bool("debug", false, "log every connection and reading")
	interval := flag.Duration("interval", 5*time.Second, "sensor refresh interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: "thimble-sensor", Debug: *debug})
	if err != nil {
		return err
	}

	dev := newDevice(uint64(time.Now().UnixNano()))

	server := newServer(dev, tel.Logger)
	server.Config.Debug = *debug

	// The sensor job and every connection share one loop.
	loop := http.NewLoop()

	scheduler := schedule.NewScheduler(loop)
	scheduler.Logger = tel.Logger
	scheduler.AddJob(newSensorJob(dev, tel.Logger, *interval))
	loop.Go(ctx, func(ctx context.Context) {
		scheduler.Run(ctx)
	})

	if _, err := server.RunAsync(ctx, http.DefaultHost, *port, loop); err != nil {
		stop()
		loop.Wait()
		return err
	}

	loop.Wait()
	return tel.Shutdown(context.Background())
}
