package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/structure.report/internal/api"
	"github.com/banshee-data/structure.report/internal/baseline"
	"github.com/banshee-data/structure.report/internal/config"
	"github.com/banshee-data/structure.report/internal/confidence"
	"github.com/banshee-data/structure.report/internal/damage"
	"github.com/banshee-data/structure.report/internal/events"
	"github.com/banshee-data/structure.report/internal/pipeline"
	"github.com/banshee-data/structure.report/internal/tracker"
	"github.com/banshee-data/structure.report/internal/vibration"
)

var (
	devMode    = flag.Bool("dev", false, "Run with a synthetic sensor instead of real hardware")
	listen     = flag.String("listen", ":8080", "Listen address")
	serialPath = flag.String("port", "/dev/ttyUSB0", "Serial port of the displacement sensor")
	dbFile     = flag.String("db", "structure_data.db", "Path to the baseline database")
	configPath = flag.String("config", "", "Optional tuning config JSON file")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	vibCfg := tuning.Vibration()
	buffer := vibration.NewSignalBuffer(vibCfg.BufferSize)

	var port tracker.Porter
	if *devMode {
		port = tracker.NewMockPort(tracker.DefaultMockConfig())
	} else {
		var err error
		port, err = tracker.OpenSerialPort(*serialPath, tracker.DefaultPortMode())
		if err != nil {
			log.Fatalf("failed to open sensor port: %v", err)
		}
	}
	trk := tracker.New(port, buffer)
	defer trk.Close()

	store, err := baseline.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open baseline database: %v", err)
	}
	defer store.Close()

	p := pipeline.New(
		tuning.Pipeline(),
		buffer,
		vibration.NewAnalyzer(vibCfg),
		store,
		events.NewDetector(tuning.Events()),
		damage.NewEngine(tuning.Damage()),
		confidence.NewQuantifier(tuning.Confidence()),
	)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingest routine, reading sensor lines into the signal buffer
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := trk.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor sensor port: %v", err)
		}
		log.Print("ingest routine terminated")
	}()

	// analysis routine, running one cycle per interval
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("analysis loop error: %v", err)
		}
		log.Print("analysis routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(p).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
