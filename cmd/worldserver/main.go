package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/intake"
	"github.com/sphericsim/worldcore/internal/persistence"
	"github.com/sphericsim/worldcore/internal/telemetry"
	"github.com/sphericsim/worldcore/internal/worldserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	noDB := flag.Bool("no-db", false, "run without database (in-memory only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config from %s, using defaults: %v", *configPath, err)
		cfg = config.Default()
	}

	ctx := context.Background()

	if *noDB {
		cfg.Database.PostgresDSN = ""
		cfg.Database.RedisAddr = ""
		log.Println("Running without database (in-memory mode)")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer pg.Close()

	rd, err := intake.NewRedis(cfg.Database.RedisAddr, cfg.World.Name)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer rd.Close()

	srv, err := worldserver.New(ctx, cfg, pg, rd)
	if err != nil {
		log.Fatalf("World boot failed: %v", err)
	}

	// Telemetry endpoint: per-face change-set subscriptions for dev
	// tooling.
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		telemetry.ServeWS(srv.Hub, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.TelemetryAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("Telemetry listening on %s", cfg.Server.TelemetryAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Telemetry server failed: %v", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		srv.Run(runCtx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Telemetry server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
