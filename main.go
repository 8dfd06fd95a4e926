package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"yt2mp3/internal/api"
	"yt2mp3/internal/artifact"
	"yt2mp3/internal/config"
	"yt2mp3/internal/exec"
	"yt2mp3/internal/media"
	"yt2mp3/internal/pipeline"
)

func main() {
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror artifact.Mirror
	if client := artifact.ConnectRedis(ctx, cfg); client != nil {
		defer client.Close()
		mirror = artifact.NewRedisMirror(client, cfg.Retention)
	}
	store := artifact.NewStore(mirror)
	go artifact.NewSweeper(store, cfg.SweepInterval, cfg.Retention).Run(ctx)

	runner := exec.NewCommandRunner()
	extractor := media.NewExtractor(cfg, runner)
	fetcher := &media.FallbackFetcher{
		Primary:   extractor,
		Secondary: media.NewPageScraper(nil, ""),
	}
	pool := pipeline.New(cfg, fetcher, extractor, media.NewTrimmer(cfg, runner), store)

	server := api.New(cfg, fetcher, store, pool)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	log.Printf("🚀 YT2MP3 server running on http://localhost%s with %d workers", cfg.Addr(), cfg.WorkerPoolSize)
	log.Printf("📊 Rate Limit: %.0f req/s (burst: %d)", cfg.RequestsPerSecond, cfg.BurstSize)
	log.Printf("📁 Converted files: %s (kept %v)", cfg.ConvertedDir, cfg.Retention)

	<-ctx.Done()
	log.Println("🛑 Graceful shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown: %v", err)
	}
	pool.Close()
	log.Println("✅ Graceful shutdown completed")
}
