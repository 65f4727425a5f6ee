package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/archplot/archplot/pkg/api"
	"github.com/archplot/archplot/pkg/archiver"
	"github.com/archplot/archplot/pkg/config"
	"github.com/archplot/archplot/pkg/live"
	"github.com/archplot/archplot/pkg/plot"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	log.Println("🚀 Starting archplot server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Open the backfill response cache
	var cache *archiver.Cache
	if cfg.Archiver.CacheDir != "" || cfg.Archiver.CacheInMemory {
		if cfg.Archiver.CacheDir != "" {
			if err := os.MkdirAll(cfg.Archiver.CacheDir, 0755); err != nil {
				log.Fatalf("❌ Failed to create cache directory: %v", err)
			}
		}
		cache, err = archiver.OpenCache(archiver.CacheConfig{
			Path:     cfg.Archiver.CacheDir,
			InMemory: cfg.Archiver.CacheInMemory,
			TTL:      cfg.Archiver.CacheTTL.Duration,
		})
		if err != nil {
			log.Fatalf("❌ Failed to open cache: %v", err)
		}
		defer cache.Close()
		log.Printf("💾 Response cache open (ttl %v)", cfg.Archiver.CacheTTL.Duration)
	}

	// Archiver client
	client := archiver.NewClient(cfg.Archiver.URL, cfg.Archiver.RequestTimeout.Duration)
	if cache != nil {
		client = client.WithCache(cache)
	}
	log.Printf("🗄️  Archiver endpoint: %s", cfg.Archiver.URL)

	// Build the plot and register the configured curve set
	p := plot.New(plot.Config{
		LiveBufferSize:    cfg.Plot.LiveBufferSize,
		ArchiveBufferSize: cfg.Plot.ArchiveBufferSize,
		OptimizedBins:     cfg.Plot.OptimizedBins,
		RawThreshold:      cfg.Plot.RawThresholdSeconds,
		RequestTimeout:    cfg.Archiver.RequestTimeout.Duration,
	}, client)

	var curveNames []string
	for _, cc := range cfg.Plot.Curves {
		if _, err := p.AddCurve(cc.Name, cc.Address); err != nil {
			log.Fatalf("❌ Failed to add curve %s: %v", cc.Name, err)
		}
		curveNames = append(curveNames, cc.Name)
	}
	for _, fc := range cfg.Plot.Formulas {
		if _, err := p.AddFormula(fc.Name, fc.Expression); err != nil {
			log.Fatalf("❌ Failed to add formula %s: %v", fc.Name, err)
		}
	}
	log.Printf("📈 Plot ready: %d curves, %d formulas", len(cfg.Plot.Curves), len(cfg.Plot.Formulas))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// WebSocket hub for pushing updates to viewers
	hub := api.NewUpdateHub()
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	broadcaster := api.NewBroadcaster(hub, p, config.BroadcastInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()
	log.Printf("📤 Update broadcaster started (every %v)", config.BroadcastInterval)

	// Live sample stream
	if cfg.Live.URL != "" {
		stream := live.NewStream(cfg.Live.URL, p, curveNames)
		wg.Add(1)
		go func() {
			defer wg.Done()
			stream.Run(ctx)
		}()
		log.Printf("📡 Live stream: %s (%d curves)", cfg.Live.URL, len(curveNames))
	} else {
		log.Println("⚠️  No live stream configured, serving archive data only")
	}

	// Cache garbage collection reclaims disk from expired responses
	if cache != nil {
		wg.Add(1)
		go runCacheGC(ctx, cache, &wg)
	}

	// Router with CORS for browser viewers
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	api.NewHandler(p).Routes(router, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	// Wait for background goroutines with a timeout to prevent hangs
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 Server exited cleanly")
}

// runCacheGC reclaims value log space from expired cache entries
func runCacheGC(ctx context.Context, cache *archiver.Cache, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.CacheGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := cache.RunGC(config.CacheGCDiscardRatio); err != nil {
				log.Printf("🗑️  Cache GC failed: %v", err)
			} else {
				log.Printf("🗑️  Cache GC completed in %v", time.Since(start).Round(time.Millisecond))
			}
		}
	}
}
