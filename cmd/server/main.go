package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vrpulse/jerk-sentinel/internal/cache"
	"github.com/vrpulse/jerk-sentinel/internal/config"
	"github.com/vrpulse/jerk-sentinel/internal/handler"
	"github.com/vrpulse/jerk-sentinel/internal/monitor"
	"github.com/vrpulse/jerk-sentinel/internal/service"
	"github.com/vrpulse/jerk-sentinel/internal/storage"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := storage.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Repository
	repo := storage.NewPostgresRepository(db)

	// Optional summary cache
	var summaryCache service.SummaryCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		defer redisClient.Close()
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		summaryCache = redisClient
	}

	// Metrics
	metrics := monitor.NewMetrics()

	// Services
	detectionSvc := service.NewDetectionService(repo, cfg.Detection, metrics)
	reportingSvc := service.NewReportingService(repo, summaryCache)

	// Handlers
	detectionHandler := handler.NewDetectionHandler(detectionSvc)
	reportingHandler := handler.NewReportingHandler(reportingSvc)
	healthHandler := handler.NewHealthHandler(db, metrics)

	// Router
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("/health", healthHandler.Health)

	// Detections
	mux.HandleFunc("/v1/detections", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			detectionHandler.List(w, r)
			return
		}
		detectionHandler.Create(w, r)
	})
	mux.HandleFunc("/v1/detections/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 3 && r.Method == http.MethodDelete:
			detectionHandler.Delete(w, r, parts[2])
		case len(parts) == 3:
			detectionHandler.Get(w, r, parts[2])
		case len(parts) == 4 && parts[3] == "windows":
			detectionHandler.Windows(w, r, parts[2])
		case len(parts) == 4 && parts[3] == "summary":
			reportingHandler.Summary(w, r, parts[2])
		default:
			http.NotFound(w, r)
		}
	})

	// Metrics
	mux.HandleFunc("/v1/metrics", healthHandler.Metrics)
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	var h http.Handler = mux
	h = withHTTPMetrics(h)
	h = handler.RequestID(h)
	h = handler.Logging(h)
	h = handler.Recovery(h)

	// Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("Jerk Sentinel running on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

func withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)

		monitor.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		monitor.RequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type metricsWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
