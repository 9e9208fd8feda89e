// Command risu runs the caching reverse proxy: it loads configuration,
// wires the load balancer, cache and metrics registry into the proxy
// core, and serves until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogxd/risu/internal/config"
	"github.com/ogxd/risu/internal/healthcheck"
	"github.com/ogxd/risu/internal/loadbalancer"
	"github.com/ogxd/risu/internal/logging"
	"github.com/ogxd/risu/internal/metrics"
	"github.com/ogxd/risu/internal/proxy"
	"github.com/ogxd/risu/internal/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Printf("no configuration file at %s, using defaults: %v", *configPath, err)
		config.GetInstance()
	}
	cfg := config.GetInstance()

	logger := logging.NewLogger("risu")

	shutdownTracing, err := tracing.InitTracing(tracingConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to initialise tracing: %v", err)
	}
	defer shutdownTracing()

	lb, err := loadbalancer.NewLoadBalancer(cfg.LoadBalanceAlgorithm, cfg.TargetAddresses, cfg.BackendWeights)
	if err != nil {
		log.Fatalf("failed to create load balancer: %v", err)
	}

	m := metrics.New()
	server := proxy.NewServer(cfg, lb, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := healthcheck.New(
		lb,
		time.Duration(cfg.HealthcheckIntervalSecond)*time.Second,
		time.Duration(cfg.HealthcheckTimeoutSeconds)*time.Second,
		cfg.HealthcheckPath,
	)
	go monitor.Run(ctx)

	if cfg.PrometheusPort > 0 {
		go serveScrapeEndpoint(cfg.PrometheusPort, m)
	}
	if cfg.HealthcheckPort > 0 {
		go serveLivenessEndpoint(cfg.HealthcheckPort)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("risu listening on port %d", cfg.ListeningPort)
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("received termination signal, shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	log.Println("risu stopped")
}

// serveScrapeEndpoint mounts the metrics registry's handler for an
// external Prometheus collector to scrape.
func serveScrapeEndpoint(port int, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics endpoint stopped: %v", err)
	}
}

// serveLivenessEndpoint mounts a liveness probe for an external
// orchestrator; it reports this process, not backend health.
func serveLivenessEndpoint(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("liveness endpoint stopped: %v", err)
	}
}

// tracingConfigFromEnv builds a TracingConfig from environment
// variables, disabled unless an exporter endpoint is supplied. Tracing
// has no key in the YAML configuration file; it is ambient
// observability, wired independently of cache-correctness behavior.
func tracingConfigFromEnv() tracing.TracingConfig {
	jaeger := os.Getenv("RISU_JAEGER_ENDPOINT")
	otlp := os.Getenv("RISU_OTLP_ENDPOINT")
	return tracing.TracingConfig{
		ServiceName:    "risu",
		ServiceVersion: "0.1.0",
		Environment:    envOr("RISU_ENVIRONMENT", "development"),
		JaegerEndpoint: jaeger,
		OTLPEndpoint:   otlp,
		SamplingRatio:  0.1,
		Enabled:        jaeger != "" || otlp != "",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
