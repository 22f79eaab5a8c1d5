package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AlexKimmel/TickerGate/internal/cache"
	"github.com/AlexKimmel/TickerGate/internal/config"
	"github.com/AlexKimmel/TickerGate/internal/counter"
	"github.com/AlexKimmel/TickerGate/internal/gateway"
	"github.com/AlexKimmel/TickerGate/internal/obs"
)

var tickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config file")
	requests := flag.Int("requests", 5, "synthetic requests to push through each gateway")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)

	gwCfgs := make([]gateway.Config, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		gwCfgs = append(gwCfgs, gateway.Config{
			Name:          s.Name,
			Rate:          s.RatePerSec,
			Burst:         s.Burst,
			Workers:       s.Workers,
			MinDelay:      s.MinDelay(),
			QueueCapacity: s.QueueCapacity,
		})
	}

	registry, err := gateway.NewRegistry(gwCfgs, logger, metrics.GatewayHooks())
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}

	var srv *http.Server
	if cfg.Observability.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Observability.PrometheusPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runWorkload(cfg, registry, logger, *requests)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-done:
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("interrupted")
	}

	if err := registry.Shutdown(cfg.ShutdownTimeout()); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
	if srv != nil {
		_ = srv.Close()
	}

	reportStats(registry, logger)
}

// runWorkload drives each gateway with synthetic API calls to exercise the
// limiter settings, the way a soak test against the live APIs would.
func runWorkload(cfg *config.Root, registry *gateway.Registry, logger zerolog.Logger, n int) {
	quotes := cache.New(cfg.Cache.TTL())
	counts := counter.New()

	var wg sync.WaitGroup
	for _, name := range registry.Services() {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			soakService(cfg, registry, logger, quotes, counts, name, n)
		}()
	}
	wg.Wait()

	c := counts.Counts()
	logger.Info().
		Int64("api_calls", c.API).
		Int64("cache_hits", c.Cache).
		Dur("window", counts.TimeSinceReset()).
		Msg("workload complete")
}

func soakService(
	cfg *config.Root,
	registry *gateway.Registry,
	logger zerolog.Logger,
	quotes *cache.Cache,
	counts *counter.RequestCounter,
	service string,
	n int,
) {
	gw, err := registry.Get(service)
	if err != nil {
		logger.Error().Err(err).Msg("lookup failed")
		return
	}

	start := time.Now()
	ok := 0
	for i := 0; i < n; i++ {
		ticker := tickers[i%len(tickers)]

		if cfg.Cache.Enabled {
			if _, hit := quotes.Get(service + "_" + ticker); hit {
				counts.IncCache()
				ok++
				continue
			}
		}
		counts.IncAPI()

		res, err := fetchWithRetry(gw, ticker, 3, 300*time.Millisecond)
		if err != nil {
			logger.Error().Str("service", service).Str("ticker", ticker).Err(err).Msg("request failed")
			if errors.Is(err, gateway.ErrShuttingDown) {
				return
			}
			continue
		}
		if cfg.Cache.Enabled {
			quotes.Set(service+"_"+ticker, res)
		}
		ok++
	}

	elapsed := time.Since(start)
	perRequest := time.Duration(0)
	if n > 0 {
		perRequest = elapsed / time.Duration(n)
	}
	logger.Info().
		Str("service", service).
		Int("ok", ok).
		Int("total", n).
		Dur("elapsed", elapsed).
		Dur("per_request", perRequest).
		Msg("soak finished")
}

type quote struct {
	Ticker string
	Price  float64
}

// fetchWithRetry is the caller-side retry loop: the gateway itself never
// retries, so transient failures are re-submitted here with exponential
// backoff.
func fetchWithRetry(gw *gateway.Gateway, ticker string, retries int, backoff time.Duration) (quote, error) {
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		q, err := gateway.Do(gw, func() (quote, error) {
			return fakeFetch(ticker)
		})
		if err == nil {
			return q, nil
		}
		if errors.Is(err, gateway.ErrShuttingDown) {
			return quote{}, err
		}
		lastErr = err
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return quote{}, fmt.Errorf("exceeded %d retries: %w", retries, lastErr)
}

// fakeFetch stands in for the real HTTP call so the tool works offline.
func fakeFetch(ticker string) (quote, error) {
	time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)
	return quote{Ticker: ticker, Price: 50 + rand.Float64()*450}, nil
}

func reportStats(registry *gateway.Registry, logger zerolog.Logger) {
	for name, s := range registry.Stats() {
		logger.Info().
			Str("service", name).
			Int64("requests", s.Bucket.RequestsMade).
			Int64("limited", s.Bucket.RequestsLimited).
			Dur("total_wait", s.Bucket.TotalWait).
			Dur("average_wait", s.Bucket.AverageWait).
			Float64("tokens", s.Bucket.Tokens).
			Int("queue_depth", s.QueueDepth).
			Msg("gateway stats")
	}
}
