package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlexKimmel/TickerGate/internal/cache"
	"github.com/AlexKimmel/TickerGate/internal/config"
	"github.com/AlexKimmel/TickerGate/internal/counter"
	"github.com/AlexKimmel/TickerGate/internal/gateway"
)

func TestSoakServiceZeroRequests(t *testing.T) {
	cfg := config.Default()
	registry, err := gateway.NewRegistry([]gateway.Config{
		{Name: "market-data", Rate: 1000, Burst: 10},
	}, zerolog.Nop(), gateway.Hooks{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Shutdown(time.Second) })

	// -requests 0 makes the soak a no-op; the summary must not divide by it.
	soakService(cfg, registry, zerolog.Nop(), cache.New(time.Minute), counter.New(), "market-data", 0)
}
