package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Config{
		fastConfig("market-data"),
		fastConfig("news"),
		fastConfig("ai-inference"),
	}, zerolog.Nop(), Hooks{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = r.Shutdown(time.Second) })
	return r
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry(t)

	g, err := r.Get("news")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Name() != "news" {
		t.Errorf("Name = %q, want %q", g.Name(), "news")
	}

	if _, err := r.Get("crypto"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("Get unknown: got %v, want ErrUnknownService", err)
	}
}

func TestRegistryExecute(t *testing.T) {
	r := newTestRegistry(t)

	res, err := r.Execute("market-data", func() (any, error) { return "quote", nil })
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.(string) != "quote" {
		t.Errorf("result = %v", res)
	}

	if _, err := r.Execute("crypto", func() (any, error) { return nil, nil }); !errors.Is(err, ErrUnknownService) {
		t.Errorf("Execute unknown: got %v, want ErrUnknownService", err)
	}
}

func TestRegistryServicesOrder(t *testing.T) {
	r := newTestRegistry(t)

	want := []string{"market-data", "news", "ai-inference"}
	got := r.Services()
	if len(got) != len(want) {
		t.Fatalf("Services = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Services[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryStats(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Execute("news", func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	all := r.Stats()
	if len(all) != 3 {
		t.Fatalf("Stats has %d entries, want 3", len(all))
	}
	if all["news"].Bucket.RequestsMade != 1 {
		t.Errorf("news RequestsMade = %d, want 1", all["news"].Bucket.RequestsMade)
	}

	s, err := r.StatsFor("news")
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}
	if s.Service != "news" {
		t.Errorf("Service = %q", s.Service)
	}
	if _, err := r.StatsFor("crypto"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("StatsFor unknown: got %v", err)
	}
}

func TestRegistryDuplicateService(t *testing.T) {
	_, err := NewRegistry([]Config{
		fastConfig("news"),
		fastConfig("news"),
	}, zerolog.Nop(), Hooks{})
	if err == nil {
		t.Fatal("expected duplicate service error")
	}
}

func TestRegistryShutdownAll(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, name := range r.Services() {
		if _, err := r.Execute(name, func() (any, error) { return nil, nil }); !errors.Is(err, ErrShuttingDown) {
			t.Errorf("%s after shutdown: got %v, want ErrShuttingDown", name, err)
		}
	}
}
