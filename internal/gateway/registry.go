package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry is the process-wide set of named gateways, one per external
// service. All gateways are provisioned up front with fixed rate parameters;
// none are created lazily mid-run. The registry is built by the application's
// composition root and passed by handle to whatever needs Execute — there is
// no package-level instance.
type Registry struct {
	gateways map[string]*Gateway
	order    []string
	log      zerolog.Logger
}

// NewRegistry provisions one gateway per config entry.
func NewRegistry(cfgs []Config, logger zerolog.Logger, hooks Hooks) (*Registry, error) {
	r := &Registry{
		gateways: make(map[string]*Gateway, len(cfgs)),
		log:      logger,
	}
	for _, cfg := range cfgs {
		if _, dup := r.gateways[cfg.Name]; dup {
			r.teardown()
			return nil, fmt.Errorf("registry: duplicate service %q", cfg.Name)
		}
		g, err := New(cfg, logger, hooks)
		if err != nil {
			r.teardown()
			return nil, err
		}
		r.gateways[cfg.Name] = g
		r.order = append(r.order, cfg.Name)
	}
	logger.Info().Int("services", len(r.order)).Msg("gateway registry ready")
	return r, nil
}

// teardown closes any gateways already started by a failed NewRegistry.
func (r *Registry) teardown() {
	for _, name := range r.order {
		_ = r.gateways[name].Shutdown(time.Second)
	}
}

// Get returns the gateway bound to the named service.
func (r *Registry) Get(name string) (*Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return g, nil
}

// Execute routes op through the named service's gateway.
func (r *Registry) Execute(name string, op Operation) (any, error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return g.Execute(op)
}

// Services lists the provisioned service names in configuration order.
func (r *Registry) Services() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Stats snapshots every gateway, keyed by service name.
func (r *Registry) Stats() map[string]Stats {
	out := make(map[string]Stats, len(r.order))
	for name, g := range r.gateways {
		out[name] = g.Stats()
	}
	return out
}

// StatsFor snapshots a single service.
func (r *Registry) StatsFor(name string) (Stats, error) {
	g, err := r.Get(name)
	if err != nil {
		return Stats{}, err
	}
	return g.Stats(), nil
}

// Shutdown tears down all gateways concurrently, each with the same bounded
// join timeout, and returns the first error observed.
func (r *Registry) Shutdown(timeout time.Duration) error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for _, name := range r.order {
		g := r.gateways[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Shutdown(timeout); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	r.log.Info().Msg("all gateways shut down")
	return first
}
