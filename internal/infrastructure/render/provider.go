package render

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/pkg/errors"
)

// Provider owns engine acquisition for the whole process.  Factories are
// registered by name; the first Acquire for a name runs the factory through
// a single-flight group, so concurrent initializations attach to the same
// pending load instead of starting their own.  A resolved handle is cached
// and served synchronously ever after.
//
// Failed acquisitions are not cached: the failure reaches every waiter, and
// the next Acquire starts a fresh attempt.
type Provider struct {
	logger logging.Logger

	mu        sync.RWMutex
	factories map[string]Factory
	engines   map[string]Engine

	group singleflight.Group
}

// ProviderOption customises a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider's logger; the default discards everything.
func WithLogger(l logging.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// NewProvider returns an empty provider.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		logger:    logging.NewNopLogger(),
		factories: map[string]Factory{},
		engines:   map[string]Engine{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register makes an engine acquirable under name.  Registering the same
// name again replaces the factory and forgets any resolved handle.
func (p *Provider) Register(name string, factory Factory) {
	p.mu.Lock()
	p.factories[name] = factory
	delete(p.engines, name)
	p.mu.Unlock()

	p.logger.Debug("rendering engine registered", logging.String("engine", name))
}

// Engines lists the registered engine names, sorted.
func (p *Provider) Engines() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.factories))
	for name := range p.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolved reports whether name has a cached engine handle.
func (p *Provider) Resolved(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.engines[name]
	return ok
}

// Acquire returns the engine handle for name, loading it if necessary.  The
// context gates only this caller's wait: an abandoned wait neither aborts
// the in-flight load — other callers may be attached to it — nor prevents
// the resolved handle from being cached for later mounts.
func (p *Provider) Acquire(ctx context.Context, name string) (Engine, error) {
	p.mu.RLock()
	if eng, ok := p.engines[name]; ok {
		p.mu.RUnlock()
		return eng, nil
	}
	factory, ok := p.factories[name]
	p.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeEngineNotRegistered,
			"no rendering engine registered under this name").
			WithDetail("engine=" + name)
	}

	ch := p.group.DoChan(name, func() (interface{}, error) {
		eng, err := factory(context.Background())
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEngineUnavailable,
				"rendering engine acquisition failed").
				WithDetail("engine=" + name)
		}

		p.mu.Lock()
		p.engines[name] = eng
		p.mu.Unlock()

		p.logger.Info("rendering engine resolved", logging.String("engine", name))
		return eng, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CodeEngineUnavailable,
			"engine acquisition abandoned").
			WithDetail("engine=" + name)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	}
}
