package backend

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
)

// Handle pairs a usable client with the credential that produced it.
type Handle struct {
	Client     Client
	Credential credentials.Pair
	Mock       bool
}

// Factory builds and caches backend clients. Real handles are cached per
// exact (endpoint, key) pair, inserted at most once and never mutated, so
// concurrent callers share one handle per credential. When no pair
// resolves or construction fails, the shared mock handle is returned
// instead of an error so downstream code always has something usable.
type Factory struct {
	resolver *credentials.Resolver
	logger   *logging.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	// newClient is swapped in tests to inject fakes or failures.
	newClient func(Config) (Client, error)

	mu      sync.Mutex
	handles map[string]*Handle
	mock    *Handle
}

// NewFactory creates a client factory over the given resolver.
func NewFactory(resolver *credentials.Resolver, logger *logging.Logger, m *metrics.Metrics, timeout time.Duration) *Factory {
	return &Factory{
		resolver: resolver,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
		newClient: func(cfg Config) (Client, error) {
			return NewRESTClient(cfg)
		},
		handles: make(map[string]*Handle),
	}
}

// GetClient returns a handle for the given pair, resolving one internally
// when pair is nil. It never returns nil: failures degrade to the mock
// handle.
func (f *Factory) GetClient(pair *credentials.Pair) *Handle {
	if pair == nil {
		resolved, err := f.resolver.Resolve()
		if err != nil {
			f.logger.WithError(err).Warn("No backend credentials resolved, using mock client")
			return f.mockHandle()
		}
		pair = &resolved
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pair.CacheKey()
	if h, ok := f.handles[key]; ok {
		return h
	}

	client, err := f.newClient(Config{
		EndpointURL: pair.Endpoint,
		APIKey:      pair.Key,
		Timeout:     f.timeout,
	})
	if err != nil {
		f.logger.WithError(err).WithField("source", string(pair.Source)).
			Error("Backend client construction failed, using mock client")
		return f.mockHandleLocked()
	}

	h := &Handle{Client: client, Credential: *pair, Mock: false}
	f.handles[key] = h

	// Raw secrets are never logged, only presence and length.
	f.logger.WithFields(logrus.Fields{
		"source":     string(pair.Source),
		"mock":       false,
		"endpoint":   pair.Endpoint,
		"key_length": len(pair.Key),
	}).Info("Backend client created")

	return h
}

func (f *Factory) mockHandle() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mockHandleLocked()
}

func (f *Factory) mockHandleLocked() *Handle {
	if f.mock == nil {
		f.mock = &Handle{
			Client: NewMockClient(f.logger, f.metrics),
			Mock:   true,
		}
		f.logger.WithField("mock", true).Warn("Mock backend handle created")
	}
	return f.mock
}

// SetClientConstructor overrides real-client construction. Test hook.
func (f *Factory) SetClientConstructor(fn func(Config) (Client, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newClient = fn
}
