// Package credentials resolves the backend endpoint/key pair from an
// explicit, ordered list of candidate sources.
package credentials

import (
	"errors"
	"strings"

	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
)

// Source identifies where a credential candidate came from.
type Source string

const (
	// SourceRuntimeEnv is runtime-injected environment variables,
	// available on a live server only.
	SourceRuntimeEnv Source = "runtime_env"

	// SourceConfig is the application configuration populated at process
	// start, which may itself re-read the same variables.
	SourceConfig Source = "config"

	// SourceBaked is values baked into the binary at build time. Never
	// trusted when serving in server mode.
	SourceBaked Source = "build_baked"

	// SourceMarkup is values injected into the served markup (meta tags
	// or a bootstrap object) at packaging time. Last resort.
	SourceMarkup Source = "markup"
)

// ErrNotFound means no candidate supplied a complete endpoint/key pair.
// Callers must degrade to a mock client, never proceed with blanks.
var ErrNotFound = errors.New("credentials: no complete endpoint/key pair in any source")

// Pair is a resolved credential.
type Pair struct {
	Endpoint string
	Key      string
	Source   Source
}

// CacheKey identifies a pair by its exact endpoint and key.
func (p Pair) CacheKey() string {
	return p.Endpoint + "\x00" + p.Key
}

// Candidate is one unresolved source entry. Candidates are plain values so
// resolution stays a pure function over whatever the caller injects.
type Candidate struct {
	Source   Source
	Endpoint string
	Key      string
}

// Resolver tries candidates in order and returns the first complete pair.
type Resolver struct {
	candidates []Candidate
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewResolver creates a resolver over the given ordered candidates.
func NewResolver(logger *logging.Logger, m *metrics.Metrics, candidates []Candidate) *Resolver {
	return &Resolver{candidates: candidates, logger: logger, metrics: m}
}

// Resolve returns the pair from the highest-priority complete candidate.
// A candidate supplying only an endpoint or only a key is skipped entirely.
// Values are trimmed before use; a value that needed trimming is flagged
// for observability but is not fatal.
func (r *Resolver) Resolve() (Pair, error) {
	for _, c := range r.candidates {
		endpoint := strings.TrimSpace(c.Endpoint)
		key := strings.TrimSpace(c.Key)

		if endpoint != c.Endpoint || key != c.Key {
			r.logger.WithField("source", string(c.Source)).
				Warn("Credential value had surrounding whitespace")
		}

		if endpoint == "" && key == "" {
			continue
		}
		if endpoint == "" || key == "" {
			r.logger.WithField("source", string(c.Source)).
				Warn("Credential source incomplete, skipping")
			r.metrics.RecordCredentialResolution(string(c.Source), "incomplete")
			continue
		}

		r.metrics.RecordCredentialResolution(string(c.Source), "resolved")
		return Pair{Endpoint: endpoint, Key: key, Source: c.Source}, nil
	}

	r.metrics.RecordCredentialResolution("none", "not_found")
	return Pair{}, ErrNotFound
}
