package credentials

import (
	"os"

	"github.com/harborlane/signup-gateway/internal/config"
)

// EnvCandidate reads the public endpoint/key variables directly from the
// process environment.
func EnvCandidate() Candidate {
	return Candidate{
		Source:   SourceRuntimeEnv,
		Endpoint: os.Getenv(config.EnvBackendURL),
		Key:      os.Getenv(config.EnvBackendAnonKey),
	}
}

// ConfigCandidate reads the pair from the configuration loaded at process
// start.
func ConfigCandidate(cfg *config.Config) Candidate {
	return Candidate{
		Source:   SourceConfig,
		Endpoint: cfg.BackendURL,
		Key:      cfg.BackendAnonKey,
	}
}

// CandidatesForMode returns the source order for the given deployment mode.
//
// Server mode trusts runtime state only: the environment, then the config
// layer. Static mode has no runtime injection, so the config layer is
// followed by build-baked values and finally the served markup.
func CandidatesForMode(cfg *config.Config, markup []byte) []Candidate {
	if cfg.Mode == config.ModeServer {
		return []Candidate{EnvCandidate(), ConfigCandidate(cfg)}
	}
	return []Candidate{
		ConfigCandidate(cfg),
		BakedCandidate(),
		MarkupCandidate(markup),
	}
}
