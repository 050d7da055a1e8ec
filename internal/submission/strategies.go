package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/harborlane/signup-gateway/internal/backend"
	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/logging"
)

// Outcome is the tri-state result of one strategy attempt.
type Outcome int

const (
	// Success: the record is durably stored.
	Success Outcome = iota

	// UnavailableTryNext: this strategy cannot serve the request or its
	// attempt failed; the router moves on.
	UnavailableTryNext

	// FatalStop: no further strategy may be attempted (e.g. the request
	// context is gone).
	FatalStop
)

// StepResult is the outcome of one strategy attempt.
type StepResult struct {
	Outcome   Outcome
	CreatedAt time.Time
	Location  string
	Err       error
}

// Strategy is one way of getting a record into durable storage.
type Strategy interface {
	Name() string
	Submit(ctx context.Context, rec *Record) StepResult
}

// ClientProvider yields backend handles; satisfied by *backend.Factory.
type ClientProvider interface {
	GetClient(pair *credentials.Pair) *backend.Handle
}

// =============================================================================
// API-Mediated Strategy
// =============================================================================

// APIStrategy inserts through a server-credentialed client. It is the
// preferred path and exists only on a live server holding the service key.
type APIStrategy struct {
	clients ClientProvider
	pair    *credentials.Pair
	table   string
	logger  *logging.Logger
}

// NewAPIStrategy creates the API-mediated strategy. When endpoint or
// serviceKey is blank the strategy reports itself unavailable rather than
// attempting a write with partial credentials.
func NewAPIStrategy(clients ClientProvider, endpoint, serviceKey, table string, logger *logging.Logger) *APIStrategy {
	s := &APIStrategy{clients: clients, table: table, logger: logger}
	if endpoint != "" && serviceKey != "" {
		s.pair = &credentials.Pair{
			Endpoint: endpoint,
			Key:      serviceKey,
			Source:   credentials.SourceRuntimeEnv,
		}
	}
	return s
}

func (s *APIStrategy) Name() string { return "api" }

func (s *APIStrategy) Submit(ctx context.Context, rec *Record) StepResult {
	if s.pair == nil {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("no service credentials")}
	}

	handle := s.clients.GetClient(s.pair)
	if handle.Mock {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("service client unavailable")}
	}

	return insertRecord(ctx, handle, s.table, rec)
}

// =============================================================================
// Direct-Insert Strategy
// =============================================================================

// DirectStrategy inserts with client-visible credentials, the path a
// static export takes when there is no live handler. A mock handle here
// means resolution found nothing usable, so the strategy steps aside
// instead of reporting false success.
type DirectStrategy struct {
	clients ClientProvider
	table   string
	logger  *logging.Logger
}

// NewDirectStrategy creates the direct-insert fallback.
func NewDirectStrategy(clients ClientProvider, table string, logger *logging.Logger) *DirectStrategy {
	return &DirectStrategy{clients: clients, table: table, logger: logger}
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Submit(ctx context.Context, rec *Record) StepResult {
	handle := s.clients.GetClient(nil)
	if handle.Mock {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("no client-visible credentials resolved")}
	}

	return insertRecord(ctx, handle, s.table, rec)
}

// =============================================================================
// Object-Storage Strategy
// =============================================================================

// StorageStrategy serializes the record as a blob and uploads it into the
// first candidate bucket that accepts the write. Structured ingestion is
// deferred to out-of-band reconciliation; the point is that no accepted
// submission is lost when the table path is unreachable.
type StorageStrategy struct {
	clients ClientProvider
	buckets []string
	logger  *logging.Logger
}

// NewStorageStrategy creates the object-storage fallback over an ordered
// bucket candidate list.
func NewStorageStrategy(clients ClientProvider, buckets []string, logger *logging.Logger) *StorageStrategy {
	return &StorageStrategy{clients: clients, buckets: buckets, logger: logger}
}

func (s *StorageStrategy) Name() string { return "storage" }

func (s *StorageStrategy) Submit(ctx context.Context, rec *Record) StepResult {
	if len(s.buckets) == 0 {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("no fallback buckets configured")}
	}

	handle := s.clients.GetClient(nil)
	if handle.Mock {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("no client-visible credentials resolved")}
	}

	blob, err := json.Marshal(rec)
	if err != nil {
		return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("serialize record: %w", err)}
	}

	objectPath := fmt.Sprintf("submissions/%s/%s.json",
		rec.CreatedAt.Format("2006-01-02"), rec.ReferenceID)

	var lastErr error
	for _, bucket := range s.buckets {
		if ctx.Err() != nil {
			return StepResult{Outcome: FatalStop, Err: ctx.Err()}
		}

		location, err := handle.Client.UploadObject(ctx, bucket, objectPath, blob, "application/json")
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"bucket":       bucket,
				"reference_id": rec.ReferenceID,
			}).Warn("Fallback upload failed")
			lastErr = err
			continue
		}

		return StepResult{Outcome: Success, CreatedAt: rec.CreatedAt, Location: location}
	}

	return StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("all fallback buckets rejected the write: %w", lastErr)}
}

// =============================================================================
// Shared insert
// =============================================================================

// insertRecord performs the table insert, retrying once when the backend
// reports a transient status. A permanent rejection yields immediately so
// the next strategy gets its turn.
func insertRecord(ctx context.Context, handle *backend.Handle, table string, rec *Record) StepResult {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if ctx.Err() != nil {
			return StepResult{Outcome: FatalStop, Err: ctx.Err()}
		}

		body, err := handle.Client.InsertRow(ctx, table, rec)
		if err == nil {
			createdAt := rec.CreatedAt
			if ts := gjson.GetBytes(body, "0.created_at").String(); ts != "" {
				if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
					createdAt = parsed
				}
			}
			return StepResult{Outcome: Success, CreatedAt: createdAt}
		}
		if ctx.Err() != nil {
			return StepResult{Outcome: FatalStop, Err: ctx.Err()}
		}

		lastErr = err
		var be *backend.Error
		if !errors.As(err, &be) || !backend.IsRetryableStatus(be.StatusCode) {
			break
		}
	}

	return StepResult{Outcome: UnavailableTryNext, Err: lastErr}
}
