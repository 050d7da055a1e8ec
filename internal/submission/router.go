package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
)

// Result is the outcome of one caller-initiated submission attempt.
// ReferenceID is populated on success and failure alike.
type Result struct {
	Accepted    bool
	ReferenceID string
	CreatedAt   time.Time
	Strategy    string
	Location    string
}

// Router drives the ordered strategy list. The fallback chain is strictly
// sequential within one request; strategies are never raced. There is no
// cross-request retry queue: a failed submission is reported once and
// retrying is the caller's responsibility. Note that without a caller
// idempotency key, a retry after a reported failure may create a
// duplicate record.
type Router struct {
	strategies []Strategy
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewRouter creates a router over the given strategies, attempted in order.
func NewRouter(logger *logging.Logger, m *metrics.Metrics, strategies ...Strategy) *Router {
	return &Router{strategies: strategies, logger: logger, metrics: m}
}

// Submit stamps the record and attempts each strategy until one succeeds.
// On total failure it returns a Result carrying a fresh referenceId and an
// error; it never fabricates acceptance.
func (rt *Router) Submit(ctx context.Context, rec *Record, ownerSubjectID string) (Result, error) {
	rec.ReferenceID = uuid.New().String()
	rec.OwnerSubjectID = ownerSubjectID
	rec.CreatedAt = time.Now().UTC()

	var lastErr error

	for _, strategy := range rt.strategies {
		step := strategy.Submit(ctx, rec)

		switch step.Outcome {
		case Success:
			rt.metrics.RecordSubmission(strategy.Name(), "success")
			rt.logger.WithContext(ctx).WithFields(logrus.Fields{
				"strategy":     strategy.Name(),
				"reference_id": rec.ReferenceID,
				"location":     step.Location,
			}).Info("Submission stored")

			return Result{
				Accepted:    true,
				ReferenceID: rec.ReferenceID,
				CreatedAt:   step.CreatedAt,
				Strategy:    strategy.Name(),
				Location:    step.Location,
			}, nil

		case UnavailableTryNext:
			rt.metrics.RecordSubmission(strategy.Name(), "unavailable")
			if step.Err != nil {
				lastErr = step.Err
				// Full failure detail stays in the server log; clients
				// only ever see the generic message plus reference id.
				rt.logger.WithContext(ctx).WithError(step.Err).WithFields(logrus.Fields{
					"strategy":     strategy.Name(),
					"reference_id": rec.ReferenceID,
				}).Error("Submission strategy failed, trying next")
			}

		case FatalStop:
			rt.metrics.RecordSubmission(strategy.Name(), "fatal")
			if step.Err != nil {
				lastErr = step.Err
			}
			rt.logger.WithContext(ctx).WithError(step.Err).WithFields(logrus.Fields{
				"strategy":     strategy.Name(),
				"reference_id": rec.ReferenceID,
			}).Error("Submission aborted")

			return Result{ReferenceID: rec.ReferenceID},
				errors.BackendWrite(lastErr).WithDetails("reference_id", rec.ReferenceID)
		}
	}

	rt.logger.WithContext(ctx).WithError(lastErr).WithField("reference_id", rec.ReferenceID).
		Error("All submission strategies failed")

	return Result{ReferenceID: rec.ReferenceID},
		errors.BackendWrite(lastErr).WithDetails("reference_id", rec.ReferenceID)
}
