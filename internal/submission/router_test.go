package submission

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlane/signup-gateway/internal/backend"
	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
)

// stubStrategy returns a fixed result and records invocations.
type stubStrategy struct {
	name   string
	result StepResult
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Submit(_ context.Context, _ *Record) StepResult {
	s.calls++
	return s.result
}

func newTestRouter(strategies ...Strategy) *Router {
	return NewRouter(logging.New("test", "error", "text"), metrics.New("test"), strategies...)
}

func validRecord() *Record {
	return &Record{
		BusinessName: "Harbor Lane Coffee",
		ContactName:  "Sam Rivera",
		Email:        "sam@harborlane.example",
	}
}

func TestSubmit_FirstSuccessStopsChain(t *testing.T) {
	first := &stubStrategy{name: "api", result: StepResult{Outcome: Success, CreatedAt: time.Now()}}
	second := &stubStrategy{name: "direct", result: StepResult{Outcome: Success}}

	router := newTestRouter(first, second)
	result, err := router.Submit(context.Background(), validRecord(), "user-1")

	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "api", result.Strategy)
	assert.NotEmpty(t, result.ReferenceID)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later strategies must not run after a success")
}

func TestSubmit_StorageAttemptedAfterAPIAndDirectFail(t *testing.T) {
	api := &stubStrategy{name: "api", result: StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("api down")}}
	direct := &stubStrategy{name: "direct", result: StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("insert failed")}}
	storage := &stubStrategy{name: "storage", result: StepResult{Outcome: Success, Location: "fallback/x.json"}}

	router := newTestRouter(api, direct, storage)
	result, err := router.Submit(context.Background(), validRecord(), "user-1")

	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "storage", result.Strategy)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 1, direct.calls)
	assert.Equal(t, 1, storage.calls)
}

func TestSubmit_AllFailReturnsErrorWithReferenceID(t *testing.T) {
	fail := StepResult{Outcome: UnavailableTryNext, Err: fmt.Errorf("nope")}
	router := newTestRouter(
		&stubStrategy{name: "api", result: fail},
		&stubStrategy{name: "direct", result: fail},
		&stubStrategy{name: "storage", result: fail},
	)

	result, err := router.Submit(context.Background(), validRecord(), "user-1")

	require.Error(t, err)
	assert.False(t, result.Accepted, "acceptance must never be fabricated")
	assert.NotEmpty(t, result.ReferenceID)

	se := errors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, errors.ErrBackendWrite, se.Code)
	assert.NotContains(t, se.Message, "nope", "internal detail must not leak into the client message")
}

func TestSubmit_FatalStopsChain(t *testing.T) {
	fatal := &stubStrategy{name: "api", result: StepResult{Outcome: FatalStop, Err: context.Canceled}}
	next := &stubStrategy{name: "direct", result: StepResult{Outcome: Success}}

	router := newTestRouter(fatal, next)
	result, err := router.Submit(context.Background(), validRecord(), "user-1")

	require.Error(t, err)
	assert.False(t, result.Accepted)
	assert.NotEmpty(t, result.ReferenceID)
	assert.Equal(t, 0, next.calls, "no strategy may run after a fatal stop")
}

func TestSubmit_StampsRecord(t *testing.T) {
	strategy := &stubStrategy{name: "api", result: StepResult{Outcome: Success}}
	router := newTestRouter(strategy)

	rec := validRecord()
	before := time.Now().UTC()
	result, err := router.Submit(context.Background(), rec, "user-42")
	require.NoError(t, err)

	assert.Equal(t, "user-42", rec.OwnerSubjectID)
	assert.Equal(t, result.ReferenceID, rec.ReferenceID)
	assert.False(t, rec.CreatedAt.Before(before))
}

// =============================================================================
// Concrete strategies
// =============================================================================

// scriptedClient fails or succeeds per call counts.
type scriptedClient struct {
	insertErr  error
	insertErrs []error          // consumed one per insert before insertErr applies
	uploadErrs map[string]error // bucket -> error
	inserts    int
	uploads    []string
}

func (c *scriptedClient) InsertRow(_ context.Context, _ string, _ interface{}) ([]byte, error) {
	c.inserts++
	err := c.insertErr
	if len(c.insertErrs) > 0 {
		err = c.insertErrs[0]
		c.insertErrs = c.insertErrs[1:]
	}
	if err != nil {
		return nil, err
	}
	return []byte(`[{"id":"row-1","created_at":"2026-08-29T10:00:00Z"}]`), nil
}

func (c *scriptedClient) SelectRows(_ context.Context, _ string, _ map[string]string) ([]byte, error) {
	return []byte("[]"), nil
}

func (c *scriptedClient) GetUser(_ context.Context, _ string) (*backend.User, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *scriptedClient) UploadObject(_ context.Context, bucket, objectPath string, _ []byte, _ string) (string, error) {
	c.uploads = append(c.uploads, bucket)
	if err := c.uploadErrs[bucket]; err != nil {
		return "", err
	}
	return bucket + "/" + objectPath, nil
}

type staticProvider struct {
	handle *backend.Handle
}

func (p *staticProvider) GetClient(_ *credentials.Pair) *backend.Handle { return p.handle }

func testLogger() *logging.Logger { return logging.New("test", "error", "text") }

func TestAPIStrategy_UnavailableWithoutServiceCredentials(t *testing.T) {
	provider := &staticProvider{handle: &backend.Handle{Client: &scriptedClient{}}}

	for _, s := range []*APIStrategy{
		NewAPIStrategy(provider, "", "service-key", "signup_submissions", testLogger()),
		NewAPIStrategy(provider, "https://x.example.co", "", "signup_submissions", testLogger()),
	} {
		step := s.Submit(context.Background(), validRecord())
		assert.Equal(t, UnavailableTryNext, step.Outcome)
	}
}

func TestAPIStrategy_InsertSuccessParsesTimestamp(t *testing.T) {
	client := &scriptedClient{}
	provider := &staticProvider{handle: &backend.Handle{Client: client}}
	s := NewAPIStrategy(provider, "https://x.example.co", "service-key", "signup_submissions", testLogger())

	rec := validRecord()
	rec.ReferenceID = "ref-1"
	rec.CreatedAt = time.Now().UTC()

	step := s.Submit(context.Background(), rec)
	require.Equal(t, Success, step.Outcome)

	want, _ := time.Parse(time.RFC3339, "2026-08-29T10:00:00Z")
	assert.True(t, step.CreatedAt.Equal(want), "created_at must come from the stored representation")
}

func TestDirectStrategy_MockHandleNeverFalseSuccess(t *testing.T) {
	mockHandle := &backend.Handle{
		Client: backend.NewMockClient(testLogger(), metrics.New("test")),
		Mock:   true,
	}
	s := NewDirectStrategy(&staticProvider{handle: mockHandle}, "signup_submissions", testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome,
		"a mock client cannot durably store, so the router must move on")
}

func TestDirectStrategy_InsertFailureIsUnavailable(t *testing.T) {
	client := &scriptedClient{insertErr: fmt.Errorf("connection refused")}
	s := NewDirectStrategy(&staticProvider{handle: &backend.Handle{Client: client}}, "signup_submissions", testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome)
	assert.Error(t, step.Err)
}

func TestDirectStrategy_TransientStatusRetriedOnce(t *testing.T) {
	client := &scriptedClient{insertErrs: []error{
		&backend.Error{Message: "service unavailable", StatusCode: http.StatusServiceUnavailable},
		nil,
	}}
	s := NewDirectStrategy(&staticProvider{handle: &backend.Handle{Client: client}}, "signup_submissions", testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, Success, step.Outcome)
	assert.Equal(t, 2, client.inserts, "a transient status gets exactly one retry")
}

func TestDirectStrategy_PersistentTransientStatusYieldsAfterRetry(t *testing.T) {
	client := &scriptedClient{insertErr: &backend.Error{Message: "gateway timeout", StatusCode: http.StatusGatewayTimeout}}
	s := NewDirectStrategy(&staticProvider{handle: &backend.Handle{Client: client}}, "signup_submissions", testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome)
	assert.Equal(t, 2, client.inserts)
	assert.Error(t, step.Err)
}

func TestDirectStrategy_PermanentRejectionNotRetried(t *testing.T) {
	client := &scriptedClient{insertErr: &backend.Error{
		Code:       "23505",
		Message:    "duplicate key value violates unique constraint",
		StatusCode: http.StatusConflict,
	}}
	s := NewDirectStrategy(&staticProvider{handle: &backend.Handle{Client: client}}, "signup_submissions", testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome)
	assert.Equal(t, 1, client.inserts, "a permanent rejection must not be retried")
}

func TestStorageStrategy_FirstAcceptingBucketWins(t *testing.T) {
	client := &scriptedClient{uploadErrs: map[string]error{"primary": fmt.Errorf("bucket missing")}}
	s := NewStorageStrategy(&staticProvider{handle: &backend.Handle{Client: client}},
		[]string{"primary", "secondary"}, testLogger())

	rec := validRecord()
	rec.ReferenceID = "ref-2"
	rec.CreatedAt = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	step := s.Submit(context.Background(), rec)
	require.Equal(t, Success, step.Outcome)
	assert.Equal(t, []string{"primary", "secondary"}, client.uploads)
	assert.Equal(t, "secondary/submissions/2026-08-29/ref-2.json", step.Location)
}

func TestStorageStrategy_AllBucketsRejectIsUnavailable(t *testing.T) {
	client := &scriptedClient{uploadErrs: map[string]error{
		"primary":   fmt.Errorf("bucket missing"),
		"secondary": fmt.Errorf("forbidden"),
	}}
	s := NewStorageStrategy(&staticProvider{handle: &backend.Handle{Client: client}},
		[]string{"primary", "secondary"}, testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome)
	assert.Error(t, step.Err)
}

func TestStorageStrategy_EmptyBucketListIsUnavailable(t *testing.T) {
	client := &scriptedClient{}
	s := NewStorageStrategy(&staticProvider{handle: &backend.Handle{Client: client}}, nil, testLogger())

	step := s.Submit(context.Background(), validRecord())
	assert.Equal(t, UnavailableTryNext, step.Outcome)
	require.Error(t, step.Err)
	assert.NotContains(t, step.Err.Error(), "%!w", "empty list must not wrap a nil error")
	assert.Empty(t, client.uploads)
}

func TestRecordValidate(t *testing.T) {
	rec := validRecord()
	require.NoError(t, rec.Validate())

	missingName := *rec
	missingName.BusinessName = " "
	assert.Error(t, missingName.Validate())

	badEmail := *rec
	badEmail.Email = "not-an-email"
	assert.Error(t, badEmail.Validate())
}
