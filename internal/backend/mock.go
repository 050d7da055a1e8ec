package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/metrics"
)

// MockClient satisfies Client without any network I/O. Inserts return a
// synthetic id and timestamp, selects return an empty result, uploads
// return a synthetic path. Every call emits a mock=true event and bumps
// the mock-call counter so a mock serving real traffic is detectable.
type MockClient struct {
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	calls []string

	// Error injection for testing error paths.
	ErrorOnNextCall error
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock backend client.
func NewMockClient(logger *logging.Logger, m *metrics.Metrics) *MockClient {
	return &MockClient{logger: logger, metrics: m}
}

// InsertRow returns a synthetic inserted representation.
func (c *MockClient) InsertRow(ctx context.Context, table string, record interface{}) ([]byte, error) {
	if err := c.observe(ctx, "insert"); err != nil {
		return nil, err
	}

	row := map[string]interface{}{
		"id":         uuid.New().String(),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal([]map[string]interface{}{row})
	return body, nil
}

// SelectRows returns an empty result.
func (c *MockClient) SelectRows(ctx context.Context, table string, filters map[string]string) ([]byte, error) {
	if err := c.observe(ctx, "select"); err != nil {
		return nil, err
	}
	return []byte("[]"), nil
}

// GetUser always fails: a mock cannot verify identity, and pretending it
// can would let unauthenticated writes through.
func (c *MockClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if err := c.observe(ctx, "get_user"); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("mock backend cannot verify identity")
}

// UploadObject returns a synthetic object key.
func (c *MockClient) UploadObject(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	if err := c.observe(ctx, "upload"); err != nil {
		return "", err
	}
	return "mock/" + bucket + "/" + objectPath, nil
}

// Calls returns the operations seen so far, in order.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *MockClient) observe(ctx context.Context, operation string) error {
	c.mu.Lock()
	c.calls = append(c.calls, operation)
	injected := c.ErrorOnNextCall
	c.ErrorOnNextCall = nil
	c.mu.Unlock()

	c.logger.WithContext(ctx).WithFields(logrus.Fields{
		"mock":      true,
		"operation": operation,
	}).Warn("Mock backend call")
	c.metrics.RecordMockCall(operation)

	return injected
}
