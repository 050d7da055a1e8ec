package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRESTClient_Validation(t *testing.T) {
	_, err := NewRESTClient(Config{APIKey: "k"})
	assert.Error(t, err, "missing endpoint must be rejected")

	_, err = NewRESTClient(Config{EndpointURL: "https://x.example.co"})
	assert.Error(t, err, "missing key must be rejected")

	c, err := NewRESTClient(Config{EndpointURL: "https://x.example.co/", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.example.co/rest/v1", c.restURL)
}

func TestInsertRow(t *testing.T) {
	var gotPath, gotAPIKey, gotPrefer string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"row-1","created_at":"2026-08-29T10:00:00Z"}]`))
	}))
	defer srv.Close()

	c, err := NewRESTClient(Config{EndpointURL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)

	body, err := c.InsertRow(context.Background(), "signup_submissions", map[string]string{"email": "a@b.co"})
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/signup_submissions", gotPath)
	assert.Equal(t, "anon-key", gotAPIKey)
	assert.Equal(t, "return=representation", gotPrefer)
	assert.Equal(t, "a@b.co", gotBody["email"])
	assert.Contains(t, string(body), "row-1")
}

func TestInsertRow_ErrorParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint","details":"Key (email) already exists.","hint":""}`))
	}))
	defer srv.Close()

	c, err := NewRESTClient(Config{EndpointURL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = c.InsertRow(context.Background(), "signup_submissions", map[string]string{})
	require.Error(t, err)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "23505", be.Code)
	assert.Equal(t, http.StatusConflict, be.StatusCode)
	assert.Contains(t, be.Details, "already exists")
}

func TestGetUser_SendsCallerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@b.co","role":"authenticated","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c, err := NewRESTClient(Config{EndpointURL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)

	user, err := c.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "authenticated", user.Role)
}

func TestGetUser_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"token is expired"}`))
	}))
	defer srv.Close()

	c, err := NewRESTClient(Config{EndpointURL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = c.GetUser(context.Background(), "stale")
	require.Error(t, err)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.StatusCode)
}

func TestUploadObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/fallback/submissions/x.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"Key":"fallback/submissions/x.json"}`))
	}))
	defer srv.Close()

	c, err := NewRESTClient(Config{EndpointURL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)

	key, err := c.UploadObject(context.Background(), "fallback", "submissions/x.json", []byte(`{}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "fallback/submissions/x.json", key)
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409} {
		assert.False(t, IsRetryableStatus(code), "status %d", code)
	}
}
