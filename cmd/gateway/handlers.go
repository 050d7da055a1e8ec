package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/harborlane/signup-gateway/internal/config"
	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/httputil"
	"github.com/harborlane/signup-gateway/internal/logging"
	"github.com/harborlane/signup-gateway/internal/middleware"
	"github.com/harborlane/signup-gateway/internal/submission"
)

// =============================================================================
// Health
// =============================================================================

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// =============================================================================
// CSRF Token
// =============================================================================

func csrfTokenHandler(guard *middleware.CSRFGuard, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, expires, err := guard.Issue(w)
		if err != nil {
			logger.WithContext(r.Context()).WithError(err).Error("CSRF token issuance failed")
			httputil.WriteServiceError(w, errors.Internal("", err), "")
			return
		}

		httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{
			"token":   token,
			"expires": expires.UTC().Format(time.RFC3339),
		})
	}
}

// =============================================================================
// Signup Submission
// =============================================================================

// signupHandler runs after the CSRF guard and the auth gate. The router
// owns referenceId generation and stamps ownership and timestamps, so any
// client-supplied values for those fields are overwritten.
func signupHandler(router *submission.Router) func(http.ResponseWriter, *http.Request, middleware.AuthContext) {
	return func(w http.ResponseWriter, r *http.Request, authCtx middleware.AuthContext) {
		var rec submission.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			httputil.BadRequest(w, string(errors.ErrValidation), "invalid request body")
			return
		}

		if err := rec.Validate(); err != nil {
			httputil.WriteServiceError(w, err, "")
			return
		}

		result, err := router.Submit(r.Context(), &rec, authCtx.SubjectID)
		if err != nil {
			httputil.WriteServiceError(w, err, result.ReferenceID)
			return
		}

		httputil.WriteSuccess(w, http.StatusCreated, map[string]interface{}{
			"created_at":   result.CreatedAt.UTC().Format(time.RFC3339),
			"reference_id": result.ReferenceID,
		})
	}
}

// =============================================================================
// Credential Introspection (diagnostic)
// =============================================================================

// credentialIntrospectionHandler reports which credential source resolved
// and whether each half of the pair is present. Raw values never leave the
// server.
func credentialIntrospectionHandler(resolver *credentials.Resolver, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"endpoint_present": false,
			"key_present":      false,
			"source":           "",
			"mode":             string(cfg.Mode),
			"platform":         detectPlatform(),
		}

		if pair, err := resolver.Resolve(); err == nil {
			data["endpoint_present"] = pair.Endpoint != ""
			data["key_present"] = pair.Key != ""
			data["key_length"] = len(pair.Key)
			data["source"] = string(pair.Source)
		}

		httputil.WriteSuccess(w, http.StatusOK, data)
	}
}

func detectPlatform() string {
	switch {
	case os.Getenv("VERCEL") != "":
		return "vercel"
	case os.Getenv("NETLIFY") != "":
		return "netlify"
	default:
		return "generic"
	}
}
