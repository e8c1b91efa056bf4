package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "processguard/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})
}

func TestStatusFor(t *testing.T) {
	tests := map[dErrors.Code]int{
		dErrors.CodeRestrictionsTooDeep:  http.StatusBadRequest,
		dErrors.CodeTooManyRestrictions:  http.StatusBadRequest,
		dErrors.CodeMalformedRestriction: http.StatusBadRequest,
		dErrors.CodeValidation:           http.StatusBadRequest,
		dErrors.CodeUnauthorized:         http.StatusUnauthorized,
		dErrors.CodeForbidden:            http.StatusForbidden,
		dErrors.CodeNotFound:             http.StatusNotFound,
		dErrors.CodeAlreadyExists:        http.StatusConflict,
		dErrors.CodeInternal:             http.StatusInternalServerError,
	}
	for code, status := range tests {
		assert.Equal(t, status, StatusFor(code), string(code))
	}
}

type pingRequest struct {
	Name string `json:"name"`
}

func (p *pingRequest) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*pingRequest, *httptest.ResponseRecorder) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		req, _ := DecodeAndPrepare[pingRequest](w, r, nil, r.Context(), "req-1")
		return req, w
	}

	t.Run("valid body is normalized", func(t *testing.T) {
		req, _ := decode(`{"name":"  ping "}`)
		require.NotNil(t, req)
		assert.Equal(t, "ping", req.Name)
	})

	t.Run("malformed json", func(t *testing.T) {
		req, w := decode(`{"name":`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		req, w := decode(`{"name":"a","extra":1}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		req, w := decode(``)
		assert.Nil(t, req)
		assert.Contains(t, w.Body.String(), "request body is required")
	})

	t.Run("validation error", func(t *testing.T) {
		req, w := decode(`{"name":" "}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}
