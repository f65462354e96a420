// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewJSONRequest creates an HTTP request with a JSON body.
// A nil body produces a request without one.
func NewJSONRequest(t testing.TB, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// Do serves a JSON request against handler and returns the recorder.
func Do(t testing.TB, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, NewJSONRequest(t, method, path, body))
	return rr
}

// Decode unmarshals the recorded response body into a T.
func Decode[T any](t testing.TB, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "failed to unmarshal response: %s", rr.Body.String())
	return out
}

// ErrorCode returns the "error" field of a JSON error envelope.
func ErrorCode(t testing.TB, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return Decode[map[string]string](t, rr)["error"]
}
