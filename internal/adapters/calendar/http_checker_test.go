package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/email-priority/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testWindow() core.TimeWindow {
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	return core.TimeWindow{Start: start, End: start.Add(time.Hour)}
}

func TestCheckConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.End.After(req.Start))

		json.NewEncoder(w).Encode(map[string]bool{"conflict": true})
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
	conflict, err := checker.CheckConflict(context.Background(), testWindow())
	require.NoError(t, err)
	assert.True(t, conflict)
}

func TestCheckConflictNoOverlap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"conflict": false})
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
	conflict, err := checker.CheckConflict(context.Background(), testWindow())
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestCheckConflictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second, zap.NewNop())
	_, err := checker.CheckConflict(context.Background(), testWindow())
	assert.Error(t, err)
}

func TestCheckConflictUnreachable(t *testing.T) {
	checker := NewHTTPChecker("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())
	_, err := checker.CheckConflict(context.Background(), testWindow())
	assert.Error(t, err)
}
