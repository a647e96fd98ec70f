package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirixi/copilot-relay/internal/relayerr"
	"github.com/stirixi/copilot-relay/internal/retry"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	c.retryCfg = retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return c, srv
}

func TestClient_ListEngineers(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/engineers/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"_id":"e1","name":"Ada","title":"Staff Engineer","pr_count":12,"bug_count":2,"token_cost":120.5,"monthly_performance":[7.5,8.1]}]`))
	}))

	engs, err := c.ListEngineers(context.Background())
	require.NoError(t, err)
	require.Len(t, engs, 1)
	assert.Equal(t, "Ada", engs[0].Name)
	assert.Equal(t, 12, engs[0].PRCount)
	assert.Equal(t, 120.5, engs[0].TokenCost)
	assert.Equal(t, []float64{7.5, 8.1}, engs[0].MonthlyPerformance)
}

func TestClient_ListProjects(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/", r.URL.Path)
		w.Write([]byte(`[{"_id":"p1","title":"Data Platform","importance":"critical","engineers":["e1","e2"],"prospects":["c1"]}]`))
	}))

	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "critical", projects[0].Importance)
	assert.Len(t, projects[0].Engineers, 2)
}

func TestClient_ListPromptsAndActions(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prompts/":
			w.Write([]byte(`[{"_id":"q1","model":"gpt-4","tokens":321,"engineer":"e1"}]`))
		case "/actions/":
			w.Write([]byte(`[{"_id":"a1","title":"Merged PR","event":"pr_merged","engineer":"e1"}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	prompts, err := c.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, 321, prompts[0].Tokens)

	actions, err := c.ListActions(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "pr_merged", actions[0].Event)
}

func TestClient_ErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.ListProspects(context.Background())
	require.Error(t, err)
	var apiErr *relayerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClient_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))

	engs, err := c.ListEngineers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, engs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := c.ListActions(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Ping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	assert.NoError(t, c.Ping(context.Background()))
}
