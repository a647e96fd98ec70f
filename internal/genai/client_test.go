package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirixi/copilot-relay/internal/relayerr"
)

func turnsFixture() []Turn {
	return []Turn{
		{Role: RoleUser, Parts: []Part{{Text: "system + context"}}},
		{Role: RoleUser, Parts: []Part{{Text: "status?"}}},
	}
}

func TestComplete_Success(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-flash:generateContent")
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Velocity is up."},{"text":"Risk is down. "}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	text, err := c.Complete(context.Background(), turnsFixture())
	require.NoError(t, err)
	assert.Equal(t, "Velocity is up.\nRisk is down.", text)

	assert.Len(t, gotBody.Contents, 2)
	assert.Equal(t, 0.35, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 32, gotBody.GenerationConfig.TopK)
	assert.Equal(t, 0.9, gotBody.GenerationConfig.TopP)
	assert.Equal(t, 800, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestComplete_NoTextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	text, err := c.Complete(context.Background(), turnsFixture())
	require.NoError(t, err)
	assert.Equal(t, FallbackText, text)
}

func TestComplete_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), turnsFixture())
	require.Error(t, err)

	var apiErr *relayerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "quota exceeded")
}

func TestComplete_MissingCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), turnsFixture())
	assert.ErrorIs(t, err, relayerr.ErrMissingCredential)
	assert.Equal(t, int32(0), calls.Load(), "no network call before the credential check")
}

func TestStreamGenerate_MissingCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.StreamGenerate(context.Background(), turnsFixture())
	assert.ErrorIs(t, err, relayerr.ErrMissingCredential)
	assert.Equal(t, int32(0), calls.Load())
}

func TestStreamGenerate_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":streamGenerateContent")
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	_, err := c.StreamGenerate(context.Background(), turnsFixture())
	require.Error(t, err)

	var apiErr *relayerr.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
