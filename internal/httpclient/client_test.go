package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, DefaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "dashcam-test/1.0"})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "dashcam-test/1.0", client.userAgent)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := Config{}
		client := New(&cfg)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, Config{}, cfg, "config must not be modified")
	})
}

func TestDo_UserAgent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    *Config
		header string
		want   string
	}{
		{"default", nil, "", DefaultUserAgent},
		{"configured", &Config{UserAgent: "fleet-gateway/2.0"}, "", "fleet-gateway/2.0"},
		{"request header wins", nil, "curl/8.0", "curl/8.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received string
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				received = r.Header.Get("User-Agent")
				w.WriteHeader(http.StatusOK)
			})
			client := newTestClientWithConfig(t, tt.cfg)

			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("User-Agent", tt.header)
			}

			resp, err := client.Do(t.Context(), req)
			require.NoError(t, err)
			closeResponseBody(t, resp)

			assert.Equal(t, tt.want, received)
		})
	}
}

func TestDo_NilRequest(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(t).Do(t.Context(), nil)
	require.Error(t, err)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp, err := client.Get(ctx, server.URL)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DefaultTimeout(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	resp, err := client.Get(t.Context(), server.URL)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ContextDeadlineOverridesDefault(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDo_BodyReadableAfterReturn(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("detections ", 4096)
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload)
	})
	client := newTestClient(t)

	// No deadline on the context, so Do applies its own
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestDo_AfterResponseHook(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "http://detector.local/health",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"ok"}`))
	transport.RegisterResponder(http.MethodGet, "http://detector.local/down",
		httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	var calls atomic.Int32
	var lastErr atomic.Value
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, elapsed time.Duration, err error) {
		calls.Add(1)
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		if err != nil {
			lastErr.Store(err)
		}
	})

	resp, err := client.Get(t.Context(), "http://detector.local/health")
	require.NoError(t, err)
	closeResponseBody(t, resp)

	_, err = client.Get(t.Context(), "http://detector.local/down")
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.NotNil(t, lastErr.Load())
}

func TestPost(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://detector.local/detect",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.JSONEq(t, `{"conf":0.25}`, string(body))
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	resp, err := client.Post(t.Context(), "http://detector.local/detect", "application/json", strings.NewReader(`{"conf":0.25}`))
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestPost_NilBody(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://detector.local/reload",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	resp, err := client.Post(t.Context(), "http://detector.local/reload", "", nil)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClose(t *testing.T) {
	t.Parallel()

	client := New(nil)
	client.Close()
	client.Close()
}
