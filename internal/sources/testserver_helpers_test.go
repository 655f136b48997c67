package sources

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/bookfinder/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

// newIPv4TestServer starts an httptest server bound to the IPv4 loopback.
func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	t.Cleanup(server.Close)
	return server
}

// testOptions points an adapter at server without rate limiting or caching.
func testOptions(server *httptest.Server, extra ...Option) []Option {
	opts := []Option{
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithLimiter(ratelimit.Unlimited("test")),
		WithoutCache(),
	}
	return append(opts, extra...)
}

// recordSleeps replaces sleep with a recorder that returns immediately.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()

	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	orig := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &waits
}
