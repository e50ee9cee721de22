package test

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"

	"github.com/bucketsio/workflow/pkg/api/v1/client"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// Environment bundles a running in-memory backend with a client pointed at it
type Environment struct {
	Backend *Backend
	Server  *httptest.Server
	Client  client.Client
}

// SetupEnvironment starts an in-memory backend served over HTTP and returns
// an environment whose client is configured against it. Everything is torn
// down through t.Cleanup.
func SetupEnvironment(t *testing.T) *Environment {
	t.Helper()

	backend, err := NewBackend(filepath.Join(t.TempDir(), "buckets.db"))
	require.NoError(t, err, "Failed to create in-memory backend")

	server := httptest.NewServer(adaptor.FiberApp(backend.App()))
	t.Cleanup(server.Close)

	c, err := client.NewClient(&client.Options{
		BaseURL: server.URL,
		Timeout: testClientTimeout,
		Token:   "test-token",
	})
	require.NoError(t, err, "Failed to create API client")

	return &Environment{
		Backend: backend,
		Server:  server,
		Client:  c,
	}
}
