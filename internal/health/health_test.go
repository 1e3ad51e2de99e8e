package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmehra2102/shopflow/pkg/logging"
)

func TestChecker_HTTP(t *testing.T) {
	var broken atomic.Bool
	c := NewChecker(logging.Discard(), map[string]Probe{
		"store": func(context.Context) error {
			if broken.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	broken.Store(true)
	rec = httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var rep report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "degraded", rep.Status)
	assert.Equal(t, "connection refused", rep.Probes["store"])
}

func TestRun_ServesGRPCHealth(t *testing.T) {
	var broken atomic.Bool
	c := NewChecker(logging.Discard(), map[string]Probe{
		"store": func(context.Context) error {
			if broken.Load() {
				return errors.New("down")
			}
			return nil
		},
	})
	c.Check(context.Background())

	gs, addr, err := Run("127.0.0.1:0", c)
	require.NoError(t, err)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	broken.Store(true)
	c.Check(context.Background())
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
