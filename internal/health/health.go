// Package health reports whether the storefront's backing stores answer,
// over gRPC health checking and a plain HTTP endpoint.
package health

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmehra2102/shopflow/pkg/httpx"
)

// Service is the name the storefront registers under in the gRPC health
// service, next to the empty overall name.
const Service = "shopflow.Storefront"

// Probe returns nil when the dependency it checks is usable.
type Probe func(ctx context.Context) error

type Checker struct {
	log     *slog.Logger
	probes  map[string]Probe
	timeout time.Duration
	grpc    *grpchealth.Server

	mu   sync.Mutex
	last map[string]string
}

func NewChecker(log *slog.Logger, probes map[string]Probe) *Checker {
	return &Checker{
		log:     log,
		probes:  probes,
		timeout: 2 * time.Second,
		grpc:    grpchealth.NewServer(),
		last:    map[string]string{},
	}
}

// Check runs every probe and updates the gRPC serving status. The result maps
// probe name to "ok" or the probe's error.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := make(map[string]string, len(c.probes))
	healthy := true
	for name, probe := range c.probes {
		if err := probe(ctx); err != nil {
			out[name] = err.Error()
			healthy = false
			continue
		}
		out[name] = "ok"
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", status)
	c.grpc.SetServingStatus(Service, status)

	c.mu.Lock()
	for name, res := range out {
		if c.last[name] != res {
			c.log.Info("health probe changed", "probe", name, "result", res)
		}
	}
	c.last = out
	c.mu.Unlock()
	return out, healthy
}

// Watch re-checks on every tick until ctx is done, then marks the service as
// not serving so load balancers drain it.
func (c *Checker) Watch(ctx context.Context, every time.Duration) {
	c.Check(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

type report struct {
	Status string            `json:"status"`
	Probes map[string]string `json:"probes"`
}

func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	probes, healthy := c.Check(r.Context())
	if healthy {
		httpx.WriteJSON(w, http.StatusOK, report{Status: "ok", Probes: probes})
		return
	}
	var failing []string
	for name, res := range probes {
		if res != "ok" {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	c.log.Warn("health check failed", "probes", failing)
	httpx.WriteJSON(w, http.StatusServiceUnavailable, report{Status: "degraded", Probes: probes})
}

// Run serves the gRPC health service on addr.
func Run(addr string, c *Checker) (*grpc.Server, net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, c.grpc)
	go func() {
		if err := gs.Serve(lis); err != nil {
			c.log.Error("grpc health server stopped", "err", err)
		}
	}()
	return gs, lis.Addr(), nil
}
