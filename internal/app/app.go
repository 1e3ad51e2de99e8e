// Package app wires the storefront together from a Config: the storage
// backend, the three stores, the HTTP surface, and the optional event relay
// and change forwarding.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	cartapp "github.com/dmehra2102/shopflow/internal/cart/application"
	cartdomain "github.com/dmehra2102/shopflow/internal/cart/domain"
	carthttp "github.com/dmehra2102/shopflow/internal/cart/infrastructure/http"
	cartkv "github.com/dmehra2102/shopflow/internal/cart/infrastructure/kvstore"
	catalogapp "github.com/dmehra2102/shopflow/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/shopflow/internal/catalog/infrastructure/http"
	"github.com/dmehra2102/shopflow/internal/catalog/infrastructure/static"
	"github.com/dmehra2102/shopflow/internal/config"
	"github.com/dmehra2102/shopflow/internal/health"
	orderapp "github.com/dmehra2102/shopflow/internal/order/application"
	orderhttp "github.com/dmehra2102/shopflow/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/shopflow/internal/order/infrastructure/kafka"
	orderkv "github.com/dmehra2102/shopflow/internal/order/infrastructure/kvstore"
	orderpg "github.com/dmehra2102/shopflow/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/shopflow/pkg/httpx"
	"github.com/dmehra2102/shopflow/pkg/idempotency"
	"github.com/dmehra2102/shopflow/pkg/kv"
	"github.com/dmehra2102/shopflow/pkg/kv/pgkv"
	"github.com/dmehra2102/shopflow/pkg/kv/rediskv"
	"github.com/dmehra2102/shopflow/pkg/kv/sqlitekv"
	"github.com/dmehra2102/shopflow/pkg/latency"
	"github.com/dmehra2102/shopflow/pkg/notify"
	"github.com/dmehra2102/shopflow/pkg/outbox"
)

const (
	idempotencyTTL = 10 * time.Minute
	healthInterval = 10 * time.Second
	relayID        = "storefront-relay"
	probeKey       = "healthz"
)

type App struct {
	Config  config.Config
	Catalog *catalogapp.Service
	Cart    *cartapp.Service
	Orders  *orderapp.Service
	Health  *health.Checker

	log     *slog.Logger
	store   kv.Store
	pool    *pgxpool.Pool
	rdb     *redis.Client
	writer  *orderkafka.Writer
	relay   *outbox.Relay
	remote  *notify.Broadcaster[cartdomain.ChangeEvent]
	handler http.Handler
	closers []func() error
}

// New builds every component; nothing is started until Run.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, a.rdb.Close)
	}
	if cfg.StorageBackend == config.BackendPostgres {
		a.pool, err = pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			return nil, fmt.Errorf("pg connect: %w", err)
		}
		a.closers = append(a.closers, func() error { a.pool.Close(); return nil })
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = kv.WithNamespace(store, cfg.StoreNamespace)
	a.closers = append(a.closers, store.Close)

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	delay := latency.New(cfg.LatencyScale)

	a.Catalog = catalogapp.NewService(catalog, delay)
	a.Cart = cartapp.NewService(log, cartkv.NewRepository(a.store), catalog, delay)
	a.closers = append(a.closers, func() error { a.Cart.Close(); return nil })

	var opts []orderapp.Option
	if cfg.KafkaAddr != "" {
		sink, err := a.buildRelay(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orderapp.WithEvents(sink))
	}
	a.Orders = orderapp.NewService(log, orderkv.NewRepository(a.store), a.Cart, delay, opts...)

	var feed carthttp.ChangeFeed = a.Cart
	if cfg.CartEventsChannel != "" {
		fwd := notify.NewRedisForwarder(log, a.rdb, cfg.CartEventsChannel)
		a.Cart.Subscribe(func(ev cartdomain.ChangeEvent) { fwd.Forward(ev) })
		a.remote = notify.NewBroadcaster[cartdomain.ChangeEvent](log)
		a.closers = append(a.closers, func() error { a.remote.Close(); return nil })
		feed = a.remote
	}

	var idem idempotency.Store = idempotency.NewMemoryStore(idempotencyTTL)
	if a.rdb != nil {
		idem = idempotency.NewRedisStore(a.rdb, idempotencyTTL)
	}

	a.Health = health.NewChecker(log, a.probes())

	r := chi.NewRouter()
	r.Use(httpx.RequestID, middleware.RealIP, httpx.AccessLog(log), middleware.Recoverer)
	cataloghttp.NewHandler(log, a.Catalog).Register(r)
	carthttp.NewHandler(log, a.Cart, feed).Register(r)
	orderhttp.NewHandler(log, a.Orders, idem).Register(r)
	r.Method(http.MethodGet, "/healthz", a.Health)
	a.handler = r
	return a, nil
}

func (a *App) openStore(ctx context.Context) (kv.Store, error) {
	switch a.Config.StorageBackend {
	case config.BackendMemory:
		return kv.NewMemory(), nil
	case config.BackendSQLite:
		s, err := sqlitekv.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", a.Config.SQLitePath, err)
		}
		return s, nil
	case config.BackendRedis:
		return rediskv.New(a.rdb), nil
	case config.BackendPostgres:
		s := pgkv.New(a.log, a.pool)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate kv: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.Config.StorageBackend)
}

// buildRelay picks the durable outbox when Postgres is available and an
// in-process one otherwise.
func (a *App) buildRelay(ctx context.Context) (orderapp.EventSink, error) {
	var (
		sink  orderapp.EventSink
		store outbox.Store
	)
	if a.pool != nil {
		pg := orderpg.NewOutboxStore(a.log, a.pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate outbox: %w", err)
		}
		sink, store = pg, pg
	} else {
		mem := outbox.NewMemoryStore()
		sink, store = mem, mem
	}

	a.writer = orderkafka.NewWriter(a.log, strings.Split(a.Config.KafkaAddr, ","), orderkafka.WithCompression(kafka.Snappy))
	a.closers = append(a.closers, a.writer.Close)
	dispatch := outbox.NewDispatcher(a.log, a.writer, a.Config.OutboxTopic)
	a.relay = outbox.NewRelay(a.log, store, dispatch, relayID)
	return sink, nil
}

func (a *App) probes() map[string]health.Probe {
	probes := map[string]health.Probe{
		"store": func(ctx context.Context) error {
			_, err := a.store.Get(ctx, probeKey)
			if errors.Is(err, kv.ErrNotFound) {
				return nil
			}
			return err
		},
	}
	if a.rdb != nil {
		probes["redis"] = func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }
	}
	if a.pool != nil {
		probes["postgres"] = a.pool.Ping
	}
	return probes
}

func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP and gRPC health and runs the background workers until ctx
// is done, then drains the HTTP server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Health.Watch(ctx, healthInterval)

	if a.Config.GRPCAddr != "" {
		gs, addr, err := health.Run(a.Config.GRPCAddr, a.Health)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		defer gs.GracefulStop()
		a.log.Info("grpc health listening", "addr", addr.String())
	}

	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil {
				a.log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	if a.remote != nil {
		go func() {
			err := notify.Listen(ctx, a.log, a.rdb, a.Config.CartEventsChannel, a.remote.Publish)
			if err != nil {
				a.log.Error("cart events listener stopped", "err", err)
			}
		}()
	}

	// No WriteTimeout: /cart/events streams until the client leaves or ctx
	// ends, which BaseContext propagates to every request.
	srv := &http.Server{
		Addr:        a.Config.HTTPAddr,
		Handler:     a.handler,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: time.Minute,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http listening", "addr", a.Config.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadCatalog(path string) (*static.Catalog, error) {
	if path == "" {
		return static.Embedded()
	}
	c, err := static.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}
