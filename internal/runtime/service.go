package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/drblury/analyticsbase/internal/dispatch"
	configpkg "github.com/drblury/analyticsbase/internal/runtime/config"
	errspkg "github.com/drblury/analyticsbase/internal/runtime/errors"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	transportpkg "github.com/drblury/analyticsbase/internal/runtime/transport"
	"github.com/drblury/analyticsbase/transport"
)

const (
	tracerName        = "github.com/drblury/analyticsbase/internal/runtime"
	readHeaderTimeout = 10 * time.Second
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

var listen = net.Listen

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to use the defaults derived from the configuration.
type ServiceDependencies struct {
	// Store replaces the backend selected by the configuration. The caller
	// keeps ownership and closes it.
	Store Store
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	// Hooks are merged into both dispatchers after logging and metrics hooks.
	Hooks                     dispatch.Hooks
	Middlewares               []MiddlewareRegistration // Appended after the default broker middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default broker middleware chain when true.
	TransportFactory          transportpkg.Factory
}

// Service serves the HTTP API and, when a pubsub system is configured,
// consumes envelopes from the broker. Both paths share one store.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	store      Store
	ownsStore  bool
	metrics    *Metrics
	handler    http.Handler
	httpServer *http.Server

	httpDispatcher   *dispatch.Dispatcher
	brokerDispatcher *dispatch.Dispatcher
	tracerProvider   trace.TracerProvider

	transport     transport.Transport
	capabilities  transport.Capabilities
	router        *message.Router
	routerStarted atomic.Bool

	started atomic.Bool

	addrMu sync.Mutex
	addr   net.Addr
	ready  chan struct{}
}

// NewService constructs a Service for the supplied configuration. Nothing
// listens or consumes until Start is called.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.ConfigValidationError{Err: err}
	}
	log.Info("Creating analytics service", loggingpkg.LogFields{"config": conf})

	s := &Service{
		Conf:           conf,
		Logger:         log,
		store:          deps.Store,
		tracerProvider: deps.TracerProvider,
		ready:          make(chan struct{}),
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if s.store == nil {
		st, err := OpenStore(conf)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", conf.Storage, err)
		}
		s.store = st
		s.ownsStore = true
	}
	if conf.MetricsEnabled {
		s.metrics = NewMetrics()
	}

	s.httpDispatcher = s.newDispatcher(SourceHTTP, deps.Hooks)
	s.handler = s.routes()

	if conf.BrokerEnabled() {
		if err := s.setupBroker(ctx, deps); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) newDispatcher(source string, extra dispatch.Hooks) *dispatch.Dispatcher {
	hooks := dispatch.LoggingHooks(s.Logger.With(loggingpkg.LogFields{"source": source}))
	if s.metrics != nil {
		hooks = hooks.Merge(s.metrics.Hooks(source))
	}
	return dispatch.New(s.store,
		dispatch.WithHooks(hooks.Merge(extra)),
		dispatch.WithTracerProvider(s.tracerProvider),
	)
}

func (s *Service) setupBroker(ctx context.Context, deps ServiceDependencies) error {
	wmLogger := loggingpkg.NewWatermillAdapter(s.Logger)

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	t, err := factory.Build(ctx, s.Conf, wmLogger)
	if err != nil {
		return err
	}
	s.transport = t
	s.capabilities = factory.Capabilities(s.Conf.PubSubSystem)
	if !s.capabilities.SupportsAck {
		s.Logger.Info("Broker does not redeliver unacknowledged messages", loggingpkg.LogFields{
			"pubsub_system": s.Conf.PubSubSystem,
		})
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: s.Conf.ShutdownTimeout}, wmLogger)
	if err != nil {
		return err
	}
	s.router = router
	s.brokerDispatcher = s.newDispatcher(SourceBroker, deps.Hooks)

	if err := s.registerMiddlewares(deps); err != nil {
		return err
	}
	s.addIngestHandler()
	return nil
}

// Handler returns the HTTP API handler.
func (s *Service) Handler() http.Handler { return s.handler }

// Dispatcher returns the dispatcher used for HTTP requests.
func (s *Service) Dispatcher() *dispatch.Dispatcher { return s.httpDispatcher }

// Store returns the backend messages are written to.
func (s *Service) Store() Store { return s.store }

// Metrics returns the service metrics, or nil when metrics are disabled.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Ready is closed once the HTTP listener is bound.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound HTTP address, or nil before Start listened.
func (s *Service) Addr() net.Addr {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Start serves HTTP and runs the broker router until ctx is cancelled, then
// shuts the HTTP server down gracefully within the shutdown timeout. A
// service runs at most once; later calls return ErrAlreadyStarted.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errspkg.ErrAlreadyStarted
	}
	ln, err := listen("tcp", s.Conf.ListenAddr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("listen on %s: %w", s.Conf.ListenAddr, err)
	}
	s.addrMu.Lock()
	s.addr = ln.Addr()
	s.addrMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": ln.Addr().String()})
	close(s.ready)

	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Conf.ShutdownTimeout)
		defer cancel()
		s.Logger.Info("Shutting down HTTP server", nil)
		return s.httpServer.Shutdown(shutdownCtx)
	})

	if s.router != nil {
		s.routerStarted.Store(true)
		g.Go(func() error {
			return routerRun(s.router, gctx)
		})
		if s.transport.Start != nil {
			g.Go(func() error {
				select {
				case <-s.router.Running():
					return s.transport.Start()
				case <-gctx.Done():
					return nil
				}
			})
		}
	}

	return g.Wait()
}

// Close releases the router, the broker connections and the store if the
// service opened it. A router that never ran holds no subscriptions and is
// not closed.
func (s *Service) Close() error {
	var errs []error
	if s.router != nil && s.routerStarted.Load() {
		errs = append(errs, s.router.Close())
	}
	errs = append(errs, s.transport.Close())
	if s.ownsStore && s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
