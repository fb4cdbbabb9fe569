package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"

	"github.com/storefront-labs/storefront-gateway/internal/api"
	"github.com/storefront-labs/storefront-gateway/internal/authz"
	appconfig "github.com/storefront-labs/storefront-gateway/internal/config"
	"github.com/storefront-labs/storefront-gateway/internal/events"
	"github.com/storefront-labs/storefront-gateway/internal/order"
	"github.com/storefront-labs/storefront-gateway/internal/reconcile"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
	"github.com/storefront-labs/storefront-gateway/internal/telemetry"
)

func newLogger(cfg appconfig.Config) *log.Logger {
	prefix := ""
	if cfg.ServiceName != "" {
		prefix = fmt.Sprintf("[%s] ", cfg.ServiceName)
	}
	logger := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds)
	log.SetOutput(os.Stdout)
	log.SetFlags(logger.Flags())
	log.SetPrefix(prefix)
	return logger
}

func setupTelemetry(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			shutdown, err = telemetry.InitTracer(cfg.ServiceName, os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"))
			if err != nil {
				logger.Printf("WARNING: tracing disabled: %v", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown != nil {
				return shutdown(ctx)
			}
			return nil
		},
	})
}

func newSession(cfg appconfig.Config) storefront.Session {
	if cfg.Session.Token != "" {
		return &storefront.StaticSession{AccessToken: cfg.Session.Token}
	}
	return storefront.AnonymousSession{}
}

func newStorefrontClient(cfg appconfig.Config, sess storefront.Session) *storefront.Client {
	httpClient := &http.Client{
		Timeout:   cfg.Upstream.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return storefront.NewClient(cfg.Upstream.BaseURL, sess, httpClient)
}

// newKafkaProducer constructs a shared Kafka producer and binds its lifecycle to Fx.
func newKafkaProducer(cfg appconfig.Config, lc fx.Lifecycle) *events.Producer {
	prod := events.NewProducerWithBrokers(cfg.Kafka.Brokers)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return prod.Close()
		},
	})
	return prod
}

func newRefresher(cfg appconfig.Config, client *storefront.Client, logger *log.Logger) *order.Refresher {
	return order.NewRefresher(client, logger, cfg.Polling.OrdersInterval)
}

func newTracker(cfg appconfig.Config, client *storefront.Client, refresher *order.Refresher, logger *log.Logger) *reconcile.Tracker {
	return reconcile.NewTracker(client, refresher, logger, reconcile.Config{
		Interval:    cfg.Polling.PaymentInterval,
		MaxChecks:   cfg.Polling.PaymentMaxChecks,
		MaxDuration: cfg.Polling.PaymentMaxDuration,
	})
}

// registerOrderRefresher runs the background order cache loop for the life
// of the app.
func registerOrderRefresher(lc fx.Lifecycle, refresher *order.Refresher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			refresher.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			refresher.Stop()
			return nil
		},
	})
}

// registerEventBridge forwards terminal reconciliation results to Kafka.
// Pending observations stay internal; only concluded sessions are published.
func registerEventBridge(lc fx.Lifecycle, tracker *reconcile.Tracker, prod *events.Producer, cfg appconfig.Config, logger *log.Logger) {
	var unsubscribe func()
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ch, cancel := tracker.Subscribe(64)
			unsubscribe = cancel
			go func() {
				defer close(done)
				for evt := range ch {
					if !evt.Status.Terminal() {
						continue
					}
					res := events.PaymentResolution{
						TxRef:   evt.TxRef,
						Status:  string(evt.Status),
						Message: evt.Message,
						Checks:  evt.Checks,
					}
					if evt.Order != nil {
						res.OrderID = evt.Order.OrderID
					}
					ctx, cancelPublish := context.WithTimeout(context.Background(), 5*time.Second)
					if err := prod.PublishPaymentResolved(ctx, cfg.Kafka.PaymentsTopic, res); err != nil {
						logger.Printf("[%s] publish PaymentResolved tx_ref=%s: %v", cfg.Kafka.PaymentsTopic, evt.TxRef, err)
					}
					cancelPublish()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			if unsubscribe != nil {
				unsubscribe()
			}
			tracker.Close()
			<-done
			return nil
		},
	})
}

func registerWebServer(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger, shutdowner fx.Shutdowner, client *storefront.Client, tracker *reconcile.Tracker, refresher *order.Refresher, ac authz.Client) {
	httpServer := newWebServer(cfg.HTTP.Addr, client, tracker, refresher, ac)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Printf("Gateway API available on %s (backend %s)", cfg.HTTP.Addr, cfg.Upstream.BaseURL)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Printf("API server error: %v", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func newWebServer(addr string, client *storefront.Client, tracker *reconcile.Tracker, refresher *order.Refresher, ac authz.Client) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	api.RegisterPaymentsRoutes(mux, client, tracker)
	api.RegisterOrdersRoutes(mux, refresher, client.Session(), ac)
	api.RegisterStoreRoutes(mux, client, ac)
	api.RegisterCartRoutes(mux, client, ac)

	return &http.Server{
		Addr:    addr,
		Handler: withCORS(mux),
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simple permissive CORS for local testing
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Role")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			appconfig.Load,
			newLogger,
			newSession,
			newStorefrontClient,
			newKafkaProducer,
			newRefresher,
			newTracker,
			func() authz.Client { return authz.NewStaticClient() },
		),
		fx.Invoke(
			func(logger *log.Logger, cfg appconfig.Config) {
				logger.Printf("Starting %s...", cfg.ServiceName)
			},
			setupTelemetry,
			registerOrderRefresher,
			registerEventBridge,
			registerWebServer,
		),
	)

	app.Run()
}
