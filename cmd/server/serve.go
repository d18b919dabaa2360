package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	actorstore "filegov/internal/actor/store"
	fileshandler "filegov/internal/files/handler"
	filesmetrics "filegov/internal/files/metrics"
	filesservice "filegov/internal/files/service"
	filestore "filegov/internal/files/store"
	govhandler "filegov/internal/governance/handler"
	govmetrics "filegov/internal/governance/metrics"
	govservice "filegov/internal/governance/service"
	govstore "filegov/internal/governance/store"
	jwttoken "filegov/internal/jwt_token"
	"filegov/internal/notification/dispatch"
	notifyhandler "filegov/internal/notification/handler"
	notifymetrics "filegov/internal/notification/metrics"
	notifyservice "filegov/internal/notification/service"
	notifystore "filegov/internal/notification/store"
	"filegov/internal/platform/config"
	"filegov/internal/platform/database"
	"filegov/internal/platform/health"
	"filegov/internal/platform/kafka/producer"
	"filegov/internal/platform/logger"
	"filegov/internal/platform/redis"
	"filegov/internal/platform/tracer"
	"filegov/internal/seeder"
	httptransport "filegov/internal/transport/http"
	"filegov/pkg/platform/middleware/request"
)

var (
	serveSeed    bool
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the notification dispatch worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.FromEnv())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Load the demo organisation before serving")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply migrations before serving (Postgres only)")
}

// actorStore is what the composition root needs from either actor store.
type actorStore interface {
	actorstore.Directory
	seeder.ActorStore
}

type fileStore interface {
	filesservice.FileStore
	filesservice.TrashStore
}

type notificationStore interface {
	notifyservice.Store
	dispatch.Outbox
}

// stores groups one backend's worth of stores and transaction runners.
type stores struct {
	actors        actorStore
	files         fileStore
	requests      govservice.RequestStore
	notifications notificationStore
	filesTx       filesservice.StoreTx
	govTx         govservice.StoreTx
}

func inMemoryStores(m *govmetrics.Metrics) stores {
	files := filestore.NewInMemory()
	requests := govstore.NewInMemory()
	return stores{
		actors:        actorstore.NewInMemory(),
		files:         files,
		requests:      requests,
		notifications: notifystore.NewInMemory(),
		filesTx:       filesservice.NewInMemoryTx(files),
		govTx:         govservice.NewInMemoryTx(requests, files, m),
	}
}

func postgresStores(pool *database.Pool) stores {
	db := pool.DB()
	return stores{
		actors:        actorstore.NewPostgres(db),
		files:         filestore.NewPostgres(db),
		requests:      govstore.NewPostgres(db),
		notifications: notifystore.NewPostgres(db),
		filesTx:       newFilesPostgresTx(db),
		govTx:         newGovernancePostgresTx(db),
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("initializing filegov",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"notify_transport", cfg.Notify.Transport,
	)

	healthHandler := health.New(cfg.Server.Environment)
	govMetrics := govmetrics.New()
	notifyMetrics := notifymetrics.New()

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	var st stores
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
		if serveMigrate {
			if err := database.Migrate(cfg.Database.URL, false, log); err != nil {
				return err
			}
		}
		prometheus.MustRegister(collectors.NewDBStatsCollector(pool.DB(), "filegov"))
		healthHandler.RegisterCheck("postgres", pool.Health)
		st = postgresStores(pool)
		log.Info("using postgres stores")
	} else {
		st = inMemoryStores(govMetrics)
		log.Info("DATABASE_URL not set, using in-memory stores")
	}

	if serveSeed {
		if err := seeder.New(st.actors, st.files, log).SeedAll(ctx); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	dispatcher, redisClient, closeTransport, err := buildDispatcher(ctx, cfg, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeTransport()

	directory := actorstore.NewCachedDirectory(st.actors, cfg.Actors.Size, cfg.Actors.TTL)

	notifySvc := notifyservice.New(st.notifications, directory,
		notifyservice.WithLogger(log),
		notifyservice.WithMetrics(notifyMetrics),
	)
	filesSvc := filesservice.New(st.files, st.files, st.filesTx, directory,
		filesservice.WithLogger(log),
		filesservice.WithMetrics(filesmetrics.New()),
		filesservice.WithDepartmentNamer(directory),
	)
	govSvc := govservice.New(st.requests, st.files, st.govTx, directory,
		govservice.WithLogger(log),
		govservice.WithMetrics(govMetrics),
		govservice.WithNotifier(notifySvc),
		govservice.WithDepartmentNamer(directory),
		govservice.WithTracer(tracer.NewOTel("filegov/governance")),
	)

	jwtService := jwttoken.NewJWTService(
		cfg.Server.JWTSigningKey,
		cfg.Server.JWTIssuer,
		cfg.Server.JWTAudience,
		cfg.Server.TokenTTL,
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Validator:      jwtService,
		Health:         healthHandler,
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        request.NewMetrics(),
		Protected: []httptransport.Registrar{
			fileshandler.New(filesSvc, log),
			govhandler.New(govSvc, log),
			notifyhandler.New(notifySvc, log),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	worker := dispatch.NewWorker(st.notifications, dispatcher,
		dispatch.WithBatchSize(cfg.Notify.BatchSize),
		dispatch.WithPollInterval(cfg.Notify.Interval),
		dispatch.WithDrainTimeout(cfg.Notify.DrainTimeout),
		dispatch.WithMetrics(notifyMetrics),
		dispatch.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Notify.MetricsPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := worker.UpdateMetrics(gctx); err != nil {
					log.Warn("failed to refresh outbox depth", "error", err)
				}
				if redisClient != nil {
					redisClient.RecordPoolStats()
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildDispatcher connects the configured transport and registers its
// health check. The returned close func is always safe to call.
func buildDispatcher(ctx context.Context, cfg config.Config, log *slog.Logger, h *health.Handler) (dispatch.Dispatcher, *redis.Client, func(), error) {
	switch cfg.Notify.Transport {
	case "kafka":
		prod, err := producer.New(cfg.Kafka, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := prod.EnsureTopic(ctx, cfg.Kafka.Topic, 3); err != nil {
			log.Warn("could not ensure notification topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		h.RegisterCheck("kafka", prod.Health)
		return dispatch.NewKafka(prod, cfg.Kafka.Topic), nil, func() { _ = prod.Close() }, nil
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		if client == nil {
			return nil, nil, nil, fmt.Errorf("NOTIFY_TRANSPORT=redis requires REDIS_URL")
		}
		h.RegisterCheck("redis", client.Health)
		return dispatch.NewRedis(client, cfg.Notify.RedisChannel), client, func() { _ = client.Close() }, nil
	case "log", "":
		return dispatch.NewLog(log), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.Notify.Transport)
	}
}
