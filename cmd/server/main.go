package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"effigy/internal/admin"
	"effigy/internal/audit"
	"effigy/internal/jwtauth"
	"effigy/internal/ledger"
	"effigy/internal/pause"
	"effigy/internal/platform/config"
	"effigy/internal/platform/httpserver"
	"effigy/internal/platform/logger"
	"effigy/internal/platform/metrics"
	platformredis "effigy/internal/platform/redis"
	"effigy/internal/platform/tracing"
	registryhandler "effigy/internal/registry/handler"
	"effigy/internal/registry/service"
	"effigy/internal/registry/store"
	"effigy/internal/rolestore"
	httptransport "effigy/internal/transport/http"
	id "effigy/pkg/domain"
	"effigy/pkg/secrets"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "effigy")
	if err != nil {
		log.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Halt flag: Redis when configured so that every instance observes the
	// same value, in-memory otherwise.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var flags pause.Store
	if redisClient != nil {
		defer redisClient.Close()
		flags = pause.NewRedis(redisClient.Client)
		log.Info("pause flag backed by redis")
	} else {
		flags = pause.NewInMemory()
		log.Info("pause flag in memory")
	}
	guard := ledger.PauseGuard(flags)

	// Persistence: Postgres when configured, otherwise everything in memory.
	var (
		metadata store.MetadataStore
		lgr      ledger.Ledger
		roles    rolestore.Store
		tx       service.Tx
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := applySchemas(ctx, db); err != nil {
			log.Error("schema apply failed", "error", err)
			os.Exit(1)
		}
		metadata = store.NewPostgres(db)
		lgr = ledger.NewPostgres(db, guard)
		roles = rolestore.NewPostgres(db)
		tx = newRegistryPostgresTx(db, flags, guard)
		log.Info("registry state backed by postgres")
	} else {
		memMetadata := store.NewInMemory()
		memLedger := ledger.NewInMemory(guard)
		metadata = memMetadata
		lgr = memLedger
		roles = rolestore.NewInMemory()
		tx = service.NewSerialTx(service.Stores{
			Metadata: memMetadata,
			Ledger:   memLedger,
			Flags:    flags,
		})
		log.Info("registry state in memory")
	}

	// The deployer starts with every role so a fresh deployment can mint and
	// delegate before any admin API call.
	if cfg.Deployer != "" {
		deployer, err := id.ParsePrincipalID(cfg.Deployer)
		if err != nil {
			log.Error("invalid deployer principal", "error", err)
			os.Exit(1)
		}
		for _, role := range []id.Role{id.RoleMinter, id.RolePauser, id.RoleAdmin} {
			if err := roles.Grant(ctx, role, deployer); err != nil {
				log.Error("deployer role grant failed", "role", string(role), "error", err)
				os.Exit(1)
			}
		}
		log.Info("deployer roles granted", "principal_id", deployer.String())
	}

	// Audit: events flow through a buffered inbox to keep sinks off the
	// request path. Kafka when brokers are configured, memory otherwise.
	var sink audit.Store = audit.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka audit sink failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events published to kafka", "topic", cfg.Kafka.Topic)
	}
	inbox := make(chan audit.Event, 256)
	worker := audit.NewWorker(sink, inbox)
	publisher := audit.NewChannelPublisher(inbox)

	m := metrics.New()
	if paused, err := flags.Get(ctx); err == nil {
		m.SetPaused(paused)
	}

	registry := service.New(tx, metadata, lgr, flags, roles,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
		service.WithBaseURI(cfg.BaseURI),
	)

	adminToken := cfg.AdminToken
	if adminToken == "" {
		adminToken, err = secrets.Generate()
		if err != nil {
			log.Error("admin token generation failed", "error", err)
			os.Exit(1)
		}
		// Logged once at boot; set EFFIGY_ADMIN_TOKEN to pin it.
		log.Warn("generated ephemeral admin token", "token", adminToken)
	}
	adminTokenHash, err := secrets.Hash(adminToken)
	if err != nil {
		log.Error("admin token hash failed", "error", err)
		os.Exit(1)
	}

	jwtValidator := jwtauth.New(cfg.JWTSigningKey, "effigy", "effigy-api")

	router := httptransport.NewRouter(
		registryhandler.New(registry, log, m, jwtValidator),
		admin.New(roles, log, publisher, adminTokenHash),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting effigy registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// applySchemas creates the registry tables when they do not exist yet.
func applySchemas(ctx context.Context, db *sql.DB) error {
	for _, schema := range []string{store.Schema(), ledger.Schema(), rolestore.Schema()} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}
