package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-campus-library/internal/config"
	"github.com/ariefcatur/go-campus-library/internal/httpx"
	"github.com/ariefcatur/go-campus-library/internal/inbox"
	kafkax "github.com/ariefcatur/go-campus-library/internal/kafka"
	"github.com/ariefcatur/go-campus-library/internal/library"
	"github.com/ariefcatur/go-campus-library/internal/memstore"
	"github.com/ariefcatur/go-campus-library/internal/notify"
	"github.com/ariefcatur/go-campus-library/internal/obs"
	"github.com/ariefcatur/go-campus-library/internal/openlibrary"
	"github.com/ariefcatur/go-campus-library/internal/postgres"
	"github.com/ariefcatur/go-campus-library/internal/rabbitmq"
	"github.com/ariefcatur/go-campus-library/internal/redisx"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := obs.NewLogger(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		fatal(log, "tracer", err)
	}

	// Store
	var store library.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			fatal(log, "db connect", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			fatal(log, "db migrate", err)
		}
		store = postgres.NewStore(db)
	case config.StoreFile:
		s, err := memstore.OpenFile(cfg.StoreFile)
		if err != nil {
			fatal(log, "open store file", err)
		}
		store = s
	default:
		store = memstore.New()
	}

	// Redis is optional: without it reserve has no replay protection and
	// inline delivery relies on the inbox's unique event id.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	// Inbox reads are served here whatever the transport is.
	inboxRepo, closeInbox, err := openInbox(ctx, cfg)
	if err != nil {
		fatal(log, "inbox", err)
	}
	defer closeInbox()

	// Events
	var (
		publisher library.EventPublisher
		waitDrain func()
	)
	switch cfg.EventTransport {
	case config.TransportKafka:
		prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, 1024, log)
		prod.Start(ctx)
		publisher, waitDrain = prod, prod.WaitClosed
	case config.TransportRabbitMQ:
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.ServiceName)
		if err != nil {
			fatal(log, "rabbitmq", err)
		}
		defer pub.Close()
		publisher, waitDrain = pub, func() {}
	default:
		h := &notify.Handler{Emitter: notify.NewEmitter(inboxRepo, log), Log: log}
		if rdb != nil {
			h.Dedup = redisx.NewDedup(rdb, cfg.ServiceName)
		}
		d := notify.NewDispatcher(h, cfg.ServiceName, 1024, log)
		d.Start(ctx)
		publisher, waitDrain = d, d.WaitClosed
	}

	// Engine
	lookup := openlibrary.New(cfg.OpenLibraryURL)
	engine, err := library.NewEngine(store,
		library.WithPolicy(cfg.Policy()),
		library.WithPublisher(publisher),
		library.WithMetadataLookup(lookup),
		library.WithLogger(log),
	)
	if err != nil {
		fatal(log, "engine", err)
	}
	if cfg.SeedCatalog {
		n, err := engine.Seed(ctx, library.DefaultBooks())
		if err != nil {
			fatal(log, "seed catalog", err)
		}
		log.Info("catalog seeded", "books", n)
	}

	lh := &httpx.LibraryHandler{
		Engine:  engine,
		Catalog: library.NewCatalog(store.Catalog()),
		Lookup:  lookup,
		Log:     log,
	}
	if rdb != nil {
		lh.Idem = redisx.NewIdempotency(rdb)
	}
	router := httpx.NewRouter()
	httpx.Mount(router, cfg.JWTSecret, lh, &httpx.InboxHandler{Repo: inboxRepo, Log: log})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "transport", cfg.EventTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "listen", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()    // stop event loop
	waitDrain() // flush buffered events
	if err := shutdownTracer(ctx2); err != nil {
		log.Warn("tracer shutdown", "err", err)
	}
}

// openInbox picks the SQL inbox when a database is configured. The memory
// inbox only makes sense with inline delivery in the same process.
func openInbox(ctx context.Context, cfg config.Config) (inbox.Repository, func(), error) {
	dsn := cfg.InboxURL()
	if dsn == "" {
		return inbox.NewMemoryRepository(), func() {}, nil
	}
	repo, err := inbox.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
