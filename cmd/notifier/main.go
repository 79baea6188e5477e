package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-campus-library/internal/config"
	"github.com/ariefcatur/go-campus-library/internal/inbox"
	kafkax "github.com/ariefcatur/go-campus-library/internal/kafka"
	"github.com/ariefcatur/go-campus-library/internal/notify"
	"github.com/ariefcatur/go-campus-library/internal/obs"
	"github.com/ariefcatur/go-campus-library/internal/rabbitmq"
	"github.com/ariefcatur/go-campus-library/internal/redisx"
)

// notifier consumes lending events from Kafka or RabbitMQ and writes inbox
// entries. With EVENT_TRANSPORT=inline the API delivers them itself.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	service := cfg.ServiceName + "-notifier"
	log := obs.NewLogger(service, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dsn := cfg.InboxURL()
	if dsn == "" {
		fatal(log, "inbox", errNoInbox)
	}
	repo, err := inbox.Open(ctx, dsn)
	if err != nil {
		fatal(log, "inbox", err)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		fatal(log, "inbox migrate", err)
	}

	h := &notify.Handler{Emitter: notify.NewEmitter(repo, log), Log: log}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Dedup = redisx.NewDedup(rdb, service)
	}

	done := make(chan struct{})
	switch cfg.EventTransport {
	case config.TransportKafka:
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, cfg.NotifierWorkers, log)
		go func() {
			defer close(done)
			log.Info("notifier consuming", "transport", "kafka", "group", cfg.KafkaGroup, "topic", cfg.KafkaTopic, "workers", cfg.NotifierWorkers)
			if err := cons.Start(ctx, kafkax.EnvelopeHandler(h.Handle)); err != nil {
				log.Error("consumer exit", "err", err)
				cancel()
			}
		}()
	case config.TransportRabbitMQ:
		cons, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, service, cfg.NotifierWorkers*2, log)
		if err != nil {
			fatal(log, "rabbitmq", err)
		}
		defer cons.Close()
		go func() {
			defer close(done)
			log.Info("notifier consuming", "transport", "rabbitmq", "queue", cfg.RabbitQueue)
			if err := cons.Run(ctx, h.Handle); err != nil {
				log.Error("consumer exit", "err", err)
				cancel()
			}
		}()
	default:
		fatal(log, "transport", errInlineTransport)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
