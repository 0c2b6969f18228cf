package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tandem/config"
	mqcontracts "tandem/contracts/mq"
	"tandem/internal/mqhandler"
	"tandem/internal/repository"
	"tandem/internal/service/community"
	"tandem/internal/store"
	"tandem/pkg/db"
	"tandem/pkg/logger"
	"tandem/pkg/mq"
	"tandem/pkg/otel"
	"tandem/pkg/outbox"
	redisclient "tandem/pkg/redis"
	"tandem/pkg/util"
)

const (
	sentRetention = 7 * 24 * time.Hour
	purgeInterval = time.Hour
)

type consumerSpec struct {
	queue      string
	routingKey string
	handler    mq.MessageHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Env)
	defer log.Sync()
	log.Info("Starting worker...")

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName: cfg.OTel.ServiceName + "-worker",
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
		SampleRatio: 1,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	rdb, err := redisclient.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}
	retries := util.NewRetryCounter(rdb, time.Hour)

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// outbox -> broker
	outboxRepo := outbox.NewRepository(pool)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(ctx)
	go purgeSent(ctx, outboxRepo, log)

	goalRepo := repository.NewGoalRepository(pool, outboxRepo, log)
	communityRepo := repository.NewCommunityRepository(pool, outboxRepo, log)
	postRepo := repository.NewPostRepository(pool, outboxRepo, log)

	goalStore := store.NewGoalStore(rdb, cfg.Cache.GoalsTTL, log)
	feedCache := store.NewJSONCache("feed", rdb, cfg.Cache.FeedTTL, log)
	communityService := community.NewService(communityRepo, postRepo, feedCache, log)

	goalHandler := mqhandler.NewGoalEventsHandler(goalStore, goalRepo.ListByUser, log)
	feedHandler := mqhandler.NewFeedHandler(communityService, postRepo, log)

	specs := []consumerSpec{
		{"goal.created.cache.q", mqcontracts.RoutingGoalCreated, goalHandler.Handle},
		{"goal.changed.cache.q", mqcontracts.RoutingGoalChanged, goalHandler.Handle},
		{"goal.progress_changed.cache.q", mqcontracts.RoutingGoalProgressChanged, goalHandler.Handle},
		{"community.post_changed.feed.q", mqcontracts.RoutingPostChanged, feedHandler.HandlePostChanged},
		{"profile.upserted.feed.q", mqcontracts.RoutingProfileUpserted, feedHandler.HandleProfileChanged},
		{"profile.deleted.feed.q", mqcontracts.RoutingProfileDeleted, feedHandler.HandleProfileChanged},
	}

	var consumers []*mq.Consumer
	for _, s := range specs {
		if err := publisher.EnsureDLQ(s.routingKey); err != nil {
			log.Fatal("Failed to declare DLQ", zap.String("routing_key", s.routingKey), zap.Error(err))
		}
		c, err := mq.NewConsumer(cfg.MQ.URL, s.queue, s.routingKey, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("queue", s.queue), zap.Error(err))
		}
		guard := mqhandler.NewGuard(s.queue, s.routingKey, retries, publisher, log)
		c.SetHandler(guard.Wrap(s.handler))
		consumers = append(consumers, c)

		go func(c *mq.Consumer) {
			if err := c.StartConsuming(); err != nil {
				log.Error("Consumer failed", zap.String("queue", c.Queue()), zap.Error(err))
			}
		}(c)
	}
	log.Info("All consumers started, worker is ready to process messages", zap.Int("consumers", len(consumers)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutting down worker")

	cancel()
	for _, c := range consumers {
		c.Close()
	}
}

func purgeSent(ctx context.Context, repo *outbox.Repository, log *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeSent(ctx, sentRetention)
			if err != nil {
				log.Error("Failed to purge sent outbox events", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Purged sent outbox events", zap.Int64("count", n))
			}
		}
	}
}
