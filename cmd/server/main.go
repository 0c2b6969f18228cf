package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tandem/config"
	mqcontracts "tandem/contracts/mq"
	"tandem/internal/api"
	"tandem/internal/assistant"
	"tandem/internal/identity"
	"tandem/internal/mqhandler"
	"tandem/internal/repository"
	"tandem/internal/service/community"
	"tandem/internal/service/goals"
	"tandem/internal/store"
	"tandem/pkg/db"
	"tandem/pkg/logger"
	"tandem/pkg/mq"
	"tandem/pkg/otel"
	"tandem/pkg/outbox"
	redisclient "tandem/pkg/redis"
	"tandem/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Env)
	defer log.Sync()
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName: cfg.OTel.ServiceName + "-api",
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
		SampleRatio: 1,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	// Redis is optional; a nil client falls back to in-process caches.
	rdb, err := redisclient.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	goalRepo := repository.NewGoalRepository(pool, outboxRepo, log)
	taskRepo := repository.NewTaskRepository(pool, outboxRepo, log)
	milestoneRepo := repository.NewMilestoneRepository(pool, outboxRepo, log)
	journalRepo := repository.NewJournalRepository(pool, outboxRepo, log)
	communityRepo := repository.NewCommunityRepository(pool, outboxRepo, log)
	postRepo := repository.NewPostRepository(pool, outboxRepo, log)
	profileRepo := repository.NewProfileRepository(pool, outboxRepo, log)

	goalStore := store.NewGoalStore(rdb, cfg.Cache.GoalsTTL, log)
	feedCache := store.NewJSONCache("feed", rdb, cfg.Cache.FeedTTL, log)

	goalService := goals.NewService(goalRepo, taskRepo, milestoneRepo, journalRepo, goalStore, log)
	communityService := community.NewService(communityRepo, postRepo, feedCache, log)
	hub := community.NewHub(log)
	identityService := identity.NewService(profileRepo, util.NewDeduper(rdb, 24*time.Hour, log), log)

	var responder assistant.Responder = assistant.NewScriptedResponder()
	if cfg.Assistant.Token != "" {
		responder = assistant.NewLLMResponder(cfg.Assistant, log)
	} else {
		log.Warn("No assistant token configured, chat uses the scripted dialogue")
	}
	chat := assistant.NewChat(responder, assistant.NewUserLimiter(cfg.Assistant.RatePerMin), cfg.Assistant.SystemPrompt, log)
	onboarding := assistant.NewOnboarding(assistant.NewSessionStore(rdb, log), log)

	// Every replica gets its own copy of post events: it drops its local
	// feed cache and wakes its SSE subscribers.
	feedHandler := mqhandler.NewFeedHandler(communityService, postRepo, log)
	feedConsumer, err := mq.NewEphemeralConsumer(cfg.MQ.URL, mqcontracts.RoutingPostChanged, log)
	if err != nil {
		log.Fatal("Failed to init feed consumer", zap.Error(err))
	}
	defer feedConsumer.Close()
	feedConsumer.SetHandler(func(ctx context.Context, raw json.RawMessage) error {
		if err := feedHandler.HandlePostChanged(ctx, raw); err != nil {
			log.Warn("Feed invalidation skipped", zap.Error(err))
		}
		return hub.HandlePostChanged(ctx, raw)
	})
	go func() {
		if err := feedConsumer.StartConsuming(); err != nil {
			log.Error("Feed consumer stopped", zap.Error(err))
		}
	}()

	router := api.NewRouter(api.Handlers{
		Goals:     api.NewGoalHandler(goalService),
		Community: api.NewCommunityHandler(communityService, hub),
		Assistant: api.NewAssistantHandler(onboarding, chat, goalService),
		Identity:  api.NewIdentityHandler(identityService),
		Admin:     api.NewAdminHandler(outbox.NewReplayService(outboxRepo, log), log),
	}, api.Options{
		Verifier:     identity.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		WebhookToken: cfg.Webhook.Token,
		Ready: map[string]api.ReadyCheck{
			"db": pool.Ping,
			"mq": func(context.Context) error {
				if !feedConsumer.IsConnected() {
					return errors.New("broker connection closed")
				}
				return nil
			},
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutting down")

	feedConsumer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
}
