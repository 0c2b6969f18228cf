package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tandem/internal/identity"
	"tandem/pkg/otel"
	"tandem/pkg/rbac"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Handlers struct {
	Goals     *GoalHandler
	Community *CommunityHandler
	Assistant *AssistantHandler
	Identity  *IdentityHandler
	Admin     *AdminHandler
}

type Options struct {
	Verifier     *identity.Verifier
	WebhookToken string
	Ready        map[string]ReadyCheck
	Logger       *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogger(opts.Logger))

	healthy := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/healthz", healthy)
	r.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", healthy)
	r.GET("/readyz", readiness(opts.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhooks/identity", WebhookTokenMiddleware(opts.WebhookToken), h.Identity.Webhook)

	auth := r.Group("/")
	auth.Use(AuthMiddleware(opts.Verifier))
	{
		auth.GET("/me", h.Identity.Me)
		auth.GET("/dashboard", h.Goals.Dashboard)

		auth.GET("/goals", h.Goals.ListGoals)
		auth.GET("/goals/:id", h.Goals.GetGoal)
		auth.GET("/tasks", h.Goals.ListTasks)
		auth.GET("/reflections", h.Goals.ListReflections)

		write := auth.Group("/", RequirePermission(rbac.PermissionGoalWrite))
		write.POST("/goals", h.Goals.CreateGoal)
		write.PATCH("/goals/:id", h.Goals.UpdateGoal)
		write.DELETE("/goals/:id", h.Goals.DeleteGoal)
		write.POST("/goals/:id/milestones", h.Goals.CreateMilestone)
		write.POST("/goals/:id/reflections", h.Goals.AddReflection)
		write.POST("/goals/:id/resources", h.Goals.AddResource)
		write.POST("/tasks", h.Goals.CreateTask)
		write.POST("/tasks/:id/toggle", h.Goals.ToggleTask)
		write.DELETE("/tasks/:id", h.Goals.DeleteTask)
		write.POST("/milestones/:id/toggle", h.Goals.ToggleMilestone)
		write.DELETE("/milestones/:id", h.Goals.DeleteMilestone)
		write.POST("/reflections", h.Goals.AddReflection)
		write.DELETE("/reflections/:id", h.Goals.DeleteReflection)
		write.DELETE("/resources/:id", h.Goals.DeleteResource)

		auth.GET("/communities", h.Community.ListCommunities)
		auth.POST("/communities", RequirePermission(rbac.PermissionCommunityAdmin), h.Community.CreateCommunity)
		auth.GET("/communities/:id", h.Community.GetCommunity)
		auth.POST("/communities/:id/join", h.Community.Join)
		auth.DELETE("/communities/:id/join", h.Community.Leave)
		auth.GET("/communities/:id/posts", h.Community.ListPosts)
		auth.POST("/communities/:id/posts", RequirePermission(rbac.PermissionPostCreate), h.Community.CreatePost)
		auth.GET("/communities/:id/events", h.Community.Events)
		auth.DELETE("/posts/:id", h.Community.DeletePost)
		auth.POST("/posts/:id/like", h.Community.LikePost)
		auth.DELETE("/posts/:id/like", h.Community.UnlikePost)
		auth.GET("/posts/:id/comments", h.Community.ListComments)
		auth.POST("/posts/:id/comments", h.Community.AddComment)

		chat := auth.Group("/", RequirePermission(rbac.PermissionAssistantChat))
		chat.GET("/onboarding", h.Assistant.CurrentStep)
		chat.POST("/onboarding/messages", h.Assistant.SendMessage)
		chat.POST("/onboarding/complete", h.Assistant.Complete)
		chat.DELETE("/onboarding", h.Assistant.Reset)
		chat.POST("/assistant/chat", h.Assistant.Chat)

		admin := auth.Group("/admin", RequirePermission(rbac.PermissionOutboxReplay))
		admin.POST("/outbox/:id/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

func readiness(checks map[string]ReadyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
