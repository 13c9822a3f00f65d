// HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wasla/internal/http/handlers"
	"wasla/internal/http/middleware"
	"wasla/internal/infra"
	"wasla/internal/modules/audit"
	"wasla/internal/modules/notification"
	"wasla/internal/modules/order"
	"wasla/internal/modules/push"
	"wasla/internal/modules/ticket"
	"wasla/internal/realtime"
)

type RouterDeps struct {
	Verifier          infra.TokenVerifier
	OrderService      *order.Service
	AuditService      *audit.Service
	TicketService     *ticket.Service
	NotificationStore notification.Store
	PushRegistry      *push.Registry
	Hub               *realtime.Hub
	Registry          *prometheus.Registry
	Log               *zap.Logger

	AuditRetentionDays int
	AuditSweepBatch    int
}

func NewRouter(d RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logging(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(middleware.Auth(d.Verifier))

	orderHandler := handlers.NewOrderHandler(d.OrderService)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/transition", orderHandler.Transition)

	auditHandler := handlers.NewAuditHandler(d.AuditService, d.AuditRetentionDays, d.AuditSweepBatch)
	api.GET("/audit-logs", middleware.RequireAdmin(), auditHandler.List)
	api.POST("/audit-logs/sweep", middleware.RequireAdmin(), auditHandler.Sweep)

	notificationHandler := handlers.NewNotificationHandler(d.NotificationStore)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	pushHandler := handlers.NewPushHandler(d.PushRegistry, d.AuditService)
	api.POST("/push/subscriptions", pushHandler.Subscribe)
	api.DELETE("/push/subscriptions", pushHandler.Unsubscribe)

	ticketHandler := handlers.NewTicketHandler(d.TicketService)
	api.POST("/tickets/:id/messages", ticketHandler.PostMessage)
	api.GET("/tickets/:id/messages", ticketHandler.Thread)

	streamHandler := handlers.NewStreamHandler(d.Hub, d.Log)
	api.GET("/stream", streamHandler.Stream)

	return r
}
