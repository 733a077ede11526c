package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uddoktahub/billing/internal/audit"
	auditdomain "github.com/uddoktahub/billing/internal/audit/domain"
	"github.com/uddoktahub/billing/internal/config"
	"github.com/uddoktahub/billing/internal/intake"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
	"github.com/uddoktahub/billing/internal/invoice"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	"github.com/uddoktahub/billing/internal/observability"
	obslogger "github.com/uddoktahub/billing/internal/observability/logger"
	obsmetrics "github.com/uddoktahub/billing/internal/observability/metrics"
	obstracing "github.com/uddoktahub/billing/internal/observability/tracing"
	"github.com/uddoktahub/billing/internal/payment"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	"github.com/uddoktahub/billing/internal/payment/webhook"
	"github.com/uddoktahub/billing/internal/ratelimit"
	"github.com/uddoktahub/billing/internal/user"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	audit.Module,
	intake.Module,
	invoice.Module,
	payment.Module,
	user.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	log    *zap.Logger
	cfg    config.Config

	intakeSvc  intakedomain.Service
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
	webhookSvc *webhook.Service
	userSvc    userdomain.Service
	auditSvc   auditdomain.Service

	publicLimiter *ratelimit.PublicLimiter

	intakeLimiter      *rateLimiter
	paymentLimiter     *rateLimiter
	invoiceViewLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Log *zap.Logger
	Cfg config.Config

	IntakeSvc  intakedomain.Service
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
	WebhookSvc *webhook.Service
	UserSvc    userdomain.Service
	AuditSvc   auditdomain.Service

	PublicLimiter *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		cfg:           p.Cfg,
		intakeSvc:     p.IntakeSvc,
		invoiceSvc:    p.InvoiceSvc,
		paymentSvc:    p.PaymentSvc,
		webhookSvc:    p.WebhookSvc,
		userSvc:       p.UserSvc,
		auditSvc:      p.AuditSvc,
		publicLimiter: p.PublicLimiter,

		intakeLimiter:      newRateLimiter(5, time.Minute),
		paymentLimiter:     newRateLimiter(10, time.Minute),
		invoiceViewLimiter: newRateLimiter(30, time.Minute),
	}

	svc.registerPublicRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/quotes", s.ListQuotes)
	public.GET("/quotes/:bracket", s.GetQuote)

	public.POST("/intakes", s.PublicIntakeRateLimit(), s.SubmitIntake)
	public.GET("/invoices/:token", s.PublicInvoiceRateLimit(), s.GetPublicInvoice)
	public.POST("/invoices/:token/payments", s.PublicPaymentRateLimit(), s.SubmitPublicPayment)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(s.OperatorRequired())

	admin.GET("/intakes", s.ListIntakes)
	admin.PATCH("/intakes/:id/status", s.SetIntakeStatus)
	admin.POST("/intakes/:id/promote", s.PromoteIntake)

	admin.POST("/invoices", s.CreateInvoice)
	admin.GET("/invoices", s.ListInvoices)
	admin.GET("/invoices/:id", s.GetInvoice)
	admin.PATCH("/invoices/:id", s.UpdateInvoice)
	admin.PATCH("/invoices/:id/status", s.SetInvoiceStatus)

	admin.GET("/payments", s.ListPayments)
	admin.GET("/payments/unmatched", s.ListUnmatchedPayments)
	admin.POST("/payments/unmatched/:id/resolve", s.ResolveUnmatchedPayment)
	admin.GET("/payments/:id", s.GetPayment)
	admin.POST("/payments/:id/approve", s.ApprovePayment)
	admin.POST("/payments/:id/reject", s.RejectPayment)

	admin.GET("/users/:email", s.GetUser)
	admin.PATCH("/users/:email/plan", s.SetUserPlan)

	admin.GET("/audit-logs", s.ListAuditLogs)
}
