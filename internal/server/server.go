package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/somagouache/gouache/internal/catalog"
	"github.com/somagouache/gouache/internal/config"
	"github.com/somagouache/gouache/internal/ledger"
	"github.com/somagouache/gouache/internal/observability"
	obsmiddleware "github.com/somagouache/gouache/internal/observability/logger"
	obsmetrics "github.com/somagouache/gouache/internal/observability/metrics"
	obstracing "github.com/somagouache/gouache/internal/observability/tracing"
	"github.com/somagouache/gouache/internal/payment"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/providers"
	"github.com/somagouache/gouache/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	catalog.Module,
	ledger.Module,
	providers.Module,
	ratelimit.Module,
	payment.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine        *gin.Engine
	cfg           config.Config
	intentSvc     paymentdomain.IntentService
	settlementSvc paymentdomain.SettlementService
	verifySvc     paymentdomain.VerificationService
	receiptSvc    paymentdomain.ReceiptService
	intentLimiter *ratelimit.IntentLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	IntentSvc     paymentdomain.IntentService
	SettlementSvc paymentdomain.SettlementService
	VerifySvc     paymentdomain.VerificationService
	ReceiptSvc    paymentdomain.ReceiptService
	IntentLimiter *ratelimit.IntentLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		intentSvc:     p.IntentSvc,
		settlementSvc: p.SettlementSvc,
		verifySvc:     p.VerifySvc,
		receiptSvc:    p.ReceiptSvc,
		intentLimiter: p.IntentLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payments --------
	payments := api.Group("/payments")
	payments.POST("/intents", s.IntentRateLimit(), s.CreatePaymentIntent)
	payments.POST("/webhook", s.HandlePaymentWebhook)
	payments.GET("/verify", s.VerifyPayment)
	payments.GET("/sales/:paymentIntentId/receipt", s.DownloadReceipt)
}
