package server

import (
	"context"
	"net/http"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/analysis"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/config"
	"github.com/SanchitCoder/PortIQ/internal/email"
	"github.com/SanchitCoder/PortIQ/internal/entitlement"
	"github.com/SanchitCoder/PortIQ/internal/events"
	"github.com/SanchitCoder/PortIQ/internal/payment"
	"github.com/SanchitCoder/PortIQ/internal/profile"
	"github.com/SanchitCoder/PortIQ/internal/subscription"
	"github.com/SanchitCoder/PortIQ/internal/usage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

// New wires repositories, services and handlers onto a gin router. A nil
// emailService disables notification emails.
func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service, publisher events.Publisher, verifier auth.TokenVerifier) *Server {
	configureBinding()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware(cfg.CORSOrigins))

	var (
		subNotifier     subscription.Notifier
		paymentNotifier payment.Notifier
		queue           Pinger
	)
	if emailService != nil {
		subNotifier = emailService
		paymentNotifier = emailService
		queue = emailService
	}

	subService := subscription.NewService(subscription.NewRepository(db))
	usageService := usage.NewService(usage.NewRepository(db))
	engine := entitlement.NewEngine(subService, usageService, entitlement.WithStrictExpiry(cfg.StrictExpiry))

	webhooks := analysis.NewWebhookClient(cfg.WebhookTimeout)
	analysisService := analysis.NewService(engine, webhooks, analysis.NewEndpoints(
		cfg.PortfolioWebhookURL,
		cfg.StockWebhookURL,
		cfg.EvaluatorWebhookURL,
	), publisher)

	subHandler := subscription.NewHandler(subService, subNotifier)
	entitlementHandler := entitlement.NewHandler(engine)
	analysisHandler := analysis.NewHandler(analysisService, cfg.FrontendURL+"/pricing")
	chatHandler := analysis.NewChatHandler(webhooks, cfg.ChatWebhookURL)
	profiles := profile.NewRepository(db)
	profileHandler := profile.NewHandler(profile.NewService(profiles), subService, engine)
	paymentHandler := payment.NewHandler(
		payment.NewService(subService, paymentNotifier, publisher, payment.WithRecipients(profiles)),
		payment.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Prices:        cfg.StripePrices,
			FrontendURL:   cfg.FrontendURL,
		}),
	)

	router.GET("/health", Health)
	router.GET("/ready", Ready(db, queue))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	router.GET("/plans", subHandler.ListPlans)
	router.POST("/webhooks/stripe", paymentHandler.StripeWebhook)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(verifier))
	{
		protected.GET("/me", profileHandler.GetMe)
		protected.PUT("/me", profileHandler.UpdateMe)

		protected.GET("/subscription", subHandler.GetMine)
		protected.POST("/subscription/cancel", subHandler.Cancel)

		protected.GET("/usage", entitlementHandler.GetUsage)
		protected.GET("/usage/:feature", entitlementHandler.GetFeatureUsage)

		protected.POST("/payments/razorpay/order", paymentHandler.CreateRazorpayOrder)
		protected.POST("/payments/razorpay/verify", paymentHandler.VerifyRazorpayPayment)
		protected.POST("/payments/stripe/checkout", paymentHandler.CreateStripeCheckout)
	}

	limited := protected.Group("/")
	limited.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		limited.POST("/analysis/stock", analysisHandler.AnalyzeStock)
		limited.POST("/analysis/portfolio", analysisHandler.AnalyzePortfolio)
		limited.POST("/analysis/evaluator", analysisHandler.EvaluatePosition)
		limited.POST("/chat", chatHandler.Chat)
	}

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// analysis webhooks may take up to the configured timeout
		WriteTimeout: s.config.WebhookTimeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
