package server

import (
	"context"
	"net/http"
	"time"

	"agentsouk/internal/agent"
	"agentsouk/internal/auth"
	"agentsouk/internal/catalog"
	"agentsouk/internal/config"
	"agentsouk/internal/notify"
	"agentsouk/internal/payment"
	"agentsouk/internal/user"
	"agentsouk/internal/wallet"
	"agentsouk/internal/weather"
	"agentsouk/internal/webhook"

	_ "agentsouk/docs"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	notify *notify.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifyService *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLog())
	router.Use(HTTPMetrics())

	walletRepo := wallet.NewRepository(db)
	userRepo := user.NewRepository(db)

	userService := user.NewService(userRepo, notifyService, cfg.JWTSecret)
	userHandler := user.NewHandler(userService, walletRepo)

	catalogHandler := catalog.NewHandler()
	walletHandler := wallet.NewHandler(walletRepo)

	webhookClient := webhook.NewClient(cfg.AgentWebhookBaseURL, 90*time.Second)
	weatherClient := weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey)
	transcripts := agent.NewTranscriptStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))

	agentService := agent.NewService(
		agent.NewRunRepository(db),
		walletRepo,
		userRepo,
		webhookClient,
		weatherClient,
		transcripts,
		notifyService,
	)
	agentHandler := agent.NewHandler(agentService)

	paymentService := payment.NewService(
		payment.NewProcessor(cfg.PaymentAPIURL, cfg.PaymentAPIKey),
		walletRepo,
		userRepo,
		notifyService,
		cfg.CheckoutReturnURL,
	)
	paymentHandler := payment.NewHandler(paymentService)

	// One shared limiter across the user-facing groups. The processor
	// webhook, health check and metrics scrape stay outside it.
	limit := RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	public := router.Group("/auth")
	public.Use(limit)
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
		public.POST("/logout", userHandler.Logout)
		public.POST("/password-reset", userHandler.PasswordReset)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(limit, authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/agents", catalogHandler.ListAgents)
		protected.GET("/agents/tiers", catalogHandler.GetTiers)
		protected.GET("/agents/runs", agentHandler.History)
		protected.GET("/agents/:slug", catalogHandler.GetAgent)
		protected.POST("/agents/:slug/run", agentHandler.Run)
		protected.POST("/agents/incident-analyst/chat", agentHandler.Chat)
		protected.GET("/agents/incident-analyst/chat/:sid", agentHandler.Transcript)
		protected.POST("/agents/incident-analyst/report", agentHandler.Report)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.GET("/wallet/packages", walletHandler.ListPackages)
		protected.POST("/wallet/topup", paymentHandler.StartTopUp)
		protected.GET("/wallet/topup/verify", paymentHandler.Verify)
	}

	admin := router.Group("/admin")
	admin.Use(limit, authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/notify-queue", NotifyQueue(notifyService))
		admin.POST("/refunds", walletHandler.Refund)
	}

	// Processor callbacks authenticate via the shared API key exchange, not
	// user tokens. They are deliberately left unthrottled: the processor
	// retries undelivered events in bursts and a 429 would stall
	// reconciliation.
	router.POST("/payments/webhook", paymentHandler.Webhook)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		notify: notifyService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
