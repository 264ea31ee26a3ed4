package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/farellandr/payrecon/config"
	"github.com/farellandr/payrecon/internal/events"
	"github.com/farellandr/payrecon/internal/gateway"
	"github.com/farellandr/payrecon/internal/handlers"
	"github.com/farellandr/payrecon/internal/helpers"
	"github.com/farellandr/payrecon/internal/ledger"
	"github.com/farellandr/payrecon/internal/logger"
	"github.com/farellandr/payrecon/internal/middleware"
	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/payment"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Start(app *config.AppConfig, log *zap.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	authCfg, err := config.LoadAuthConfig()
	if err != nil {
		return fmt.Errorf("failed to load auth config: %v", err)
	}
	sslCfg, err := config.LoadGatewayConfig()
	if err != nil {
		return fmt.Errorf("failed to load gateway config: %v", err)
	}
	xndCfg, err := config.LoadXenditConfig()
	if err != nil {
		return fmt.Errorf("failed to load xendit config: %v", err)
	}
	kafkaCfg, err := config.LoadKafkaConfig()
	if err != nil {
		return fmt.Errorf("failed to load kafka config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	payments := repository.NewGormPaymentRepo(db)
	users := repository.NewGormUserRepo(db)
	funds := repository.NewGormFundRepo(db)

	opts := []payment.Option{payment.WithGatewayTimeout(app.GatewayTimeout)}

	if sslCfg.Enabled() {
		opts = append(opts, payment.WithGateway(models.PaymentMethodSSLCommerz, gateway.NewSSLCommerz(gateway.SSLCommerzConfig{
			BaseURL:         sslCfg.BaseURL,
			StoreID:         sslCfg.StoreID,
			StorePassword:   sslCfg.StorePassword,
			Currency:        sslCfg.Currency,
			CallbackBaseURL: app.PublicURL,
		}, &http.Client{Timeout: app.GatewayTimeout})))
	} else {
		log.Warn("SSLCommerz credentials missing, SSLCOMMERZ method disabled")
	}

	if xndCfg.Enabled() {
		client, err := config.InitXenditClient(xndCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize xendit client: %v", err)
		}
		opts = append(opts, payment.WithGateway(models.PaymentMethodXendit, gateway.NewXendit(client, gateway.XenditConfig{
			Currency:           xndCfg.Currency,
			SuccessRedirectURL: app.FrontendURL + "/payment-success.html",
			FailureRedirectURL: app.FrontendURL + "/payment-fail.html",
		})))
	}

	if kafkaCfg.Enabled() {
		producer := events.NewPaymentEventProducer(kafkaCfg.Brokers, kafkaCfg.Topic, log)
		defer producer.Close()
		opts = append(opts, payment.WithEventPublisher(producer))
	}

	engine := payment.NewEngine(payments, users, repository.NewTransactor(db), ledger.New(funds, users), log, opts...)

	signingKey := app.ReceiptSigningSecret
	if signingKey == "" {
		signingKey = authCfg.JWTSecret
	}
	callbackCfg := handlers.CallbackConfig{FrontendURL: app.FrontendURL}
	if sslCfg.VerifyIPN {
		callbackCfg.StorePassword = sslCfg.StorePassword
	}

	if app.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(log))

	setupRoutes(r, routes{
		payments:      handlers.NewPaymentHandler(engine, helpers.NewReceiptSigner(signingKey), log),
		callbacks:     handlers.NewCallbackHandler(engine, callbackCfg, log),
		jwtSecret:     []byte(authCfg.JWTSecret),
		xenditToken:   xndCfg.CallbackToken,
		callbackRate:  app.CallbackRatePerMin,
		callbackBurst: app.CallbackRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + app.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", app.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routes struct {
	payments      *handlers.PaymentHandler
	callbacks     *handlers.CallbackHandler
	jwtSecret     []byte
	xenditToken   string
	callbackRate  int
	callbackBurst int
}

func setupRoutes(r *gin.Engine, rt routes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/v1/payments")
	{
		ssl := public.Group("/ssl")
		ssl.Use(middleware.RateLimitMiddleware(rt.callbackRate, rt.callbackBurst))
		{
			ssl.POST("/success", rt.callbacks.SSLSuccess)
			ssl.POST("/fail", rt.callbacks.SSLFail)
			ssl.POST("/cancel", rt.callbacks.SSLCancel)
		}

		// server-to-server notifications arrive from a few gateway addresses and are
		// authenticated by verify_sign, so they bypass the per-IP limit
		public.POST("/ssl/ipn", rt.callbacks.SSLIPN)

		public.POST("/xendit/callback", middleware.XenditCallbackMiddleware(rt.xenditToken), rt.callbacks.XenditInvoice)
	}

	protected := r.Group("/v1/payments")
	protected.Use(middleware.JWTAuthMiddleware(rt.jwtSecret))
	{
		protected.POST("/initiate", rt.payments.Initiate)
		protected.GET("/invoice/:id", rt.payments.GetInvoice)
		protected.GET("/invoice/:id/qr", rt.payments.InvoiceQR)
		protected.GET("/my-payments", rt.payments.MyPayments)

		admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
		protected.GET("", admin, rt.payments.AllPayments)
		protected.POST("/receipts/verify", admin, rt.payments.VerifyReceipt)
	}
}
