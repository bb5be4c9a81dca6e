package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/gateway"
	"storefront-service/internal/notifier"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	discounts := service.NewDiscountEvaluator(nil)
	entitlementService := service.NewEntitlementService(db)
	cartService := service.NewCartService(db, redisClient)
	courseService := service.NewCourseService(db, entitlementService)

	newsletterRelay := notifier.NewNewsletterClient(cfg.Newsletter.APIKey, cfg.Newsletter.PublicationID, cfg.Newsletter.Endpoint)
	newsletterService := service.NewNewsletterService(db, newsletterRelay)

	// Without a gateway key the store still serves carts, courses and
	// entitlements; only checkout and verification degrade to 503.
	var checkoutService *service.CheckoutService
	var reconcileService *service.ReconcileService
	if cfg.Stripe.SecretKey != "" {
		stripeGateway := gateway.NewStripeGateway(cfg.Stripe.SecretKey)
		checkoutService = service.NewCheckoutService(stripeGateway, db, discounts, eventPublisher, cfg.Server.BaseURL)
		reconcileService = service.NewReconcileService(stripeGateway, db, eventPublisher)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	emailSender := notifier.NewClient(cfg.Email.APIKey, cfg.Email.From, cfg.Email.Endpoint)
	emailConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	emailWorker := worker.NewEmailWorker(emailConsumer, emailSender, cfg.Server.BaseURL)
	go func() {
		if err := emailWorker.Start(workerCtx); err != nil {
			log.Printf("Email worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		checkoutService,
		reconcileService,
		entitlementService,
		discounts,
		cartService,
		courseService,
		newsletterService,
		cfg.Stripe.WebhookSecret,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	emailWorker.Stop()

	log.Println("Server exited")
}
