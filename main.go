package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"podoMarketAPI/handlers"
	"podoMarketAPI/internal/config"
	"podoMarketAPI/internal/notification"
	"podoMarketAPI/internal/payple"
	"podoMarketAPI/middleware"
	"podoMarketAPI/services"

	_ "net/http/pprof"
)

var (
	cfg                 *config.Config
	fsClient            *firestore.Client
	billingService      *services.BillingService
	paymentService      *services.PaymentService
	refundService       *services.RefundService
	trackingService     *services.TrackingService
	notificationService *services.NotificationService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var opt option.ClientOption
	if cfg.FirebaseCredentials != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("Failed to decode firebase credentials:", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	} else {
		opt = option.WithCredentialsFile(cfg.FirebaseKeyFile)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Fatal("Failed to initialize firebase app:", err)
	}

	fsClient, err = app.Firestore(ctx)
	if err != nil {
		log.Fatal("Failed to create Firestore client:", err)
	}
	log.Println("Successfully connected to Firestore")

	middleware.InitPrometheus()

	gateway := payple.NewClient(cfg.Payple, middleware.ObserveProviderCall)
	mailService := services.NewMailService(cfg.SMTP)
	receiptService := services.NewReceiptService(cfg.Receipt)

	billingService = services.NewBillingService(fsClient, gateway, mailService, cfg)
	paymentService = services.NewPaymentService(fsClient, gateway, receiptService)
	refundService = services.NewRefundService(fsClient, gateway, mailService)
	trackingService = services.NewTrackingService(fsClient, cfg.Tracker)
	notificationService = services.NewNotificationService(fsClient)

	fcmService, err := notification.NewFCMService(ctx, app)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}
}

func main() {
	defer func() {
		log.Println("Closing Firestore client...")
		fsClient.Close()
	}()

	billingHandler := handlers.NewBillingHandler(billingService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, billingService, cfg.ClientURI)
	refundHandler := handlers.NewRefundHandler(refundService)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	socialHandler := handlers.NewSocialHandler(notificationService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass, promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret, http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "podoMarket-api"}`))
	}).Methods("GET")

	// Gateway callbacks and carrier webhooks are public by necessity;
	// the rate limiter is all that fronts them.
	r.HandleFunc("/callbacks/payple/pass", paymentHandler.HandlePassCallback).Methods("POST")
	r.HandleFunc("/callbacks/payple/billing-key", paymentHandler.HandleBillingKeyCallback).Methods("POST")
	r.HandleFunc("/webhooks/delivery", trackingHandler.HandleDeliveryWebhook).Methods("POST")

	// Scheduler / change-event forwarder routes
	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(middleware.CronSecretMiddleware(cfg.CronSecret))
	internal.HandleFunc("/renewal-pass", billingHandler.RunRenewalPass).Methods("POST")
	internal.HandleFunc("/triggers/likes", socialHandler.HandleLikeChange).Methods("POST")
	internal.HandleFunc("/triggers/comments", socialHandler.HandleCommentChange).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	protected.HandleFunc("/subscription", billingHandler.GetSubscription).Methods("GET")
	protected.HandleFunc("/subscription/cancel", billingHandler.CancelSubscription).Methods("POST")
	protected.HandleFunc("/payments/stage", paymentHandler.StagePendingOrder).Methods("POST")
	protected.HandleFunc("/orders/refund", refundHandler.RefundOrder).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Cron-Secret", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		// The renewal pass responds only after every due record is
		// charged, so the write timeout has to cover a whole pass.
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
