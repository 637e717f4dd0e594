package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/schoolpay/backend/internal/config"
	"github.com/schoolpay/backend/internal/db"
	"github.com/schoolpay/backend/internal/gateway"
	"github.com/schoolpay/backend/internal/handlers"
	"github.com/schoolpay/backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, err := db.Connect(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect from MongoDB: %v", err)
		}
	}()
	log.Println("Connected to MongoDB")

	database := client.Database(cfg.DatabaseName)

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Printf("Failed to ensure indexes: %v", err)
	}
	cancel()

	gw := gateway.NewClient(cfg.GatewayURL, cfg.APIKey, cfg.PGSecret, cfg.CallbackURL)

	paymentService := services.NewPaymentService(database, gw)
	transactionsService := services.NewTransactionsService(database)
	userService := services.NewUserService(database, cfg.JWTSecret)

	scheduler := services.NewSchedulerService(paymentService)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start cleanup scheduler: %v", err)
	}
	defer scheduler.Stop()

	paymentHandler := handlers.NewPaymentHandler(paymentService, scheduler, cfg.JWTSecret, cfg.FrontendURL)
	transactionsHandler := handlers.NewTransactionsHandler(transactionsService, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userService)

	router := mux.NewRouter()

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"school-payments-api","status":"ok"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", userHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", userHandler.Login).Methods("POST")

	api.HandleFunc("/create-payment", paymentHandler.CreatePayment).Methods("POST")
	api.HandleFunc("/webhook", paymentHandler.Webhook).Methods("POST")
	api.HandleFunc("/payment-callback", paymentHandler.PaymentCallback).Methods("GET")
	api.HandleFunc("/payment-status/{collectRequestId}", paymentHandler.CheckPaymentStatus).Methods("GET")

	api.HandleFunc("/transactions", transactionsHandler.GetTransactions).Methods("GET")
	api.HandleFunc("/transactions/school/{schoolId}", transactionsHandler.GetTransactionsBySchool).Methods("GET")
	api.HandleFunc("/transaction-status/{customOrderId}", transactionsHandler.GetTransactionStatus).Methods("GET")
	api.HandleFunc("/schools", transactionsHandler.GetSchools).Methods("GET")

	api.HandleFunc("/cancel-abandoned-payments", paymentHandler.CancelAbandonedPayments).Methods("POST")
	api.HandleFunc("/cancel-payment/{customOrderId}", paymentHandler.CancelPayment).Methods("POST")
	api.HandleFunc("/force-cancel-abandoned", paymentHandler.ForceCancelAbandoned).Methods("POST")
	api.HandleFunc("/trigger-scheduler", paymentHandler.TriggerScheduler).Methods("POST")
	api.HandleFunc("/debug-pending-payments", paymentHandler.DebugPendingPayments).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
