package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/healthcoach/notification-service/internal/config"
	"github.com/healthcoach/notification-service/internal/database"
	"github.com/healthcoach/notification-service/internal/handlers"
	"github.com/healthcoach/notification-service/internal/repository"
	"github.com/healthcoach/notification-service/internal/scheduler"
	"github.com/healthcoach/notification-service/internal/services"
	"github.com/healthcoach/notification-service/pkg/logger"
	"github.com/healthcoach/notification-service/pkg/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Index bootstrap error: %v", err)
	}

	// --- Repositories ---
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Services ---
	notificationService := services.NewNotificationService(notificationRepo)

	// --- Handlers ---
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// User-facing notification routes
	protectedRoutes := router.PathPrefix("/notifications").Subrouter()
	protectedRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedRoutes.HandleFunc("", notificationHandler.ListNotificationsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/summary", notificationHandler.UnreadSummaryHandler).Methods("GET")
	protectedRoutes.HandleFunc("/stats", notificationHandler.StatsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/read-all", notificationHandler.MarkAllAsReadHandler).Methods("POST")
	protectedRoutes.HandleFunc("/bulk/read", notificationHandler.BulkMarkAsReadHandler).Methods("POST")
	protectedRoutes.HandleFunc("/bulk/delete", notificationHandler.BulkDeleteHandler).Methods("POST")
	protectedRoutes.HandleFunc("/read", notificationHandler.DeleteAllReadHandler).Methods("DELETE")
	protectedRoutes.HandleFunc("/{id}", notificationHandler.GetNotificationHandler).Methods("GET")
	protectedRoutes.HandleFunc("/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")
	protectedRoutes.HandleFunc("/{id}/read", notificationHandler.MarkAsReadHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/unread", notificationHandler.MarkAsUnreadHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/archive", notificationHandler.ArchiveHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/unarchive", notificationHandler.UnarchiveHandler).Methods("POST")

	// Internal/administrative routes: creation on behalf of users and the
	// on-demand expiry sweep.
	createLimiter := middleware.NewRateLimiter(rate.Limit(5), 10)
	adminRoutes := router.PathPrefix("/admin/notifications").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole("admin"))
	adminRoutes.Handle("", createLimiter.Limit(http.HandlerFunc(notificationHandler.CreateNotificationHandler))).Methods("POST")
	adminRoutes.HandleFunc("/sweep", notificationHandler.SweepExpiredHandler).Methods("POST")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Hourly expiry sweep in the background
	scheduler.StartSweeperCronJobs(notificationService)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
