package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timeWalletAPI/handlers"
	"timeWalletAPI/internal/db"
	"timeWalletAPI/internal/push"
	"timeWalletAPI/middleware"
	"timeWalletAPI/services"
	"timeWalletAPI/utils"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	goalService         *services.GoalService
	walletService       *services.WalletService
	progressionService  *services.ProgressionService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
	reminderService     *services.ReminderService
	focusService        *services.FocusService
	notepadService      *services.NotepadService
	liveFeed            *services.LiveFeedManager
	fcmService          *push.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	utils.InitLogger()

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		utils.Sugar.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	utils.Sugar.Info("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		utils.Sugar.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		utils.Sugar.Fatalf("Failed to parse database URL: %v", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		utils.Sugar.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		utils.Sugar.Fatalf("Failed to ping database: %v", err)
	}
	utils.Sugar.Info("Successfully connected to Postgres")

	if err := db.RunMigrations(dbPool); err != nil {
		utils.Sugar.Fatalf("Failed to run migrations: %v", err)
	}

	liveFeed = services.NewLiveFeedManager()
	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	walletService = services.NewWalletService(dbPool)
	progressionService = services.NewProgressionService(dbPool, notificationService, liveFeed)
	challengeService = services.NewChallengeService(dbPool, progressionService, notificationService, liveFeed)
	goalService = services.NewGoalService(dbPool, progressionService, challengeService, notificationService, liveFeed)
	reminderService = services.NewReminderService(dbPool)
	focusService = services.NewFocusService(dbPool)
	notepadService = services.NewNotepadService(dbPool)

	fcmService, err = push.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		utils.Sugar.Warnf("Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		utils.Sugar.Info("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		utils.Sugar.Info("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	goalHandler := handlers.NewGoalHandler(goalService)
	walletHandler := handlers.NewWalletHandler(walletService)
	progressionHandler := handlers.NewProgressionHandler(progressionService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	focusHandler := handlers.NewFocusHandler(focusService)
	notepadHandler := handlers.NewNotepadHandler(notepadService)
	webhookHandler := handlers.NewWebhookHandler(userService)
	liveHandler := handlers.NewLiveHandler(liveFeed, userService)

	r := mux.NewRouter()

	// The websocket route skips the rate limiter; one long-lived connection
	// per client, authenticated inside the handler.
	r.HandleFunc("/api/v1/live", liveHandler.Connect)

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "timeWallet-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/users/profile", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/users/profile", userHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/goals", goalHandler.CreateGoal).Methods("POST")
	protected.HandleFunc("/goals", goalHandler.GetGoals).Methods("GET")
	protected.HandleFunc("/goals/categories", goalHandler.GetCategoryBreakdown).Methods("GET")
	protected.HandleFunc("/goals/{id}", goalHandler.GetGoal).Methods("GET")
	protected.HandleFunc("/goals/{id}", goalHandler.UpdateGoal).Methods("PUT")
	protected.HandleFunc("/goals/{id}", goalHandler.DeleteGoal).Methods("DELETE")
	protected.HandleFunc("/goals/{id}/tasks", goalHandler.AddTask).Methods("POST")
	protected.HandleFunc("/tasks/{id}/complete", goalHandler.CompleteTask).Methods("PUT")
	protected.HandleFunc("/tasks/{id}", goalHandler.DeleteTask).Methods("DELETE")

	protected.HandleFunc("/wallet", walletHandler.GetWallet).Methods("GET")
	protected.HandleFunc("/wallet/transactions", walletHandler.GetTransactions).Methods("GET")

	protected.HandleFunc("/streak", progressionHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/badges", progressionHandler.GetBadges).Methods("GET")

	protected.HandleFunc("/challenges", challengeHandler.GetCatalog).Methods("GET")
	protected.HandleFunc("/challenges/mine", challengeHandler.GetUserChallenges).Methods("GET")
	protected.HandleFunc("/challenges/{id}/join", challengeHandler.JoinChallenge).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	protected.HandleFunc("/reminders", reminderHandler.CreateReminder).Methods("POST")
	protected.HandleFunc("/reminders", reminderHandler.GetReminders).Methods("GET")
	protected.HandleFunc("/reminders/{id}/toggle", reminderHandler.ToggleReminder).Methods("PUT")
	protected.HandleFunc("/reminders/{id}", reminderHandler.DeleteReminder).Methods("DELETE")

	protected.HandleFunc("/focus/sessions", focusHandler.RecordSession).Methods("POST")
	protected.HandleFunc("/focus/sessions", focusHandler.GetSessions).Methods("GET")
	protected.HandleFunc("/focus/stats", focusHandler.GetDailyStats).Methods("GET")

	protected.HandleFunc("/notepad", notepadHandler.CreateEntry).Methods("POST")
	protected.HandleFunc("/notepad", notepadHandler.GetEntries).Methods("GET")
	protected.HandleFunc("/notepad/{id}", notepadHandler.UpdateEntry).Methods("PUT")
	protected.HandleFunc("/notepad/{id}", notepadHandler.DeleteEntry).Methods("DELETE")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		utils.Sugar.Infof("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Sugar.Fatalf("Error starting server: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	utils.Sugar.Infof("Got signal: %v", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Sugar.Errorf("Server shutdown error: %v", err)
	}

	utils.Sugar.Info("Server shutdown complete")
}
