package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"neuroTrackAPI/handlers"
	"neuroTrackAPI/internal/notification"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/workers"
	"neuroTrackAPI/middleware"
	"neuroTrackAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	profileService      *services.ProfileService
	entryService        *services.EntryService
	goalService         *services.GoalService
	analysisService     *services.AnalysisService
	settingService      *services.SettingService
	dataService         *services.DataService
	dashboardService    *services.DashboardService
	reportService       *services.ReportService
	chatService         *services.ChatService
	friendService       *services.FriendService
	exportService       *services.ExportService
	notificationService *services.NotificationService
	aiService           *services.AIService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid APP_TIMEZONE %q: %v", tz, err)
		}
		tracker.Location = loc
	}
	log.Printf("Calendar days follow %s", tracker.Location)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}
	log.Println("Successfully connected to Postgres")

	if err := services.EnsureSchema(ctx, dbPool); err != nil {
		log.Fatal("Failed to apply schema:", err)
	}

	aiService, err = services.NewAIService(ctx, os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"), os.Getenv("GEMINI_PRO_MODEL"))
	if err != nil {
		log.Fatal("Failed to initialize AI service:", err)
	}

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	profileService = services.NewProfileService(dbPool)
	entryService = services.NewEntryService(dbPool)
	goalService = services.NewGoalService(dbPool, aiService)
	analysisService = services.NewAnalysisService(dbPool)
	settingService = services.NewSettingService(dbPool)
	dataService = services.NewDataService(dbPool, profileService, entryService, goalService, analysisService)
	dashboardService = services.NewDashboardService(dataService)
	reportService = services.NewReportService(dataService, settingService, analysisService, aiService, notificationService)
	chatService = services.NewChatService(dataService, aiService)
	friendService = services.NewFriendService(dbPool, entryService, goalService)
	exportService = services.NewExportService(dataService)

	fcmService, err = notification.NewFCMService(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	userHandler := handlers.NewUserHandler(userService)
	dataHandler := handlers.NewDataHandler(dataService, dashboardService, exportService)
	profileHandler := handlers.NewProfileHandler(profileService)
	entryHandler := handlers.NewEntryHandler(entryService)
	goalHandler := handlers.NewGoalHandler(goalService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService, reportService)
	chatHandler := handlers.NewChatHandler(chatService)
	settingHandler := handlers.NewSettingHandler(settingService)
	friendHandler := handlers.NewFriendHandler(friendService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors(bgCtx)
	cleanupDone := workers.StartAnalysisCleanupWorker(bgCtx, analysisService, time.Hour)

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "neurotrack-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetMe).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateMe).Methods("PUT")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")

	protected.HandleFunc("/data", dataHandler.GetData).Methods("GET")
	protected.HandleFunc("/data", dataHandler.SaveData).Methods("PUT")
	protected.HandleFunc("/data", dataHandler.ResetData).Methods("DELETE")
	protected.HandleFunc("/dashboard", dataHandler.GetDashboard).Methods("GET")
	protected.HandleFunc("/export", dataHandler.Export).Methods("GET")

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/entries", entryHandler.GetHistory).Methods("GET")
	protected.HandleFunc("/entries/{date}", entryHandler.GetEntry).Methods("GET")
	protected.HandleFunc("/entries/{date}", entryHandler.SaveEntry).Methods("PUT")
	protected.HandleFunc("/entries/{date}", entryHandler.DeleteEntry).Methods("DELETE")
	protected.HandleFunc("/entries/{date}/todos", entryHandler.AddTodo).Methods("POST")
	protected.HandleFunc("/entries/{date}/todos/{todoId}", entryHandler.ToggleTodo).Methods("PUT")
	protected.HandleFunc("/entries/{date}/todos/{todoId}", entryHandler.DeleteTodo).Methods("DELETE")
	protected.HandleFunc("/entries/{date}/journal", entryHandler.UpdateJournal).Methods("PUT")
	protected.HandleFunc("/entries/{date}/repeat", entryHandler.SetRepeatDaily).Methods("PUT")

	protected.HandleFunc("/missed", entryHandler.GetMissed).Methods("GET")
	protected.HandleFunc("/missed/{date}", entryHandler.ClearMissedDay).Methods("DELETE")
	protected.HandleFunc("/missed/{date}/{todoId}", entryHandler.DeleteMissedTodo).Methods("DELETE")

	protected.HandleFunc("/goals", goalHandler.ListGoals).Methods("GET")
	protected.HandleFunc("/goals", goalHandler.CreateGoal).Methods("POST")
	protected.HandleFunc("/goals", goalHandler.ReplaceGoals).Methods("PUT")
	protected.HandleFunc("/goals/plan", goalHandler.PlanGoal).Methods("POST")
	protected.HandleFunc("/goals/{goalId}", goalHandler.UpdateGoal).Methods("PUT")
	protected.HandleFunc("/goals/{goalId}", goalHandler.DeleteGoal).Methods("DELETE")
	protected.HandleFunc("/goals/{goalId}/complete", goalHandler.SetCompleted).Methods("PUT")
	protected.HandleFunc("/goals/{goalId}/milestones", goalHandler.AddMilestone).Methods("POST")
	protected.HandleFunc("/goals/{goalId}/milestones/{taskId}", goalHandler.ToggleMilestone).Methods("PUT")
	protected.HandleFunc("/goals/{goalId}/milestones/{taskId}", goalHandler.DeleteMilestone).Methods("DELETE")

	protected.HandleFunc("/analyses", analysisHandler.ListAnalyses).Methods("GET")
	protected.HandleFunc("/analyses/{id}/read", analysisHandler.MarkRead).Methods("PUT")
	protected.HandleFunc("/reports/check", analysisHandler.CheckReport).Methods("POST")
	protected.HandleFunc("/reports/generate", analysisHandler.GenerateReport).Methods("POST")

	protected.HandleFunc("/chat", chatHandler.SendMessage).Methods("POST")

	protected.HandleFunc("/settings/{key}", settingHandler.GetSetting).Methods("GET")
	protected.HandleFunc("/settings/{key}", settingHandler.SetSetting).Methods("PUT")

	protected.HandleFunc("/friends", friendHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/friends", friendHandler.AddFriend).Methods("POST")
	protected.HandleFunc("/friends", friendHandler.RemoveFriend).Methods("DELETE")
	protected.HandleFunc("/friends/invite", friendHandler.GetInviteCode).Methods("GET")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length", "Content-Disposition", "X-Export-Fallback"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	// Report generation can take most of a minute on the deep model.
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
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
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	stopBackground()
	<-cleanupDone
	notificationService.Stop()

	log.Println("Server shutdown complete")
}
