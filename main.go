package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sitepulse/api/database"
	"sitepulse/api/handlers"
	"sitepulse/api/logger"
	"sitepulse/api/middleware"
	"sitepulse/api/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	zlog, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL: system of record for sessions, page views, events ---
	dbClient, err := database.NewPostgresDB(zlog)
	if err != nil {
		zlog.Fatal("failed to initialize PostgreSQL", "err", err)
	}
	defer dbClient.Close()

	// --- ClickHouse: optional append-only event archive for rollups ---
	var archive *store.EventArchive
	if os.Getenv("CLICKHOUSE_HOST") != "" {
		chClient, err := database.NewClickHouseDB(zlog)
		if err != nil {
			zlog.Fatal("failed to initialize ClickHouse", "err", err)
		}
		defer chClient.Close()
		archive = store.NewEventArchive(chClient, zlog)
	} else {
		zlog.Warn("CLICKHOUSE_HOST not set, event archive disabled")
	}

	// --- Redis: optional hot-session leaderboard ---
	var hot *store.HotStore
	if os.Getenv("REDIS_ADDR") != "" {
		rdb, err := database.NewRedisClient(zlog)
		if err != nil {
			zlog.Fatal("failed to initialize Redis", "err", err)
		}
		defer rdb.Close()
		hot = store.NewHotStore(rdb, zlog)
	} else {
		zlog.Warn("REDIS_ADDR not set, hot-session leaderboard disabled")
	}

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB, zlog)
	sessionStore := store.NewSessionStore(dbClient.DB, hot, zlog)
	pageViewStore := store.NewPageViewStore(dbClient.DB, sessionStore, zlog)
	eventStore := store.NewEventStore(dbClient.DB, sessionStore, archive, zlog)
	analyticsStore := store.NewAnalyticsStore(dbClient.DB, zlog)

	// --- Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore, zlog)
	trackHandlers := handlers.NewTrackHandlers(sessionStore, pageViewStore, eventStore, zlog)
	sessionHandlers := handlers.NewSessionHandlers(sessionStore, eventStore, hot, zlog)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analyticsStore, archive, zlog)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Authentication endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Beacon endpoints: the tracking script authenticates with its
		// session token, not a JWT.
		track := api.Group("/track")
		{
			track.POST("/session", trackHandlers.StartSession)
			track.POST("/session/end", trackHandlers.EndSession)
			track.POST("/pageview", trackHandlers.OpenPageView)
			track.POST("/pageview/engagement", trackHandlers.UpdateEngagement)
			track.POST("/pageview/exit", trackHandlers.ExitPageView)
			track.POST("/event", trackHandlers.RecordEvent)
			track.POST("/form-completed", trackHandlers.MarkFormCompleted)
		}

		// Protected routes (require a valid JWT token)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(zlog))
		{
			protected.GET("/profile", func(c *gin.Context) {
				userID := c.MustGet("user_id").(int)
				userEmail := c.MustGet("user_email").(string)

				c.JSON(http.StatusOK, gin.H{
					"user_id":    userID,
					"user_email": userEmail,
					"ip_address": c.ClientIP(),
				})
			})

			protected.GET("/hot-sessions", sessionHandlers.HotSessions)

			sessions := protected.Group("/sessions")
			{
				sessions.GET("/:uuid", sessionHandlers.GetSession)
				sessions.POST("/:uuid/lead", sessionHandlers.LinkLead)
			}

			stats := protected.Group("/stats")
			{
				stats.GET("/overview", analyticsHandlers.Overview)
				stats.GET("/traffic-sources", analyticsHandlers.TrafficSources)
				stats.GET("/intent-distribution", analyticsHandlers.IntentDistribution)
				stats.GET("/daily", analyticsHandlers.DailySeries)
				stats.GET("/event-counts", analyticsHandlers.EventCountsOverTime)
				stats.GET("/top-paths", analyticsHandlers.TopPaths)
			}
		}
	}

	// Idle sweep: flips active sessions to idle once they pass the
	// inactivity window. Session end stays an explicit client beacon.
	sweepStop := make(chan struct{})
	go func() {
		interval := envSeconds("IDLE_SWEEP_INTERVAL_SECONDS", 60)
		window := envSeconds("IDLE_AFTER_SECONDS", 1800)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := sessionStore.MarkStaleIdle(ctx, window)
				cancel()
				if err != nil {
					zlog.Error("idle sweep failed", "err", err)
				} else if n > 0 {
					zlog.Debug("idle sweep", "sessions", n)
				}
			case <-sweepStop:
				return
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		zlog.Info("API server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("API server failed to start", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")
	close(sweepStop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", "err", err)
	}

	zlog.Info("server exiting")
}

func envSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
