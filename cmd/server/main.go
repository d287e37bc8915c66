package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"

	"alltech-shop/config"
	"alltech-shop/internal/auth"
	"alltech-shop/internal/gateway/handlers"
	"alltech-shop/internal/gateway/middleware"
	"alltech-shop/internal/models"
	"alltech-shop/internal/search"
	"alltech-shop/internal/services/inventory"
	"alltech-shop/internal/services/orders"
	"alltech-shop/internal/services/reports"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(logger.Config{
		Level:       logger.Level(cfg.Server.LogLevel),
		Format:      cfg.Server.LogFormat,
		Component:   "server",
		Environment: cfg.Server.Environment,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, verifier, profiles := buildFirebase(ctx, cfg, log)
	sc := buildSearch(cfg, log)
	sessions := buildSessions(cfg, log)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = "dev-secret-do-not-deploy"
	}
	issuer := auth.NewTokenIssuer(secret, cfg.Auth.SessionTTL)

	backend := reports.NewClient(cfg.Backend.BaseURL, log)
	gate := auth.NewGate(verifier, profiles, backend, sessions, issuer, cfg.Auth.SessionTTL, log)

	invSvc := inventory.NewService(st, sc, log)
	orderSvc := orders.NewService(st,
		invSvc.Writer(models.Screens), invSvc.Writer(models.Accessories), log)

	authHandler := handlers.NewAuthHTTPHandler(gate, log)
	invHandler := handlers.NewInventoryHTTPHandler(invSvc, log)
	orderHandler := handlers.NewOrdersHTTPHandler(orderSvc, log)
	searchHandler := handlers.NewSearchHTTPHandler(invSvc, issuer, cfg.Search.Limit, log)
	reportsHandler := handlers.NewReportsHTTPHandler(gate, backend, log)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.RateLimit(cfg.Server.RateLimit))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(issuer))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)
		protected.GET("/session/intro", authHandler.IntroState)
		protected.POST("/session/intro", authHandler.MarkIntroShown)

		protected.GET("/:kind/items", invHandler.ListItems)
		protected.POST("/:kind/items", invHandler.CreateItem)
		protected.GET("/:kind/items/feed", invHandler.FeedItems)
		protected.GET("/:kind/items/:id", invHandler.GetItem)
		protected.PUT("/:kind/items/:id", invHandler.UpdateItem)
		protected.DELETE("/:kind/items/:id", invHandler.DeleteItem)
		protected.POST("/:kind/items/:id/sell", orderHandler.SellItem)
		protected.GET("/:kind/search", searchHandler.Search)
		protected.GET("/:kind/customers", invHandler.Customers)

		protected.GET("/orders/saved", orderHandler.ListSaved)
		protected.POST("/orders/saved/:id/complete", orderHandler.CompleteSaved)
		protected.POST("/orders/saved/:id/refund", orderHandler.RefundSaved)

		admin := protected.Group("/reports")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/dashboard", reportsHandler.Dashboard)
			admin.GET("/detailed/:type", reportsHandler.Detailed)
		}
	}

	// Browsers cannot set an Authorization header on a websocket upgrade,
	// so the handler validates the gateway token itself, from a token
	// query parameter, before upgrading.
	router.GET("/ws/search/:kind", searchHandler.SearchSocket)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// buildFirebase wires the realtime store, token verifier and profile
// store. Without credentials everything falls back to in-memory
// implementations so the server still runs locally.
func buildFirebase(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Store, auth.Verifier, auth.ProfileStore) {
	if cfg.Firebase.CredentialsFile == "" {
		log.Warn("FIREBASE_CREDENTIALS_FILE not set, using in-memory store and a dev login")
		profiles := auth.NewMemoryProfiles()
		profiles.Put("dev-user", models.UserProfile{
			Email:       "dev@localhost",
			DisplayName: "Developer",
			Role:        models.RoleAdmin,
		})
		verifier := &auth.StaticVerifier{Tokens: map[string]string{"dev": "dev-user"}}
		return store.NewMemory(), verifier, profiles
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.Firebase.DatabaseURL,
		ProjectID:   cfg.Firebase.ProjectID,
	}, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		log.Fatal("failed to initialize firebase app", "error", err)
	}

	dbClient, err := app.Database(ctx)
	if err != nil {
		log.Fatal("failed to initialize realtime database client", "error", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatal("failed to initialize auth client", "error", err)
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatal("failed to initialize firestore client", "error", err)
	}

	st := store.NewFirebase(dbClient, cfg.Firebase.DatabaseURL, cfg.Firebase.StreamToken, log)
	return st, auth.NewFirebaseVerifier(authClient), auth.NewFirestoreProfiles(fsClient)
}

func buildSearch(cfg config.Config, log *logger.Logger) search.Client {
	if cfg.Meili.Host == "" {
		log.Warn("MEILI_HOST not set, using in-memory search index")
		return search.NewMemoryClient()
	}
	return search.NewMeili(cfg.Meili.Host, cfg.Meili.APIKey)
}

func buildSessions(cfg config.Config, log *logger.Logger) auth.SessionStore {
	if cfg.Redis.Host == "" {
		log.Warn("REDIS_HOST not set, using in-memory sessions")
		return auth.NewMemorySessions()
	}
	return auth.NewRedisSessions(config.NewRedisClient(cfg.Redis))
}
