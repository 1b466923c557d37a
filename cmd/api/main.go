package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firestoreapi "cloud.google.com/go/firestore/apiv1"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"carmarket/internal/adapter/api"
	"carmarket/internal/adapter/api/handler"
	apimiddleware "carmarket/internal/adapter/api/middleware"
	"carmarket/internal/adapter/api/router"
	"carmarket/internal/adapter/repository"
	domainrepo "carmarket/internal/domain/repository"
	"carmarket/internal/domain/service"
	"carmarket/internal/infrastructure/auth"
	"carmarket/internal/infrastructure/database"
	"carmarket/internal/infrastructure/pubsub"
	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/internal/infrastructure/websocket"
	"carmarket/internal/usecase"
	"carmarket/pkg/config"
	"carmarket/pkg/logger"
)

type stores struct {
	chats         domainrepo.ChatRepository
	listings      domainrepo.ListingRepository
	users         domainrepo.UserRepository
	notifications domainrepo.NotificationRepository
	alerts        domainrepo.PriceAlertRepository
	checks        map[string]handler.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var firebaseApp *fbapp.App
	var clientOpt option.ClientOption
	if cfg.NeedsFirebase() {
		clientOpt = firebaseCredentials(cfg)
		firebaseApp, err = fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, clientOpt)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}
	}

	var st stores
	if cfg.StoreDriver == config.StoreDriverFirestore {
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, clientOpt)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		st = stores{
			chats:         repository.NewFirestoreChatRepository(firestoreClient),
			listings:      repository.NewFirestoreListingRepository(firestoreClient),
			users:         repository.NewFirestoreUserRepository(firestoreClient),
			notifications: repository.NewFirestoreNotificationRepository(firestoreClient),
			alerts:        repository.NewFirestorePriceAlertRepository(firestoreClient),
			checks:        map[string]handler.Pinger{},
		}
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database: %v", err)
		}
		// the directory tables are owned elsewhere except in local sqlite setups
		if err := database.Migrate(db, cfg.StoreDriver == config.StoreDriverSQLite); err != nil {
			logger.Fatal("Failed to migrate database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("Failed to get database handle: %v", err)
		}
		defer sqlDB.Close()

		st = stores{
			chats:         repository.NewGormChatRepository(db),
			listings:      repository.NewGormListingRepository(db),
			users:         repository.NewGormUserRepository(db),
			notifications: repository.NewGormNotificationRepository(db),
			alerts:        repository.NewGormPriceAlertRepository(db),
			checks:        map[string]handler.Pinger{"database": sqlDB.PingContext},
		}
	}

	var identity service.IdentityProvider
	var issuer handler.TokenIssuer
	if cfg.AuthProvider == config.AuthProviderFirebase {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		provider := auth.NewFirebaseProvider(authClient, st.users)
		identity, issuer = provider, provider
	} else {
		provider := auth.NewJWTProvider(cfg.JWTSecret, 0, st.users)
		identity, issuer = provider, provider
	}

	wsManager := websocket.NewManager()
	var deliverer websocket.Deliverer = wsManager
	if cfg.RedisURL != "" {
		relay, err := pubsub.NewRelay(ctx, cfg.RedisURL, wsManager)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: %v", err)
		}
		defer relay.Close()
		go relay.Run(ctx)
		deliverer = relay
		logger.Info("Live events relayed through Redis")
	}

	rateLimiter := ratelimit.NewRateLimiter()
	go rateLimiter.StartCleanupRoutine(ctx.Done())

	notificationUseCase := usecase.NewNotificationUseCase(st.notifications, deliverer, cfg.NotificationListLimit)
	chatUseCase := usecase.NewChatUseCase(st.chats, st.listings, st.users, notificationUseCase, deliverer, rateLimiter, cfg.TypingTTL)
	priceAlertUseCase := usecase.NewPriceAlertUseCase(st.alerts, st.listings, notificationUseCase, rateLimiter)

	go priceAlertUseCase.StartSweepJob(ctx, cfg.PriceAlertInterval, 2*time.Second)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()

	httpLimiter := apimiddleware.NewRateLimiter(cfg.HTTPRateLimit)
	go httpLimiter.StartCleanupRoutine(ctx.Done())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(apimiddleware.RequestLogger())
	e.Use(apimiddleware.Metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(httpLimiter.RateLimitMiddleware())

	authMiddleware := apimiddleware.NewAuthMiddleware(identity)
	dispatcher := websocket.NewDispatcher(wsManager, chatUseCase)

	router.Setup(e, router.Handlers{
		Chat:         handler.NewChatHandler(chatUseCase),
		Notification: handler.NewNotificationHandler(notificationUseCase, cfg.NotificationListLimit),
		PriceAlert:   handler.NewPriceAlertHandler(priceAlertUseCase),
		WebSocket:    handler.NewWebSocketHandler(ctx, wsManager, dispatcher, authMiddleware, cfg.CORSOrigins, cfg.WSSendBuffer),
		Health:       handler.NewHealthHandler(wsManager, st.checks),
		DevToken:     handler.NewDevTokenHandler(issuer, st.users),
	}, authMiddleware, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wsManager.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// firebaseCredentials prefers inline JSON (production) over a key file
// (local development), and falls back to application default credentials.
func firebaseCredentials(cfg *config.Config) option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err != nil {
			logger.Fatal("Service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)
	}
	logger.Info("Using application default credentials for Firebase")
	return option.WithScopes(firestoreapi.DefaultAuthScopes()...)
}
