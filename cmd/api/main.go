package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"swapmarket/internal/adapter/api"
	"swapmarket/internal/adapter/api/handler"
	apimiddleware "swapmarket/internal/adapter/api/middleware"
	"swapmarket/internal/adapter/api/router"
	"swapmarket/internal/adapter/repository"
	domainrepo "swapmarket/internal/domain/repository"
	"swapmarket/internal/infrastructure/firebase"
	"swapmarket/internal/infrastructure/ratelimit"
	"swapmarket/internal/infrastructure/websocket"
	"swapmarket/internal/usecase"
	"swapmarket/pkg/config"
)

type repositories struct {
	offers   domainrepo.OfferRepository
	messages domainrepo.MessageRepository
	products domainrepo.ProductRepository
	users    domainrepo.UserRepository
	reviews  domainrepo.ReviewRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos repositories
	var verifier apimiddleware.TokenVerifier

	switch cfg.StorageDriver {
	case "firestore":
		opt := firebaseCredentials()

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		repos = repositories{
			offers:   repository.NewFirestoreOfferRepository(firestoreClient),
			messages: repository.NewFirestoreMessageRepository(firestoreClient),
			products: repository.NewFirestoreProductRepository(firestoreClient),
			users:    repository.NewFirestoreUserRepository(firestoreClient),
			reviews:  repository.NewFirestoreReviewRepository(firestoreClient),
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)

	case "memory":
		if cfg.Environment == "production" {
			log.Fatalf("The memory storage driver is not allowed in production")
		}

		store := repository.NewMemoryStore()
		seedDemoData(store)

		repos = repositories{
			offers:   repository.NewMemoryOfferRepository(store),
			messages: repository.NewMemoryMessageRepository(store),
			products: repository.NewMemoryProductRepository(store),
			users:    repository.NewMemoryUserRepository(store),
			reviews:  repository.NewMemoryReviewRepository(store),
		}
		verifier = firebase.NewDevTokenVerifier()
		log.Printf("Using in-memory storage with development tokens (Bearer %s<uid>)", firebase.DevTokenPrefix)
	}

	wsManager := websocket.NewManager(cfg.PollInterval)
	wsManager.Start(ctx)

	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(ctx)

	offerUseCase := usecase.NewOfferUseCase(repos.offers, repos.products, repos.users, wsManager)
	aggregatorUseCase := usecase.NewOfferAggregatorUseCase(repos.offers, repos.products, repos.users, usecase.AggregatorConfig{
		Concurrency:      cfg.AggregatorConcurrency,
		UserCacheSize:    cfg.UserCacheSize,
		UserCacheTTL:     cfg.UserCacheTTL,
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})
	chatUseCase := usecase.NewChatUseCase(repos.offers, repos.messages, limiter, wsManager)
	reviewUseCase := usecase.NewReviewUseCase(repos.reviews, repos.offers, repos.users, aggregatorUseCase)

	wsManager.SetSources(aggregatorUseCase, chatUseCase)

	handler.Setup(offerUseCase, aggregatorUseCase, reviewUseCase, cfg.StorageDriver)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware(repos.users)

	chatHandler := handler.NewChatHandler(chatUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager)

	router.Setup(e, authMiddleware, adminMiddleware, limiter, chatHandler, wsHandler)

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}

func firebaseCredentials() option.ClientOption {
	// Try to get service account from environment variable (for production)
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(serviceAccountJSON))
	}

	// Fallback to file path (for local development)
	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		serviceAccountPath = "./firebase-service-account.json"
	}

	if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
		log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
	}

	log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
	return option.WithCredentialsFile(serviceAccountPath)
}
