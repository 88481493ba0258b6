package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/config"
	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/middleware"
	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/routes"
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

const revokedTokenPurgeInterval = time.Hour

func main() {
	cfg := config.Load()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Setup(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	models.AttachmentURLPrefix = cfg.APIPrefix

	storage, err := services.NewLocalFileStorage(cfg.MediaRoot, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}

	userService := services.NewUserService()
	services.UserServiceInstance = userService

	authService := services.NewAuthService(
		cfg.JWTSecret,
		cfg.AccessTokenLifetime,
		cfg.RefreshTokenLifetime,
		userService,
		services.NewGormTokenBlacklist(),
	)
	services.AuthServiceInstance = authService

	taskService := services.NewTaskService(storage)
	services.TaskServiceInstance = taskService

	noteService := services.NewNoteService(storage)
	services.NoteServiceInstance = noteService

	webSocketService := services.NewWebSocketService()
	services.WebSocketServiceInstance = webSocketService

	// The API keeps serving without NATS; only event dispatch is lost.
	producer, err := broker.InitProducer(cfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize NATS producer: %v", err)
		log.Println("EventHandler service is disabled, events stay in the outbox")
	} else {
		defer producer.Close()

		eventHandlerService := services.NewEventHandlerService(db, producer)
		services.EventHandlerServiceInstance = eventHandlerService
		eventHandlerService.Start()
		defer eventHandlerService.Stop()
	}

	consumer, err := broker.InitConsumer(cfg, []string{broker.TaskSubject, broker.NoteSubject}, "tasknotes-websocket")
	if err != nil {
		log.Printf("Warning: Failed to initialize NATS consumer: %v", err)
	} else {
		defer consumer.Close()
		webSocketService.SetInputChannel(consumer.GetMessageChannel())
	}
	webSocketService.Start()
	defer webSocketService.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeRevokedTokens(ctx, db, authService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.RegisterHomeRoutes(router, db, cfg.APIPrefix)

	api := router.Group(cfg.APIPrefix)
	routes.RegisterAuthRoutes(api, db, authService)
	routes.RegisterWebSocketRoutes(api, authService, webSocketService)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	routes.RegisterTaskRoutes(protected, db, taskService)
	routes.RegisterNoteRoutes(protected, db, noteService, cfg.MaxUploadBytes)

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API server is running on port %s", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
}

func purgeRevokedTokens(ctx context.Context, db *database.Database, authService *services.AuthService) {
	ticker := time.NewTicker(revokedTokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := authService.PurgeRevokedTokens(db)
			if err != nil {
				log.Printf("Failed to purge revoked tokens: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("Purged %d expired revoked tokens", purged)
			}
		}
	}
}
