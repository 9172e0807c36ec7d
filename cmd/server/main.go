package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/inkpost/server/internal/auth"
	"github.com/inkpost/inkpost/server/internal/config"
	"github.com/inkpost/inkpost/server/internal/credit"
	"github.com/inkpost/inkpost/server/internal/handler"
	"github.com/inkpost/inkpost/server/internal/letter"
	"github.com/inkpost/inkpost/server/internal/middleware"
	"github.com/inkpost/inkpost/server/internal/notify"
	"github.com/inkpost/inkpost/server/internal/order"
	"github.com/inkpost/inkpost/server/internal/settings"
	"github.com/inkpost/inkpost/server/internal/store"
	"github.com/inkpost/inkpost/server/internal/ws"
	"github.com/redis/go-redis/v9"
)

func main() {
	// ── Configuration ──
	cfg := config.Load()

	// ── Redis ──
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("connected to Redis at", cfg.RedisAddr)

	// ── SQL Store ──
	dbDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	st, err := store.NewStore(dbDSN)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	log.Printf("database initialised: %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)

	// ── WebSocket Hub ──
	hub := ws.NewHub()

	// ── Services ──
	userSvc := auth.NewUserService(st.DB())
	creditSvc := credit.NewService(st.DB())
	settingsSvc := settings.NewService(st.DB())
	dispatcher := notify.NewDispatcher(rdb, hub, st)
	letterSvc := letter.NewService(st.DB(), creditSvc, dispatcher)
	orderSvc := order.NewService(st.DB(), creditSvc, settingsSvc, dispatcher)

	// ── Gin Router ──
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	h := handler.NewHandler(hub)
	authHandler := handler.NewAuthHandler(userSvc)
	userHandler := handler.NewUserHandler(userSvc, creditSvc, cfg)
	letterHandler := handler.NewLetterHandler(letterSvc, settingsSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	adminHandler := handler.NewAdminHandler(userSvc, creditSvc, letterSvc, settingsSvc)

	// Register routes with API key authentication
	authHandler.RegisterRoutes(r)
	h.RegisterRoutes(r, middleware.APIKeyAuth(userSvc))

	api := r.Group("/api/v1", middleware.APIKeyAuth(userSvc))
	userHandler.RegisterRoutes(api)
	letterHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)

	// Register admin routes with admin token authentication
	adminHandler.RegisterRoutes(r.Group("/api/v1/admin", middleware.AdminTokenAuth(cfg.AdminToken)))

	// ── HTTP Server with graceful shutdown ──
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	// ── Graceful Shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	rdb.Close()
	log.Println("server exited cleanly")
}
