package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tastebook/tastebook-api/api/swagger"
	"github.com/tastebook/tastebook-api/internal/handler"
	"github.com/tastebook/tastebook-api/internal/middleware"
	"github.com/tastebook/tastebook-api/internal/repository"
	"github.com/tastebook/tastebook-api/internal/service"
	"github.com/tastebook/tastebook-api/pkg/cache"
	"github.com/tastebook/tastebook-api/pkg/config"
	"github.com/tastebook/tastebook-api/pkg/database"
	"github.com/tastebook/tastebook-api/pkg/export"
	"github.com/tastebook/tastebook-api/pkg/logger"
	corsmiddleware "github.com/tastebook/tastebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tastebook/tastebook-api/pkg/middleware/requestid"
	"github.com/tastebook/tastebook-api/pkg/storage"
)

// @title Tastebook API
// @version 1.0.0
// @description Recipe sharing platform: authentication core and recipe catalog
// @BasePath /
// @schemes http

func main() {
	purgeExpired := flag.Bool("purge-expired", false, "delete expired revocation ledger entries and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	revocations := repository.NewRevocationRepository(db, rdb, logr)

	if *purgeExpired {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		removed, err := revocations.PurgeExpired(ctx, time.Now())
		if err != nil {
			logr.Sugar().Fatalw("purge failed", "error", err)
		}
		logr.Sugar().Infow("purged expired revocation entries", "removed", removed)
		return
	}

	users := repository.NewUserRepository(db)
	recipes := repository.NewRecipeRepository(db)
	recipeCache := repository.NewCacheRepository(rdb, logr)

	localStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := service.NewValidator()
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
	})
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(users, revocations, tokens, validate, logr)
	userSvc := service.NewUserService(users, validate, logr)
	recipeSvc := service.NewRecipeService(recipes, users, recipeCache, export.NewPDFExporter(), localStore, signer, cfg.Recipes.CacheTTL, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc, userSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	recipeHandler := handler.NewRecipeHandler(recipeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/signout", middleware.JWT(authSvc), authHandler.Signout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	usersGroup := r.Group("/users", middleware.JWT(authSvc))
	{
		usersGroup.GET("/me", userHandler.Profile)
		usersGroup.PATCH("/me", userHandler.UpdateProfile)
	}

	recipesGroup := r.Group("/recipes")
	{
		recipesGroup.GET("", middleware.OptionalJWT(authSvc), recipeHandler.List)
		recipesGroup.GET("/shared/:token", recipeHandler.Shared)
		recipesGroup.GET("/:id", middleware.OptionalJWT(authSvc), recipeHandler.Get)
		recipesGroup.POST("", middleware.JWT(authSvc), recipeHandler.Create)
		recipesGroup.PATCH("/:id", middleware.JWT(authSvc), recipeHandler.Update)
		recipesGroup.DELETE("/:id", middleware.JWT(authSvc), recipeHandler.Delete)
		recipesGroup.POST("/:id/export", middleware.JWT(authSvc), recipeHandler.Export)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
