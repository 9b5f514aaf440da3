package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-planner-api/api/swagger"
	"github.com/noah-isme/lesson-planner-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/cache"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/gemini"
	"github.com/noah-isme/lesson-planner-api/pkg/llm"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/requestid"
)

// @title Lesson Planner API
// @version 1.0.0
// @description Lesson plan drafting, library, knowledge chat and live voice tutoring for teachers.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Lessons.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, lesson cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Lessons.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	lessonRepo := repository.NewLessonRepository(db)

	geminiClient := gemini.NewClient(cfg.Gemini, logr.Named("gemini"))
	var textGen interface {
		GenerateText(ctx context.Context, prompt, system string, temperature float64) (string, error)
	} = geminiClient
	if cfg.AI.TextProvider == config.ProviderOpenAI {
		generator, err := llm.New(cfg.OpenAI, logr.Named("llm"))
		if err != nil {
			logr.Fatal("failed to init text generator", zap.Error(err))
		}
		textGen = generator
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lesson-planner-api",
	})
	lessonSvc := service.NewLessonService(lessonRepo, cacheSvc, validate, logr, service.LessonServiceConfig{CacheTTL: cfg.Lessons.CacheTTL})
	builderSvc := service.NewLessonBuilderService(service.LessonBuilderParams{
		Text:       textGen,
		Structured: geminiClient,
		Speech:     geminiClient,
		PDF:        export.NewPDFExporter(),
		Validator:  validate,
		Metrics:    metricsSvc,
		Logger:     logr,
		Config:     service.LessonBuilderConfig{Temperature: cfg.AI.Temperature},
	})
	chatSvc := service.NewChatService(geminiClient, validate, metricsSvc, logr, service.ChatServiceConfig{
		MaxAttachmentBytes: cfg.Chat.MaxAttachmentBytes,
		GroundingEnabled:   cfg.Chat.GroundingEnabled,
	})
	settingsSvc := service.NewSettingsService(profileRepo, validate, logr)
	liveSvc := service.NewLiveService(geminiClient, metricsSvc, logr, service.LiveServiceConfig{
		Model:            cfg.Gemini.LiveModel,
		Voice:            cfg.Gemini.TTSVoice,
		InputSampleRate:  cfg.Live.InputSampleRate,
		OutputSampleRate: cfg.Live.OutputSampleRate,
		FrameSamples:     cfg.Live.FrameSamples,
		IdleTimeout:      cfg.Live.IdleTimeout,
	})

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	authHandler := handler.NewAuthHandler(authSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	builderHandler := handler.NewBuilderHandler(builderSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	liveHandler := handler.NewLiveHandler(liveSvc, cfg.CORS.AllowedOrigins, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)

	lessons := secured.Group("/lessons")
	lessons.GET("", lessonHandler.List)
	lessons.GET("/export.csv", lessonHandler.ExportIndex)
	lessons.GET("/:id", lessonHandler.Get)
	lessons.POST("", lessonHandler.Save)
	lessons.DELETE("/:id", lessonHandler.Delete)

	builder := secured.Group("/builder")
	builder.POST("/generate", builderHandler.Generate)
	builder.POST("/reformat", builderHandler.Reformat)
	builder.POST("/preview", builderHandler.Preview)
	builder.POST("/suggestions", builderHandler.Suggest)
	builder.POST("/export/doc", builderHandler.ExportDocument)
	builder.POST("/export/pdf", builderHandler.ExportPDF)
	builder.POST("/speech", builderHandler.ReadAloud)

	chat := secured.Group("/chat")
	chat.POST("", chatHandler.Send)
	chat.POST("/analyze", chatHandler.Analyze)

	secured.GET("/settings", settingsHandler.Get)
	secured.PATCH("/settings", settingsHandler.Update)

	secured.GET("/live", liveHandler.Connect)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "text_provider", cfg.AI.TextProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
