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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/config"
	"github.com/ValeMina/pruebadashboard/internal/docstore"
	"github.com/ValeMina/pruebadashboard/internal/middleware"
	"github.com/ValeMina/pruebadashboard/internal/report/entity"
	"github.com/ValeMina/pruebadashboard/internal/report/handler"
	"github.com/ValeMina/pruebadashboard/internal/report/repository"
	"github.com/ValeMina/pruebadashboard/internal/report/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting panel de informes de materiales",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	ingestSvc := service.NewIngestService(zapLogger)
	summarySvc := service.NewSummaryService()

	store := repository.NewProjectStore(cfg.Store.Path, func(p *entity.Project) {
		summarySvc.Refresh(p, time.Now())
	}, zapLogger)
	if err := store.Load(); err != nil {
		zapLogger.Fatal("Failed to load project store", zap.Error(err))
	}
	zapLogger.Info("Project store loaded",
		zap.String("path", cfg.Store.Path),
		zap.Int("proyectos", len(store.List())),
	)

	docs, err := docstore.New(cfg.Docs.Dir)
	if err != nil {
		zapLogger.Fatal("Failed to init document store", zap.Error(err))
	}

	handlers := &handler.Handlers{
		Project:  handler.NewProjectHandler(ingestSvc, summarySvc, store, zapLogger),
		Document: handler.NewDocumentHandler(docs, zapLogger),
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})

	api := r.Group("/api/v1")

	// zona pública: consulta de resúmenes y documentos
	api.GET("/proyectos", h.Project.List)
	api.GET("/proyectos/:nombre", h.Project.Get)
	api.GET("/proyectos/:nombre/criticos", h.Project.Criticals)
	api.GET("/documentos", h.Document.List)
	api.GET("/documentos/:nombre", h.Document.Download)

	// panel de administración: toda escritura pasa por la clave compartida
	admin := api.Group("", middleware.AdminKey(cfg.Admin.Key))
	admin.POST("/proyectos/importar", h.Project.Import)
	admin.POST("/proyectos/depurar", h.Project.Dedupe)
	admin.DELETE("/proyectos", h.Project.Clear)
	admin.POST("/documentos", h.Document.Upload)
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}
