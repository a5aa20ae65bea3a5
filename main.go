package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vericode/internal/api"
	"vericode/internal/auth"
	"vericode/internal/cache"
	"vericode/internal/config"
	"vericode/internal/llm"
	"vericode/internal/service/chat"
	"vericode/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfgPath := os.Getenv("VERICODE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	dbType := os.Getenv("VERICODE_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	logger.Info("opening database", zap.String("driver", dbType))
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	rdb, err := cache.NewClient(cfg)
	if err != nil {
		// The token cache is an optimization; run without it.
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
		rdb = nil
	}
	defer rdb.Close()

	registry := llm.NewRegistry(cfg.LLM.ModelDir, logger)
	analyzer, err := llm.NewService(cfg.LLM, registry, logger)
	if err != nil {
		logger.Fatal("init inference service", zap.Error(err))
	}

	opMode := llm.ModeFromString(cfg.LLM.OpMode)
	logger.Info("inference backend configured",
		zap.String("op_mode", cfg.LLM.OpMode),
		zap.String("device", cfg.LLM.Device))

	checkCtx, checkCancel := context.WithTimeout(context.Background(), cfg.LLM.RequestTimeout())
	if analyzer.TestConnection(checkCtx) {
		names := make([]string, 0)
		for _, m := range registry.Models(opMode) {
			names = append(names, m.Name)
		}
		logger.Info("available models", zap.String("models", strings.Join(names, ", ")))
	} else {
		logger.Warn("inference backend unreachable at startup")
	}
	checkCancel()

	chatService := chat.NewService(db, analyzer, logger)
	authService := auth.NewService(db, rdb, 24*time.Hour)
	handlers := api.NewHandler(chatService, authService, registry, opMode, logger)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":3000"
	}
	logger.Info("server listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
