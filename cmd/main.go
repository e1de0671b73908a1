package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community-backend/internal/config"
	"community-backend/internal/handler"
	"community-backend/internal/model"
	"community-backend/internal/service"
	"community-backend/internal/storage"
	"community-backend/internal/utils"
	"community-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completer, err := model.NewCompleter(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create completer: %v", err)
	}
	logger.Infof("使用模型提供方: %s", cfg.Model.Provider)

	// 初始化服务
	chatService := service.NewChatService(cfg, storage.NewMemoryStorage(), completer, utils.NewClipboard(cfg.Clipboard.Backend))
	chatService.StartCleanup(ctx)
	communityService := service.NewCommunityService(storage.NewMemoryCommunityStore())

	// 创建路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg,
		handler.NewChatHandler(chatService, cfg.Chat.HeartbeatInterval),
		handler.NewCommunityHandler(communityService),
	)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	<-ctx.Done()
	logger.Info("服务器正在关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
}
