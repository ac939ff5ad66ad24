// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"knowledge-assistant-go/internal/config"
	"knowledge-assistant-go/internal/handler"
	"knowledge-assistant-go/internal/middleware"
	"knowledge-assistant-go/internal/repository"
	"knowledge-assistant-go/internal/service"
	"knowledge-assistant-go/pkg/database"
	"knowledge-assistant-go/pkg/llm"
	"knowledge-assistant-go/pkg/log"
	"knowledge-assistant-go/pkg/search"
)

func main() {
	configPath := flag.String("config", "", "可选的 YAML 配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库，自动建表
	db, err := database.NewMySQL(cfg.Database.DSN)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("数据库建表失败", err)
	}

	// Redis 可选，只用于模型目录缓存
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
	}

	// 4. 初始化客户端与 Repository
	searchClient := search.NewClient(cfg.Search)
	llmClient := llm.NewClient(cfg.Completion)
	historyRepo := repository.NewHistoryRepository(db)

	// 5. 初始化 Service (依赖注入)
	chatSvc := service.NewChatService(searchClient, llmClient, historyRepo, cfg.Completion.DefaultModel)
	modelSvc := service.NewModelService(llmClient, rdb)

	chatPolicy, err := service.ParseSessionPolicy(cfg.Chat.SessionPolicy)
	if err != nil {
		log.Fatal("无效的会话策略配置", err)
	}
	compatPolicy, err := service.ParseSessionPolicy(cfg.Chat.CompatSessionPolicy)
	if err != nil {
		log.Fatal("无效的兼容端点会话策略配置", err)
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://localhost:3000", "http://localhost"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"*"},
		AllowCredentials: true,
	}))

	// 7. 注册路由
	chatHandler := handler.NewChatHandler(chatSvc, chatPolicy)
	sessionHandler := handler.NewSessionHandler(historyRepo)
	modelHandler := handler.NewModelHandler(modelSvc)
	completionHandler := handler.NewCompletionHandler(chatSvc, compatPolicy)

	r.POST("/chat/", chatHandler.Chat)
	r.GET("/sessions/", sessionHandler.GetSessions)
	r.GET("/sessions/:id/messages/", sessionHandler.GetSessionMessages)
	r.GET("/models", modelHandler.ListModels)
	r.POST("/v1/chat/completions", completionHandler.CreateChatCompletion)

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
