package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"study-chat/internal/auth"
	"study-chat/internal/backplane"
	"study-chat/internal/chat"
	"study-chat/internal/config"
	"study-chat/internal/db"
	"study-chat/internal/handlers"
	"study-chat/internal/logger"
	"study-chat/internal/middleware"
	"study-chat/internal/observability"
	"study-chat/internal/rabbitmq"
	"study-chat/internal/repositories"
	"study-chat/internal/telemetry"
	"study-chat/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket gateway and REST API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loadedEnv := config.Load()
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if !loadedEnv {
		log.Debug("no .env file, using process environment")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName, log)
	if err != nil {
		log.Warn("tracing setup failed, continuing without export", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	database, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		log.Error("failed to connect to db", zap.Error(err))
		return err
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, cfg.Tracing.ServiceName, cfg.Server.Mode, log)
	mode, reason := rabbitmq.Mode(publisher)
	log.Info("audit publisher ready", zap.String("mode", mode), zap.String("noop_reason", reason))

	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewGroupMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	userRepo := repositories.NewUserRepo(database)

	authenticator := auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, userRepo, cfg.Auth.ProfileCacheTTL)
	authority := chat.NewMembershipAuthority(groupRepo)
	messages := chat.NewMessagePipeline(authority, messageRepo, chat.MessageOptions{
		MaxLength:    cfg.Chat.MaxMessageLength,
		DefaultLimit: cfg.Chat.HistoryDefaultLimit,
		MaxLimit:     cfg.Chat.HistoryMaxLimit,
	})
	reactions := chat.NewReactionPipeline(authority, messageRepo, reactionRepo)
	groups := chat.NewGroupService(authority, groupRepo)

	rooms := ws.NewRooms()
	var broadcaster ws.Broadcaster = ws.LocalBroadcaster{Rooms: rooms}
	if cfg.Redis.Addr != "" {
		redisClient := backplane.NewClient(cfg.Redis)
		defer redisClient.Close()
		bp := backplane.NewRedisBroadcaster(redisClient, rooms, log)
		if err := bp.Start(ctx); err != nil {
			log.Warn("redis backplane unavailable, broadcasting locally", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			broadcaster = bp
			defer func() { _ = bp.Stop() }()
		}
	}

	gateway := ws.NewGateway(ws.Deps{
		Auth:        authenticator,
		Members:     authority,
		Messages:    messages,
		Reactions:   reactions,
		Rooms:       rooms,
		Broadcaster: broadcaster,
		Audit:       audit,
	}, ws.Options{
		SendBuffer:          cfg.Chat.SendBuffer,
		TypingTTL:           cfg.Chat.TypingTTL,
		TypingSweepInterval: cfg.Chat.TypingSweepInterval,
	}, log)
	if err := gateway.Start(); err != nil {
		return err
	}
	defer gateway.Stop()

	if cfg.Server.Mode == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(log),
		observability.RequestIDMiddleware(),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		observability.HTTPMetricsMiddleware(),
		middleware.AccessLog(log),
	)

	messageHandler := handlers.NewMessageHandler(messages, audit)
	groupHandler := handlers.NewGroupHandler(groups, authority, gateway, audit)
	authMiddleware := middleware.AuthMiddleware(authenticator)

	router.GET("/ws", gateway.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterHealthRoutes(router, gateway)
	handlers.RegisterDebugRoutes(router, audit, cfg.Server.Mode != logger.ProductionMode)

	api := router.Group("/", authMiddleware)
	api.GET("/groups/:group_id/messages", messageHandler.GetGroupMessages)
	api.POST("/groups/:group_id/messages", messageHandler.PostGroupMessage)
	api.PUT("/messages/:message_id", messageHandler.EditMessage)
	api.DELETE("/messages/:message_id", messageHandler.DeleteMessage)
	api.GET("/groups/:group_id/members", groupHandler.ListMembers)
	api.DELETE("/groups/:group_id/members/me", groupHandler.LeaveGroup)
	api.POST("/groups/:group_id/notifications", groupHandler.PostNotification)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gateway.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
