package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gasra-notifier/common/database"
	commonlogger "gasra-notifier/common/logger"
	commonmqtt "gasra-notifier/common/mqtt"
	commonredis "gasra-notifier/common/redis"
	"gasra-notifier/internal/config"
	"gasra-notifier/internal/fcm"
	httpapi "gasra-notifier/internal/http"
	"gasra-notifier/internal/mqtt"
	"gasra-notifier/internal/repository"
	"gasra-notifier/internal/service"
	"gasra-notifier/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env 可选，已存在的环境变量优先
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := commonlogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "gasra-notifier")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 数据库
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	inspectionsRepo := repository.NewInspectionsRepository(db, logger)
	resultsRepo := repository.NewInspectionResultsRepository(db, logger)
	reportsRepo := repository.NewProblemReportsRepository(db, logger)
	profilesRepo := repository.NewProfilesRepository(db, logger)
	unitsRepo := repository.NewUnitsRepository(db, logger)

	// 4. 推送
	broker := fcm.NewCredentialBroker(cfg.Firebase, logger)
	client := fcm.NewClient(cfg.Firebase.BaseURL, cfg.Firebase.ProjectID, cfg.Firebase.Timeout, logger)
	dispatcher := fcm.NewDispatcher(client, broker, logger)

	inspectionNotifier := service.NewInspectionNotifier(inspectionsRepo, resultsRepo, profilesRepo, unitsRepo, dispatcher, logger)
	reportNotifier := service.NewProblemReportNotifier(profilesRepo, unitsRepo, dispatcher, logger)
	repairNotifier := service.NewRepairNotifier(reportsRepo, resultsRepo, profilesRepo, dispatcher, logger)

	// 5. Redis（可选）：重复投递保护 + 投递记录
	if cfg.Redis.Enabled {
		redisCfg := cfg.Redis.CommonRedis()
		redisClient := commonredis.NewRedisClient(&redisCfg)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			logger.Warn("Redis unavailable, delivery guard disabled", zap.Error(err))
			_ = commonredis.Close(redisClient)
		} else {
			defer commonredis.Close(redisClient)

			guard := store.NewDeliveryGuard(store.NewRedisKV(redisClient), cfg.Redis.GuardTTL, logger)
			recorder := store.NewStreamRecorder(redisClient, cfg.Redis.DeliveryStream, cfg.Redis.DeliveryStreamMax, logger)

			// inspection 由数据库 is_notified 去重
			reportNotifier.SetDeliveryGuard(guard)
			repairNotifier.SetDeliveryGuard(guard)
			inspectionNotifier.SetDeliveryRecorder(recorder)
			reportNotifier.SetDeliveryRecorder(recorder)
			repairNotifier.SetDeliveryRecorder(recorder)

			logger.Info("Redis enabled",
				zap.String("addr", cfg.Redis.Addr),
				zap.String("delivery_stream", cfg.Redis.DeliveryStream),
			)
		}
	}

	// 6. MQTT 触发入口（可选）
	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT.Common()
		mqttClient, err := commonmqtt.NewClient(&mqttCfg, logger)
		if err != nil {
			logger.Warn("MQTT unavailable, trigger bridge disabled", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()

			bridge := mqtt.NewTriggerBridge(mqttClient, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS,
				inspectionNotifier, reportNotifier, repairNotifier, logger)
			defer bridge.Stop(context.Background())

			go func() {
				if err := bridge.Start(ctx); err != nil {
					logger.Error("MQTT trigger bridge failed", zap.Error(err))
				}
			}()
		}
	}

	// 7. HTTP
	router := httpapi.NewRouter(logger)
	router.RegisterTriggerRoutes(httpapi.NewTriggerHandler(inspectionNotifier, reportNotifier, repairNotifier, logger))
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(db, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 8. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	logger.Info("gasra-notifier stopped")
}
