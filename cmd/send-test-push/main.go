package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	commoncfg "gasra-notifier/common/config"
	commonlogger "gasra-notifier/common/logger"
	commonredis "gasra-notifier/common/redis"
	"gasra-notifier/internal/config"
	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	token := flag.String("token", "", "Device FCM token to send the test push to (required)")
	title := flag.String("title", "Tes Notifikasi", "Notification title")
	body := flag.String("body", "Ini adalah notifikasi uji coba.", "Notification body")
	record := flag.Bool("record", false, "Append the delivery report to the Redis delivery stream (REDIS_ADDR)")
	list := flag.Int64("list", 0, "Print the first N records of the Redis delivery stream and exit")
	flag.Parse()

	_ = godotenv.Load()

	if *list > 0 {
		listDeliveries(*list)
		return
	}

	if *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	fb, err := config.LoadFirebase()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := commonlogger.NewLogger(getEnv("LOG_LEVEL", "warn"), "console", "send-test-push")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	testID := uuid.NewString()
	dispatcher := fcm.NewDispatcher(
		fcm.NewClient(fb.BaseURL, fb.ProjectID, fb.Timeout, logger),
		fcm.NewCredentialBroker(*fb, logger),
		logger,
	)

	msg := fcm.NewMessage(*token, *title, *body, map[string]string{
		"test_id":      testID,
		"source_table": "test",
	})
	report, err := dispatcher.Dispatch(ctx, []fcm.Message{msg})
	if err != nil {
		log.Fatalf("Dispatch failed: %v", err)
	}

	fmt.Printf("Project: %s\nTest ID: %s\n\n", fb.ProjectID, testID)
	fmt.Println("Token      | Status | Message name / error")
	fmt.Println("-----------|--------|---------------------")
	for _, res := range report.Results {
		detail := res.MessageName
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Printf("%-10s | %-6d | %s\n", commonlogger.MaskToken(res.Token), res.StatusCode, detail)
	}

	if *record {
		client := newRedisClient()
		defer commonredis.Close(client)
		recorder := store.NewStreamRecorder(client, getEnv("DELIVERY_STREAM", "notifier:deliveries"), 10000, logger)
		if err := recorder.Record(ctx, store.NewDeliveryRecord(testID, "test", "test", testID, report)); err != nil {
			log.Fatalf("Failed to record delivery: %v", err)
		}
		fmt.Println("\nRecorded delivery report")
	}

	if report.Failed() > 0 {
		os.Exit(1)
	}
}

func listDeliveries(n int64) {
	logger, err := commonlogger.NewLogger("warn", "console", "send-test-push")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	client := newRedisClient()
	defer commonredis.Close(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recorder := store.NewStreamRecorder(client, getEnv("DELIVERY_STREAM", "notifier:deliveries"), 0, logger)
	records, err := recorder.List(ctx, n)
	if err != nil {
		log.Fatalf("Failed to read deliveries: %v", err)
	}

	fmt.Println("At                   | Handler        | Entity     | Sent | Failed | Request")
	fmt.Println("---------------------|----------------|------------|------|--------|--------")
	for _, r := range records {
		fmt.Printf("%-20s | %-14s | %-10s | %-4d | %-6d | %s\n",
			r.At.Format(time.RFC3339), r.Handler, r.EntityID, r.Sent, r.Failed, r.RequestID)
	}
}

func newRedisClient() *redis.Client {
	cfg := commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.LoadFromEnv("REDIS")
	return commonredis.NewRedisClient(&cfg)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
