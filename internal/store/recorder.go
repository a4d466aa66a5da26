package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gasra-notifier/common/logger"
	commonredis "gasra-notifier/common/redis"
	"gasra-notifier/internal/fcm"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DeliveryEntry 单个接收人的投递记录（token 已脱敏）
type DeliveryEntry struct {
	Token       string `json:"token"`
	MessageName string `json:"message_name,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DeliveryRecord 一次调用的投递记录
type DeliveryRecord struct {
	RequestID string          `json:"request_id"`
	Handler   string          `json:"handler"`
	Table     string          `json:"table"`
	EntityID  string          `json:"entity_id"`
	Sent      int             `json:"sent"`
	Failed    int             `json:"failed"`
	Results   []DeliveryEntry `json:"results"`
	At        time.Time       `json:"at"`
}

// NewDeliveryRecord 由投递结果构造记录
func NewDeliveryRecord(requestID, handler, table, entityID string, report *fcm.Report) DeliveryRecord {
	rec := DeliveryRecord{
		RequestID: requestID,
		Handler:   handler,
		Table:     table,
		EntityID:  entityID,
		Sent:      report.Sent(),
		Failed:    report.Failed(),
		Results:   make([]DeliveryEntry, 0),
		At:        time.Now().UTC(),
	}
	if report == nil {
		return rec
	}
	for _, res := range report.Results {
		entry := DeliveryEntry{
			Token:       logger.MaskToken(res.Token),
			MessageName: res.MessageName,
			StatusCode:  res.StatusCode,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		rec.Results = append(rec.Results, entry)
	}
	return rec
}

// StreamRecorder 把投递记录写入 Redis stream
type StreamRecorder struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamRecorder 创建投递记录器
func NewStreamRecorder(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamRecorder {
	return &StreamRecorder{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Record 写入一条投递记录
func (r *StreamRecorder) Record(ctx context.Context, rec DeliveryRecord) error {
	id, err := commonredis.PublishJSONToStream(ctx, r.client, r.stream, r.maxLen, rec)
	if err != nil {
		return fmt.Errorf("failed to publish delivery record: %w", err)
	}

	r.logger.Debug("Recorded delivery",
		zap.String("stream", r.stream),
		zap.String("message_id", id),
		zap.String("request_id", rec.RequestID),
	)
	return nil
}

// List 按写入顺序读取前 count 条投递记录（排查用）
func (r *StreamRecorder) List(ctx context.Context, count int64) ([]DeliveryRecord, error) {
	msgs, err := commonredis.ReadRange(ctx, r.client, r.stream, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery stream: %w", err)
	}

	records := make([]DeliveryRecord, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var rec DeliveryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			r.logger.Warn("Skipping malformed delivery record",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
