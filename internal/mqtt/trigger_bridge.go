package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqttcommon "gasra-notifier/common/mqtt"
	"gasra-notifier/internal/models"
	"gasra-notifier/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notifyTimeout = 60 * time.Second

// Subscriber MQTT 订阅（common/mqtt.Client 满足）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// TriggerBridge 把 MQTT 上的触发信封转给对应的 notifier
// 主题格式: <prefix>/<table>
type TriggerBridge struct {
	subscriber Subscriber
	prefix     string
	qos        byte
	routes     map[string]func(ctx context.Context, payload []byte) error
	baseCtx    context.Context
	logger     *zap.Logger
}

// NewTriggerBridge 创建 MQTT 触发桥
func NewTriggerBridge(
	subscriber Subscriber,
	prefix string,
	qos byte,
	inspection service.Notifier[models.InspectionResult],
	report service.Notifier[models.ProblemReport],
	repair service.Notifier[models.MaintenanceRecord],
	logger *zap.Logger,
) *TriggerBridge {
	return &TriggerBridge{
		subscriber: subscriber,
		prefix:     strings.TrimRight(prefix, "/"),
		qos:        qos,
		routes: map[string]func(ctx context.Context, payload []byte) error{
			models.TableInspectionResults:  route(inspection, logger),
			models.TableProblemReports:     route(report, logger),
			models.TableMaintenanceRecords: route(repair, logger),
		},
		baseCtx: context.Background(),
		logger:  logger,
	}
}

// Topics 订阅的主题列表
func (b *TriggerBridge) Topics() []string {
	return []string{
		b.prefix + "/" + models.TableInspectionResults,
		b.prefix + "/" + models.TableProblemReports,
		b.prefix + "/" + models.TableMaintenanceRecords,
	}
}

// Start 订阅所有触发主题，阻塞直到 ctx 取消
func (b *TriggerBridge) Start(ctx context.Context) error {
	b.baseCtx = ctx
	for _, topic := range b.Topics() {
		if err := b.subscriber.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to trigger topic: %w", err)
		}
	}

	b.logger.Info("MQTT trigger bridge started",
		zap.Strings("topics", b.Topics()),
	)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (b *TriggerBridge) Stop(ctx context.Context) error {
	if err := b.subscriber.Unsubscribe(b.Topics()...); err != nil {
		b.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	b.logger.Info("MQTT trigger bridge stopped")
	return nil
}

// handleMessage 按主题最后一段（表名）路由
func (b *TriggerBridge) handleMessage(topic string, payload []byte) error {
	table := topic[strings.LastIndex(topic, "/")+1:]
	handle, ok := b.routes[table]
	if !ok {
		return fmt.Errorf("no notifier for topic %s", topic)
	}

	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(service.WithRequestID(b.baseCtx, requestID), notifyTimeout)
	defer cancel()

	b.logger.Debug("Received MQTT trigger",
		zap.String("topic", topic),
		zap.String("request_id", requestID),
		zap.Int("payload_size", len(payload)),
	)
	return handle(ctx, payload)
}

func route[T any](n service.Notifier[T], logger *zap.Logger) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		record, err := models.DecodeRecord[T](payload)
		if err != nil {
			return err
		}

		out, err := n.Notify(ctx, record)
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.String("request_id", service.RequestIDFrom(ctx)),
			zap.Bool("skipped", out.Skipped),
			zap.String("message", out.Message),
		}
		if !out.Skipped {
			fields = append(fields, zap.Int("sent", out.Report.Sent()), zap.Int("failed", out.Report.Failed()))
		}
		logger.Info("MQTT trigger handled", fields...)
		return nil
	}
}
