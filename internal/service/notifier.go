package service

import (
	"context"
	"fmt"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"
	"gasra-notifier/internal/repository"
	"gasra-notifier/internal/store"

	"go.uber.org/zap"
)

// handler 名称，用于日志和投递记录
const (
	HandlerInspection    = "inspection"
	HandlerProblemReport = "problem_report"
	HandlerRepair        = "repair"
)

// 显示用默认值
const (
	defaultUnitCode   = "N/A"
	defaultItemName   = "Item"
	defaultTechnician = "Teknisi"
)

// InspectionStore inspections 表访问
type InspectionStore interface {
	ClaimNotification(ctx context.Context, inspectionID models.ID) (bool, error)
	GetInspection(ctx context.Context, inspectionID models.ID) (*models.Inspection, error)
}

// InspectionResultStore inspection_results / inspection_items 表访问
type InspectionResultStore interface {
	GetItemName(ctx context.Context, itemID models.ID) (string, error)
	GetRepairContext(ctx context.Context, resultID models.ID) (*repository.InspectionResultContext, error)
}

// ProblemReportStore problem_reports 表访问
type ProblemReportStore interface {
	GetProblemReport(ctx context.Context, reportID models.ID) (*models.ProblemReport, error)
}

// ProfileStore profiles 表访问
type ProfileStore interface {
	ListAdminTokens(ctx context.Context) ([]string, error)
	GetFCMToken(ctx context.Context, profileID models.ID) (string, error)
	GetName(ctx context.Context, profileID models.ID) (string, error)
}

// UnitStore 单元编码查询
type UnitStore interface {
	GetUnitCode(ctx context.Context, kind models.UnitKind, unitID models.ID) (string, error)
}

// PushDispatcher 推送投递
type PushDispatcher interface {
	Dispatch(ctx context.Context, msgs []fcm.Message) (*fcm.Report, error)
}

// DeliveryGuard 重复投递保护（可选）
type DeliveryGuard interface {
	Acquire(ctx context.Context, table, entityID, owner string) bool
	Release(ctx context.Context, table, entityID string)
}

// DeliveryRecorder 投递记录（可选）
type DeliveryRecorder interface {
	Record(ctx context.Context, rec store.DeliveryRecord) error
}

// Notifier 处理一条触发行
type Notifier[T any] interface {
	Notify(ctx context.Context, record T) (*Outcome, error)
}

// Outcome 一次触发的处理结果
// Skipped 为 true 时表示预期内的跳过（条件不满足、无接收人等），Message 为说明
type Outcome struct {
	Skipped bool
	Message string
	Report  *fcm.Report
}

func skipped(msg string) *Outcome {
	return &Outcome{Skipped: true, Message: msg}
}

type requestIDKey struct{}

// WithRequestID 在 context 中记录 request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom 读取 request id，没有时返回空串
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// delivery 三个 notifier 共用的投递流程：去重保护、发送、记录
type delivery struct {
	dispatcher PushDispatcher
	guard      DeliveryGuard
	recorder   DeliveryRecorder
	logger     *zap.Logger
}

// SetDeliveryGuard 设置重复投递保护（Redis 启用时）
func (d *delivery) SetDeliveryGuard(guard DeliveryGuard) {
	d.guard = guard
}

// SetDeliveryRecorder 设置投递记录器（Redis 启用时）
func (d *delivery) SetDeliveryRecorder(recorder DeliveryRecorder) {
	d.recorder = recorder
}

func (d *delivery) requestLogger(ctx context.Context, handler string) *zap.Logger {
	return d.logger.With(
		zap.String("handler", handler),
		zap.String("request_id", RequestIDFrom(ctx)),
	)
}

// acquire 未配置 guard 时总是放行
func (d *delivery) acquire(ctx context.Context, table, entityID string) bool {
	if d.guard == nil {
		return true
	}
	return d.guard.Acquire(ctx, table, entityID, RequestIDFrom(ctx))
}

// send 发送并记录；guarded 表示调用前已抢占 guard，整次投递失败时释放
func (d *delivery) send(ctx context.Context, handler, table, entityID string, msgs []fcm.Message, guarded bool) (*fcm.Report, error) {
	report, err := d.dispatcher.Dispatch(ctx, msgs)
	if err != nil {
		if guarded && d.guard != nil {
			d.guard.Release(ctx, table, entityID)
		}
		return nil, fmt.Errorf("failed to dispatch %s notification: %w", handler, err)
	}

	if d.recorder != nil {
		rec := store.NewDeliveryRecord(RequestIDFrom(ctx), handler, table, entityID, report)
		if err := d.recorder.Record(ctx, rec); err != nil {
			d.requestLogger(ctx, handler).Warn("Failed to record delivery", zap.Error(err))
		}
	}
	return report, nil
}

// resolveUnitCode 按 head -> chassis -> storage 解析单元编码，查不到时为 N/A
func resolveUnitCode(ctx context.Context, units UnitStore, ref models.UnitRef, logger *zap.Logger) string {
	kind, unitID, ok := ref.Resolve()
	if !ok {
		return defaultUnitCode
	}

	code, err := units.GetUnitCode(ctx, kind, unitID)
	if err != nil {
		logger.Warn("Failed to resolve unit code, using default",
			zap.String("unit_kind", string(kind)),
			zap.String("unit_id", unitID.String()),
			zap.Error(err),
		)
		return defaultUnitCode
	}
	if code == "" {
		return defaultUnitCode
	}
	return code
}
