package service

import (
	"context"
	"fmt"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

const (
	inspectionTitle      = "🔧 Item Inspeksi Bermasalah"
	inspectionBodyFormat = "Unit %s: %s ditandai 'Tidak Baik'."
)

// InspectionNotifier 检查项被标记为“不良”时通知所有 admin_mobile
type InspectionNotifier struct {
	delivery
	inspections InspectionStore
	results     InspectionResultStore
	profiles    ProfileStore
	units       UnitStore
}

// NewInspectionNotifier 创建检查失败通知
func NewInspectionNotifier(
	inspections InspectionStore,
	results InspectionResultStore,
	profiles ProfileStore,
	units UnitStore,
	dispatcher PushDispatcher,
	logger *zap.Logger,
) *InspectionNotifier {
	return &InspectionNotifier{
		delivery:    delivery{dispatcher: dispatcher, logger: logger},
		inspections: inspections,
		results:     results,
		profiles:    profiles,
		units:       units,
	}
}

// Notify 处理一条新的 inspection_results 行
// 每个 inspection 只通知一次：is_notified 通过条件更新原子抢占
func (n *InspectionNotifier) Notify(ctx context.Context, result models.InspectionResult) (*Outcome, error) {
	logger := n.requestLogger(ctx, HandlerInspection).With(
		zap.String("inspection_result_id", result.ID.String()),
		zap.String("inspection_id", result.InspectionID.String()),
	)

	if result.Kondisi != models.ConditionNotGood {
		logger.Debug("Condition is not tidak_baik, skipping", zap.String("kondisi", result.Kondisi))
		return skipped("ok: condition not 'tidak_baik'"), nil
	}

	claimed, err := n.inspections.ClaimNotification(ctx, result.InspectionID)
	switch {
	case err != nil:
		logger.Warn("Failed to mark inspection as notified, proceeding", zap.Error(err))
	case !claimed:
		inspection, err := n.inspections.GetInspection(ctx, result.InspectionID)
		if err != nil || inspection != nil {
			logger.Info("Inspection already notified, skipping")
			return skipped("ok: notification already sent"), nil
		}
		// 行不存在时没有可抢占的标记，按未通知处理
		logger.Warn("Inspection row not found, proceeding without dedup flag")
	}

	tokens, err := n.profiles.ListAdminTokens(ctx)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		logger.Info("No admin_mobile recipients")
		return skipped("ok"), nil
	}

	unitCode := defaultUnitCode
	inspection, err := n.inspections.GetInspection(ctx, result.InspectionID)
	if err != nil {
		logger.Warn("Failed to load inspection, using default unit code", zap.Error(err))
	} else if inspection != nil {
		unitCode = resolveUnitCode(ctx, n.units, inspection.UnitRef, logger)
	}

	itemName := n.itemName(ctx, result.ItemID, logger)

	data := map[string]string{
		"inspection_id": result.InspectionID.String(),
		"source_table":  models.TableInspectionResults,
	}
	msgs := fcm.Broadcast(tokens, inspectionTitle, fmt.Sprintf(inspectionBodyFormat, unitCode, itemName), data)

	report, err := n.send(ctx, HandlerInspection, models.TableInspectionResults, result.InspectionID.String(), msgs, false)
	if err != nil {
		return nil, err
	}

	logger.Info("Inspection notification sent",
		zap.String("unit_code", unitCode),
		zap.Int("sent", report.Sent()),
		zap.Int("failed", report.Failed()),
	)
	return &Outcome{Message: "Notification sent", Report: report}, nil
}

func (n *InspectionNotifier) itemName(ctx context.Context, itemID models.ID, logger *zap.Logger) string {
	if itemID == "" {
		return defaultItemName
	}
	name, err := n.results.GetItemName(ctx, itemID)
	if err != nil {
		logger.Warn("Failed to resolve item name, using default", zap.Error(err))
		return defaultItemName
	}
	if name == "" {
		return defaultItemName
	}
	return name
}
