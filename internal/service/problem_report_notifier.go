package service

import (
	"context"
	"fmt"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

const (
	problemReportTitleFormat = "🚨 Laporan Masalah Baru: %s"
	problemReportBodyFormat  = "Unit %s membutuhkan perhatian. Klik untuk melihat detail."
)

// ProblemReportNotifier 新问题报告通知所有 admin_mobile
type ProblemReportNotifier struct {
	delivery
	profiles ProfileStore
	units    UnitStore
}

// NewProblemReportNotifier 创建问题报告通知
func NewProblemReportNotifier(profiles ProfileStore, units UnitStore, dispatcher PushDispatcher, logger *zap.Logger) *ProblemReportNotifier {
	return &ProblemReportNotifier{
		delivery: delivery{dispatcher: dispatcher, logger: logger},
		profiles: profiles,
		units:    units,
	}
}

// Notify 处理一条新的 problem_reports 行
func (n *ProblemReportNotifier) Notify(ctx context.Context, report models.ProblemReport) (*Outcome, error) {
	logger := n.requestLogger(ctx, HandlerProblemReport).With(
		zap.String("report_id", report.ID.String()),
	)

	tokens, err := n.profiles.ListAdminTokens(ctx)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		logger.Info("No admin_mobile recipients")
		return skipped("ok"), nil
	}

	unitCode := resolveUnitCode(ctx, n.units, report.UnitRef, logger)

	if !n.acquire(ctx, models.TableProblemReports, report.ID.String()) {
		return skipped("ok: notification already sent"), nil
	}

	data := map[string]string{
		"report_id":    report.ID.String(),
		"source_table": models.TableProblemReports,
	}
	msgs := fcm.Broadcast(tokens,
		fmt.Sprintf(problemReportTitleFormat, report.CustomTitle),
		fmt.Sprintf(problemReportBodyFormat, unitCode),
		data,
	)

	result, err := n.send(ctx, HandlerProblemReport, models.TableProblemReports, report.ID.String(), msgs, true)
	if err != nil {
		return nil, err
	}

	logger.Info("Problem report notification sent",
		zap.String("unit_code", unitCode),
		zap.Int("sent", result.Sent()),
		zap.Int("failed", result.Failed()),
	)
	return &Outcome{Message: "Notifications sent", Report: result}, nil
}
