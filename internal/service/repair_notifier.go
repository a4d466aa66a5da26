package service

import (
	"context"
	"fmt"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

const (
	repairTitle      = "✅ Laporan Selesai Diperbaiki"
	repairBodyFormat = "Masalah \"%s\" telah diperbaiki oleh %s."
)

// reporterContext 维修来源解析出的报告人和问题标签
// ReporterID 为 nil 表示无法确定报告人
type reporterContext struct {
	ReporterID *models.ID
	ItemLabel  string
}

// repairSource 维修记录的来源：问题报告或检查结果，二选一
type repairSource interface {
	kind() string
	resolve(ctx context.Context, n *RepairNotifier) (reporterContext, error)
}

type problemReportSource struct {
	reportID models.ID
}

func (s problemReportSource) kind() string { return models.TableProblemReports }

func (s problemReportSource) resolve(ctx context.Context, n *RepairNotifier) (reporterContext, error) {
	report, err := n.reports.GetProblemReport(ctx, s.reportID)
	if err != nil {
		return reporterContext{}, err
	}
	if report == nil {
		return reporterContext{}, nil
	}
	return reporterContext{ReporterID: report.ReportedByID, ItemLabel: report.CustomTitle}, nil
}

type inspectionResultSource struct {
	resultID models.ID
}

func (s inspectionResultSource) kind() string { return models.TableInspectionResults }

func (s inspectionResultSource) resolve(ctx context.Context, n *RepairNotifier) (reporterContext, error) {
	rc, err := n.results.GetRepairContext(ctx, s.resultID)
	if err != nil {
		return reporterContext{}, err
	}
	if rc == nil {
		return reporterContext{}, nil
	}

	label := defaultItemName
	if rc.ItemName != nil && *rc.ItemName != "" {
		label = *rc.ItemName
	}
	return reporterContext{ReporterID: rc.InspectorID, ItemLabel: label}, nil
}

// selectRepairSource 两个引用都存在时以问题报告为准
func selectRepairSource(record models.MaintenanceRecord) repairSource {
	switch {
	case models.IsSet(record.ProblemReportID):
		return problemReportSource{reportID: *record.ProblemReportID}
	case models.IsSet(record.InspectionResultID):
		return inspectionResultSource{resultID: *record.InspectionResultID}
	}
	return nil
}

// RepairNotifier 维修完成后通知原报告人
type RepairNotifier struct {
	delivery
	reports  ProblemReportStore
	results  InspectionResultStore
	profiles ProfileStore
}

// NewRepairNotifier 创建维修完成通知
func NewRepairNotifier(
	reports ProblemReportStore,
	results InspectionResultStore,
	profiles ProfileStore,
	dispatcher PushDispatcher,
	logger *zap.Logger,
) *RepairNotifier {
	return &RepairNotifier{
		delivery: delivery{dispatcher: dispatcher, logger: logger},
		reports:  reports,
		results:  results,
		profiles: profiles,
	}
}

// Notify 处理一条新的 maintenance_records 行
func (n *RepairNotifier) Notify(ctx context.Context, record models.MaintenanceRecord) (*Outcome, error) {
	logger := n.requestLogger(ctx, HandlerRepair).With(
		zap.String("maintenance_id", record.ID.String()),
	)

	src := selectRepairSource(record)
	if src == nil {
		logger.Info("Maintenance record has no source reference")
		return skipped("ok: Reporter not found"), nil
	}

	reporter, err := src.resolve(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reporter from %s: %w", src.kind(), err)
	}
	if !models.IsSet(reporter.ReporterID) {
		logger.Info("Reporter not resolved", zap.String("source", src.kind()))
		return skipped("ok: Reporter not found"), nil
	}
	logger = logger.With(zap.String("reporter_id", reporter.ReporterID.String()))

	token, err := n.profiles.GetFCMToken(ctx, *reporter.ReporterID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		logger.Info("Reporter has no FCM token")
		return skipped("ok: Reporter FCM token not found"), nil
	}

	technician := n.technicianName(ctx, record.RepairedByID, logger)

	if !n.acquire(ctx, models.TableMaintenanceRecords, record.ID.String()) {
		return skipped("ok: notification already sent"), nil
	}

	msg := fcm.NewMessage(token, repairTitle, fmt.Sprintf(repairBodyFormat, reporter.ItemLabel, technician), map[string]string{
		"maintenance_id": record.ID.String(),
		"source_table":   models.TableMaintenanceRecords,
	})

	report, err := n.send(ctx, HandlerRepair, models.TableMaintenanceRecords, record.ID.String(), []fcm.Message{msg}, true)
	if err != nil {
		return nil, err
	}

	logger.Info("Repair notification sent",
		zap.String("source", src.kind()),
		zap.Int("sent", report.Sent()),
		zap.Int("failed", report.Failed()),
	)
	return &Outcome{Message: "Notifikasi perbaikan terkirim", Report: report}, nil
}

func (n *RepairNotifier) technicianName(ctx context.Context, repairedBy *models.ID, logger *zap.Logger) string {
	if !models.IsSet(repairedBy) {
		return defaultTechnician
	}
	name, err := n.profiles.GetName(ctx, *repairedBy)
	if err != nil {
		logger.Warn("Failed to resolve technician name, using default", zap.Error(err))
		return defaultTechnician
	}
	if name == "" {
		return defaultTechnician
	}
	return name
}
