package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

// ProblemReportsRepository problem_reports 表
type ProblemReportsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProblemReportsRepository 创建 problem_reports 仓库
func NewProblemReportsRepository(db *sql.DB, logger *zap.Logger) *ProblemReportsRepository {
	return &ProblemReportsRepository{
		db:     db,
		logger: logger,
	}
}

// GetProblemReport 根据 id 获取问题报告，不存在时返回 nil
func (r *ProblemReportsRepository) GetProblemReport(ctx context.Context, reportID models.ID) (*models.ProblemReport, error) {
	query := `
		SELECT
			id::text,
			head_id::text,
			chassis_id::text,
			storage_id::text,
			COALESCE(custom_title, ''),
			reported_by_id::text
		FROM problem_reports
		WHERE id = $1
	`

	var id string
	var headID, chassisID, storageID, reportedBy sql.NullString
	var report models.ProblemReport

	err := r.db.QueryRowContext(ctx, query, reportID.String()).Scan(
		&id,
		&headID,
		&chassisID,
		&storageID,
		&report.CustomTitle,
		&reportedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get problem report: %w", err)
	}

	report.ID = models.ID(id)
	report.HeadID = nullID(headID)
	report.ChassisID = nullID(chassisID)
	report.StorageID = nullID(storageID)
	report.ReportedByID = nullID(reportedBy)

	return &report, nil
}
