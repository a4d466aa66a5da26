package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

// InspectionsRepository inspections 表
type InspectionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInspectionsRepository 创建 inspections 仓库
func NewInspectionsRepository(db *sql.DB, logger *zap.Logger) *InspectionsRepository {
	return &InspectionsRepository{
		db:     db,
		logger: logger,
	}
}

// ClaimNotification 原子地把 is_notified 从 false 置为 true
// 返回 true 表示本次调用抢到了通知权；已通知或行不存在返回 false
func (r *InspectionsRepository) ClaimNotification(ctx context.Context, inspectionID models.ID) (bool, error) {
	query := `
		UPDATE inspections
		SET is_notified = TRUE
		WHERE id = $1
		  AND is_notified IS NOT TRUE
	`

	res, err := r.db.ExecContext(ctx, query, inspectionID.String())
	if err != nil {
		return false, fmt.Errorf("failed to claim inspection notification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	r.logger.Debug("Claimed inspection notification",
		zap.String("inspection_id", inspectionID.String()),
		zap.Bool("claimed", affected == 1),
	)

	return affected == 1, nil
}

// GetInspection 根据 id 获取 inspection，不存在时返回 nil
func (r *InspectionsRepository) GetInspection(ctx context.Context, inspectionID models.ID) (*models.Inspection, error) {
	query := `
		SELECT
			id::text,
			head_id::text,
			chassis_id::text,
			storage_id::text,
			inspector_id::text,
			COALESCE(is_notified, FALSE)
		FROM inspections
		WHERE id = $1
	`

	var id string
	var headID, chassisID, storageID, inspectorID sql.NullString
	var inspection models.Inspection

	err := r.db.QueryRowContext(ctx, query, inspectionID.String()).Scan(
		&id,
		&headID,
		&chassisID,
		&storageID,
		&inspectorID,
		&inspection.IsNotified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	inspection.ID = models.ID(id)
	inspection.HeadID = nullID(headID)
	inspection.ChassisID = nullID(chassisID)
	inspection.StorageID = nullID(storageID)
	inspection.InspectorID = nullID(inspectorID)

	return &inspection, nil
}
