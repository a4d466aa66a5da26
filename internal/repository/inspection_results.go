package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

// InspectionResultContext 维修通知需要的 inspection_result 关联数据
// 关联的 inspection / inspection_item 不存在时对应字段为 nil
type InspectionResultContext struct {
	ResultID    models.ID
	InspectorID *models.ID
	ItemName    *string
}

// InspectionResultsRepository inspection_results / inspection_items 表
type InspectionResultsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInspectionResultsRepository 创建 inspection_results 仓库
func NewInspectionResultsRepository(db *sql.DB, logger *zap.Logger) *InspectionResultsRepository {
	return &InspectionResultsRepository{
		db:     db,
		logger: logger,
	}
}

// GetItemName 获取检查项名称，不存在时返回空串
func (r *InspectionResultsRepository) GetItemName(ctx context.Context, itemID models.ID) (string, error) {
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT name FROM inspection_items WHERE id = $1`, itemID.String()).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get inspection item: %w", err)
	}
	return trimmed(name), nil
}

// GetRepairContext 获取 inspection_result 及其 inspection 的检查员、检查项名称
// inspection_result 不存在时返回 nil
func (r *InspectionResultsRepository) GetRepairContext(ctx context.Context, resultID models.ID) (*InspectionResultContext, error) {
	query := `
		SELECT
			ir.id::text,
			i.inspector_id::text,
			ii.name
		FROM inspection_results ir
		LEFT JOIN inspections i ON i.id = ir.inspection_id
		LEFT JOIN inspection_items ii ON ii.id = ir.item_id
		WHERE ir.id = $1
	`

	var id string
	var inspectorID, itemName sql.NullString

	err := r.db.QueryRowContext(ctx, query, resultID.String()).Scan(&id, &inspectorID, &itemName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inspection result: %w", err)
	}

	return &InspectionResultContext{
		ResultID:    models.ID(id),
		InspectorID: nullID(inspectorID),
		ItemName:    nullString(itemName),
	}, nil
}
