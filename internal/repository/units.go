package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

type unitCodeSource struct {
	table  string
	column string
}

// 每种单元只暴露一个可读编码字段
var unitCodeSources = map[models.UnitKind]unitCodeSource{
	models.UnitHead:    {table: "heads", column: "head_code"},
	models.UnitChassis: {table: "chassis", column: "chassis_code"},
	models.UnitStorage: {table: "storages", column: "storage_code"},
}

// UnitsRepository heads / chassis / storages 编码查询
type UnitsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUnitsRepository 创建单元仓库
func NewUnitsRepository(db *sql.DB, logger *zap.Logger) *UnitsRepository {
	return &UnitsRepository{
		db:     db,
		logger: logger,
	}
}

// GetUnitCode 根据单元类型和 id 获取编码，不存在时返回空串
func (r *UnitsRepository) GetUnitCode(ctx context.Context, kind models.UnitKind, unitID models.ID) (string, error) {
	src, ok := unitCodeSources[kind]
	if !ok {
		return "", fmt.Errorf("unknown unit kind: %q", kind)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, src.column, src.table)

	var code sql.NullString
	if err := r.db.QueryRowContext(ctx, query, unitID.String()).Scan(&code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get %s code: %w", kind, err)
	}
	return trimmed(code), nil
}
