package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gasra-notifier/internal/models"

	"go.uber.org/zap"
)

// ProfilesRepository profiles 表（接收人 token、技师姓名）
type ProfilesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfilesRepository 创建 profiles 仓库
func NewProfilesRepository(db *sql.DB, logger *zap.Logger) *ProfilesRepository {
	return &ProfilesRepository{
		db:     db,
		logger: logger,
	}
}

// ListAdminTokens 获取所有 admin_mobile 用户的推送 token（跳过空 token）
func (r *ProfilesRepository) ListAdminTokens(ctx context.Context) ([]string, error) {
	query := `
		SELECT fcm_token
		FROM profiles
		WHERE role = $1
		  AND fcm_token IS NOT NULL
	`

	rows, err := r.db.QueryContext(ctx, query, models.RoleAdminMobile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]string, 0)
	for rows.Next() {
		var token sql.NullString
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan admin token: %w", err)
		}
		if t := trimmed(token); t != "" {
			tokens = append(tokens, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch admin tokens: %w", err)
	}

	return tokens, nil
}

// GetFCMToken 获取指定用户的推送 token，用户不存在或没有 token 时返回空串
func (r *ProfilesRepository) GetFCMToken(ctx context.Context, profileID models.ID) (string, error) {
	var token sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT fcm_token FROM profiles WHERE id = $1`, profileID.String()).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get reporter token: %w", err)
	}
	return trimmed(token), nil
}

// GetName 获取用户姓名，不存在时返回空串
func (r *ProfilesRepository) GetName(ctx context.Context, profileID models.ID) (string, error) {
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT name FROM profiles WHERE id = $1`, profileID.String()).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get profile name: %w", err)
	}
	return trimmed(name), nil
}
