package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mirror-chat-study/internal/domain/entity"
)

// SurveyRecordRepository 问卷存档仓储实现
type SurveyRecordRepository struct {
	client *Client
}

// NewSurveyRecordRepository 创建问卷存档仓储
func NewSurveyRecordRepository(client *Client) *SurveyRecordRepository {
	return &SurveyRecordRepository{client: client}
}

// Create 写入一行问卷存档
func (r *SurveyRecordRepository) Create(ctx context.Context, record *entity.SurveyRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.SurveyRecordRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create survey record: %w", err)
	}
	return nil
}

// GetByUser 按被试编号查询问卷存档，不存在时返回 nil
func (r *SurveyRecordRepository) GetByUser(ctx context.Context, userID string) (*entity.SurveyRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.SurveyRecordRepository.GetByUser")
	defer span.End()

	var record entity.SurveyRecord
	err := r.client.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get survey record: %w", err)
	}
	return &record, nil
}
