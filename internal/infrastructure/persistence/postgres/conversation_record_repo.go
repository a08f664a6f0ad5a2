// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"mirror-chat-study/internal/domain/entity"
)

// ConversationRecordRepository 对话存档仓储实现
type ConversationRecordRepository struct {
	client *Client
}

// NewConversationRecordRepository 创建对话存档仓储
func NewConversationRecordRepository(client *Client) *ConversationRecordRepository {
	return &ConversationRecordRepository{client: client}
}

// Create 写入一轮对话存档
func (r *ConversationRecordRepository) Create(ctx context.Context, record *entity.ConversationRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRecordRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create conversation record: %w", err)
	}
	return nil
}

// ListByUser 按被试编号查询对话存档，按时间排序
func (r *ConversationRecordRepository) ListByUser(ctx context.Context, userID string) ([]*entity.ConversationRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRecordRepository.ListByUser")
	defer span.End()

	var records []*entity.ConversationRecord
	err := r.client.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Find(&records).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation records: %w", err)
	}
	return records, nil
}
