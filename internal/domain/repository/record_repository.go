// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"mirror-chat-study/internal/domain/entity"
)

// ConversationRecordRepository 对话存档仓储接口
type ConversationRecordRepository interface {
	// Create 写入一轮对话存档
	Create(ctx context.Context, record *entity.ConversationRecord) error

	// ListByUser 按被试编号查询对话存档，按时间排序
	ListByUser(ctx context.Context, userID string) ([]*entity.ConversationRecord, error)
}

// SurveyRecordRepository 问卷存档仓储接口
type SurveyRecordRepository interface {
	// Create 写入一行问卷存档
	Create(ctx context.Context, record *entity.SurveyRecord) error

	// GetByUser 按被试编号查询问卷存档
	GetByUser(ctx context.Context, userID string) (*entity.SurveyRecord, error)
}
