package postgres

import (
	"fmt"

	"mirror-chat-study/internal/domain/entity"
)

// Migrate 初始化存档表结构
func (c *Client) Migrate() error {
	err := c.db.AutoMigrate(
		&entity.ConversationRecord{},
		&entity.SurveyRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate archive tables: %w", err)
	}
	return nil
}
