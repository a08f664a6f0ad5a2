package dto

import (
	"mirror-chat-study/internal/domain/entity"
)

// ParticipantRecordsResponse 单个被试的存档数据
// 问卷未提交时 survey 为空
type ParticipantRecordsResponse struct {
	UserID string                       `json:"user_id"`
	Turns  []*entity.ConversationRecord `json:"turns"`
	Survey *entity.SurveyRecord         `json:"survey,omitempty"`
}
