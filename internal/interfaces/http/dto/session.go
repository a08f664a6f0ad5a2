package dto

import (
	"time"

	"mirror-chat-study/internal/application/experiment"
	"mirror-chat-study/internal/domain/entity"
)

// CreateSessionResponse 创建会话响应
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Phase     string `json:"phase"`
}

// MessageDTO 一条展示消息
type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionSnapshot 会话快照响应
type SessionSnapshot struct {
	SessionID       string       `json:"session_id"`
	UserID          string       `json:"user_id"`
	Phase           string       `json:"phase"`
	Mode            string       `json:"mode,omitempty"`
	MirrorLevel     string       `json:"mirror_level,omitempty"`
	Messages        []MessageDTO `json:"messages"`
	ProfileSummary  string       `json:"profile_summary,omitempty"`
	ElapsedSeconds  int          `json:"elapsed_seconds,omitempty"`
	SurveySubmitted bool         `json:"survey_submitted"`
}

// SelectModeRequest 选择实验条件请求
type SelectModeRequest struct {
	Mode        string `json:"mode" binding:"required"`
	MirrorLevel string `json:"mirror_level"`
}

// PostMessageRequest 发送消息请求
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EventResponse 事件处理结果响应
type EventResponse struct {
	Phase          string       `json:"phase"`
	Messages       []MessageDTO `json:"messages"`
	ProfileSummary string       `json:"profile_summary,omitempty"`
	Similarity     *float64     `json:"similarity,omitempty"`
	PauseSeconds   int          `json:"pause_seconds,omitempty"`
	SurveySaved    bool         `json:"survey_saved,omitempty"`
	SessionEnded   bool         `json:"session_ended,omitempty"`
}

// SurveyOptionsResponse 问卷选项响应，供前端渲染下拉框
type SurveyOptionsResponse struct {
	Placeholder string   `json:"placeholder"`
	Scale       []string `json:"scale"`
	Gender      []string `json:"gender"`
	Age         []string `json:"age"`
	Education   []string `json:"education"`
}

// NewMessageDTOs 转换展示消息
func NewMessageDTOs(msgs []entity.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// NewEventResponse 从渲染指令构建响应
func NewEventResponse(plan *experiment.RenderPlan) *EventResponse {
	if plan == nil {
		return &EventResponse{}
	}
	return &EventResponse{
		Phase:          string(plan.Phase),
		Messages:       NewMessageDTOs(plan.Messages),
		ProfileSummary: plan.ProfileSummary,
		Similarity:     plan.Similarity,
		PauseSeconds:   plan.PauseSeconds,
		SurveySaved:    plan.SurveySaved,
		SessionEnded:   plan.SessionEnded,
	}
}

// NewSessionSnapshot 从会话状态构建快照
// 调用方须持有会话锁
func NewSessionSnapshot(s *entity.Session, now time.Time) *SessionSnapshot {
	snap := &SessionSnapshot{
		SessionID:       s.ID,
		UserID:          s.UserID,
		Phase:           string(s.Phase),
		Mode:            string(s.Mode),
		MirrorLevel:     string(s.MirrorLevel),
		Messages:        NewMessageDTOs(s.Messages),
		SurveySubmitted: s.SurveySubmitted,
	}
	if s.Profile != nil {
		snap.ProfileSummary = s.Profile.Summary
	}
	if s.StartTime != nil {
		snap.ElapsedSeconds = int(now.Sub(*s.StartTime).Seconds())
	}
	return snap
}
