package experiment

import "mirror-chat-study/internal/domain/entity"

// RenderPlan 一次事件处理后交给界面层的渲染指令
type RenderPlan struct {
	// Phase 处理后的会话阶段
	Phase entity.Phase `json:"phase"`

	// Messages 本次事件新追加的消息
	Messages []entity.Message `json:"messages"`

	// ProfileSummary 画像刚生成时的展示文本
	ProfileSummary string `json:"profile_summary,omitempty"`

	// Similarity 本轮相似度，nil 表示不可用
	Similarity *float64 `json:"similarity,omitempty"`

	// PauseSeconds 界面在跳转前应停留的秒数
	PauseSeconds int `json:"pause_seconds,omitempty"`

	// SurveySaved 问卷已成功入库
	SurveySaved bool `json:"survey_saved,omitempty"`

	// SessionEnded 会话已结束
	SessionEnded bool `json:"session_ended,omitempty"`
}
