// Package entity 定义领域实体
package entity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase 会话阶段
type Phase string

const (
	PhaseModeSelection    Phase = "mode_selection"
	PhaseStyleCollection  Phase = "style_collection"
	PhasePreTaskNotice    Phase = "pre_task_notice"
	PhaseTaskConversation Phase = "task_conversation"
	PhaseConsent          Phase = "consent"
	PhaseEnded            Phase = "ended"
)

// Mode 实验条件
type Mode string

const (
	// ModeFixed A 模式：统一的敬语机器人
	ModeFixed Mode = "fixed"
	// ModeMirroring B 模式：模仿用户语言风格的机器人
	ModeMirroring Mode = "mirroring"
)

// Label 返回写入存档的模式标签
func (m Mode) Label() string {
	if m == ModeMirroring {
		return "B"
	}
	return "A"
}

// Valid 判断模式取值是否合法
func (m Mode) Valid() bool {
	return m == ModeFixed || m == ModeMirroring
}

// MirrorLevel 模仿强度
type MirrorLevel string

const (
	MirrorLevelLow      MirrorLevel = "low"
	MirrorLevelModerate MirrorLevel = "moderate"
	MirrorLevelHigh     MirrorLevel = "high"
)

// Valid 判断模仿强度取值是否合法
func (l MirrorLevel) Valid() bool {
	switch l {
	case MirrorLevelLow, MirrorLevelModerate, MirrorLevelHigh:
		return true
	}
	return false
}

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 会话中的一条展示消息
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session 一次被试会话的全部状态
// 并发访问由调用方通过 Lock/Unlock 保护
type Session struct {
	mu sync.Mutex

	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Phase       Phase       `json:"phase"`
	Mode        Mode        `json:"mode,omitempty"`
	MirrorLevel MirrorLevel `json:"mirror_level,omitempty"`

	// Messages 按时间排列的全部展示消息
	Messages []Message `json:"messages"`
	// UtteranceHistory 风格采集阶段的用户原话，用于画像生成
	UtteranceHistory []string `json:"utterance_history"`
	// CollectionIndex 风格采集阶段已完成的用户输入次数
	CollectionIndex int `json:"collection_index"`

	Profile *StyleProfile `json:"profile,omitempty"`

	// NoticeText 任务开始提示语，镜像模式下由 LLM 生成
	NoticeText     string `json:"notice_text,omitempty"`
	NoticeInserted bool   `json:"notice_inserted"`

	// StartTime 任务会话计时起点，进入任务阶段后首次触达时设置
	StartTime *time.Time `json:"start_time,omitempty"`

	SurveySubmitted bool `json:"survey_submitted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession 创建新会话，UserID 取 UUID 前 8 位
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString()[:8],
		Phase:     PhaseModeSelection,
		Messages:  make([]Message, 0, 16),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Lock 锁定会话
func (s *Session) Lock() { s.mu.Lock() }

// Unlock 解锁会话
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendMessage 追加一条展示消息
func (s *Session) AppendMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// RecentMessages 返回最近 n 条消息，不足则返回全部
func (s *Session) RecentMessages(n int) []Message {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// LastAssistantMessage 返回最近一条机器人消息，没有则返回空串
func (s *Session) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}
