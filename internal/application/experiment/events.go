package experiment

import "mirror-chat-study/internal/domain/entity"

// EventType 会话事件类型
type EventType string

const (
	// EventSelectMode 选择实验条件
	EventSelectMode EventType = "select_mode"
	// EventUserMessage 用户发送一条消息
	EventUserMessage EventType = "user_message"
	// EventSubmitSurvey 提交问卷
	EventSubmitSurvey EventType = "submit_survey"
)

// SurveyInput 问卷提交内容，量表题存所选标签文本
type SurveyInput struct {
	Gender    string `json:"gender"`
	Age       string `json:"age"`
	Education string `json:"education"`
	Job       string `json:"job"`

	Similarity  string `json:"similarity"`
	Trust       string `json:"trust"`
	Enjoyment   string `json:"enjoyment"`
	Humanness   string `json:"humanness"`
	ReuseIntent string `json:"reuse_intent"`
	Usefulness  string `json:"usefulness"`
}

// Event 会话事件
type Event struct {
	Type EventType

	// Mode / MirrorLevel 仅 EventSelectMode 使用
	Mode        entity.Mode
	MirrorLevel entity.MirrorLevel

	// Content 仅 EventUserMessage 使用
	Content string

	// Survey 仅 EventSubmitSurvey 使用
	Survey *SurveyInput
}
