package entity

import (
	"fmt"
	"time"
)

// ConversationRecord 任务阶段一轮对话的存档行
// 一行对应一次 用户输入 + 机器人回复
type ConversationRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time `json:"timestamp" gorm:"index;not null"`
	UserID         string    `json:"user_id" gorm:"type:varchar(16);index;not null"`
	RoleTag        string    `json:"role_tag" gorm:"type:varchar(16);not null"`
	Message        string    `json:"message" gorm:"type:text;not null"`
	TurnSimilarity *float64  `json:"turn_similarity,omitempty" gorm:"type:double precision"`
}

// TableName 指定表名
func (ConversationRecord) TableName() string {
	return "conversation"
}

// NewTurnRecord 创建一轮对话的存档行
// similarity 为 nil 表示该轮相似度计算失败或不可用
func NewTurnRecord(ts time.Time, userID, userInput, botReply string, similarity *float64) *ConversationRecord {
	return &ConversationRecord{
		Timestamp:      ts,
		UserID:         userID,
		RoleTag:        "turn",
		Message:        fmt.Sprintf("%s ↔ %s", userInput, botReply),
		TurnSimilarity: similarity,
	}
}

// SurveyRecord 实验结束后的问卷存档行，一次会话一行
type SurveyRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(16);index;not null"`
	Mode      string    `json:"mode" gorm:"type:varchar(16);not null"`

	Gender    string `json:"gender" gorm:"type:varchar(16)"`
	Age       string `json:"age" gorm:"type:varchar(16)"`
	Education string `json:"education" gorm:"type:varchar(32)"`
	Job       string `json:"job" gorm:"type:varchar(128)"`

	// 五点量表题，存储所选标签文本
	Similarity   string `json:"similarity" gorm:"type:varchar(32)"`
	Trust        string `json:"trust" gorm:"type:varchar(32)"`
	Enjoyment    string `json:"enjoyment" gorm:"type:varchar(32)"`
	Humanness    string `json:"humanness" gorm:"type:varchar(32)"`
	ReuseIntent  string `json:"reuse_intent" gorm:"type:varchar(32)"`
	Usefulness   string `json:"usefulness" gorm:"type:varchar(32)"`

	// StylePrompt 画像摘要文本，镜像模式下有值
	StylePrompt string `json:"style_prompt" gorm:"type:text"`

	// 画像七维评分中入库的六项，缺失为空串
	Tone              string `json:"tone" gorm:"type:varchar(8)"`
	Formality         string `json:"formality" gorm:"type:varchar(8)"`
	EmotionIntensity  string `json:"emotion_intensity" gorm:"type:varchar(8)"`
	Politeness        string `json:"politeness" gorm:"type:varchar(8)"`
	EmojiUse          string `json:"emoji_use" gorm:"type:varchar(8)"`
	SentenceStructure string `json:"sentence_structure" gorm:"type:varchar(8)"`
}

// TableName 指定表名
func (SurveyRecord) TableName() string {
	return "survey"
}
