package entity

import "strconv"

// StyleScores 语言风格画像的七个维度评分 (1~5)
// 字段指针为 nil 表示模型未给出该维度评分
// JSON 键与画像模型的输出键保持一致
type StyleScores struct {
	Tone              *int `json:"Tone,omitempty"`
	Formality         *int `json:"Formality,omitempty"`
	Personality       *int `json:"Personality,omitempty"`
	EmotionIntensity  *int `json:"Emotion intensity,omitempty"`
	Politeness        *int `json:"Politeness,omitempty"`
	EmojiUse          *int `json:"Use of emojis or informal markers,omitempty"`
	SentenceStructure *int `json:"Sentence length and structure,omitempty"`
}

// scoreString 评分转字符串，nil 转空串
func scoreString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ToneString 返回 Tone 评分字符串，缺失为空串
func (s *StyleScores) ToneString() string { return scoreString(s.Tone) }

// FormalityString 返回 Formality 评分字符串
func (s *StyleScores) FormalityString() string { return scoreString(s.Formality) }

// EmotionIntensityString 返回情感强度评分字符串
func (s *StyleScores) EmotionIntensityString() string { return scoreString(s.EmotionIntensity) }

// PolitenessString 返回礼貌程度评分字符串
func (s *StyleScores) PolitenessString() string { return scoreString(s.Politeness) }

// EmojiUseString 返回表情符号使用评分字符串
func (s *StyleScores) EmojiUseString() string { return scoreString(s.EmojiUse) }

// SentenceStructureString 返回句式评分字符串
func (s *StyleScores) SentenceStructureString() string { return scoreString(s.SentenceStructure) }

// StyleProfile 用户语言风格画像
// Scores 为 nil 表示画像 JSON 解析失败，只保留原始摘要文本
type StyleProfile struct {
	Summary string       `json:"summary"`
	Scores  *StyleScores `json:"scores,omitempty"`
}

// Structured 判断画像是否包含结构化评分
func (p *StyleProfile) Structured() bool {
	return p != nil && p.Scores != nil
}
