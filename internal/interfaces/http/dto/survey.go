package dto

import (
	"mirror-chat-study/internal/application/experiment"
)

// SubmitSurveyRequest 提交问卷请求，量表题传所选标签文本
type SubmitSurveyRequest struct {
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

// ToInput 转换为问卷提交内容
func (r *SubmitSurveyRequest) ToInput() *experiment.SurveyInput {
	return &experiment.SurveyInput{
		Gender:      r.Gender,
		Age:         r.Age,
		Education:   r.Education,
		Job:         r.Job,
		Similarity:  r.Similarity,
		Trust:       r.Trust,
		Enjoyment:   r.Enjoyment,
		Humanness:   r.Humanness,
		ReuseIntent: r.ReuseIntent,
		Usefulness:  r.Usefulness,
	}
}
