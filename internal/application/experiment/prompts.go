// Package experiment 实现实验会话的阶段状态机
package experiment

import "fmt"

// 实验刺激文本，与研究方案一致，不做本地化
const (
	// openingPrompt 风格采集阶段的开场白
	openingPrompt = "안녕하세요! 오늘 하루 어땠는지 궁금해요. 날씨나 기분 같은 걸 말해줘요 :)"

	// casualSystemPrompt 风格采集阶段的系统指令
	casualSystemPrompt = "You are a friendly chatbot collecting natural language samples from the user. Ask a casual, personal question each time."

	// fixedNoticeText 固定模式的任务开始提示
	fixedNoticeText = "안녕하세요. 챗봇과 함께 3분 동안 여행 계획을 세워보세요. 궁금한 점이 있으면 언제든지 물어보세요."

	// fixedSystemInstruction 固定模式的任务阶段系统指令
	fixedSystemInstruction = "You are a polite Korean chatbot. Use formal language."

	// endNoticeText 任务时间耗尽提示
	endNoticeText = "⏰ 시간이 다 되어 챗봇 대화를 종료합니다. 설문지로 이동합니다."
)

// noticePrompt 镜像模式下生成任务开始提示的指令
func noticePrompt(styleSummary string) string {
	return fmt.Sprintf("다음 말투에 맞춰 사용자에게 3분간 여행 계획을 시작하도록 제안하는 문장을 만들어줘.\n말투 요약: %s", styleSummary)
}

// mirroringSystemInstruction 镜像模式的任务阶段系统指令
func mirroringSystemInstruction(styleSummary, mirrorLevel string) string {
	return fmt.Sprintf(`You are a Korean chatbot that mirrors the user's style.
Here is the style guide:
%s

Mirror level: %s
- low: 유지하되 표현 일부만 반영
- moderate: 문장 길이, 감정, 이모티콘 일부 반영
- high: 말투, 리듬, 감정 강도, 이모티콘 모두 반영`, styleSummary, mirrorLevel)
}

// SurveyPlaceholder 问卷未选择的占位值
const SurveyPlaceholder = "선택 안 함"

// 问卷选项，供界面层展示与校验
var (
	// SurveyScale 五点量表标签
	SurveyScale = []string{"전혀 아니다", "아니다", "보통이다", "그렇다", "매우 그렇다"}

	// SurveyGenderOptions 性别选项
	SurveyGenderOptions = []string{"남성", "여성", "기타"}

	// SurveyAgeOptions 年龄段选项
	SurveyAgeOptions = []string{"10대", "20대", "30대", "40대", "50대 이상"}

	// SurveyEducationOptions 学历选项
	SurveyEducationOptions = []string{"고등학교 이하", "대학교", "대학원"}
)
