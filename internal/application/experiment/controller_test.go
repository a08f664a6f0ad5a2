package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirror-chat-study/internal/application/profile"
	"mirror-chat-study/internal/domain/entity"
	"mirror-chat-study/internal/domain/repository"
	apperrors "mirror-chat-study/pkg/errors"
)

type fakeChatModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if f.err != nil {
		return nil, f.err
	}
	reply := "그렇군요! 더 말해줘요."
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) lastCall() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type fakeFactory struct{ model *fakeChatModel }

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, nil
}

type fakeProfiler struct {
	profile *entity.StyleProfile
	err     error
	lastIn  *profile.Input
}

func (f *fakeProfiler) Generate(_ context.Context, in *profile.Input) (*entity.StyleProfile, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeScorer struct {
	score *float64
}

func (f *fakeScorer) ScoreWithVectors(context.Context, string, string) (*float64, []float64, []float64) {
	if f.score == nil {
		return nil, nil, nil
	}
	return f.score, []float64{1, 0}, []float64{0, 1}
}

type memConversationRepo struct {
	mu      sync.Mutex
	records []*entity.ConversationRecord
	err     error
}

func (m *memConversationRepo) Create(_ context.Context, r *entity.ConversationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memConversationRepo) ListByUser(_ context.Context, userID string) ([]*entity.ConversationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ConversationRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memSurveyRepo struct {
	mu      sync.Mutex
	records []*entity.SurveyRecord
	err     error
}

func (m *memSurveyRepo) Create(_ context.Context, r *entity.SurveyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memSurveyRepo) GetByUser(_ context.Context, userID string) (*entity.SurveyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID {
			return r, nil
		}
	}
	return nil, nil
}

type memVectorRepo struct {
	mu      sync.Mutex
	vectors []*repository.TurnVector
}

func (m *memVectorRepo) Insert(_ context.Context, vs []*repository.TurnVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = append(m.vectors, vs...)
	return nil
}

type testEnv struct {
	controller *Controller
	session    *entity.Session
	chat       *fakeChatModel
	profiler   *fakeProfiler
	scorer     *fakeScorer
	convos     *memConversationRepo
	surveys    *memSurveyRepo
	clock      *time.Time
}

func ptrFloat(v float64) *float64 { return &v }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env := &testEnv{
		session: entity.NewSession(),
		chat:    &fakeChatModel{},
		profiler: &fakeProfiler{profile: &entity.StyleProfile{
			Summary: `{"summary":"짧고 캐주얼한 말투","Tone":4}`,
			Scores:  &entity.StyleScores{Tone: intPtr(4)},
		}},
		scorer:  &fakeScorer{score: ptrFloat(0.812)},
		convos:  &memConversationRepo{},
		surveys: &memSurveyRepo{},
		clock:   &now,
	}
	env.controller = NewController(
		&fakeFactory{model: env.chat},
		env.profiler,
		env.scorer,
		env.convos,
		env.surveys,
		WithClock(func() time.Time { return *env.clock }),
	)
	return env
}

func intPtr(v int) *int { return &v }

func (e *testEnv) advance(d time.Duration) {
	next := e.clock.Add(d)
	*e.clock = next
}

// startTask 走完模式选择与风格采集，进入任务阶段
func (e *testEnv) startTask(t *testing.T, mode entity.Mode, level entity.MirrorLevel) {
	t.Helper()
	ctx := context.Background()

	_, err := e.controller.Handle(ctx, e.session, Event{Type: EventSelectMode, Mode: mode, MirrorLevel: level})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err = e.controller.Handle(ctx, e.session, Event{
			Type:    EventUserMessage,
			Content: fmt.Sprintf("샘플 발화 %d", i),
		})
		require.NoError(t, err)
	}
	require.Equal(t, entity.PhaseTaskConversation, e.session.Phase)
}

func validSurvey() *SurveyInput {
	return &SurveyInput{
		Gender: "여성", Age: "20대", Education: "대학교", Job: "학생",
		Similarity: "그렇다", Trust: "보통이다", Enjoyment: "매우 그렇다",
		Humanness: "그렇다", ReuseIntent: "그렇다", Usefulness: "보통이다",
	}
}

func TestSelectModeFixedDefaultsLowLevel(t *testing.T) {
	env := newTestEnv(t)

	plan, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSelectMode, Mode: entity.ModeFixed,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.PhaseStyleCollection, plan.Phase)
	assert.Equal(t, entity.MirrorLevelLow, env.session.MirrorLevel)
	require.Len(t, plan.Messages, 1)
	assert.Equal(t, openingPrompt, plan.Messages[0].Content)
}

func TestSelectModeMirroringRequiresLevel(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSelectMode, Mode: entity.ModeMirroring,
	})
	require.Error(t, err)
	assert.Equal(t, entity.PhaseModeSelection, env.session.Phase)

	_, err = env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSelectMode, Mode: entity.ModeMirroring, MirrorLevel: entity.MirrorLevelHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MirrorLevelHigh, env.session.MirrorLevel)
}

func TestSelectModeRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSelectMode, Mode: entity.Mode("adaptive"),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidMode, apperrors.AsAppError(err).Code)
}

func TestReselectionResetsCollectionState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.Handle(ctx, env.session, Event{Type: EventSelectMode, Mode: entity.ModeFixed})
	require.NoError(t, err)
	_, err = env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: "첫 발화"})
	require.NoError(t, err)

	// 回到模式选择重新开始必须清空采集状态
	env.session.Phase = entity.PhaseModeSelection
	_, err = env.controller.Handle(ctx, env.session, Event{Type: EventSelectMode, Mode: entity.ModeFixed})
	require.NoError(t, err)

	assert.Equal(t, 0, env.session.CollectionIndex)
	assert.Empty(t, env.session.UtteranceHistory)
	require.Len(t, env.session.Messages, 1)
	assert.Equal(t, openingPrompt, env.session.Messages[0].Content)
}

func TestStyleCollectionExactlyTwoExchanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.Handle(ctx, env.session, Event{Type: EventSelectMode, Mode: entity.ModeFixed})
	require.NoError(t, err)

	// 前两条输入各得到一次闲聊追问
	for i := 1; i <= 2; i++ {
		plan, err := env.controller.Handle(ctx, env.session, Event{
			Type: EventUserMessage, Content: fmt.Sprintf("발화 %d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, entity.PhaseStyleCollection, plan.Phase)
		require.Len(t, plan.Messages, 2)
		assert.Equal(t, entity.RoleAssistant, plan.Messages[1].Role)

		sent := env.chat.lastCall()
		require.NotEmpty(t, sent)
		assert.Equal(t, schema.System, sent[0].Role)
		assert.Equal(t, casualSystemPrompt, sent[0].Content)
	}
	assert.Equal(t, 2, env.session.CollectionIndex)
	assert.Nil(t, env.profiler.lastIn)

	// 第三条输入触发画像并进入任务阶段
	plan, err := env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: "발화 3"})
	require.NoError(t, err)
	require.NotNil(t, env.profiler.lastIn)
	assert.Equal(t, []string{"발화 1", "발화 2", "발화 3"}, env.profiler.lastIn.Utterances)
	assert.Equal(t, entity.PhaseTaskConversation, plan.Phase)
	assert.NotEmpty(t, plan.ProfileSummary)
	require.NotNil(t, env.session.StartTime)
	assert.True(t, env.session.NoticeInserted)
}

func TestFixedModeUsesFixedNotice(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")

	assert.Equal(t, fixedNoticeText, env.session.NoticeText)
	assert.Equal(t, fixedNoticeText, env.session.LastAssistantMessage())
}

func TestMirroringModeGeneratesNotice(t *testing.T) {
	env := newTestEnv(t)
	env.chat.replies = []string{"질문 하나!", "질문 둘!", "  좋아~ 3분 동안 여행 계획 짜보자!  "}
	env.startTask(t, entity.ModeMirroring, entity.MirrorLevelModerate)

	assert.Equal(t, "좋아~ 3분 동안 여행 계획 짜보자!", env.session.NoticeText)

	// 提示生成调用要带上画像摘要
	noticeCall := env.chat.calls[2]
	require.Len(t, noticeCall, 1)
	assert.Contains(t, noticeCall[0].Content, "말투 요약")
	assert.Contains(t, noticeCall[0].Content, env.profiler.profile.Summary)
}

func TestTaskTurnSlidingContextWindow(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")

	// 填充到超过窗口大小
	for i := 0; i < 8; i++ {
		_, err := env.controller.Handle(context.Background(), env.session, Event{
			Type: EventUserMessage, Content: fmt.Sprintf("여행 얘기 %d", i),
		})
		require.NoError(t, err)
	}
	require.Greater(t, len(env.session.Messages), taskContextWindow)

	sent := env.chat.lastCall()
	// 系统指令 + 最近 6 条
	require.Len(t, sent, taskContextWindow+1)
	assert.Equal(t, schema.System, sent[0].Role)
	recent := env.session.RecentMessages(taskContextWindow)
	for i, m := range recent {
		assert.Equal(t, m.Content, sent[i+1].Content)
	}
}

func TestTaskTurnMirroringInstruction(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeMirroring, entity.MirrorLevelHigh)

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "제주도 어때?",
	})
	require.NoError(t, err)

	sent := env.chat.lastCall()
	require.NotEmpty(t, sent)
	instruction := sent[0].Content
	assert.Contains(t, instruction, "Mirror level: high")
	assert.Contains(t, instruction, "말투, 리듬, 감정 강도, 이모티콘 모두 반영")
	assert.Contains(t, instruction, env.profiler.profile.Summary)
}

func TestTaskTurnRecordsConversationRow(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")
	env.chat.replies = []string{"부산 추천드립니다."}

	plan, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "어디로 갈까?",
	})
	require.NoError(t, err)
	require.NotNil(t, plan.Similarity)
	assert.Equal(t, 0.812, *plan.Similarity)

	require.Len(t, env.convos.records, 1)
	row := env.convos.records[0]
	assert.Equal(t, env.session.UserID, row.UserID)
	assert.Equal(t, "turn", row.RoleTag)
	assert.Equal(t, "어디로 갈까? ↔ 부산 추천드립니다.", row.Message)
	require.NotNil(t, row.TurnSimilarity)
	assert.Equal(t, 0.812, *row.TurnSimilarity)
}

func TestTaskTurnNullSimilarityStillLogged(t *testing.T) {
	env := newTestEnv(t)
	env.scorer.score = nil
	env.startTask(t, entity.ModeFixed, "")

	plan, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "날씨 좋은 곳?",
	})
	require.NoError(t, err)
	assert.Nil(t, plan.Similarity)

	require.Len(t, env.convos.records, 1)
	assert.Nil(t, env.convos.records[0].TurnSimilarity)
}

func TestTaskTimeoutBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")

	// 179 秒：照常处理，不转场
	env.advance(179 * time.Second)
	plan, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "아직 시간 있지?",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseTaskConversation, plan.Phase)
	assert.Zero(t, plan.PauseSeconds)

	// 181 秒：本轮仍被处理并落存档，随后进入问卷阶段
	env.advance(2 * time.Second)
	plan, err = env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "마지막 질문!",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseConsent, plan.Phase)
	assert.Equal(t, endPauseSeconds, plan.PauseSeconds)
	assert.Equal(t, endNoticeText, plan.Messages[len(plan.Messages)-1].Content)
	assert.Len(t, env.convos.records, 2)
}

func TestSurveyRejectsPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")
	env.advance(taskDuration + time.Second)
	_, err := env.controller.Handle(context.Background(), env.session, Event{Type: EventUserMessage, Content: "끝"})
	require.NoError(t, err)

	in := validSurvey()
	in.Age = SurveyPlaceholder
	_, err = env.controller.Handle(context.Background(), env.session, Event{Type: EventSubmitSurvey, Survey: in})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSurveyIncomplete, apperrors.AsAppError(err).Code)
	assert.Empty(t, env.surveys.records)
	assert.Equal(t, entity.PhaseConsent, env.session.Phase)

	in = validSurvey()
	in.Job = "   "
	_, err = env.controller.Handle(context.Background(), env.session, Event{Type: EventSubmitSurvey, Survey: in})
	require.Error(t, err)
	assert.Empty(t, env.surveys.records)
}

func TestSurveyValidSubmissionWritesOneRow(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeMirroring, entity.MirrorLevelHigh)
	env.advance(taskDuration + time.Second)
	_, err := env.controller.Handle(context.Background(), env.session, Event{Type: EventUserMessage, Content: "끝"})
	require.NoError(t, err)

	plan, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSubmitSurvey, Survey: validSurvey(),
	})
	require.NoError(t, err)
	assert.True(t, plan.SurveySaved)
	assert.True(t, plan.SessionEnded)
	assert.Equal(t, entity.PhaseEnded, env.session.Phase)

	require.Len(t, env.surveys.records, 1)
	row := env.surveys.records[0]
	assert.Equal(t, "B", row.Mode)
	assert.Equal(t, env.session.UserID, row.UserID)
	assert.Equal(t, env.profiler.profile.Summary, row.StylePrompt)
	// 画像只给了 Tone，其余维度写空串
	assert.Equal(t, "4", row.Tone)
	assert.Equal(t, "", row.Formality)
	assert.Equal(t, "", row.EmojiUse)

	// 重复提交被拒绝
	_, err = env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSubmitSurvey, Survey: validSurvey(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionEnded, apperrors.AsAppError(err).Code)
	assert.Len(t, env.surveys.records, 1)
}

func TestSurveyWithRawTextProfile(t *testing.T) {
	env := newTestEnv(t)
	env.profiler.profile = &entity.StyleProfile{Summary: "친근하고 편안한 말투"}
	env.startTask(t, entity.ModeMirroring, entity.MirrorLevelLow)
	env.advance(taskDuration + time.Second)
	_, err := env.controller.Handle(context.Background(), env.session, Event{Type: EventUserMessage, Content: "끝"})
	require.NoError(t, err)

	_, err = env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSubmitSurvey, Survey: validSurvey(),
	})
	require.NoError(t, err)

	row := env.surveys.records[0]
	assert.Equal(t, "친근하고 편안한 말투", row.StylePrompt)
	assert.Equal(t, "", row.Tone)
	assert.Equal(t, "", row.SentenceStructure)
}

func TestSurveyRejectedOutsideConsent(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSubmitSurvey, Survey: validSurvey(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidPhase, apperrors.AsAppError(err).Code)
}

func TestProfileFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	env.profiler.err = errors.New("upstream timeout")
	ctx := context.Background()

	_, err := env.controller.Handle(ctx, env.session, Event{Type: EventSelectMode, Mode: entity.ModeFixed})
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		_, err = env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: fmt.Sprintf("발화 %d", i)})
		require.NoError(t, err)
	}

	_, err = env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: "발화 3"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProfileFailed, apperrors.AsAppError(err).Code)
	// 转场未发生，重试仍可触发画像
	assert.Equal(t, entity.PhaseStyleCollection, env.session.Phase)
}

func TestNoticeFailureKeepsStyleCollectionRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.controller.Handle(ctx, env.session, Event{
		Type: EventSelectMode, Mode: entity.ModeMirroring, MirrorLevel: entity.MirrorLevelHigh,
	})
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		_, err = env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: fmt.Sprintf("발화 %d", i)})
		require.NoError(t, err)
	}

	// 提示生成失败不得转场，否则会话卡在无事件可收的阶段
	env.chat.err = errors.New("upstream unavailable")
	_, err = env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: "발화 3"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeLLMCallFailed, apperrors.AsAppError(err).Code)
	assert.Equal(t, entity.PhaseStyleCollection, env.session.Phase)
	assert.Nil(t, env.session.StartTime)
	assert.Empty(t, env.session.NoticeText)
	assert.False(t, env.session.NoticeInserted)

	// 下一条消息重试成功并进入任务阶段
	env.chat.err = nil
	plan, err := env.controller.Handle(ctx, env.session, Event{Type: EventUserMessage, Content: "발화 4"})
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseTaskConversation, plan.Phase)
	require.NotNil(t, env.session.StartTime)
	assert.NotEmpty(t, env.session.NoticeText)
}

func TestArchiveRowsUseInjectedClock(t *testing.T) {
	env := newTestEnv(t)
	env.startTask(t, entity.ModeFixed, "")

	env.advance(30 * time.Second)
	turnTime := *env.clock
	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "바다 보고 싶다",
	})
	require.NoError(t, err)
	require.Len(t, env.convos.records, 1)
	assert.Equal(t, turnTime, env.convos.records[0].Timestamp)

	env.advance(taskDuration)
	_, err = env.controller.Handle(context.Background(), env.session, Event{Type: EventUserMessage, Content: "끝"})
	require.NoError(t, err)
	require.Equal(t, entity.PhaseConsent, env.session.Phase)

	surveyTime := *env.clock
	_, err = env.controller.Handle(context.Background(), env.session, Event{
		Type: EventSubmitSurvey, Survey: validSurvey(),
	})
	require.NoError(t, err)
	require.Len(t, env.surveys.records, 1)
	assert.Equal(t, surveyTime, env.surveys.records[0].Timestamp)
}

func TestUserMessageRejectedInModeSelection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "안녕",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidPhase, apperrors.AsAppError(err).Code)
}

func TestTurnVectorArchiveReceivesBothSides(t *testing.T) {
	env := newTestEnv(t)
	vectors := &memVectorRepo{}
	env.controller = NewController(
		&fakeFactory{model: env.chat},
		env.profiler,
		env.scorer,
		env.convos,
		env.surveys,
		WithClock(func() time.Time { return *env.clock }),
		WithTurnVectorArchive(vectors, false),
	)
	env.startTask(t, entity.ModeFixed, "")

	_, err := env.controller.Handle(context.Background(), env.session, Event{
		Type: EventUserMessage, Content: "바다 보고 싶다",
	})
	require.NoError(t, err)

	require.Len(t, vectors.vectors, 2)
	assert.Equal(t, "user", vectors.vectors[0].Speaker)
	assert.Equal(t, "bot", vectors.vectors[1].Speaker)
	assert.Equal(t, env.session.UserID, vectors.vectors[0].UserID)
}
