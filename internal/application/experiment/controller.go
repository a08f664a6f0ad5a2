package experiment

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"mirror-chat-study/internal/application/profile"
	"mirror-chat-study/internal/domain/entity"
	"mirror-chat-study/internal/domain/repository"
	obseino "mirror-chat-study/internal/observability/eino"
	apperrors "mirror-chat-study/pkg/errors"
	"mirror-chat-study/pkg/logger"
	"mirror-chat-study/pkg/metrics"
)

// 实验设计常量，各被试条件保持一致，不开放配置
const (
	// styleCollectionExchanges 风格采集阶段的机器人追问次数
	styleCollectionExchanges = 2
	// taskContextWindow 任务阶段送入模型的消息窗口
	taskContextWindow = 6
	// taskDuration 任务阶段时长
	taskDuration = 180 * time.Second
	// endPauseSeconds 结束提示后界面停留秒数
	endPauseSeconds = 5
)

// StyleProfiler 画像生成接口
type StyleProfiler interface {
	Generate(ctx context.Context, in *profile.Input) (*entity.StyleProfile, error)
}

// TurnScorer 轮次相似度计分接口
type TurnScorer interface {
	ScoreWithVectors(ctx context.Context, userText, botText string) (*float64, []float64, []float64)
}

// Controller 实验阶段状态机
// 所有状态变更都通过 Handle 串行进行，会话内由会话锁保护
type Controller struct {
	factory  profile.ChatModelFactory
	profiler StyleProfiler
	scorer   TurnScorer

	conversations repository.ConversationRecordRepository
	surveys       repository.SurveyRecordRepository
	// turnVectors 可选的向量归档，nil 表示未启用
	turnVectors  repository.TurnVectorRepository
	archiveAsync bool

	provider string
	now      func() time.Time
}

// Option Controller 可选配置
type Option func(*Controller)

// WithProvider 指定 LLM 提供商
func WithProvider(name string) Option {
	return func(c *Controller) { c.provider = name }
}

// WithTurnVectorArchive 启用轮次向量归档
func WithTurnVectorArchive(repo repository.TurnVectorRepository, async bool) Option {
	return func(c *Controller) {
		c.turnVectors = repo
		c.archiveAsync = async
	}
}

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController 创建状态机
func NewController(
	factory profile.ChatModelFactory,
	profiler StyleProfiler,
	scorer TurnScorer,
	conversations repository.ConversationRecordRepository,
	surveys repository.SurveyRecordRepository,
	opts ...Option,
) *Controller {
	c := &Controller{
		factory:       factory,
		profiler:      profiler,
		scorer:        scorer,
		conversations: conversations,
		surveys:       surveys,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle 处理一个会话事件，返回渲染指令
// 事件在当前阶段不被接受时返回错误且不改变会话状态
func (c *Controller) Handle(ctx context.Context, s *entity.Session, ev Event) (*RenderPlan, error) {
	if s == nil {
		return nil, apperrors.ErrSessionNotFound
	}

	s.Lock()
	defer s.Unlock()

	ctx = logger.WithContext(ctx, logger.SessionIDKey, s.ID)
	ctx = logger.WithContext(ctx, logger.UserIDKey, s.UserID)

	if s.Phase == entity.PhaseEnded {
		return nil, apperrors.ErrSessionEnded
	}

	switch ev.Type {
	case EventSelectMode:
		return c.handleSelectMode(ctx, s, ev)
	case EventUserMessage:
		return c.handleUserMessage(ctx, s, ev)
	case EventSubmitSurvey:
		return c.handleSubmitSurvey(ctx, s, ev)
	default:
		return nil, apperrors.ErrInvalidEvent.WithDetail(string(ev.Type))
	}
}

// handleSelectMode 模式选择阶段
func (c *Controller) handleSelectMode(ctx context.Context, s *entity.Session, ev Event) (*RenderPlan, error) {
	if s.Phase != entity.PhaseModeSelection {
		return nil, apperrors.ErrInvalidPhase.WithDetail(string(s.Phase))
	}
	if !ev.Mode.Valid() {
		return nil, apperrors.ErrInvalidMode.WithDetail(string(ev.Mode))
	}

	level := ev.MirrorLevel
	if ev.Mode == entity.ModeFixed {
		level = entity.MirrorLevelLow
	} else if !level.Valid() {
		return nil, apperrors.ErrInvalidParam.WithDetail("mirror_level must be one of low/moderate/high")
	}

	s.Mode = ev.Mode
	s.MirrorLevel = level

	// 从模式选择重新进入时重置采集状态，保证幂等
	s.Messages = s.Messages[:0]
	s.UtteranceHistory = nil
	s.CollectionIndex = 0
	s.Profile = nil

	c.transition(s, entity.PhaseStyleCollection)
	s.AppendMessage(entity.RoleAssistant, openingPrompt)

	metrics.SessionsStarted.WithLabelValues(string(ev.Mode)).Inc()
	logger.Info(ctx, "experiment mode selected",
		"mode", string(ev.Mode), "mirror_level", string(level))

	return &RenderPlan{
		Phase:    s.Phase,
		Messages: []entity.Message{{Role: entity.RoleAssistant, Content: openingPrompt}},
	}, nil
}

// handleUserMessage 用户消息按阶段分发
func (c *Controller) handleUserMessage(ctx context.Context, s *entity.Session, ev Event) (*RenderPlan, error) {
	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("message content is empty")
	}

	switch s.Phase {
	case entity.PhaseStyleCollection:
		return c.handleStyleCollection(ctx, s, content)
	case entity.PhaseTaskConversation:
		return c.handleTaskTurn(ctx, s, content)
	default:
		return nil, apperrors.ErrInvalidPhase.WithDetail(string(s.Phase))
	}
}

// handleStyleCollection 风格采集阶段
// 前两条输入得到闲聊追问，第三条输入触发画像生成并进入任务阶段
func (c *Controller) handleStyleCollection(ctx context.Context, s *entity.Session, content string) (*RenderPlan, error) {
	s.AppendMessage(entity.RoleUser, content)
	s.UtteranceHistory = append(s.UtteranceHistory, content)
	appended := []entity.Message{{Role: entity.RoleUser, Content: content}}

	if s.CollectionIndex < styleCollectionExchanges {
		msgs := append(
			[]*schema.Message{schema.SystemMessage(casualSystemPrompt)},
			toSchemaMessages(s.Messages)...,
		)
		reply, err := c.generate(ctx, "style_collection", msgs)
		if err != nil {
			return nil, err
		}
		s.AppendMessage(entity.RoleAssistant, reply)
		s.CollectionIndex++
		appended = append(appended, entity.Message{Role: entity.RoleAssistant, Content: reply})

		return &RenderPlan{Phase: s.Phase, Messages: appended}, nil
	}

	// 第三条输入：生成画像并自动穿过任务提示阶段
	prof, err := c.profiler.Generate(ctx, &profile.Input{
		Utterances: s.UtteranceHistory,
		Provider:   c.provider,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProfileFailed, "style profile generation failed")
	}
	s.Profile = prof

	// 提示文案先于转场生成，失败时停留在采集阶段，下一条消息可重试
	notice, err := c.buildNotice(ctx, s)
	if err != nil {
		return nil, err
	}

	c.transition(s, entity.PhasePreTaskNotice)
	s.NoticeText = notice

	// pre_task_notice 为瞬时阶段，立即进入任务对话并启动计时
	now := c.now()
	s.StartTime = &now
	c.transition(s, entity.PhaseTaskConversation)
	s.AppendMessage(entity.RoleAssistant, notice)
	s.NoticeInserted = true
	appended = append(appended, entity.Message{Role: entity.RoleAssistant, Content: notice})

	logger.Info(ctx, "style profile generated, task conversation started",
		"structured", prof.Structured())

	return &RenderPlan{
		Phase:          s.Phase,
		Messages:       appended,
		ProfileSummary: prof.Summary,
	}, nil
}

// buildNotice 生成任务开始提示
// 固定模式使用固定文案，镜像模式按画像改写
func (c *Controller) buildNotice(ctx context.Context, s *entity.Session) (string, error) {
	if s.Mode == entity.ModeFixed {
		return fixedNoticeText, nil
	}

	summary := ""
	if s.Profile != nil {
		summary = s.Profile.Summary
	}
	notice, err := c.generate(ctx, "pre_task_notice", []*schema.Message{
		schema.UserMessage(noticePrompt(summary)),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(notice), nil
}

// handleTaskTurn 任务阶段的一轮对话
// 超时检查在整轮处理完成后进行，已到达的消息仍被处理
func (c *Controller) handleTaskTurn(ctx context.Context, s *entity.Session, content string) (*RenderPlan, error) {
	s.AppendMessage(entity.RoleUser, content)
	appended := []entity.Message{{Role: entity.RoleUser, Content: content}}

	var instruction string
	if s.Mode == entity.ModeFixed {
		instruction = fixedSystemInstruction
	} else {
		summary := ""
		if s.Profile != nil {
			summary = s.Profile.Summary
		}
		instruction = mirroringSystemInstruction(summary, string(s.MirrorLevel))
	}

	// 只送最近 taskContextWindow 条消息，完整记录仍保留在会话里
	msgs := append(
		[]*schema.Message{schema.SystemMessage(instruction)},
		toSchemaMessages(s.RecentMessages(taskContextWindow))...,
	)
	reply, err := c.generate(ctx, "task_turn", msgs)
	if err != nil {
		return nil, err
	}
	s.AppendMessage(entity.RoleAssistant, reply)
	appended = append(appended, entity.Message{Role: entity.RoleAssistant, Content: reply})

	sim, userVec, botVec := c.scorer.ScoreWithVectors(ctx, content, reply)

	// 相似度为空也照常落一行对话存档
	record := entity.NewTurnRecord(c.now(), s.UserID, content, reply, sim)
	if err := c.conversations.Create(ctx, record); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to append conversation record")
	}

	c.archiveTurnVectors(ctx, s, content, reply, sim, userVec, botVec)

	plan := &RenderPlan{Phase: s.Phase, Messages: appended, Similarity: sim}

	if s.StartTime != nil && c.now().Sub(*s.StartTime) > taskDuration {
		s.AppendMessage(entity.RoleAssistant, endNoticeText)
		plan.Messages = append(plan.Messages, entity.Message{Role: entity.RoleAssistant, Content: endNoticeText})
		c.transition(s, entity.PhaseConsent)
		plan.Phase = s.Phase
		plan.PauseSeconds = endPauseSeconds
		logger.Info(ctx, "task time elapsed, moving to survey")
	}

	return plan, nil
}

// archiveTurnVectors 尽力而为地归档本轮向量，失败只记日志
func (c *Controller) archiveTurnVectors(ctx context.Context, s *entity.Session, userText, botText string, sim *float64, userVec, botVec []float64) {
	if c.turnVectors == nil || len(userVec) == 0 || len(botVec) == 0 {
		return
	}

	turnIndex := len(s.Messages) / 2
	vectors := []*repository.TurnVector{
		{
			ID:         uuid.NewString(),
			UserID:     s.UserID,
			TurnIndex:  turnIndex,
			Speaker:    "user",
			Text:       userText,
			Vector:     toFloat32(userVec),
			Similarity: sim,
		},
		{
			ID:         uuid.NewString(),
			UserID:     s.UserID,
			TurnIndex:  turnIndex,
			Speaker:    "bot",
			Text:       botText,
			Vector:     toFloat32(botVec),
			Similarity: sim,
		},
	}

	insert := func(ctx context.Context) {
		if err := c.turnVectors.Insert(ctx, vectors); err != nil {
			logger.Warn(ctx, "turn vector archive failed", "error", err.Error())
		}
	}

	if c.archiveAsync {
		go insert(context.WithoutCancel(ctx))
		return
	}
	insert(ctx)
}

// handleSubmitSurvey 问卷提交阶段
func (c *Controller) handleSubmitSurvey(ctx context.Context, s *entity.Session, ev Event) (*RenderPlan, error) {
	if s.Phase != entity.PhaseConsent {
		return nil, apperrors.ErrInvalidPhase.WithDetail(string(s.Phase))
	}
	if s.SurveySubmitted {
		return nil, apperrors.ErrSurveyDuplicate
	}
	in := ev.Survey
	if in == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("survey payload is required")
	}
	if err := validateSurvey(in); err != nil {
		metrics.SurveySubmissions.WithLabelValues(s.Mode.Label(), "rejected").Inc()
		return nil, err
	}

	record := buildSurveyRecord(c.now(), s, in)
	if err := c.surveys.Create(ctx, record); err != nil {
		metrics.SurveySubmissions.WithLabelValues(s.Mode.Label(), "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to append survey record")
	}

	s.SurveySubmitted = true
	c.transition(s, entity.PhaseEnded)
	metrics.SurveySubmissions.WithLabelValues(s.Mode.Label(), "saved").Inc()
	logger.Info(ctx, "survey saved, session ended")

	return &RenderPlan{Phase: s.Phase, SurveySaved: true, SessionEnded: true}, nil
}

// validateSurvey 校验问卷：任一占位值或职业为空都整体拒绝
func validateSurvey(in *SurveyInput) error {
	required := []string{
		in.Gender, in.Age, in.Education,
		in.Similarity, in.Trust, in.Enjoyment,
		in.Humanness, in.ReuseIntent, in.Usefulness,
	}
	for _, v := range required {
		if v == "" || v == SurveyPlaceholder {
			return apperrors.ErrSurveyIncomplete
		}
	}
	if strings.TrimSpace(in.Job) == "" {
		return apperrors.ErrSurveyIncomplete
	}
	return nil
}

// buildSurveyRecord 组装问卷存档行，画像缺失维度写空串
func buildSurveyRecord(now time.Time, s *entity.Session, in *SurveyInput) *entity.SurveyRecord {
	record := &entity.SurveyRecord{
		Timestamp: now,
		UserID:    s.UserID,
		Mode:      s.Mode.Label(),

		Gender:    in.Gender,
		Age:       in.Age,
		Education: in.Education,
		Job:       strings.TrimSpace(in.Job),

		Similarity:  in.Similarity,
		Trust:       in.Trust,
		Enjoyment:   in.Enjoyment,
		Humanness:   in.Humanness,
		ReuseIntent: in.ReuseIntent,
		Usefulness:  in.Usefulness,
	}

	if s.Profile != nil {
		record.StylePrompt = s.Profile.Summary
		if s.Profile.Scores != nil {
			record.Tone = s.Profile.Scores.ToneString()
			record.Formality = s.Profile.Scores.FormalityString()
			record.EmotionIntensity = s.Profile.Scores.EmotionIntensityString()
			record.Politeness = s.Profile.Scores.PolitenessString()
			record.EmojiUse = s.Profile.Scores.EmojiUseString()
			record.SentenceStructure = s.Profile.Scores.SentenceStructureString()
		}
	}

	return record
}

// generate 调用聊天模型并返回文本回复
func (c *Controller) generate(ctx context.Context, workflow string, msgs []*schema.Message) (string, error) {
	ctx = obseino.WithWorkflowProvider(ctx, workflow, c.provider)
	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "failed to acquire chat model")
	}
	out, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "chat completion failed")
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", apperrors.New(apperrors.CodeLLMCallFailed, "empty chat completion")
	}
	return out.Content, nil
}

// transition 切换阶段并记录指标
func (c *Controller) transition(s *entity.Session, to entity.Phase) {
	from := s.Phase
	s.Phase = to
	metrics.SessionPhaseTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// toSchemaMessages 会话消息转模型消息
func toSchemaMessages(msgs []entity.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}

// toFloat32 向量降精度，Milvus 存 float32
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
