// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"mirror-chat-study/internal/application/experiment"
	"mirror-chat-study/internal/domain/entity"
	"mirror-chat-study/internal/infrastructure/sessionstore"
	"mirror-chat-study/internal/interfaces/http/dto"
	"mirror-chat-study/pkg/errors"
	"mirror-chat-study/pkg/logger"
)

// SessionHandler 实验会话处理器
type SessionHandler struct {
	store      *sessionstore.Store
	controller *experiment.Controller
}

// NewSessionHandler 创建实验会话处理器
func NewSessionHandler(store *sessionstore.Store, controller *experiment.Controller) *SessionHandler {
	return &SessionHandler{
		store:      store,
		controller: controller,
	}
}

// CreateSession 创建会话
// @Summary 创建实验会话
// @Description 创建一个新的被试会话，初始阶段为模式选择
// @Tags Sessions
// @Produce json
// @Success 201 {object} dto.Response[dto.CreateSessionResponse]
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session := h.store.Create(c.Request.Context())

	logger.Info(c.Request.Context(), "session created",
		"session_id", session.ID,
		"participant", session.UserID,
	)

	dto.Created(c, dto.CreateSessionResponse{
		SessionID: session.ID,
		UserID:    session.UserID,
		Phase:     string(session.Phase),
	})
}

// GetSession 获取会话快照
// @Summary 获取会话快照
// @Description 返回会话当前阶段与全部展示消息
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionSnapshot]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.store.Get(c.Request.Context(), c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}

	session.Lock()
	snap := dto.NewSessionSnapshot(session, time.Now())
	session.Unlock()

	dto.Success(c, snap)
}

// SelectMode 选择实验条件
// @Summary 选择实验条件
// @Description 选择 fixed / mirroring 条件并进入风格采集阶段
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SelectModeRequest true "条件选择请求"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/mode [post]
func (h *SessionHandler) SelectMode(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SelectModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.store.Get(ctx, c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}

	plan, err := h.controller.Handle(ctx, session, experiment.Event{
		Type:        experiment.EventSelectMode,
		Mode:        entity.Mode(req.Mode),
		MirrorLevel: entity.MirrorLevel(req.MirrorLevel),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, dto.NewEventResponse(plan))
}

// PostMessage 发送用户消息
// @Summary 发送用户消息
// @Description 按会话当前阶段推进对话，返回新追加的消息
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.PostMessageRequest true "消息请求"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages [post]
func (h *SessionHandler) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.store.Get(ctx, c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}

	plan, err := h.controller.Handle(ctx, session, experiment.Event{
		Type:    experiment.EventUserMessage,
		Content: req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, dto.NewEventResponse(plan))
}

// SubmitSurvey 提交问卷
// @Summary 提交问卷
// @Description 校验问卷完整性并入库，成功后会话结束
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SubmitSurveyRequest true "问卷提交请求"
// @Success 200 {object} dto.Response[dto.EventResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/survey [post]
func (h *SessionHandler) SubmitSurvey(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.store.Get(ctx, c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}

	plan, err := h.controller.Handle(ctx, session, experiment.Event{
		Type:   experiment.EventSubmitSurvey,
		Survey: req.ToInput(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	dto.Success(c, dto.NewEventResponse(plan))
}

// SurveyOptions 获取问卷选项
// @Summary 获取问卷选项
// @Description 返回问卷各题的固定选项，供前端渲染
// @Tags Sessions
// @Produce json
// @Success 200 {object} dto.Response[dto.SurveyOptionsResponse]
// @Router /v1/survey/options [get]
func (h *SessionHandler) SurveyOptions(c *gin.Context) {
	dto.Success(c, dto.SurveyOptionsResponse{
		Placeholder: experiment.SurveyPlaceholder,
		Scale:       experiment.SurveyScale,
		Gender:      experiment.SurveyGenderOptions,
		Age:         experiment.SurveyAgeOptions,
		Education:   experiment.SurveyEducationOptions,
	})
}

// writeError 按错误类型写响应，业务错误透出 HTTP 状态
func writeError(c *gin.Context, err error) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			TraceID: c.GetString("trace_id"),
		})
		return
	}
	logger.Error(c.Request.Context(), "unhandled request error", err)
	dto.InternalError(c, "internal server error")
}
