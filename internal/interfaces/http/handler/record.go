package handler

import (
	"github.com/gin-gonic/gin"

	"mirror-chat-study/internal/domain/repository"
	"mirror-chat-study/internal/interfaces/http/dto"
)

// RecordHandler 存档数据查询处理器，供研究人员导出数据
type RecordHandler struct {
	conversations repository.ConversationRecordRepository
	surveys       repository.SurveyRecordRepository
}

// NewRecordHandler 创建存档数据查询处理器
func NewRecordHandler(
	conversations repository.ConversationRecordRepository,
	surveys repository.SurveyRecordRepository,
) *RecordHandler {
	return &RecordHandler{
		conversations: conversations,
		surveys:       surveys,
	}
}

// GetParticipantRecords 按被试编号查询存档
// @Summary 查询被试存档
// @Description 返回被试的全部对话轮次与问卷存档
// @Tags Records
// @Produce json
// @Param uid path string true "被试编号"
// @Success 200 {object} dto.Response[dto.ParticipantRecordsResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/participants/{uid}/records [get]
func (h *RecordHandler) GetParticipantRecords(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("uid")

	turns, err := h.conversations.ListByUser(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	survey, err := h.surveys.GetByUser(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	if len(turns) == 0 && survey == nil {
		dto.NotFound(c, "no records for participant "+userID)
		return
	}

	dto.Success(c, dto.ParticipantRecordsResponse{
		UserID: userID,
		Turns:  turns,
		Survey: survey,
	})
}
