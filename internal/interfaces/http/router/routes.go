// Package router 提供 HTTP 路由配置
package router

import (
	"mirror-chat-study/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	sessionHandler *handler.SessionHandler,
	recordHandler *handler.RecordHandler,
) {
	// 实验会话
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("/:sid", sessionHandler.GetSession)
		sessions.POST("/:sid/mode", sessionHandler.SelectMode)
		sessions.POST("/:sid/messages", sessionHandler.PostMessage)
		sessions.POST("/:sid/survey", sessionHandler.SubmitSurvey)
	}

	// 问卷固定选项
	v1.GET("/survey/options", sessionHandler.SurveyOptions)

	// 存档数据导出
	v1.GET("/participants/:uid/records", recordHandler.GetParticipantRecords)
}
