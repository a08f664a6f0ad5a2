// Package profile 负责从用户语料生成语言风格画像
package profile

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 获取 ChatModel 实例的工厂接口
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
