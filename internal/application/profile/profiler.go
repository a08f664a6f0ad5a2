package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"mirror-chat-study/internal/domain/entity"
	obseino "mirror-chat-study/internal/observability/eino"
	"mirror-chat-study/pkg/logger"
)

// historyWindow 画像只取最近几条用户原话
const historyWindow = 3

// Input 画像生成输入
type Input struct {
	// Utterances 风格采集阶段的全部用户原话
	Utterances []string
	// Provider 指定 LLM 提供商，空串使用默认
	Provider string
}

// Profiler 基于 LLM 的语言风格画像生成器
type Profiler struct {
	factory ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*Input, *entity.StyleProfile]
	chainErr  error
}

// NewProfiler 创建画像生成器
func NewProfiler(factory ChatModelFactory) *Profiler {
	return &Profiler{factory: factory}
}

// Generate 根据用户语料生成风格画像
// JSON 解析失败时降级为纯文本摘要，Scores 为 nil
func (p *Profiler) Generate(ctx context.Context, in *Input) (*entity.StyleProfile, error) {
	if p == nil || p.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil || len(in.Utterances) == 0 {
		return nil, fmt.Errorf("no utterances to analyze")
	}

	chain, err := p.getChain()
	if err != nil {
		return nil, err
	}
	ctx = obseino.WithWorkflowProvider(ctx, "style_profile", in.Provider)
	return chain.Invoke(ctx, in)
}

type profileChainState struct {
	In       *Input
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (p *Profiler) getChain() (compose.Runnable[*Input, *entity.StyleProfile], error) {
	p.chainOnce.Do(func() {
		p.chain, p.chainErr = p.buildChain(context.Background())
	})
	return p.chain, p.chainErr
}

func (p *Profiler) buildChain(ctx context.Context) (compose.Runnable[*Input, *entity.StyleProfile], error) {
	chain := compose.NewChain[*Input, *entity.StyleProfile]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *Input) (*profileChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &profileChainState{In: in}, nil
		}),
		compose.WithNodeName("style_profile.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *profileChainState) (*profileChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			st.Messages = []*schema.Message{
				schema.UserMessage(buildProfilePrompt(st.In.Utterances)),
			}
			return st, nil
		}),
		compose.WithNodeName("style_profile.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *profileChainState) (*profileChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			chatModel, err := p.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildProfileModelOptions(true)...)
			if err != nil && IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", strings.TrimSpace(st.In.Provider),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildProfileModelOptions(false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("style_profile.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *profileChainState) (*entity.StyleProfile, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return parseProfile(st.OutMsg.Content), nil
		}),
		compose.WithNodeName("style_profile.finalize"),
	)

	return chain.Compile(ctx)
}

// buildProfilePrompt 拼接画像分析提示词，语料只取最近 historyWindow 条
func buildProfilePrompt(utterances []string) string {
	if len(utterances) > historyWindow {
		utterances = utterances[len(utterances)-historyWindow:]
	}
	history := strings.Join(utterances, "\n")

	return fmt.Sprintf(`Analyze the user's writing style from the following messages:
%s

Evaluate and summarize the style across the following 7 dimensions (in Korean):
1. Tone (감정적 분위기)
2. Formality (격식 수준)
3. Personality (성향)
4. Emotion intensity (감정 표현 강도)
5. Politeness (공손함 수준)
6. Use of emojis or informal markers (이모티콘, ㅋㅋ, ~ 등)
7. Sentence length and structure (문장 길이와 형태)

Provide a concise summary and a JSON output with scores from 1~5 for each dimension.`, history)
}

func buildProfileModelOptions(enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 1)
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "style_profile",
					"strict": false,
					"schema": styleProfileJSONSchema(),
				},
			},
		}))
	}
	return opts
}

func styleProfileJSONSchema() map[string]any {
	dims := []string{
		"Tone",
		"Formality",
		"Personality",
		"Emotion intensity",
		"Politeness",
		"Use of emojis or informal markers",
		"Sentence length and structure",
	}
	props := map[string]any{
		"summary": map[string]any{"type": "string"},
	}
	required := []any{"summary"}
	for _, d := range dims {
		props[d] = map[string]any{"type": "integer", "minimum": 1, "maximum": 5}
		required = append(required, d)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             required,
		"properties":           props,
	}
}

// parseProfile 解析模型输出
// JSON 合法时 Summary 为规范化后的 JSON 文本，Scores 为各维度评分；
// 否则 Summary 保留原始输出，Scores 为 nil
func parseProfile(content string) *entity.StyleProfile {
	raw := ExtractJSONObject(content)

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return &entity.StyleProfile{Summary: strings.TrimSpace(content)}
	}

	compact, err := json.Marshal(obj)
	if err != nil {
		return &entity.StyleProfile{Summary: strings.TrimSpace(content)}
	}

	return &entity.StyleProfile{
		Summary: string(compact),
		Scores:  parseScores(obj),
	}
}

// parseScores 从画像 JSON 中按键名提取各维度评分，缺失或非数值的维度为 nil
func parseScores(obj map[string]any) *entity.StyleScores {
	return &entity.StyleScores{
		Tone:              coerceScore(obj["Tone"]),
		Formality:         coerceScore(obj["Formality"]),
		Personality:       coerceScore(obj["Personality"]),
		EmotionIntensity:  coerceScore(obj["Emotion intensity"]),
		Politeness:        coerceScore(obj["Politeness"]),
		EmojiUse:          coerceScore(obj["Use of emojis or informal markers"]),
		SentenceStructure: coerceScore(obj["Sentence length and structure"]),
	}
}

func coerceScore(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &i
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			r := int(i)
			return &r
		}
	}
	return nil
}
