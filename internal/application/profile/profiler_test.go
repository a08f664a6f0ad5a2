package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	replies   []string
	errs      []error
	calls     int
	lastMsgs  []*schema.Message
	lastCalls [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	idx := f.calls
	f.calls++
	f.lastMsgs = msgs
	f.lastCalls = append(f.lastCalls, msgs)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	reply := ""
	if idx < len(f.replies) {
		reply = f.replies[idx]
	} else if len(f.replies) > 0 {
		reply = f.replies[len(f.replies)-1]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func TestProfilerGenerateStructured(t *testing.T) {
	cm := &fakeChatModel{replies: []string{
		`{"summary":"짧고 캐주얼한 말투","Tone":4,"Formality":2,"Personality":3,"Emotion intensity":4,"Politeness":2,"Use of emojis or informal markers":5,"Sentence length and structure":2}`,
	}}
	p := NewProfiler(&fakeFactory{model: cm})

	got, err := p.Generate(context.Background(), &Input{
		Utterances: []string{"오늘 날씨 완전 좋았어 ㅋㅋ", "기분도 최고야~", "저녁엔 치킨 먹을래!"},
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Structured())

	assert.Contains(t, got.Summary, "짧고 캐주얼한 말투")
	require.NotNil(t, got.Scores.Tone)
	assert.Equal(t, 4, *got.Scores.Tone)
	require.NotNil(t, got.Scores.EmojiUse)
	assert.Equal(t, 5, *got.Scores.EmojiUse)
	assert.Equal(t, "2", got.Scores.SentenceStructureString())
}

func TestProfilerGeneratePlainTextFallback(t *testing.T) {
	cm := &fakeChatModel{replies: []string{"사용자는 친근하고 편안한 말투를 사용합니다."}}
	p := NewProfiler(&fakeFactory{model: cm})

	got, err := p.Generate(context.Background(), &Input{Utterances: []string{"안녕"}})
	require.NoError(t, err)
	assert.False(t, got.Structured())
	assert.Equal(t, "사용자는 친근하고 편안한 말투를 사용합니다.", got.Summary)
	assert.Nil(t, got.Scores)
}

func TestProfilerGenerateUsesRecentUtterances(t *testing.T) {
	cm := &fakeChatModel{replies: []string{`{"summary":"ok"}`}}
	p := NewProfiler(&fakeFactory{model: cm})

	_, err := p.Generate(context.Background(), &Input{
		Utterances: []string{"첫 번째 문장", "두 번째 문장", "세 번째 문장", "네 번째 문장"},
	})
	require.NoError(t, err)
	require.Len(t, cm.lastMsgs, 1)

	prompt := cm.lastMsgs[0].Content
	assert.NotContains(t, prompt, "첫 번째 문장")
	assert.Contains(t, prompt, "두 번째 문장")
	assert.Contains(t, prompt, "네 번째 문장")
	assert.Contains(t, prompt, "Tone (감정적 분위기)")
}

func TestProfilerGenerateSchemaFallback(t *testing.T) {
	cm := &fakeChatModel{
		errs:    []error{errors.New("response_format is not supported by this model")},
		replies: []string{"", `{"summary":"fallback","Tone":3}`},
	}
	p := NewProfiler(&fakeFactory{model: cm})

	got, err := p.Generate(context.Background(), &Input{Utterances: []string{"안녕하세요"}})
	require.NoError(t, err)
	assert.Equal(t, 2, cm.calls)
	require.True(t, got.Structured())
	require.NotNil(t, got.Scores.Tone)
	assert.Equal(t, 3, *got.Scores.Tone)
	assert.Nil(t, got.Scores.Formality)
	assert.Equal(t, "", got.Scores.FormalityString())
}

func TestProfilerGenerateEmptyInput(t *testing.T) {
	p := NewProfiler(&fakeFactory{model: &fakeChatModel{}})

	_, err := p.Generate(context.Background(), &Input{})
	assert.Error(t, err)

	_, err = p.Generate(context.Background(), nil)
	assert.Error(t, err)
}
