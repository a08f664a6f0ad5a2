// Package similarity 负责计算用户输入与机器人回复的风格相似度
package similarity

import (
	"context"
	"fmt"
	"math"

	"github.com/cloudwego/eino/components/embedding"

	"mirror-chat-study/pkg/logger"
	"mirror-chat-study/pkg/metrics"
)

// Scorer 基于 Embedding 余弦相似度的轮次计分器
type Scorer struct {
	embedder embedding.Embedder
}

// NewScorer 创建计分器
func NewScorer(embedder embedding.Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// Score 计算一轮对话的相似度，保留三位小数
// 任何失败（Embedding 调用出错、向量异常、空文本）都返回 nil，
// 调用方据此写入空值而不是中断对话
func (s *Scorer) Score(ctx context.Context, userText, botText string) *float64 {
	v, _, _ := s.ScoreWithVectors(ctx, userText, botText)
	return v
}

// ScoreWithVectors 计算相似度并返回两侧向量，供向量归档使用
func (s *Scorer) ScoreWithVectors(ctx context.Context, userText, botText string) (*float64, []float64, []float64) {
	if s == nil || s.embedder == nil {
		return nil, nil, nil
	}
	if userText == "" || botText == "" {
		metrics.SimilarityComputations.WithLabelValues("skipped").Inc()
		return nil, nil, nil
	}

	vecs, err := s.embedder.EmbedStrings(ctx, []string{userText, botText})
	if err != nil {
		logger.Warn(ctx, "embedding call failed, similarity unavailable", "error", err.Error())
		metrics.SimilarityComputations.WithLabelValues("error").Inc()
		return nil, nil, nil
	}
	if len(vecs) != 2 || len(vecs[0]) == 0 || len(vecs[0]) != len(vecs[1]) {
		logger.Warn(ctx, "embedding returned malformed vectors",
			"error", fmt.Sprintf("got %d vectors", len(vecs)))
		metrics.SimilarityComputations.WithLabelValues("error").Inc()
		return nil, nil, nil
	}

	sim, ok := cosine(vecs[0], vecs[1])
	if !ok {
		metrics.SimilarityComputations.WithLabelValues("error").Inc()
		return nil, nil, nil
	}

	rounded := math.Round(sim*1000) / 1000
	metrics.SimilarityComputations.WithLabelValues("success").Inc()
	metrics.SimilarityScore.Observe(rounded)
	return &rounded, vecs[0], vecs[1]
}

// cosine 计算余弦相似度，零向量或 NaN 视为失败
func cosine(a, b []float64) (float64, bool) {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}
