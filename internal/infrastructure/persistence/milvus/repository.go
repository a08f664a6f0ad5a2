// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"math"
	"time"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mirror-chat-study/internal/domain/repository"
	"mirror-chat-study/pkg/metrics"
)

// Repository 轮次向量归档仓储
type Repository struct {
	client    *Client
	dimension int
}

// NewRepository 创建向量归档仓储
func NewRepository(client *Client, dimension int) *Repository {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}
	return &Repository{client: client, dimension: dimension}
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *milvusentity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, milvusentity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := milvusentity.NewIndexHNSW(
		milvusentity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Insert 写入一批轮次向量
func (r *Repository) Insert(ctx context.Context, vectors []*repository.TurnVector) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertTurnVectors",
		trace.WithAttributes(attribute.Int("count", len(vectors))))
	defer span.End()

	if len(vectors) == 0 {
		return nil
	}

	start := time.Now()
	collName := r.client.CollectionName(CollectionTurnVectors)

	ids := make([]string, len(vectors))
	vecs := make([][]float32, len(vectors))
	userIDs := make([]string, len(vectors))
	turnIndexes := make([]int64, len(vectors))
	speakers := make([]string, len(vectors))
	texts := make([]string, len(vectors))
	similarities := make([]float64, len(vectors))

	for i, v := range vectors {
		ids[i] = v.ID
		vecs[i] = v.Vector
		userIDs[i] = v.UserID
		turnIndexes[i] = int64(v.TurnIndex)
		speakers[i] = v.Speaker
		texts[i] = v.Text
		if v.Similarity != nil {
			similarities[i] = *v.Similarity
		} else {
			similarities[i] = math.NaN()
		}
	}

	idCol := milvusentity.NewColumnVarChar("id", ids)
	vectorCol := milvusentity.NewColumnFloatVector("vector", r.dimension, vecs)
	userCol := milvusentity.NewColumnVarChar("user_id", userIDs)
	turnCol := milvusentity.NewColumnInt64("turn_index", turnIndexes)
	speakerCol := milvusentity.NewColumnVarChar("speaker", speakers)
	textCol := milvusentity.NewColumnVarChar("text", texts)
	simCol := milvusentity.NewColumnDouble("similarity", similarities)

	_, err := r.client.milvus.Insert(ctx, collName, "",
		idCol, vectorCol, userCol, turnCol, speakerCol, textCol, simCol)
	if err != nil {
		span.RecordError(err)
		metrics.MilvusInsertTotal.WithLabelValues(CollectionTurnVectors, "error").Inc()
		return fmt.Errorf("failed to insert turn vectors: %w", err)
	}

	metrics.MilvusInsertTotal.WithLabelValues(CollectionTurnVectors, "success").Inc()
	metrics.MilvusInsertDuration.WithLabelValues(CollectionTurnVectors).Observe(time.Since(start).Seconds())
	return nil
}

// EnsureTurnVectorsCollection 确保集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureTurnVectorsCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionTurnVectors)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, TurnVectorsSchema(r.dimension)); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionTurnVectors)
	}

	return r.client.LoadCollection(ctx, CollectionTurnVectors)
}
