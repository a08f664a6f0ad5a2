// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionTurnVectors 任务轮次向量集合
	CollectionTurnVectors = "turn_vectors"

	// DefaultVectorDimension 默认向量维度，与 Embedding 模型输出一致
	DefaultVectorDimension = 1536
)

// TurnVectorsSchema 任务轮次向量 Collection Schema
// 每个计分轮次写入用户与机器人各一条向量，供离线风格分析
func TurnVectorsSchema(dimension int) *entity.Schema {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}
	return &entity.Schema{
		CollectionName: CollectionTurnVectors,
		Description:    "Per-turn utterance embeddings for offline style analysis",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dimension),
				},
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
			{
				Name:     "turn_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "speaker",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8",
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "similarity",
				DataType: entity.FieldTypeDouble,
			},
		},
	}
}
