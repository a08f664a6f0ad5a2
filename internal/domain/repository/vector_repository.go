package repository

import "context"

// TurnVector 一轮对话的用户/机器人向量对
type TurnVector struct {
	ID         string
	UserID     string
	TurnIndex  int
	Speaker    string
	Text       string
	Vector     []float32
	Similarity *float64
}

// TurnVectorRepository 轮次向量归档接口
// 归档为尽力而为操作，失败不影响对话流程
type TurnVectorRepository interface {
	// Insert 写入一批轮次向量
	Insert(ctx context.Context, vectors []*TurnVector) error
}
