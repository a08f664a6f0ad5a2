package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"mirror-chat-study/internal/config"
	"mirror-chat-study/internal/infrastructure/persistence/milvus"
	"mirror-chat-study/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 建表
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pgClient.Close()

	fmt.Println("Migrating conversation and survey tables...")
	if err := pgClient.Migrate(); err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}

	// 3. 向量归档集合（功能开启时）
	if cfg.Features.VectorArchive.Enabled {
		fmt.Println("Preparing turn vector collection...")
		milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			log.Fatalf("failed to connect milvus: %v", err)
		}
		defer milvusClient.Close()

		repo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
		if err := repo.EnsureTurnVectorsCollection(ctx); err != nil {
			log.Fatalf("failed to prepare turn vector collection: %v", err)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}
