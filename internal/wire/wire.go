// Package wire 提供依赖装配
package wire

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"

	"mirror-chat-study/internal/application/experiment"
	"mirror-chat-study/internal/application/profile"
	"mirror-chat-study/internal/application/similarity"
	"mirror-chat-study/internal/config"
	infraembedding "mirror-chat-study/internal/infrastructure/embedding"
	"mirror-chat-study/internal/infrastructure/llm"
	"mirror-chat-study/internal/infrastructure/persistence/milvus"
	"mirror-chat-study/internal/infrastructure/persistence/postgres"
	"mirror-chat-study/internal/infrastructure/persistence/redis"
	"mirror-chat-study/internal/infrastructure/sessionstore"
	"mirror-chat-study/internal/interfaces/http/handler"
	"mirror-chat-study/internal/interfaces/http/router"
	"mirror-chat-study/pkg/logger"
)

// App 装配完成的应用
type App struct {
	Router     *router.Router
	Store      *sessionstore.Store
	Controller *experiment.Controller

	PgClient     *postgres.Client
	RedisClient  *redis.Client
	MilvusClient *milvus.Client
}

// Engine 返回 Gin Engine
func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// InitializeApp 装配整个应用
// 返回的清理函数按依赖创建的逆序释放资源
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// PostgreSQL（必需）
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = pgClient.Close() })

	conversationRepo := postgres.NewConversationRecordRepository(pgClient)
	surveyRepo := postgres.NewSurveyRecordRepository(pgClient)

	// Redis（必需，限流）
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = redisClient.Close() })

	rateLimiter := redis.NewRateLimiter(redisClient)

	// Embedding（可选，不可用时相似度记空值）
	embedder := provideEmbedderOptional(ctx, cfg)
	scorer := similarity.NewScorer(embedder)

	// LLM 工厂与画像生成
	factory := llm.NewEinoFactory(cfg)
	profiler := profile.NewProfiler(factory)

	// Milvus（可选，仅向量归档功能开启时连接）
	milvusClient, vectorRepo := provideVectorArchiveOptional(ctx, cfg)
	if milvusClient != nil {
		cleanups = append(cleanups, func() { _ = milvusClient.Close() })
	}

	// 实验状态机
	ctrlOpts := []experiment.Option{
		experiment.WithProvider(cfg.LLM.DefaultProvider),
	}
	if vectorRepo != nil {
		ctrlOpts = append(ctrlOpts, experiment.WithTurnVectorArchive(vectorRepo, cfg.Features.VectorArchive.Async))
	}
	controller := experiment.NewController(factory, profiler, scorer, conversationRepo, surveyRepo, ctrlOpts...)

	// 会话存储
	store := sessionstore.NewStore(cfg.Experiment.SessionTTL, cfg.Experiment.CleanupInterval)
	cleanups = append(cleanups, store.Close)

	// HTTP 层
	healthHandler := handler.NewHealthHandler(pgClient, redisClient, milvusClient)
	sessionHandler := handler.NewSessionHandler(store, controller)
	recordHandler := handler.NewRecordHandler(conversationRepo, surveyRepo)

	r := router.New(cfg, rateLimiter)
	r.Register(healthHandler, sessionHandler, recordHandler)

	app := &App{
		Router:       r,
		Store:        store,
		Controller:   controller,
		PgClient:     pgClient,
		RedisClient:  redisClient,
		MilvusClient: milvusClient,
	}
	return app, cleanup, nil
}

// provideEmbedderOptional 创建 Embedder，不可用时返回 nil 并降级
func provideEmbedderOptional(ctx context.Context, cfg *config.Config) einoembedding.Embedder {
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, similarity disabled", "error", err.Error())
		return nil
	}
	return embedder
}

// provideVectorArchiveOptional 按功能开关连接 Milvus
// 连接失败只告警，不阻塞启动
func provideVectorArchiveOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, *milvus.Repository) {
	if !cfg.Features.VectorArchive.Enabled {
		return nil, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector archive disabled", "error", err.Error())
		return nil, nil
	}
	return client, milvus.NewRepository(client, cfg.Embedding.Dimension)
}
