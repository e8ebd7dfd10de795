package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/embedrec/config"
	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/dataset"
	"github.com/rushteam/embedrec/embedding"
	"github.com/rushteam/embedrec/eval"
	"github.com/rushteam/embedrec/metric"
	"github.com/rushteam/embedrec/pipeline"
	"github.com/rushteam/embedrec/pkg/dsl"
	"github.com/rushteam/embedrec/pkg/logging"
	"github.com/rushteam/embedrec/recommend"
	"github.com/rushteam/embedrec/server"
	"github.com/rushteam/embedrec/similarity"
	"github.com/rushteam/embedrec/store"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "配置文件路径")
		evaluate   = flag.Bool("evaluate", false, "只跑离线评估（留出 + 交叉验证），不启动服务")
	)
	flag.Parse()

	cfg, err := config.LoadFromYAML(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	table, emb, catalog := loadInputs(cfg, logger)

	aggregator := &embedding.Aggregator{
		Renormalize: cfg.Aggregation.Renormalize,
		Logger:      logger,
	}
	engine := &similarity.Engine{
		BatchSize: cfg.Similarity.BatchSize,
		Parallel:  cfg.Similarity.Parallel,
	}

	ctx := context.Background()
	if *evaluate {
		runEvaluation(ctx, cfg, logger, aggregator, engine, table, emb, catalog)
		return
	}

	users, sim := buildArtifacts(ctx, cfg, logger, aggregator, engine, table, emb)
	serve(cfg, logger, users, sim, catalog)
}

// loadInputs 装载交互表（含可选过滤）、向量与商品目录。
func loadInputs(cfg *config.Config, logger *zap.Logger) (*core.Table, *embedding.Store, core.Catalog) {
	table, err := dataset.LoadInteractions(cfg.Data.Interactions)
	if err != nil {
		logger.Fatal("load interactions", zap.Error(err))
	}
	logger.Info("interactions loaded",
		zap.String("path", cfg.Data.Interactions),
		zap.Int("rows", table.Len()))

	if expr := cfg.Aggregation.Filter; expr != "" {
		filter, err := dsl.Compile(expr)
		if err != nil {
			logger.Fatal("compile interaction filter", zap.Error(err))
		}
		filtered, err := filter.Apply(table)
		if err != nil {
			logger.Fatal("apply interaction filter", zap.Error(err))
		}
		logger.Info("interactions filtered",
			zap.String("filter", expr),
			zap.Int("kept", filtered.Len()),
			zap.Int("dropped", table.Len()-filtered.Len()))
		table = filtered
	}

	products, err := embedding.ReadVectorsNPY(cfg.Data.ProductEmbeddings)
	if err != nil {
		logger.Fatal("load product embeddings", zap.Error(err))
	}
	interactions, err := embedding.ReadVectorsNPY(cfg.Data.InteractionEmbeddings)
	if err != nil {
		logger.Fatal("load interaction embeddings", zap.Error(err))
	}
	emb, err := embedding.NewStore(products, interactions)
	if err != nil {
		logger.Fatal("build embedding store", zap.Error(err))
	}
	logger.Info("embeddings loaded",
		zap.Int("products", emb.NumProducts()),
		zap.Int("interactions", emb.NumInteractions()),
		zap.Int("dim", emb.Dim()))

	catalog, err := dataset.LoadCatalog(cfg.Data.Products, cfg.Delimiter())
	if err != nil {
		logger.Fatal("load catalog", zap.Error(err))
	}
	return table, emb, catalog
}

// buildArtifacts 跑离线流水线：聚合用户向量、计算相似度矩阵。
// 工件已存在时跳过对应步骤，从磁盘回读。
func buildArtifacts(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	aggregator *embedding.Aggregator,
	engine *similarity.Engine,
	table *core.Table,
	emb *embedding.Store,
) (*core.IDIndex, *core.Matrix) {
	var (
		users *core.IDIndex
		sim   *core.Matrix
	)

	p := &pipeline.Pipeline{
		Logger: logger,
		Steps: []pipeline.Step{
			&pipeline.FuncStep{
				StepName:     "aggregate_users",
				ArtifactPath: cfg.Data.UserEmbeddings,
				Fn: func(ctx context.Context) error {
					vectors, err := aggregator.AggregateUsers(table, emb)
					if err != nil {
						return err
					}
					// 工件行号即 "用户 i+1"，稀疏的用户 ID 空间不可持久化
					if err := vectors.Users.EnsureDense(); err != nil {
						return err
					}
					users = vectors.Users
					if cfg.Data.UserEmbeddings == "" {
						return nil
					}
					return embedding.WriteVectorsNPY(cfg.Data.UserEmbeddings, vectors.Vectors)
				},
			},
			&pipeline.FuncStep{
				StepName:     "similarity_matrix",
				ArtifactPath: cfg.Data.SimilarityMatrix,
				Fn: func(ctx context.Context) error {
					vectors, err := loadOrAggregateUsers(cfg, aggregator, table, emb)
					if err != nil {
						return err
					}
					m, err := engine.Compute(ctx, vectors, emb.Products())
					if err != nil {
						return err
					}
					sim = m
					if cfg.Data.SimilarityMatrix == "" {
						return nil
					}
					return embedding.WriteMatrixNPY(cfg.Data.SimilarityMatrix, m)
				},
			},
		},
	}
	if err := p.Run(ctx); err != nil {
		logger.Fatal("offline pipeline failed", zap.Error(err))
	}

	// 被跳过的步骤从工件回读
	if sim == nil {
		m, err := embedding.ReadMatrixNPY(cfg.Data.SimilarityMatrix)
		if err != nil {
			logger.Fatal("load similarity matrix artifact", zap.Error(err))
		}
		sim = m
	}
	if users == nil {
		users = denseIndex(sim.Rows(), logger)
	}
	logger.Info("similarity matrix ready",
		zap.Int("users", sim.Rows()),
		zap.Int("products", sim.Cols()))
	return users, sim
}

// loadOrAggregateUsers 优先读用户向量工件，缺失时重新聚合。
func loadOrAggregateUsers(cfg *config.Config, aggregator *embedding.Aggregator, table *core.Table, emb *embedding.Store) ([][]float64, error) {
	if cfg.Data.UserEmbeddings != "" {
		if vectors, err := embedding.ReadVectorsNPY(cfg.Data.UserEmbeddings); err == nil {
			return vectors, nil
		}
	}
	out, err := aggregator.AggregateUsers(table, emb)
	if err != nil {
		return nil, err
	}
	return out.Vectors, nil
}

// denseIndex 按 "行 i = 用户 i+1" 约定重建用户索引。
func denseIndex(n int, logger *zap.Logger) *core.IDIndex {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i) + 1
	}
	users, err := core.NewIDIndex(ids)
	if err != nil {
		logger.Fatal("rebuild user index", zap.Error(err))
	}
	return users
}

// runEvaluation 执行留出评估与 K 折交叉验证并打印报告。
func runEvaluation(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	aggregator *embedding.Aggregator,
	engine *similarity.Engine,
	table *core.Table,
	emb *embedding.Store,
	catalog core.Catalog,
) {
	evaluator := &eval.Evaluator{
		K:          cfg.Evaluation.K,
		Engine:     engine,
		Aggregator: aggregator,
		Logger:     logger,
	}

	split, err := dataset.GroupedHoldout(table, cfg.Evaluation.TestFraction, cfg.Evaluation.Seed)
	if err != nil {
		logger.Fatal("holdout split", zap.Error(err))
	}
	report, err := evaluator.Evaluate(ctx, split.Train, split.Test, emb, catalog)
	if err != nil {
		logger.Fatal("holdout evaluation", zap.Error(err))
	}
	logger.Info("holdout evaluation", reportFields(report)...)

	cv := &eval.CrossValidator{
		Folds:     cfg.Evaluation.Folds,
		Seed:      cfg.Evaluation.Seed,
		Evaluator: evaluator,
		Logger:    logger,
	}
	result, err := cv.Run(ctx, table, emb, catalog)
	if err != nil {
		logger.Fatal("cross validation", zap.Error(err))
	}
	logger.Info("cross validation mean", reportFields(result.Mean)...)
}

func reportFields(report metric.Report) []zap.Field {
	fields := make([]zap.Field, 0, len(metric.Names))
	for _, name := range metric.Names {
		fields = append(fields, zap.Float64(name, report[name]))
	}
	return fields
}

// serve 预热缓存并启动 HTTP 服务，SIGINT/SIGTERM 触发优雅退出。
func serve(cfg *config.Config, logger *zap.Logger, users *core.IDIndex, sim *core.Matrix, catalog core.Catalog) {
	rec, err := recommend.New(sim, users, catalog)
	if err != nil {
		logger.Fatal("build recommender", zap.Error(err))
	}

	var cache core.KeyValueStore
	if addr := cfg.Serving.Redis.Addr; addr != "" {
		redisStore, err := store.NewRedisStore(addr, cfg.Serving.Redis.DB)
		if err != nil {
			logger.Fatal("connect redis", zap.String("addr", addr), zap.Error(err))
		}
		defer redisStore.Close()
		cache = redisStore
	} else {
		cache = store.NewMemoryStore()
	}

	warmCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := rec.WarmCache(warmCtx, cache, cfg.Serving.TopN); err != nil {
		logger.Warn("cache warmup failed, serving from matrix", zap.Error(err))
		cache = nil
	}
	cancel()

	srv := &http.Server{
		Addr:    cfg.Serving.Addr,
		Handler: server.New(rec, cache, cfg.Serving.TopN, logger).Router(),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		logger.Info("serving recommendations", zap.String("addr", cfg.Serving.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-done
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
