package eval

import (
	"context"

	"go.uber.org/zap"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/dataset"
	"github.com/rushteam/embedrec/embedding"
	"github.com/rushteam/embedrec/metric"
)

// 交叉验证默认参数。
const (
	DefaultFolds = 5
	DefaultSeed  = 42
)

// CrossValidator 在交互表上执行 K 折交叉验证。
//
// 每折以其余折为训练集重新聚合用户向量、重算相似度，
// 折内评估逻辑与留出评估完全一致。
type CrossValidator struct {
	// Folds 折数，<= 0 时使用 DefaultFolds。
	Folds int

	// Seed 划分种子，固定种子下划分完全可复现。
	Seed int64

	Evaluator *Evaluator

	// Logger 可为 nil。
	Logger *zap.Logger
}

// Result 是一次交叉验证的产物：逐折报告与逐指标的折间平均。
type Result struct {
	FoldReports []metric.Report
	Mean        metric.Report
}

// Run 执行交叉验证并返回汇总结果。
func (cv *CrossValidator) Run(ctx context.Context, table *core.Table, emb *embedding.Store, catalog core.Catalog) (*Result, error) {
	k := cv.Folds
	if k < 1 {
		k = DefaultFolds
	}

	folds, err := dataset.KFold(table.Len(), k, cv.Seed)
	if err != nil {
		return nil, err
	}

	reports := make([]metric.Report, 0, len(folds))
	for i, fold := range folds {
		train, err := table.Select(fold.Train)
		if err != nil {
			return nil, err
		}
		test, err := table.Select(fold.Test)
		if err != nil {
			return nil, err
		}

		report, err := cv.Evaluator.Evaluate(ctx, train, test, emb, catalog)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)

		if cv.Logger != nil {
			cv.Logger.Info("fold evaluated",
				zap.Int("fold", i+1),
				zap.Int("folds", len(folds)),
				zap.Int("train_rows", train.Len()),
				zap.Int("test_rows", test.Len()),
				zap.Float64(metric.NamePrecision, report[metric.NamePrecision]),
				zap.Float64(metric.NameRecall, report[metric.NameRecall]),
				zap.Float64(metric.NameNDCG, report[metric.NameNDCG]))
		}
	}

	mean, err := metric.Mean(reports)
	if err != nil {
		return nil, err
	}
	return &Result{FoldReports: reports, Mean: mean}, nil
}
