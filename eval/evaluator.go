// Package eval 把拆分、聚合、相似度与指标串成离线评估流程：
// 留出评估与 K 折交叉验证共用同一条评估路径。
package eval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/embedding"
	"github.com/rushteam/embedrec/metric"
	"github.com/rushteam/embedrec/recommend"
	"github.com/rushteam/embedrec/similarity"
)

// DefaultK 是默认的截断深度。
const DefaultK = 5

// Evaluator 在一次 train/test 拆分上评估推荐质量。
//
// 流程：仅用训练行聚合用户向量，计算用户×商品相似度，
// 对每个测试用户取 Top-K 预测，与该用户的留出商品集合比对。
type Evaluator struct {
	// K 截断深度，<= 0 时使用 DefaultK。
	K int

	Engine     *similarity.Engine
	Aggregator *embedding.Aggregator

	// Logger 可为 nil。
	Logger *zap.Logger
}

func (e *Evaluator) k() int {
	if e.K < 1 {
		return DefaultK
	}
	return e.K
}

// Evaluate 返回测试集内可评估用户的平均指标报告。
//
// 用户向量只从训练行聚合：测试用户在训练侧没有任何交互时无法打分
// （冷用户），该用户被跳过并计数。没有任何可评估用户时返回
// METRIC_PRECONDITION。
func (e *Evaluator) Evaluate(ctx context.Context, train, test *core.Table, emb *embedding.Store, catalog core.Catalog) (metric.Report, error) {
	users, err := e.Aggregator.AggregateUsers(train, emb)
	if err != nil {
		return nil, err
	}

	sim, err := e.Engine.Compute(ctx, users.Vectors, emb.Products())
	if err != nil {
		return nil, err
	}

	k := e.k()
	var reports []metric.Report
	cold := 0
	for _, g := range test.GroupByUser() {
		row, ok := users.Users.Row(g.UserID)
		if !ok {
			cold++
			continue
		}

		trueItems := distinctProducts(g.Rows)
		predicted := recommend.TopN(sim.Row(row), catalog, k)
		report, err := metric.All(trueItems, predicted, k)
		if err != nil {
			return nil, fmt.Errorf("eval: user %d: %w", g.UserID, err)
		}
		reports = append(reports, report)
	}

	if cold > 0 && e.Logger != nil {
		e.Logger.Warn("skipped users without training interactions",
			zap.Int("cold_users", cold),
			zap.Int("evaluated_users", len(reports)))
	}
	if len(reports) == 0 {
		return nil, core.NewDomainError(core.ModuleMetric, core.ErrorCodeMetricPrecondition,
			"eval: no test user has training interactions")
	}
	return metric.Mean(reports)
}

// distinctProducts 返回一组交互行中出现过的商品 ID（去重，保持首次出现顺序）。
func distinctProducts(rows []core.Interaction) []int64 {
	seen := make(map[int64]struct{}, len(rows))
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ProductID]; ok {
			continue
		}
		seen[row.ProductID] = struct{}{}
		out = append(out, row.ProductID)
	}
	return out
}
