package embedding

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/rushteam/embedrec/core"
)

// sanitizedValues 统计被替换为零的 NaN/Inf 分量数（可观测，不致命）。
var sanitizedValues = promauto.NewCounter(prometheus.CounterOpts{
	Name: "embedrec_sanitized_values_total",
	Help: "Number of NaN/Inf vector components replaced with zero during aggregation.",
})

// UserVectors 是聚合产物：每个用户一行，行号由 Users 索引解释。
// 计算一次后不再变更。
type UserVectors struct {
	Users   *core.IDIndex
	Vectors [][]float64
}

// Aggregator 把每个用户的交互向量折叠为一个用户向量。
//
// 算法：每条交互向量逐元素乘以其评分，再对该用户的所有交互取算术平均。
// 默认不除以评分之和（观察到的 scaled-mean 行为：高评分用户的向量模长更大）；
// Renormalize 开关切换为真正的加权平均（除以 Σ ratings）。
type Aggregator struct {
	// Renormalize 为 true 时除以评分之和，得到凸组合意义下的加权平均。
	Renormalize bool

	// Logger 可为 nil；净化事件以 Warn 级别记录。
	Logger *zap.Logger
}

// AggregateUsers 对交互表逐用户聚合。
//
// 输出行序为用户 ID 升序（与输入行序无关），返回的 IDIndex 解释行号。
// 聚合结果中的 NaN/Inf 被替换为零：这是净化而非错误，事件会被计数和记录。
func (a *Aggregator) AggregateUsers(table *core.Table, store *Store) (*UserVectors, error) {
	if err := table.RequireColumns(core.ColumnUserID, core.ColumnRating); err != nil {
		return nil, err
	}

	groups := table.GroupByUser()
	ids := make([]int64, 0, len(groups))
	vectors := make([][]float64, 0, len(groups))
	dim := store.Dim()

	totalSanitized := 0
	for _, g := range groups {
		sum := make([]float64, dim)
		ratingSum := 0.0
		for _, row := range g.Rows {
			vec, err := store.Interaction(row.Row)
			if err != nil {
				return nil, err
			}
			for j, v := range vec {
				sum[j] += v * row.Rating
			}
			ratingSum += row.Rating
		}

		denom := float64(len(g.Rows))
		if a.Renormalize {
			denom = ratingSum
		}
		for j := range sum {
			sum[j] /= denom
		}

		totalSanitized += sanitize(sum)
		ids = append(ids, g.UserID)
		vectors = append(vectors, sum)
	}

	if totalSanitized > 0 {
		sanitizedValues.Add(float64(totalSanitized))
		if a.Logger != nil {
			a.Logger.Warn("sanitized non-finite components in user vectors",
				zap.Int("components", totalSanitized),
				zap.Int("users", len(ids)))
		}
	}

	users, err := core.NewIDIndex(ids)
	if err != nil {
		return nil, err
	}
	return &UserVectors{Users: users, Vectors: vectors}, nil
}

// sanitize 把向量中的 NaN/Inf 置零，返回被替换的分量数。
func sanitize(vec []float64) int {
	n := 0
	for j, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			vec[j] = 0
			n++
		}
	}
	return n
}
