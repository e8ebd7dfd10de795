// Package metric 实现排序质量指标：precision/recall/NDCG/MAP/MRR @k。
//
// 所有指标针对单个用户计算，取值范围 [0, 1]；
// 跨用户、跨折的汇总一律使用算术平均。
package metric

import (
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/embedrec/core"
)

// 指标名常量（报告的 key）。
const (
	NamePrecision = "precision"
	NameRecall    = "recall"
	NameNDCG      = "ndcg"
	NameMAP       = "map"
	NameMRR       = "mrr"
)

// Names 是全部指标名，报告遍历时使用。
var Names = []string{NamePrecision, NameRecall, NameNDCG, NameMAP, NameMRR}

// Report 是指标名 → 分数的映射。
type Report map[string]float64

// checkArgs 校验公共前置条件。
// 空的预测列表是上游 Top-N 失败的信号，按 METRIC_PRECONDITION 上抛而非静默置零。
func checkArgs(predicted []int64, k int) error {
	if k < 1 {
		return core.NewDomainError(core.ModuleMetric, core.ErrorCodeInvalidInput,
			fmt.Sprintf("metric: k must be >= 1, got %d", k))
	}
	if len(predicted) == 0 {
		return core.NewDomainError(core.ModuleMetric, core.ErrorCodeMetricPrecondition,
			"metric: predicted list is empty")
	}
	return nil
}

func truncate(predicted []int64, k int) []int64 {
	if k < len(predicted) {
		return predicted[:k]
	}
	return predicted
}

func toSet(items []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// PrecisionAtK = |predicted ∩ true| / |predicted|（截断后的预测条数）。
func PrecisionAtK(trueItems, predicted []int64, k int) (float64, error) {
	if err := checkArgs(predicted, k); err != nil {
		return 0, err
	}
	topK := truncate(predicted, k)
	relevant := toSet(trueItems)

	hits := 0
	seen := make(map[int64]struct{}, len(topK))
	for _, p := range topK {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := relevant[p]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(topK)), nil
}

// RecallAtK = |predicted ∩ true| / |true|。
// 真实集为空时返回 METRIC_PRECONDITION（上游数据问题，不静默置零）。
func RecallAtK(trueItems, predicted []int64, k int) (float64, error) {
	if err := checkArgs(predicted, k); err != nil {
		return 0, err
	}
	if len(trueItems) == 0 {
		return 0, core.NewDomainError(core.ModuleMetric, core.ErrorCodeMetricPrecondition,
			"metric: true item set is empty")
	}
	topK := truncate(predicted, k)
	relevant := toSet(trueItems)

	hits := make(map[int64]struct{})
	for _, p := range topK {
		if _, ok := relevant[p]; ok {
			hits[p] = struct{}{}
		}
	}
	return float64(len(hits)) / float64(len(relevant)), nil
}

// NDCGAtK 计算归一化折损累计增益。
//
// 对全部预测构造二元相关度向量，k 之后的增益置零，
// 比较实际增益排列与同一相关度多重集的理想排列。
// 相关度全零时定义为 0。
func NDCGAtK(trueItems, predicted []int64, k int) (float64, error) {
	if err := checkArgs(predicted, k); err != nil {
		return 0, err
	}
	relevant := toSet(trueItems)

	n := len(predicted)
	rel := make([]float64, n)
	gain := make([]float64, n)
	for i, p := range predicted {
		if _, ok := relevant[p]; ok {
			rel[i] = 1
			if i < k {
				gain[i] = 1
			}
		}
	}

	// 实际排列：按增益降序（同增益保持原名次，排序稳定）
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return gain[order[a]] > gain[order[b]] })

	dcg := 0.0
	for pos, idx := range order {
		dcg += rel[idx] / math.Log2(float64(pos)+2)
	}

	// 理想排列：同一相关度多重集降序
	ideal := append([]float64(nil), rel...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	idcg := 0.0
	for pos, r := range ideal {
		idcg += r / math.Log2(float64(pos)+2)
	}

	if idcg == 0 {
		return 0, nil
	}
	return dcg / idcg, nil
}

// MAPAtK 计算平均精度。
//
// 对前 k 个预测中每个命中位置 i（1 起）计算运行精度
// hits_so_far / i（含当前命中），对命中位置取平均；无命中时为 0。
func MAPAtK(trueItems, predicted []int64, k int) (float64, error) {
	if err := checkArgs(predicted, k); err != nil {
		return 0, err
	}
	relevant := toSet(trueItems)
	topK := truncate(predicted, k)

	hits := 0
	sum := 0.0
	for i, p := range topK {
		if _, ok := relevant[p]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0, nil
	}
	return sum / float64(hits), nil
}

// MRRAtK 返回前 k 个预测中第一个命中名次（1 起）的倒数，无命中为 0。
func MRRAtK(trueItems, predicted []int64, k int) (float64, error) {
	if err := checkArgs(predicted, k); err != nil {
		return 0, err
	}
	relevant := toSet(trueItems)
	for i, p := range truncate(predicted, k) {
		if _, ok := relevant[p]; ok {
			return 1 / float64(i+1), nil
		}
	}
	return 0, nil
}

// All 计算全部五个指标，返回一份单用户报告。
func All(trueItems, predicted []int64, k int) (Report, error) {
	type metricFn func(trueItems, predicted []int64, k int) (float64, error)
	fns := map[string]metricFn{
		NamePrecision: PrecisionAtK,
		NameRecall:    RecallAtK,
		NameNDCG:      NDCGAtK,
		NameMAP:       MAPAtK,
		NameMRR:       MRRAtK,
	}

	report := make(Report, len(fns))
	for name, fn := range fns {
		score, err := fn(trueItems, predicted, k)
		if err != nil {
			return nil, err
		}
		report[name] = score
	}
	return report, nil
}

// Mean 对多份报告逐指标取算术平均。空输入返回 METRIC_PRECONDITION。
func Mean(reports []Report) (Report, error) {
	if len(reports) == 0 {
		return nil, core.NewDomainError(core.ModuleMetric, core.ErrorCodeMetricPrecondition,
			"metric: no reports to average")
	}
	out := make(Report, len(Names))
	for _, name := range Names {
		sum := 0.0
		for _, r := range reports {
			sum += r[name]
		}
		out[name] = sum / float64(len(reports))
	}
	return out, nil
}
