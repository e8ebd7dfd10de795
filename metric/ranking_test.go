package metric

import (
	"math"
	"testing"

	"github.com/rushteam/embedrec/core"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// 参考场景：true = {3, 7}，predicted = [7, 1, 3, 9, 2]，k = 5。
// 命中位置 1 与 3，运行精度 1/1 与 2/3。
func TestMetricsReferenceScenario(t *testing.T) {
	trueItems := []int64{3, 7}
	predicted := []int64{7, 1, 3, 9, 2}
	const k = 5

	tests := []struct {
		name string
		fn   func(trueItems, predicted []int64, k int) (float64, error)
		want float64
	}{
		{NamePrecision, PrecisionAtK, 2.0 / 5.0},
		{NameRecall, RecallAtK, 1.0},
		{NameNDCG, NDCGAtK, 1.0},
		{NameMAP, MAPAtK, (1.0 + 2.0/3.0) / 2},
		{NameMRR, MRRAtK, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(trueItems, predicted, k)
			if err != nil {
				t.Fatalf("%s error = %v", tt.name, err)
			}
			if !approx(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMetricsAllMiss(t *testing.T) {
	trueItems := []int64{5}
	predicted := []int64{1, 2, 3, 4}

	fns := map[string]func(trueItems, predicted []int64, k int) (float64, error){
		NamePrecision: PrecisionAtK,
		NameRecall:    RecallAtK,
		NameNDCG:      NDCGAtK,
		NameMAP:       MAPAtK,
		NameMRR:       MRRAtK,
	}
	for name, fn := range fns {
		got, err := fn(trueItems, predicted, 4)
		if err != nil {
			t.Fatalf("%s error = %v", name, err)
		}
		if got != 0 {
			t.Errorf("%s = %v, want 0", name, got)
		}
	}
}

func TestPrecisionTruncation(t *testing.T) {
	trueItems := []int64{1, 2, 3}
	predicted := []int64{1, 9, 2, 3}

	got, err := PrecisionAtK(trueItems, predicted, 2)
	if err != nil {
		t.Fatalf("PrecisionAtK error = %v", err)
	}
	// 截断后 [1, 9]，命中 1 个
	if !approx(got, 0.5) {
		t.Errorf("PrecisionAtK = %v, want 0.5", got)
	}

	// k 大于预测长度时分母为实际长度
	got, err = PrecisionAtK(trueItems, predicted, 10)
	if err != nil {
		t.Fatalf("PrecisionAtK error = %v", err)
	}
	if !approx(got, 0.75) {
		t.Errorf("PrecisionAtK(k=10) = %v, want 0.75", got)
	}
}

func TestRecallPartial(t *testing.T) {
	got, err := RecallAtK([]int64{1, 2, 3, 4}, []int64{1, 9, 2}, 3)
	if err != nil {
		t.Fatalf("RecallAtK error = %v", err)
	}
	if !approx(got, 0.5) {
		t.Errorf("RecallAtK = %v, want 0.5", got)
	}
}

func TestNDCGLateHit(t *testing.T) {
	// 命中在截断点之后：增益置零但相关度保留，得分介于 0 和 1 之间
	got, err := NDCGAtK([]int64{2}, []int64{1, 2, 3}, 1)
	if err != nil {
		t.Fatalf("NDCGAtK error = %v", err)
	}
	want := 1 / math.Log2(3) // 命中停留在名次 2，理想排列在名次 1
	if !approx(got, want) {
		t.Errorf("NDCGAtK = %v, want %v", got, want)
	}
}

func TestNDCGPerfectOrdering(t *testing.T) {
	got, err := NDCGAtK([]int64{1, 2}, []int64{1, 2, 3, 4}, 4)
	if err != nil {
		t.Fatalf("NDCGAtK error = %v", err)
	}
	if !approx(got, 1.0) {
		t.Errorf("NDCGAtK = %v, want 1", got)
	}
}

func TestMRRSecondPosition(t *testing.T) {
	got, err := MRRAtK([]int64{9}, []int64{1, 9, 2}, 3)
	if err != nil {
		t.Fatalf("MRRAtK error = %v", err)
	}
	if !approx(got, 0.5) {
		t.Errorf("MRRAtK = %v, want 0.5", got)
	}

	// 命中在 k 之后不计
	got, err = MRRAtK([]int64{9}, []int64{1, 2, 9}, 2)
	if err != nil {
		t.Fatalf("MRRAtK error = %v", err)
	}
	if got != 0 {
		t.Errorf("MRRAtK beyond k = %v, want 0", got)
	}
}

func TestMetricPreconditions(t *testing.T) {
	if _, err := PrecisionAtK([]int64{1}, nil, 5); !core.IsMetricPrecondition(err) {
		t.Errorf("empty predicted error = %v, want METRIC_PRECONDITION", err)
	}
	if _, err := RecallAtK(nil, []int64{1}, 5); !core.IsMetricPrecondition(err) {
		t.Errorf("empty true set error = %v, want METRIC_PRECONDITION", err)
	}
	if _, err := PrecisionAtK([]int64{1}, []int64{1}, 0); !core.IsInvalidInput(err) {
		t.Errorf("k=0 error = %v, want INVALID_INPUT", err)
	}
}

func TestMetricsRange(t *testing.T) {
	trueSets := [][]int64{{1}, {2, 4}, {1, 3, 5, 7}}
	preds := [][]int64{{1, 2}, {5, 4, 3, 2, 1}, {7, 6, 5}}

	for _, trueItems := range trueSets {
		for _, predicted := range preds {
			for _, k := range []int{1, 3, 5} {
				report, err := All(trueItems, predicted, k)
				if err != nil {
					t.Fatalf("All(%v, %v, %d) error = %v", trueItems, predicted, k, err)
				}
				for name, score := range report {
					if score < 0 || score > 1 || math.IsNaN(score) {
						t.Errorf("%s(%v, %v, %d) = %v out of [0, 1]", name, trueItems, predicted, k, score)
					}
				}
			}
		}
	}
}

func TestMean(t *testing.T) {
	reports := []Report{
		{NamePrecision: 0.4, NameRecall: 1.0, NameNDCG: 1.0, NameMAP: 0.8, NameMRR: 1.0},
		{NamePrecision: 0.2, NameRecall: 0.5, NameNDCG: 0.5, NameMAP: 0.4, NameMRR: 0.5},
	}
	avg, err := Mean(reports)
	if err != nil {
		t.Fatalf("Mean error = %v", err)
	}
	if !approx(avg[NamePrecision], 0.3) || !approx(avg[NameRecall], 0.75) {
		t.Errorf("Mean = %v", avg)
	}

	if _, err := Mean(nil); !core.IsMetricPrecondition(err) {
		t.Errorf("Mean(nil) error = %v, want METRIC_PRECONDITION", err)
	}
}
