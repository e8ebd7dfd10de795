package eval

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/embedding"
	"github.com/rushteam/embedrec/metric"
	"github.com/rushteam/embedrec/similarity"
)

var evalColumns = []string{core.ColumnUserID, core.ColumnProductID, core.ColumnRating}

func newEvaluator(k int) *Evaluator {
	return &Evaluator{
		K:          k,
		Engine:     &similarity.Engine{},
		Aggregator: &embedding.Aggregator{},
	}
}

// 两个用户、三个商品的固定场景。
//
// 用户 1 的训练交互向量聚合为 [1, 0]，用户 2 为 [0, 1]；
// 商品向量 p1=[1,0] p2=[0,1] p3=[1,1]，Top-2 分别是 [1, 3] 和 [2, 3]。
func evalFixture() (*core.Table, *core.Table, *embedding.Store, core.Catalog) {
	train := &core.Table{
		Columns: evalColumns,
		Rows: []core.Interaction{
			{Row: 0, UserID: 1, ProductID: 3, Rating: 1},
			{Row: 1, UserID: 2, ProductID: 3, Rating: 1},
		},
	}
	test := &core.Table{
		Columns: evalColumns,
		Rows: []core.Interaction{
			{Row: 0, UserID: 1, ProductID: 1, Rating: 5},
			{Row: 1, UserID: 2, ProductID: 2, Rating: 4},
		},
	}

	emb, err := embedding.NewStore(
		[][]float64{{1, 0}, {0, 1}, {1, 1}},
		[][]float64{{1, 0}, {0, 1}},
	)
	if err != nil {
		panic(err)
	}
	catalog := core.Catalog{
		{ID: 1, Name: "Laptop", Category: "electronics"},
		{ID: 2, Name: "Mug", Category: "kitchen"},
		{ID: 3, Name: "Desk", Category: "furniture"},
	}
	return train, test, emb, catalog
}

func TestEvaluateKnownScores(t *testing.T) {
	train, test, emb, catalog := evalFixture()

	report, err := newEvaluator(2).Evaluate(context.Background(), train, test, emb, catalog)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}

	// 两个用户各命中 1 个真实商品，留出集各只有 1 个商品
	want := map[string]float64{
		metric.NamePrecision: 0.5,
		metric.NameRecall:    1.0,
		metric.NameNDCG:      1.0,
		metric.NameMAP:       1.0,
		metric.NameMRR:       1.0,
	}
	for name, w := range want {
		if math.Abs(report[name]-w) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, report[name], w)
		}
	}
}

func TestEvaluateSkipsColdUsers(t *testing.T) {
	train, test, emb, catalog := evalFixture()
	test.Rows = append(test.Rows, core.Interaction{Row: 0, UserID: 9, ProductID: 1, Rating: 3})

	report, err := newEvaluator(2).Evaluate(context.Background(), train, test, emb, catalog)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	// 用户 9 无训练交互，被跳过；剩余两个用户的召回仍为 1
	if math.Abs(report[metric.NameRecall]-1.0) > 1e-9 {
		t.Errorf("recall = %v, want 1", report[metric.NameRecall])
	}
}

func TestEvaluateAllUsersCold(t *testing.T) {
	train, _, emb, catalog := evalFixture()
	test := &core.Table{
		Columns: evalColumns,
		Rows:    []core.Interaction{{Row: 0, UserID: 9, ProductID: 1, Rating: 3}},
	}

	_, err := newEvaluator(2).Evaluate(context.Background(), train, test, emb, catalog)
	if !core.IsMetricPrecondition(err) {
		t.Errorf("all-cold error = %v, want METRIC_PRECONDITION", err)
	}
}

func TestEvaluateDefaultK(t *testing.T) {
	train, test, emb, catalog := evalFixture()

	// K 未设置时使用 DefaultK，三个商品全部进入预测
	report, err := newEvaluator(0).Evaluate(context.Background(), train, test, emb, catalog)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if math.Abs(report[metric.NameRecall]-1.0) > 1e-9 {
		t.Errorf("recall = %v, want 1", report[metric.NameRecall])
	}
}
