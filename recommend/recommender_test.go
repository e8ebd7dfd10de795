package recommend

import (
	"context"
	"testing"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/store"
)

func testRecommender(t *testing.T) *Recommender {
	t.Helper()
	// 2 用户 × 3 商品
	sim, err := core.NewMatrixFromData(2, 3, []float32{
		0.9, 0.1, 0.5,
		0.2, 0.8, 0.4,
	})
	if err != nil {
		t.Fatalf("NewMatrixFromData error = %v", err)
	}
	users, err := core.NewIDIndex([]int64{1, 2})
	if err != nil {
		t.Fatalf("NewIDIndex error = %v", err)
	}
	catalog := core.Catalog{
		{ID: 10, Name: "laptop", Category: "electronics"},
		{ID: 11, Name: "mug", Category: "kitchen"},
		{ID: 12, Name: "desk", Category: "furniture"},
	}
	r, err := New(sim, users, catalog)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	return r
}

func TestRecommenderRecommend(t *testing.T) {
	r := testRecommender(t)

	got, err := r.Recommend(1, 2)
	if err != nil {
		t.Fatalf("Recommend error = %v", err)
	}
	assertIDs(t, got, []int64{10, 12})

	got, err = r.Recommend(2, 10)
	if err != nil {
		t.Fatalf("Recommend error = %v", err)
	}
	assertIDs(t, got, []int64{11, 12, 10})
}

func TestRecommenderUnknownUser(t *testing.T) {
	r := testRecommender(t)
	_, err := r.Recommend(99, 5)
	if err == nil {
		t.Fatal("expected error for unknown user, got nil")
	}
	if !core.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestRecommenderDecorate(t *testing.T) {
	r := testRecommender(t)
	recs := r.Decorate([]int64{12, 10, 999})
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2 (unknown id skipped)", len(recs))
	}
	if recs[0].ProductID != 12 || recs[0].Name != "desk" || recs[0].Category != "furniture" {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[1].ProductID != 10 {
		t.Errorf("recs[1] = %+v", recs[1])
	}
}

func TestRecommenderNewShapeChecks(t *testing.T) {
	sim, _ := core.NewMatrix(2, 3)
	users, _ := core.NewIDIndex([]int64{1})
	catalog := make(core.Catalog, 3)
	if _, err := New(sim, users, catalog); err == nil {
		t.Error("row mismatch expected error, got nil")
	}

	users2, _ := core.NewIDIndex([]int64{1, 2})
	if _, err := New(sim, users2, catalog[:2]); err == nil {
		t.Error("column mismatch expected error, got nil")
	}
}

func TestRecommenderCache(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)
	kv := store.NewMemoryStore()
	defer kv.Close()

	if err := r.WarmCache(ctx, kv, 2); err != nil {
		t.Fatalf("WarmCache error = %v", err)
	}

	got, err := r.RecommendCached(ctx, kv, 1, 2)
	if err != nil {
		t.Fatalf("RecommendCached error = %v", err)
	}
	assertIDs(t, got, []int64{10, 12})

	// 缓存结果与直接计算一致
	direct, err := r.Recommend(2, 2)
	if err != nil {
		t.Fatalf("Recommend error = %v", err)
	}
	cached, err := r.RecommendCached(ctx, kv, 2, 2)
	if err != nil {
		t.Fatalf("RecommendCached error = %v", err)
	}
	assertIDs(t, cached, direct)

	// 商品元数据已预热
	fields, err := kv.HGetAll(ctx, "rec:product:10")
	if err != nil {
		t.Fatalf("HGetAll error = %v", err)
	}
	if string(fields["name"]) != "laptop" {
		t.Errorf("product hash = %v", fields)
	}
}

func TestRecommenderCacheFallback(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)
	kv := store.NewMemoryStore()
	defer kv.Close()

	// 未预热：直接回落到矩阵计算
	got, err := r.RecommendCached(ctx, kv, 1, 2)
	if err != nil {
		t.Fatalf("RecommendCached error = %v", err)
	}
	assertIDs(t, got, []int64{10, 12})
}
