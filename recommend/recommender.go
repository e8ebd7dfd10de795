package recommend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/embedrec/core"
)

// Recommendation 是装饰后的推荐结果（服务层响应体）。
type Recommendation struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
}

// Recommender 把算好的相似度矩阵包装为查询入口。
//
// 矩阵行 i 对应 Users 索引中行号 i 的用户，列 j 对应目录第 j 行的商品。
// 所有输入在构造后不可变，Recommend 是纯函数。
type Recommender struct {
	sim     *core.Matrix
	users   *core.IDIndex
	catalog core.Catalog
}

// New 创建 Recommender，形状不一致时返回 INVALID_INPUT。
func New(sim *core.Matrix, users *core.IDIndex, catalog core.Catalog) (*Recommender, error) {
	if sim.Rows() != users.Len() {
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
			fmt.Sprintf("recommend: matrix has %d rows but user index has %d entries", sim.Rows(), users.Len()))
	}
	if sim.Cols() != len(catalog) {
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
			fmt.Sprintf("recommend: matrix has %d columns but catalog has %d rows", sim.Cols(), len(catalog)))
	}
	return &Recommender{sim: sim, users: users, catalog: catalog}, nil
}

// Recommend 返回用户的前 topN 个商品 ID（降序，无重复）。
// 未知用户返回 NOT_FOUND。
func (r *Recommender) Recommend(userID int64, topN int) ([]int64, error) {
	row, ok := r.users.Row(userID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeNotFound,
			fmt.Sprintf("recommend: unknown user %d", userID))
	}
	return TopN(r.sim.Row(row), r.catalog, topN), nil
}

// Decorate 用目录元数据装饰商品 ID 列表，保持输入顺序。
// 重复目录行取首次出现；目录中不存在的 ID 被跳过。
func (r *Recommender) Decorate(ids []int64) []Recommendation {
	meta := make(map[int64]core.Product, len(r.catalog))
	for _, p := range r.catalog {
		if _, ok := meta[p.ID]; !ok {
			meta[p.ID] = p
		}
	}

	out := make([]Recommendation, 0, len(ids))
	for _, id := range ids {
		p, ok := meta[id]
		if !ok {
			continue
		}
		out = append(out, Recommendation{ProductID: p.ID, Name: p.Name, Category: p.Category})
	}
	return out
}

// cacheKey 是用户推荐 ZSET 的 key 前缀。
const cacheKeyPrefix = "rec:user:"

// productKeyPrefix 是商品元数据 Hash 的 key 前缀。
const productKeyPrefix = "rec:product:"

// WarmCache 把每个用户的前 topN 推荐写入 KV 存储。
//
// ZSET 分数编码最终名次（名次越靠前分数越大），把去重和平分
// 决胜都固化在预热时刻，读取侧无需重算。商品元数据写入 Hash。
func (r *Recommender) WarmCache(ctx context.Context, kv core.KeyValueStore, topN int) error {
	for row := 0; row < r.sim.Rows(); row++ {
		userID, _ := r.users.ID(row)
		ids := TopN(r.sim.Row(row), r.catalog, topN)
		key := cacheKeyPrefix + strconv.FormatInt(userID, 10)
		for rank, id := range ids {
			score := float64(len(ids) - rank)
			if err := kv.ZAdd(ctx, key, score, strconv.FormatInt(id, 10)); err != nil {
				return fmt.Errorf("recommend: warm cache for user %d: %w", userID, err)
			}
		}
	}

	for _, rec := range r.Decorate(allIDs(r.catalog)) {
		key := productKeyPrefix + strconv.FormatInt(rec.ProductID, 10)
		if err := kv.HSet(ctx, key, "name", []byte(rec.Name)); err != nil {
			return fmt.Errorf("recommend: warm product %d: %w", rec.ProductID, err)
		}
		if err := kv.HSet(ctx, key, "category", []byte(rec.Category)); err != nil {
			return fmt.Errorf("recommend: warm product %d: %w", rec.ProductID, err)
		}
	}
	return nil
}

// RecommendCached 先查缓存，未命中时回落到矩阵计算。
func (r *Recommender) RecommendCached(ctx context.Context, kv core.KeyValueStore, userID int64, topN int) ([]int64, error) {
	if kv == nil || topN <= 0 {
		return r.Recommend(userID, topN)
	}

	key := cacheKeyPrefix + strconv.FormatInt(userID, 10)
	members, err := kv.ZRange(ctx, key, 0, int64(topN)-1)
	if err == nil && len(members) > 0 {
		ids := make([]int64, 0, len(members))
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("recommend: corrupt cache member %q: %w", m, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return r.Recommend(userID, topN)
}

func allIDs(catalog core.Catalog) []int64 {
	ids := make([]int64, 0, len(catalog))
	seen := make(map[int64]struct{}, len(catalog))
	for _, p := range catalog {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}
