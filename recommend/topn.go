// Package recommend 把相似度分数行变成有序的候选商品列表，
// 并提供面向服务层的纯函数式推荐入口。
package recommend

import (
	"sort"

	"github.com/rushteam/embedrec/core"
)

// TopN 对一行相似度分数（一个用户 × 全部商品）选出前 N 个候选商品 ID。
//
// 排序规则：分数降序，分数相同按商品 ID 升序（输出确定、可测试）。
// 截取前 N 个行号后映射为商品 ID，再按首次出现去重：上游 join
// 可能让同一 product_id 出现在多个目录行。
//
// 不足 N 个不同商品时返回全部；n <= 0 返回空列表（不是错误）。
func TopN(scores []float32, catalog core.Catalog, n int) []int64 {
	if n <= 0 || len(scores) == 0 {
		return []int64{}
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return catalog[ia].ID < catalog[ib].ID
	})

	if n < len(indices) {
		indices = indices[:n]
	}

	seen := make(map[int64]struct{}, len(indices))
	out := make([]int64, 0, len(indices))
	for _, idx := range indices {
		id := catalog[idx].ID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
