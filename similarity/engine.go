// Package similarity 实现分批的用户×商品余弦相似度计算。
//
// 分批只是内存/性能旋钮：无论批大小如何（含并行执行），
// 结果在浮点舍入误差内完全一致。
package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/embedrec/core"
)

// DefaultBatchSize 是默认的用户行批大小。
const DefaultBatchSize = 50

// Engine 计算稠密的 (num_users × num_products) 余弦相似度矩阵。
//
// 用户行按连续批切分，每批与全量商品矩阵一次算完，
// 避免一次性物化超出内存预算的中间结果。结果以 float32 存储。
type Engine struct {
	// BatchSize 每批的用户行数，<= 0 时使用 DefaultBatchSize。
	BatchSize int

	// Parallel 为 true 时批之间并行计算。批与批写入的行区间互不重叠，
	// 并行纯粹是吞吐优化，不改变结果。
	Parallel bool
}

// Compute 计算相似度矩阵。
//
// 用户与商品向量维度不一致时，在任何计算开始前返回 DIMENSION_MISMATCH。
// 零模长向量的相似度定义为 0，保证结果不含 NaN/Inf。
func (e *Engine) Compute(ctx context.Context, users, products [][]float64) (*core.Matrix, error) {
	if err := checkDimensions(users, products); err != nil {
		return nil, err
	}

	numUsers := len(users)
	numProducts := len(products)
	out, err := core.NewMatrix(numUsers, numProducts)
	if err != nil {
		return nil, err
	}

	// 商品模长只算一次，所有批共享
	productNorms := make([]float64, numProducts)
	for j, p := range products {
		productNorms[j] = norm(p)
	}

	batch := e.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	if !e.Parallel {
		for start := 0; start < numUsers; start += batch {
			end := min(start+batch, numUsers)
			computeBlock(users, products, productNorms, out, start, end)
		}
		return out, nil
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < numUsers; start += batch {
		start := start
		end := min(start+batch, numUsers)
		eg.Go(func() error {
			computeBlock(users, products, productNorms, out, start, end)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// computeBlock 填充 [start, end) 行的相似度块。
func computeBlock(users, products [][]float64, productNorms []float64, out *core.Matrix, start, end int) {
	for i := start; i < end; i++ {
		u := users[i]
		un := norm(u)
		row := out.Row(i)
		if un == 0 {
			continue // 零向量行保持 0
		}
		for j, p := range products {
			pn := productNorms[j]
			if pn == 0 {
				continue
			}
			dot := 0.0
			for d := range u {
				dot += u[d] * p[d]
			}
			row[j] = float32(dot / (un * pn))
		}
	}
}

func checkDimensions(users, products [][]float64) error {
	dim := -1
	for i, u := range users {
		if dim == -1 {
			dim = len(u)
		}
		if len(u) != dim {
			return mismatch(fmt.Sprintf("user vector %d has dimension %d, want %d", i, len(u), dim))
		}
	}
	for j, p := range products {
		if dim == -1 {
			dim = len(p)
		}
		if len(p) != dim {
			return mismatch(fmt.Sprintf("product vector %d has dimension %d, want user dimension %d", j, len(p), dim))
		}
	}
	return nil
}

func mismatch(msg string) error {
	return core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeDimensionMismatch, "similarity: "+msg)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
