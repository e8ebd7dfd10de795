// Package embedding 承载向量侧的输入与派生物：
// 商品/交互向量的只读存储、按用户聚合出的用户向量、以及 .npy 工件编解码。
package embedding

import (
	"fmt"

	"github.com/rushteam/embedrec/core"
)

// Store 持有商品向量与原始交互向量，按稳定行号寻址。
// 两个矩阵共享同一维度 D，构造时校验一次，此后视为不可变输入。
type Store struct {
	products     [][]float64
	interactions [][]float64
	dim          int
}

// NewStore 创建向量存储。
// 任意一行的维度与其余行不一致时返回 DIMENSION_MISMATCH。
func NewStore(products, interactions [][]float64) (*Store, error) {
	dim := 0
	if len(products) > 0 {
		dim = len(products[0])
	} else if len(interactions) > 0 {
		dim = len(interactions[0])
	}
	if dim == 0 {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeInvalidInput,
			"embedding: store requires at least one non-empty vector")
	}

	for i, v := range products {
		if len(v) != dim {
			return nil, dimensionError("product", i, len(v), dim)
		}
	}
	for i, v := range interactions {
		if len(v) != dim {
			return nil, dimensionError("interaction", i, len(v), dim)
		}
	}

	return &Store{products: products, interactions: interactions, dim: dim}, nil
}

func dimensionError(kind string, row, got, want int) error {
	return core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeDimensionMismatch,
		fmt.Sprintf("embedding: %s vector at row %d has dimension %d, want %d", kind, row, got, want))
}

// Dim 返回向量维度 D。
func (s *Store) Dim() int { return s.dim }

// NumProducts 返回商品向量行数。
func (s *Store) NumProducts() int { return len(s.products) }

// NumInteractions 返回交互向量行数。
func (s *Store) NumInteractions() int { return len(s.interactions) }

// Products 返回商品向量矩阵（共享内存，调用方不得修改）。
func (s *Store) Products() [][]float64 { return s.products }

// Interactions 返回交互向量矩阵（共享内存，调用方不得修改）。
func (s *Store) Interactions() [][]float64 { return s.interactions }

// Interaction 返回第 row 行交互向量，越界时返回 INVALID_INPUT。
func (s *Store) Interaction(row int) ([]float64, error) {
	if row < 0 || row >= len(s.interactions) {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeInvalidInput,
			fmt.Sprintf("embedding: interaction row %d out of range [0, %d)", row, len(s.interactions)))
	}
	return s.interactions[row], nil
}
