package core

import (
	"fmt"
	"math"
)

// Matrix 是稠密的 float32 矩阵，行优先存储。
//
// 相似度矩阵以单精度存储以约束大目录场景下的内存占用；
// 计算完成后视为不可变。
type Matrix struct {
	rows, cols int
	data       []float32
}

// NewMatrix 创建 rows × cols 的零矩阵，维度为负时返回 INVALID_INPUT。
func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, NewDomainError(ModuleSimilarity, ErrorCodeInvalidInput,
			fmt.Sprintf("matrix: invalid shape (%d, %d)", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}, nil
}

// NewMatrixFromData 用已有数据创建矩阵，长度不符时返回 INVALID_INPUT。
func NewMatrixFromData(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, NewDomainError(ModuleSimilarity, ErrorCodeInvalidInput,
			fmt.Sprintf("matrix: data length %d does not match shape (%d, %d)", len(data), rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// Rows 返回行数。
func (m *Matrix) Rows() int { return m.rows }

// Cols 返回列数。
func (m *Matrix) Cols() int { return m.cols }

// At 返回 (i, j) 处的值。
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.cols+j]
}

// Set 写入 (i, j) 处的值。
func (m *Matrix) Set(i, j int, v float32) {
	m.data[i*m.cols+j] = v
}

// Row 返回第 i 行的切片视图（与底层存储共享内存）。
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Data 返回底层行优先数据（与矩阵共享内存）。
func (m *Matrix) Data() []float32 { return m.data }

// Validate 校验矩阵不含 NaN/Inf。相似度矩阵的不变量。
func (m *Matrix) Validate() error {
	for i, v := range m.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewDomainError(ModuleSimilarity, ErrorCodeInvalidInput,
				fmt.Sprintf("matrix: non-finite value at flat index %d", i))
		}
	}
	return nil
}
