package core

import "fmt"

// IDIndex 是显式构造、一次校验、全程复用的 ID ↔ 行号双射表。
//
// 取代 "user_id - 1 即行号" 的隐式全局约定：重复或非正 ID 在构造时
// 大声失败，而不是在后续计算里悄悄错位。
type IDIndex struct {
	ids  []int64
	rows map[int64]int
}

// NewIDIndex 按给定顺序建立 ID → 行号映射。
// ID 必须为正且互不重复，否则返回 INVALID_INPUT。
func NewIDIndex(ids []int64) (*IDIndex, error) {
	rows := make(map[int64]int, len(ids))
	for i, id := range ids {
		if id <= 0 {
			return nil, NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("index: id must be positive, got %d at row %d", id, i))
		}
		if prev, ok := rows[id]; ok {
			return nil, NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("index: duplicate id %d at rows %d and %d", id, prev, i))
		}
		rows[id] = i
	}
	out := &IDIndex{ids: append([]int64(nil), ids...), rows: rows}
	return out, nil
}

// Len 返回条目数。
func (x *IDIndex) Len() int { return len(x.ids) }

// Row 返回 id 对应的行号。
func (x *IDIndex) Row(id int64) (int, bool) {
	row, ok := x.rows[id]
	return row, ok
}

// ID 返回行号对应的 id，行号越界时返回 (0, false)。
func (x *IDIndex) ID(row int) (int64, bool) {
	if row < 0 || row >= len(x.ids) {
		return 0, false
	}
	return x.ids[row], true
}

// IDs 返回按行号排列的 ID 副本。
func (x *IDIndex) IDs() []int64 {
	return append([]int64(nil), x.ids...)
}

// EnsureDense 校验映射是否稠密（行号 i 对应 ID i+1）。
// 相似度矩阵工件要求 "行 i = 用户 i+1" 的约定，持久化前用此校验。
func (x *IDIndex) EnsureDense() error {
	for i, id := range x.ids {
		if id != int64(i)+1 {
			return NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("index: gap in id space, row %d holds id %d (want %d)", i, id, i+1))
		}
	}
	return nil
}
