package core

import (
	"fmt"
	"sort"
)

// 交互表的必需列。额外的描述性列（类型、评论等）被保留但不参与打分。
const (
	ColumnUserID    = "user_id"
	ColumnProductID = "product_id"
	ColumnRating    = "rating"
)

// Interaction 是一条用户-商品交互事实：评分作为聚合权重，
// 其余字段是描述性信息（类型、评论），供过滤表达式使用。
//
// Row 是该交互在交互向量工件（interaction embeddings）中的行号，
// 在装载时赋值一次，拆分/筛选后保持不变，保证向量寻址始终有效。
type Interaction struct {
	Row       int
	UserID    int64
	ProductID int64
	Rating    float64
	Type      string
	Comment   string

	// Extra 保存未被核心识别的描述性列，供 DSL 过滤表达式访问。
	Extra map[string]any
}

// Table 是有序的交互行集合，并记录装载时观察到的列名。
// 核心只要求 user_id / product_id / rating 三列，其余列被忽略。
type Table struct {
	Columns []string
	Rows    []Interaction
}

// Len 返回行数。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn 检查列是否存在。
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns 校验必需列，缺失时返回 SCHEMA_ERROR（计算开始前快速失败）。
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return NewDomainError(ModuleDataset, ErrorCodeSchemaError,
				fmt.Sprintf("dataset: required column %q is missing", name))
		}
	}
	return nil
}

// Select 按表内行位置挑选行，返回新表（不复制 Columns 以外的共享状态）。
// 位置越界时返回 INVALID_INPUT。
func (t *Table) Select(positions []int) (*Table, error) {
	rows := make([]Interaction, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(t.Rows) {
			return nil, NewDomainError(ModuleDataset, ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: row position %d out of range [0, %d)", p, len(t.Rows)))
		}
		rows = append(rows, t.Rows[p])
	}
	return &Table{Columns: t.Columns, Rows: rows}, nil
}

// UserGroup 是某个用户的全部交互行。
type UserGroup struct {
	UserID int64
	Rows   []Interaction
}

// GroupByUser 按用户分组，结果按用户 ID 升序排列。
// 输出顺序与输入行序无关，保证下游聚合矩阵的行号语义稳定。
func (t *Table) GroupByUser() []UserGroup {
	byUser := make(map[int64][]Interaction)
	for _, row := range t.Rows {
		byUser[row.UserID] = append(byUser[row.UserID], row)
	}

	ids := make([]int64, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([]UserGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, UserGroup{UserID: id, Rows: byUser[id]})
	}
	return groups
}

// Product 是商品目录中的一行：展示元数据由外部目录拥有，核心只消费。
// 目录允许同一 product_id 出现在多行（上游 join 的产物），
// 行号即商品向量矩阵的行号。
type Product struct {
	ID       int64
	Name     string
	Category string
}

// Catalog 是按行号寻址的商品目录。
type Catalog []Product
