package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/embedrec/core"
)

// LoadInteractions 从 CSV 装载交互表（逗号分隔，首行为表头）。
//
// 必需列：user_id / product_id / rating（缺失时 SCHEMA_ERROR）。
// interaction_type 与 comment 填入对应字段，其余列进入 Extra。
// 行号按文件顺序赋值，与交互向量工件对齐。
func LoadInteractions(path string) (*core.Table, error) {
	records, header, err := readCSV(path, ',')
	if err != nil {
		return nil, err
	}

	table := &core.Table{Columns: header}
	if err := table.RequireColumns(core.ColumnUserID, core.ColumnProductID, core.ColumnRating); err != nil {
		return nil, err
	}

	col := columnIndex(header)
	for i, rec := range records {
		userID, err := parseID(rec[col[core.ColumnUserID]])
		if err != nil {
			return nil, rowError(path, i, core.ColumnUserID, err)
		}
		productID, err := parseID(rec[col[core.ColumnProductID]])
		if err != nil {
			return nil, rowError(path, i, core.ColumnProductID, err)
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(rec[col[core.ColumnRating]]), 64)
		if err != nil {
			return nil, rowError(path, i, core.ColumnRating, err)
		}

		row := core.Interaction{
			Row:       i,
			UserID:    userID,
			ProductID: productID,
			Rating:    rating,
		}
		for j, name := range header {
			switch name {
			case core.ColumnUserID, core.ColumnProductID, core.ColumnRating:
			case "interaction_type":
				row.Type = rec[j]
			case "comment":
				row.Comment = rec[j]
			default:
				if row.Extra == nil {
					row.Extra = make(map[string]any)
				}
				row.Extra[name] = rec[j]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// LoadCatalog 从 CSV 装载商品目录。
// 上游目录以分号分隔，delim 由调用方指定。
func LoadCatalog(path string, delim rune) (core.Catalog, error) {
	records, header, err := readCSV(path, delim)
	if err != nil {
		return nil, err
	}

	col := columnIndex(header)
	for _, name := range []string{"product_id", "name", "category"} {
		if _, ok := col[name]; !ok {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeSchemaError,
				fmt.Sprintf("dataset: catalog %s missing column %q", path, name))
		}
	}

	catalog := make(core.Catalog, 0, len(records))
	for i, rec := range records {
		id, err := parseID(rec[col["product_id"]])
		if err != nil {
			return nil, rowError(path, i, "product_id", err)
		}
		catalog = append(catalog, core.Product{
			ID:       id,
			Name:     rec[col["name"]],
			Category: rec[col["category"]],
		})
	}
	return catalog, nil
}

func readCSV(path string, delim rune) (records [][]string, header []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.TrimLeadingSpace = true

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeSchemaError,
			fmt.Sprintf("dataset: %s has no header row", path))
	}
	return all[1:], all[0], nil
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}

func rowError(path string, row int, column string, err error) error {
	return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
		fmt.Sprintf("dataset: %s row %d column %s: %v", path, row+1, column, err))
}
