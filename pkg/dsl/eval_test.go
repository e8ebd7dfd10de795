package dsl

import (
	"testing"

	"github.com/rushteam/embedrec/core"
)

func sampleRows() []core.Interaction {
	return []core.Interaction{
		{Row: 0, UserID: 1, ProductID: 10, Rating: 4.5, Type: "purchase", Comment: "great product"},
		{Row: 1, UserID: 2, ProductID: 11, Rating: 2.0, Type: "view", Comment: ""},
		{Row: 2, UserID: 3, ProductID: 12, Rating: 5.0, Type: "purchase", Comment: "ok",
			Extra: map[string]any{"channel": "web"}},
	}
}

func TestFilterMatch(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		expr string
		want []bool
	}{
		{`rating >= 4.0`, []bool{true, false, true}},
		{`interaction_type == "purchase"`, []bool{true, false, true}},
		{`rating >= 4.0 && comment.contains("great")`, []bool{true, false, false}},
		{`user_id == 2 || product_id == 12`, []bool{false, true, true}},
		{`"channel" in extra && extra.channel == "web"`, []bool{false, false, true}},
	}
	for _, tt := range tests {
		f, err := Compile(tt.expr)
		if err != nil {
			t.Fatalf("Compile(%q) error = %v", tt.expr, err)
		}
		for i, row := range rows {
			got, err := f.Match(row)
			if err != nil {
				t.Fatalf("Match(%q, row %d) error = %v", tt.expr, i, err)
			}
			if got != tt.want[i] {
				t.Errorf("Match(%q, row %d) = %v, want %v", tt.expr, i, got, tt.want[i])
			}
		}
	}
}

func TestFilterApply(t *testing.T) {
	table := &core.Table{
		Columns: []string{core.ColumnUserID, core.ColumnProductID, core.ColumnRating},
		Rows:    sampleRows(),
	}

	f, err := Compile(`rating >= 4.0`)
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}
	out, err := f.Apply(table)
	if err != nil {
		t.Fatalf("Apply error = %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("filtered rows = %d, want 2", out.Len())
	}
	// 工件行号保持装载时的值
	if out.Rows[0].Row != 0 || out.Rows[1].Row != 2 {
		t.Errorf("artifact rows = %d, %d, want 0, 2", out.Rows[0].Row, out.Rows[1].Row)
	}
}

func TestFilterEmptyExpression(t *testing.T) {
	f, err := Compile("")
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}
	table := &core.Table{Rows: sampleRows()}
	out, err := f.Apply(table)
	if err != nil {
		t.Fatalf("Apply error = %v", err)
	}
	if out.Len() != table.Len() {
		t.Errorf("empty expression filtered rows: %d != %d", out.Len(), table.Len())
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := Compile(`rating >=`); err == nil {
		t.Error("expected compile error, got nil")
	}
	// 非布尔表达式在编译期可通过，求值时报错
	f, err := Compile(`rating + 1.0`)
	if err == nil {
		if _, err := f.Match(sampleRows()[0]); err == nil {
			t.Error("expected non-boolean evaluation error, got nil")
		}
	}
}
