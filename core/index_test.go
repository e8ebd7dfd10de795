package core

import "testing"

func TestNewIDIndex(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int64
		wantErr bool
	}{
		{name: "valid dense", ids: []int64{1, 2, 3}},
		{name: "valid sparse", ids: []int64{3, 7, 11}},
		{name: "duplicate id", ids: []int64{1, 2, 2}, wantErr: true},
		{name: "zero id", ids: []int64{0, 1}, wantErr: true},
		{name: "negative id", ids: []int64{-5}, wantErr: true},
		{name: "empty", ids: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewIDIndex(tt.ids)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewIDIndex(%v) expected error, got nil", tt.ids)
				}
				if !IsInvalidInput(err) {
					t.Errorf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewIDIndex(%v) error = %v", tt.ids, err)
			}
			if idx.Len() != len(tt.ids) {
				t.Errorf("Len() = %d, want %d", idx.Len(), len(tt.ids))
			}
			for i, id := range tt.ids {
				row, ok := idx.Row(id)
				if !ok || row != i {
					t.Errorf("Row(%d) = (%d, %v), want (%d, true)", id, row, ok, i)
				}
				got, ok := idx.ID(i)
				if !ok || got != id {
					t.Errorf("ID(%d) = (%d, %v), want (%d, true)", i, got, ok, id)
				}
			}
		})
	}
}

func TestIDIndexEnsureDense(t *testing.T) {
	dense, err := NewIDIndex([]int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewIDIndex error = %v", err)
	}
	if err := dense.EnsureDense(); err != nil {
		t.Errorf("EnsureDense() on dense index error = %v", err)
	}

	sparse, err := NewIDIndex([]int64{1, 3, 4})
	if err != nil {
		t.Fatalf("NewIDIndex error = %v", err)
	}
	if err := sparse.EnsureDense(); err == nil {
		t.Error("EnsureDense() on sparse index expected error, got nil")
	}
}

func TestIDIndexUnknownLookups(t *testing.T) {
	idx, err := NewIDIndex([]int64{5, 9})
	if err != nil {
		t.Fatalf("NewIDIndex error = %v", err)
	}
	if _, ok := idx.Row(7); ok {
		t.Error("Row(7) should not be found")
	}
	if _, ok := idx.ID(2); ok {
		t.Error("ID(2) should be out of range")
	}
	if _, ok := idx.ID(-1); ok {
		t.Error("ID(-1) should be out of range")
	}
}
