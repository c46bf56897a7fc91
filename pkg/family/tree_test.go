package family

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestBuildTree(t *testing.T) {
	records := []PersonRecord{
		{ID: 1},
		{ID: 2, FatherID: Ref(1), SiblingOrder: 1},
		{ID: 3, FatherID: Ref(1), SiblingOrder: 0},
		{ID: 4, MotherID: Ref(2)},
	}
	tree, err := BuildTree(records)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if got := tree.Record(tree.Root()).ID; got != 1 {
		t.Errorf("root = %d, want 1", got)
	}
	kids := tree.Children(tree.Root())
	if len(kids) != 2 || tree.Record(kids[0]).ID != 3 || tree.Record(kids[1]).ID != 2 {
		t.Errorf("children not in sibling order: %v", kids)
	}
	i, ok := tree.IndexOf(4)
	if !ok || tree.Record(tree.Parent(i)).ID != 2 {
		t.Errorf("mother edge not linked")
	}
}

func TestBuildTreeSiblingTies(t *testing.T) {
	records := []PersonRecord{
		{ID: 10},
		{ID: 11, FatherID: Ref(10), SiblingOrder: 2},
		{ID: 12, FatherID: Ref(10), SiblingOrder: 2},
		{ID: 13, FatherID: Ref(10), SiblingOrder: 1},
	}
	tree, err := BuildTree(records)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	var ids []ID
	for _, k := range tree.Children(tree.Root()) {
		ids = append(ids, tree.Record(k).ID)
	}
	want := []ID{13, 11, 12}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("children = %v, want %v", ids, want)
		}
	}
}

func TestBuildTreeExtremeSiblingOrder(t *testing.T) {
	records := []PersonRecord{
		{ID: 1},
		{ID: 2, FatherID: Ref(1), SiblingOrder: math.MaxInt},
		{ID: 3, FatherID: Ref(1), SiblingOrder: math.MinInt},
		{ID: 4, FatherID: Ref(1), SiblingOrder: 0},
	}
	tree, err := BuildTree(records)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	var ids []ID
	for _, k := range tree.Children(tree.Root()) {
		ids = append(ids, tree.Record(k).ID)
	}
	if want := []ID{3, 4, 2}; !slices.Equal(ids, want) {
		t.Errorf("children = %v, want %v", ids, want)
	}
}

func TestBuildTreeErrors(t *testing.T) {
	tests := []struct {
		name    string
		records []PersonRecord
		want    error
	}{
		{name: "empty", records: nil, want: ErrEmpty},
		{
			name:    "no root",
			records: []PersonRecord{{ID: 1, FatherID: Ref(2)}, {ID: 2, FatherID: Ref(1)}},
			want:    ErrNoRoot,
		},
		{
			name:    "multiple roots",
			records: []PersonRecord{{ID: 1}, {ID: 2}},
			want:    ErrMultipleRoots,
		},
		{
			name:    "duplicate",
			records: []PersonRecord{{ID: 1}, {ID: 1}},
			want:    ErrDuplicateID,
		},
		{
			name:    "both parents",
			records: []PersonRecord{{ID: 1}, {ID: 2, FatherID: Ref(1), MotherID: Ref(1)}},
			want:    ErrConflictingParents,
		},
		{
			name:    "unknown parent",
			records: []PersonRecord{{ID: 1}, {ID: 2, FatherID: Ref(9)}},
			want:    ErrUnknownParent,
		},
		{
			name: "cycle beside root",
			records: []PersonRecord{
				{ID: 1},
				{ID: 2, FatherID: Ref(3)},
				{ID: 3, MotherID: Ref(2)},
			},
			want: ErrUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTree(tt.records)
			if !errors.Is(err, tt.want) {
				t.Errorf("BuildTree() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWidthHint(t *testing.T) {
	tests := []struct {
		hint float64
		want bool
	}{
		{0, false},
		{-5, false},
		{120, true},
	}
	for _, tt := range tests {
		r := PersonRecord{NodeWidthHint: tt.hint}
		if got := r.HasWidthHint(); got != tt.want {
			t.Errorf("HasWidthHint(%v) = %v, want %v", tt.hint, got, tt.want)
		}
	}
}
