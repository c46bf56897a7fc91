package family

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrEmpty is returned by [BuildTree] when the record set is empty.
	ErrEmpty = errors.New("record set is empty")

	// ErrDuplicateID is returned by [BuildTree] when two records share an ID.
	ErrDuplicateID = errors.New("duplicate person ID")

	// ErrConflictingParents is returned by [BuildTree] when a record names
	// both a father and a mother. Only one parent edge kind may be present.
	ErrConflictingParents = errors.New("record names both father_id and mother_id")

	// ErrUnknownParent is returned by [BuildTree] when a record references a
	// parent ID that is not part of the record set.
	ErrUnknownParent = errors.New("unknown parent ID")

	// ErrNoRoot is returned by [BuildTree] when every record has a parent.
	ErrNoRoot = errors.New("no root record")

	// ErrMultipleRoots is returned by [BuildTree] when more than one record
	// has no parent.
	ErrMultipleRoots = errors.New("multiple root records")

	// ErrUnreachable is returned by [BuildTree] when some records cannot be
	// reached from the root, which only happens when parent pointers form a
	// cycle.
	ErrUnreachable = errors.New("records unreachable from root")
)

// Tree is a validated rooted tree over a record set. Nodes are addressed by
// their input index; all slices are indexed the same way as the records
// passed to BuildTree.
type Tree struct {
	records  []PersonRecord
	index    map[ID]int
	parent   []int   // -1 for the root
	children [][]int // ascending sibling order, ties by input order
	root     int
}

// BuildTree validates records and links them into a Tree.
//
// The records slice is referenced, not copied; callers must not mutate it
// while the Tree is in use. The returned error wraps one of the package
// sentinel errors and names the offending record.
func BuildTree(records []PersonRecord) (*Tree, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	t := &Tree{
		records:  records,
		index:    make(map[ID]int, len(records)),
		parent:   make([]int, len(records)),
		children: make([][]int, len(records)),
		root:     -1,
	}

	for i := range records {
		id := records[i].ID
		if _, exists := t.index[id]; exists {
			return nil, fmt.Errorf("record %d: %w", id, ErrDuplicateID)
		}
		t.index[id] = i
	}

	var roots []ID
	for i := range records {
		r := &records[i]
		if r.FatherID != nil && r.MotherID != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, ErrConflictingParents)
		}
		pid, ok := r.ParentID()
		if !ok {
			t.parent[i] = -1
			t.root = i
			roots = append(roots, r.ID)
			continue
		}
		p, known := t.index[pid]
		if !known {
			return nil, fmt.Errorf("record %d references %d: %w", r.ID, pid, ErrUnknownParent)
		}
		t.parent[i] = p
		t.children[p] = append(t.children[p], i)
	}

	switch len(roots) {
	case 0:
		return nil, ErrNoRoot
	case 1:
	default:
		return nil, fmt.Errorf("roots %v: %w", roots, ErrMultipleRoots)
	}

	for p := range t.children {
		kids := t.children[p]
		slices.SortStableFunc(kids, func(a, b int) int {
			return cmp.Compare(records[a].SiblingOrder, records[b].SiblingOrder)
		})
	}

	if reached := t.countReachable(); reached != len(records) {
		return nil, fmt.Errorf("%d of %d: %w", len(records)-reached, len(records), ErrUnreachable)
	}
	return t, nil
}

func (t *Tree) countReachable() int {
	count := 0
	queue := []int{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		count++
		queue = append(queue, t.children[n]...)
	}
	return count
}

// Len returns the number of records in the tree.
func (t *Tree) Len() int { return len(t.records) }

// Root returns the input index of the root record.
func (t *Tree) Root() int { return t.root }

// Record returns the record at input index i.
func (t *Tree) Record(i int) *PersonRecord { return &t.records[i] }

// Records returns the underlying record slice in input order.
func (t *Tree) Records() []PersonRecord { return t.records }

// Parent returns the input index of i's parent, or -1 for the root.
func (t *Tree) Parent(i int) int { return t.parent[i] }

// Children returns the input indices of i's children in ascending sibling
// order. The returned slice must not be modified.
func (t *Tree) Children(i int) []int { return t.children[i] }

// IndexOf returns the input index of the record with the given ID.
func (t *Tree) IndexOf(id ID) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}
