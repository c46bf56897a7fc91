package layout

import (
	"math"

	"github.com/matzehuels/kinview/pkg/family"
)

// walkNode is the per-node state of the Buchheim/Walker tidy-tree pass.
type walkNode struct {
	idx      int // input index, -1 for the virtual super-root
	parent   *walkNode
	children []*walkNode

	anc      *walkNode // default ancestor for apportion
	a        *walkNode // greatest distinct ancestor
	thread   *walkNode
	z        float64 // preliminary x
	m        float64 // modifier
	change   float64
	shift    float64
	sibIndex int
}

// tidy assigns horizontal positions.
type tidy struct {
	widths []float64
	opts   Options
}

// run computes x for every input index of tree.
func (l *tidy) run(tree *family.Tree) []float64 {
	nodes := make([]*walkNode, tree.Len())
	for i := range nodes {
		nodes[i] = &walkNode{idx: i}
		nodes[i].a = nodes[i]
	}
	for i, n := range nodes {
		kids := tree.Children(i)
		n.children = make([]*walkNode, len(kids))
		for k := range kids {
			j := k
			if l.opts.Direction == RightToLeft {
				j = len(kids) - 1 - k
			}
			c := nodes[kids[j]]
			c.parent = n
			c.sibIndex = k
			n.children[k] = c
		}
	}

	root := nodes[tree.Root()]
	super := &walkNode{idx: -1, children: []*walkNode{root}}
	super.a = super
	root.parent = super

	for _, v := range postOrder(root) {
		l.firstWalk(v)
	}
	super.m = -root.z

	xs := make([]float64, len(nodes))
	stack := []*walkNode{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		xs[v.idx] = v.z + v.parent.m
		v.m += v.parent.m
		for i := len(v.children) - 1; i >= 0; i-- {
			stack = append(stack, v.children[i])
		}
	}
	return xs
}

// postOrder lists the subtree of root so that every node follows its
// descendants and its left siblings' subtrees.
func postOrder(root *walkNode) []*walkNode {
	var out []*walkNode
	stack := []*walkNode{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, v)
		stack = append(stack, v.children...)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (l *tidy) separation(a, b *walkNode) float64 {
	wa, wb := l.widths[a.idx], l.widths[b.idx]
	gap := math.Max(l.opts.MinGap, l.opts.GapRatio*(wa+wb)/2)
	if a.parent != b.parent {
		gap *= l.opts.CousinGapFactor
	}
	return wa/2 + wb/2 + gap
}

func (l *tidy) firstWalk(v *walkNode) {
	siblings := v.parent.children
	var w *walkNode
	if v.sibIndex > 0 {
		w = siblings[v.sibIndex-1]
	}

	if n := len(v.children); n > 0 {
		executeShifts(v)
		mid := (v.children[0].z + v.children[n-1].z) / 2
		if w != nil {
			v.z = w.z + l.separation(v, w)
			v.m = v.z - mid
		} else {
			v.z = mid
		}
	} else if w != nil {
		v.z = w.z + l.separation(v, w)
	}

	anc := v.parent.anc
	if anc == nil {
		anc = siblings[0]
	}
	v.parent.anc = l.apportion(v, w, anc)
}

func (l *tidy) apportion(v, w, ancestor *walkNode) *walkNode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := v.parent.children[0]
	sip, sop, sim, som := vip.m, vop.m, vim.m, vom.m

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v
		if shift := vim.z + sim - vip.z - sip + l.separation(vim, vip); shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.m
		sip += vip.m
		som += vom.m
		sop += vop.m
	}

	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.m += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.m += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *walkNode) *walkNode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *walkNode) *walkNode {
	if n := len(v.children); n > 0 {
		return v.children[n-1]
	}
	return v.thread
}

func nextAncestor(vim, v, ancestor *walkNode) *walkNode {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

func moveSubtree(wm, wp *walkNode, shift float64) {
	change := shift / float64(wp.sibIndex-wm.sibIndex)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.z += shift
	wp.m += shift
}

func executeShifts(v *walkNode) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.z += shift
		w.m += shift
		change += w.change
		shift += w.shift + change
	}
}
