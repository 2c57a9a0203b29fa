// Package orderstat implements the balanced order-statistic tree that
// backs the line, chunk, soft-break, and fold indices.
//
// It is a red-black tree ordered purely by sequence position rather than
// by key: "find" walks the tree accumulating a caller-supplied aggregate
// until a Finder reports it has located the target node. Every node
// carries a synthesized subtree aggregate, recomputed bottom-up after any
// structural change, so prefix-sum queries (codepoints before a line,
// bytes before a chunk, characters before a fold) are O(log n).
package orderstat

import "github.com/textkit/textkit/internal/invariant"

// Direction is returned by a Finder to steer the walk.
type Direction int

const (
	Left Direction = iota
	Here
	Right
)

// Finder inspects the aggregate of the node's left subtree and the
// node's own value to decide where the target lies. acc accumulates the
// prefix the walk has skipped; a Finder that returns Right is
// responsible for folding in whatever the node itself contributed
// (leftAgg and the node's own synthesized contribution) before
// returning, so that by the time Here is returned, *acc holds the
// aggregate of everything strictly before the found node.
type Finder[V, A any] func(leftAgg A, value V, acc *A) Direction

// Synthesize combines a node's own value with its left and right
// subtree aggregates into this subtree's aggregate.
type Synthesize[V, A any] func(value V, left, right A) A

type color bool

const (
	red   color = true
	black color = false
)

// Node is a tree node. Holders of an Iterator keep a *Node directly;
// iterators are stable against unrelated inserts/erases until the node
// they reference is itself erased.
type Node[V, A any] struct {
	value               V
	agg                 A
	left, right, parent *Node[V, A]
	col                 color
}

// Value returns the node's current value.
func (n *Node[V, A]) Value() V { return n.value }

// Aggregate returns the node's synthesized subtree aggregate (including
// itself and both children).
func (n *Node[V, A]) Aggregate() A { return n.agg }

// Tree is a sequence-ordered red-black tree with synthesized aggregates.
type Tree[V, A any] struct {
	root    *Node[V, A]
	count   int
	synth   Synthesize[V, A]
	zero    A
}

// New creates an empty Tree. zero is the aggregate of an empty subtree
// (e.g. zero byte/codepoint counts); synth combines a node's value with
// its children's aggregates.
func New[V, A any](zero A, synth Synthesize[V, A]) *Tree[V, A] {
	invariant.NotNil(synth, "synth")
	return &Tree[V, A]{synth: synth, zero: zero}
}

// Len returns the number of nodes.
func (t *Tree[V, A]) Len() int { return t.count }

// Aggregate returns the whole-tree aggregate (zero for an empty tree).
func (t *Tree[V, A]) Aggregate() A { return t.aggOf(t.root) }

func (t *Tree[V, A]) aggOf(n *Node[V, A]) A {
	if n == nil {
		return t.zero
	}
	return n.agg
}

// Begin returns an iterator to the first node, or End if empty.
func (t *Tree[V, A]) Begin() *Node[V, A] {
	if t.root == nil {
		return nil
	}
	return leftmost(t.root)
}

// End represents one-past-the-last node; it is always nil.
func (t *Tree[V, A]) End() *Node[V, A] { return nil }

func leftmost[V, A any](n *Node[V, A]) *Node[V, A] {
	for n.left != nil {
		n = n.left
	}
	return n
}

func rightmost[V, A any](n *Node[V, A]) *Node[V, A] {
	for n.right != nil {
		n = n.right
	}
	return n
}

// Next returns the in-order successor of n, or nil if n is the last node.
func Next[V, A any](n *Node[V, A]) *Node[V, A] {
	if n == nil {
		return nil
	}
	if n.right != nil {
		return leftmost(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// Prev returns the in-order predecessor of n, or nil if n is the first node.
func Prev[V, A any](n *Node[V, A]) *Node[V, A] {
	if n == nil {
		return nil
	}
	if n.left != nil {
		return rightmost(n.left)
	}
	p := n.parent
	for p != nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

// Find walks the tree with finder, returning the matched node, or nil
// if finder never reports Here (an out-of-range query), together with
// acc. When a node matched, acc holds the aggregate of everything
// strictly before it.
func (t *Tree[V, A]) Find(finder Finder[V, A]) (*Node[V, A], A) {
	acc := t.zero
	n := t.root
	for n != nil {
		leftAgg := t.aggOf(n.left)
		switch finder(leftAgg, n.value, &acc) {
		case Left:
			n = n.left
		case Here:
			return n, acc
		case Right:
			n = n.right
		default:
			invariant.Invariant(false, "finder returned invalid direction")
		}
	}
	return nil, acc
}

// InsertBefore inserts value as the immediate in-order predecessor of
// at (at may be nil/End, meaning "append at the end"). Returns the new
// node.
func (t *Tree[V, A]) InsertBefore(at *Node[V, A], value V) *Node[V, A] {
	n := &Node[V, A]{value: value, col: red}
	n.agg = t.synth(value, t.zero, t.zero)

	if t.root == nil {
		invariant.Precondition(at == nil, "at must be nil/End for an empty tree")
		n.col = black
		t.root = n
		t.count++
		return n
	}

	if at != nil {
		if at.left == nil {
			attachChild(at, n, true)
		} else {
			pred := rightmost(at.left)
			attachChild(pred, n, false)
		}
	} else {
		m := rightmost(t.root)
		attachChild(m, n, false)
	}

	t.count++
	t.resynthTo(n.parent)
	t.insertFixup(n)
	return n
}

func attachChild[V, A any](parent, child *Node[V, A], asLeft bool) {
	child.parent = parent
	if asLeft {
		invariant.Precondition(parent.left == nil, "left child slot must be empty")
		parent.left = child
	} else {
		invariant.Precondition(parent.right == nil, "right child slot must be empty")
		parent.right = child
	}
}

// Modify applies mutator to the node's value in place, then
// resynthesizes aggregates from this node up to the root.
func (t *Tree[V, A]) Modify(n *Node[V, A], mutator func(v *V)) {
	invariant.NotNil(n, "n")
	mutator(&n.value)
	t.resynthOne(n)
	t.resynthTo(n.parent)
}

func (t *Tree[V, A]) resynthOne(n *Node[V, A]) {
	n.agg = t.synth(n.value, t.aggOf(n.left), t.aggOf(n.right))
}

// resynthTo recomputes aggregates from n up through the root (inclusive).
func (t *Tree[V, A]) resynthTo(n *Node[V, A]) {
	for n != nil {
		t.resynthOne(n)
		n = n.parent
	}
}

// RefreshAll rebuilds every synthesized aggregate bottom-up. Used after
// bulk in-place value changes made outside Modify (e.g. a patch pass
// over many fold nodes).
func (t *Tree[V, A]) RefreshAll() {
	var walk func(n *Node[V, A])
	walk = func(n *Node[V, A]) {
		if n == nil {
			return
		}
		walk(n.left)
		walk(n.right)
		t.resynthOne(n)
	}
	walk(t.root)
}

// Erase removes n from the tree.
func (t *Tree[V, A]) Erase(n *Node[V, A]) {
	invariant.NotNil(n, "n")
	t.count--

	// Standard BST deletion: if n has two children, swap its value with
	// its in-order successor and delete the successor node instead,
	// which has at most one child.
	victim := n
	if n.left != nil && n.right != nil {
		succ := leftmost(n.right)
		n.value = succ.value
		victim = succ
	}

	var child *Node[V, A]
	if victim.left != nil {
		child = victim.left
	} else {
		child = victim.right
	}

	parent := victim.parent
	replaceChild(t, parent, victim, child)

	if victim.col == black {
		if child != nil && child.col == red {
			child.col = black
		} else {
			t.deleteFixup(child, parent)
		}
	}

	if n != victim {
		// n's value changed to the successor's; resynthesize from n down
		// is unnecessary (n's children unaffected except via victim's
		// removal, already resynthesized below) but n's own aggregate
		// must reflect its new value.
		t.resynthOne(n)
	}
	t.resynthTo(parent)
}

// EraseRange removes every node in the half-open in-order range
// [begin, end).
func (t *Tree[V, A]) EraseRange(begin, end *Node[V, A]) {
	n := begin
	for n != end {
		invariant.NotNil(n, "n")
		next := Next(n)
		t.Erase(n)
		n = next
	}
}

func replaceChild[V, A any](t *Tree[V, A], parent, old, new_ *Node[V, A]) {
	if new_ != nil {
		new_.parent = parent
	}
	if parent == nil {
		t.root = new_
		return
	}
	if parent.left == old {
		parent.left = new_
	} else {
		parent.right = new_
	}
}

func (t *Tree[V, A]) rotateLeft(x *Node[V, A]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	t.resynthOne(x)
	t.resynthOne(y)
}

func (t *Tree[V, A]) rotateRight(x *Node[V, A]) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	t.resynthOne(x)
	t.resynthOne(y)
}

func (t *Tree[V, A]) insertFixup(z *Node[V, A]) {
	for z.parent != nil && z.parent.col == red {
		gp := z.parent.parent
		if gp == nil {
			break
		}
		if z.parent == gp.left {
			uncle := gp.right
			if uncle != nil && uncle.col == red {
				z.parent.col = black
				uncle.col = black
				gp.col = red
				z = gp
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.col = black
				gp.col = red
				t.rotateRight(gp)
			}
		} else {
			uncle := gp.left
			if uncle != nil && uncle.col == red {
				z.parent.col = black
				uncle.col = black
				gp.col = red
				z = gp
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.col = black
				gp.col = red
				t.rotateLeft(gp)
			}
		}
	}
	t.root.col = black
}

// deleteFixup restores red-black invariants after removing a black node
// whose replacement is x (possibly nil), whose parent is parent (needed
// because x may be nil and thus carry no parent pointer of its own).
func (t *Tree[V, A]) deleteFixup(x, parent *Node[V, A]) {
	for x != t.root && (x == nil || x.col == black) {
		if parent == nil {
			break
		}
		if x == parent.left {
			sib := parent.right
			if sib != nil && sib.col == red {
				sib.col = black
				parent.col = red
				t.rotateLeft(parent)
				sib = parent.right
			}
			if sib == nil || ((sib.left == nil || sib.left.col == black) && (sib.right == nil || sib.right.col == black)) {
				if sib != nil {
					sib.col = red
				}
				x = parent
				parent = x.parent
			} else {
				if sib.right == nil || sib.right.col == black {
					if sib.left != nil {
						sib.left.col = black
					}
					sib.col = red
					t.rotateRight(sib)
					sib = parent.right
				}
				sib.col = parent.col
				parent.col = black
				if sib.right != nil {
					sib.right.col = black
				}
				t.rotateLeft(parent)
				x = t.root
				parent = nil
			}
		} else {
			sib := parent.left
			if sib != nil && sib.col == red {
				sib.col = black
				parent.col = red
				t.rotateRight(parent)
				sib = parent.left
			}
			if sib == nil || ((sib.left == nil || sib.left.col == black) && (sib.right == nil || sib.right.col == black)) {
				if sib != nil {
					sib.col = red
				}
				x = parent
				parent = x.parent
			} else {
				if sib.left == nil || sib.left.col == black {
					if sib.right != nil {
						sib.right.col = black
					}
					sib.col = red
					t.rotateLeft(sib)
					sib = parent.left
				}
				sib.col = parent.col
				parent.col = black
				if sib.left != nil {
					sib.left.col = black
				}
				t.rotateRight(parent)
				x = t.root
				parent = nil
			}
		}
	}
	if x != nil {
		x.col = black
	}
}

// InOrder calls visit for every node's value, in sequence order.
func (t *Tree[V, A]) InOrder(visit func(V)) {
	for n := t.Begin(); n != nil; n = Next(n) {
		visit(n.value)
	}
}
