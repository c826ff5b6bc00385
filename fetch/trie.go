package fetch

import (
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// nameTrie is a name prefix tree used for the pending-request and handler
// tables. It keys on Component.String(), which is slow but acceptable at
// client scale.
type nameTrie[V any] struct {
	val    V
	hasVal bool
	key    string
	par    *nameTrie[V]
	dep    int
	chd    map[string]*nameTrie[V]
}

func newNameTrie[V any]() *nameTrie[V] {
	return &nameTrie[V]{chd: map[string]*nameTrie[V]{}}
}

func (n *nameTrie[V]) Value() V {
	return n.val
}

func (n *nameTrie[V]) SetValue(v V) {
	n.val = v
	n.hasVal = true
}

func (n *nameTrie[V]) Parent() *nameTrie[V] {
	return n.par
}

func (n *nameTrie[V]) Depth() int {
	return n.dep
}

func (n *nameTrie[V]) HasChildren() bool {
	return len(n.chd) > 0
}

// ExactMatch returns the node for name, or nil if any component on the path
// does not exist.
func (n *nameTrie[V]) ExactMatch(name enc.Name) *nameTrie[V] {
	cur := n
	for _, comp := range name {
		next, ok := cur.chd[comp.String()]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// PrefixMatch returns the deepest existing node on the path of name.
func (n *nameTrie[V]) PrefixMatch(name enc.Name) *nameTrie[V] {
	cur := n
	for _, comp := range name {
		next, ok := cur.chd[comp.String()]
		if !ok {
			return cur
		}
		cur = next
	}
	return cur
}

// MatchAlways returns the node for name, creating missing nodes on the way.
func (n *nameTrie[V]) MatchAlways(name enc.Name) *nameTrie[V] {
	cur := n
	for _, comp := range name {
		cur = cur.child(comp.String())
	}
	return cur
}

// FirstSatisfyOrNew returns the first node on the path of name whose value
// satisfies pred, or the node for the full name, created if needed.
func (n *nameTrie[V]) FirstSatisfyOrNew(name enc.Name, pred func(V) bool) *nameTrie[V] {
	cur := n
	for _, comp := range name {
		if pred(cur.val) {
			return cur
		}
		cur = cur.child(comp.String())
	}
	return cur
}

// Delete clears the node's value and prunes nodes that hold neither a value
// nor children, up to the root.
func (n *nameTrie[V]) Delete() {
	var zero V
	n.val = zero
	n.hasVal = false
	for cur := n; cur.par != nil && !cur.HasChildren() && !cur.hasVal; cur = cur.par {
		delete(cur.par.chd, cur.key)
	}
}

// DeleteIf deletes the node when pred holds for its value.
func (n *nameTrie[V]) DeleteIf(pred func(V) bool) {
	if pred(n.val) {
		n.Delete()
	}
}

func (n *nameTrie[V]) child(key string) *nameTrie[V] {
	next, ok := n.chd[key]
	if !ok {
		next = &nameTrie[V]{
			key: key,
			par: n,
			dep: n.dep + 1,
			chd: map[string]*nameTrie[V]{},
		}
		n.chd[key] = next
	}
	return next
}
