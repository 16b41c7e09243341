// Package pmap provides persistent, structurally-shared collections: a
// hash-array-mapped trie backed Map and a StringSet built on top of it,
// plus a copy-on-write Vector for short sequences. Every mutator returns
// a new value; the receiver is left untouched, so a Map/Set/Vector can be
// held by multiple goroutines or snapshots for arbitrary durations
// without locking.
package pmap

import "hash/maphash"

const (
	bitsPerLevel = 5
	fanout       = 1 << bitsPerLevel
	levelMask    = fanout - 1
)

var seed = maphash.MakeSeed()

func hashString(s string) uint64 {
	return maphash.String(seed, s)
}

// entry is a single key/value pair stored at a trie leaf.
type entry struct {
	key string
	val any
}

// node is either a leaf chain (collisions at the same hash slot are
// extremely rare with a 64-bit hash, but handled via a slice) or a
// branch with up to fanout children.
type node struct {
	// leaf-only
	entries []entry
	// branch-only
	children [fanout]*node
	bitmap   uint32 // which of the fanout slots are populated
}

func (n *node) isLeaf() bool { return n != nil && len(n.entries) > 0 }

// Map is an immutable map from string to an arbitrary value. The zero
// value is a valid empty Map.
type Map struct {
	root *node
	size int
}

// NewMap returns an empty Map.
func NewMap() Map { return Map{} }

// Len returns the number of entries.
func (m Map) Len() int { return m.size }

// Get returns the value for key and whether it was present.
func (m Map) Get(key string) (any, bool) {
	if m.root == nil {
		return nil, false
	}
	return getNode(m.root, hashString(key), key)
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set returns a new Map with key bound to val, sharing structure with m.
func (m Map) Set(key string, val any) Map {
	added := false
	newRoot := setNode(m.root, hashString(key), 0, entry{key, val}, &added)
	size := m.size
	if added {
		size++
	}
	return Map{root: newRoot, size: size}
}

// Delete returns a new Map with key removed, sharing structure with m.
func (m Map) Delete(key string) Map {
	if m.root == nil {
		return m
	}
	removed := false
	newRoot := deleteNode(m.root, hashString(key), key, &removed)
	if !removed {
		return m
	}
	return Map{root: newRoot, size: m.size - 1}
}

// Range calls f for every entry. Iteration order is stable for a given
// Map value but otherwise unspecified.
func (m Map) Range(f func(key string, val any) bool) {
	if m.root == nil {
		return
	}
	rangeNode(m.root, f)
}

// Keys returns all keys in unspecified but stable order.
func (m Map) Keys() []string {
	keys := make([]string, 0, m.size)
	m.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func getNode(n *node, h uint64, key string) (any, bool) {
	if n == nil {
		return nil, false
	}
	if n.isLeaf() {
		for _, e := range n.entries {
			if e.key == key {
				return e.val, true
			}
		}
		return nil, false
	}
	idx := (h & levelMask)
	bit := uint32(1) << idx
	if n.bitmap&bit == 0 {
		return nil, false
	}
	return getNode(n.children[idx], h>>bitsPerLevel, key)
}

func cloneNode(n *node) *node {
	if n == nil {
		return &node{}
	}
	c := &node{bitmap: n.bitmap}
	if n.isLeaf() {
		c.entries = append([]entry(nil), n.entries...)
		return c
	}
	c.children = n.children
	return c
}

func setNode(n *node, h uint64, depth int, e entry, added *bool) *node {
	if n == nil {
		*added = true
		return &node{entries: []entry{e}}
	}
	if n.isLeaf() {
		for i, ex := range n.entries {
			if ex.key == e.key {
				c := cloneNode(n)
				c.entries[i] = e
				return c
			}
		}
		// Hash collision or depth exhausted at bucket level: grow a leaf
		// chain rather than branching further once we run out of bits.
		if depth*bitsPerLevel >= 64 {
			c := cloneNode(n)
			c.entries = append(c.entries, e)
			*added = true
			return c
		}
		// Split the existing leaf into a branch and re-insert.
		branch := &node{}
		for _, ex := range n.entries {
			branch = insertIntoBranch(branch, hashString(ex.key)>>(uint(depth)*bitsPerLevel), depth, ex, new(bool))
		}
		return setNode(branch, h, depth, e, added)
	}
	return insertIntoBranch(n, h, depth, e, added)
}

func insertIntoBranch(n *node, h uint64, depth int, e entry, added *bool) *node {
	idx := h & levelMask
	bit := uint32(1) << idx
	c := cloneNode(n)
	child := setNode(c.children[idx], h>>bitsPerLevel, depth+1, e, added)
	c.children[idx] = child
	c.bitmap |= bit
	return c
}

func deleteNode(n *node, h uint64, key string, removed *bool) *node {
	if n == nil {
		return nil
	}
	if n.isLeaf() {
		for i, e := range n.entries {
			if e.key == key {
				*removed = true
				if len(n.entries) == 1 {
					return nil
				}
				c := cloneNode(n)
				c.entries = append(c.entries[:i:i], n.entries[i+1:]...)
				return c
			}
		}
		return n
	}
	idx := h & levelMask
	bit := uint32(1) << idx
	if n.bitmap&bit == 0 {
		return n
	}
	newChild := deleteNode(n.children[idx], h>>bitsPerLevel, key, removed)
	if !*removed {
		return n
	}
	c := cloneNode(n)
	c.children[idx] = newChild
	if newChild == nil {
		c.bitmap &^= bit
	}
	if c.bitmap == 0 {
		return nil
	}
	return c
}

func rangeNode(n *node, f func(string, any) bool) bool {
	if n == nil {
		return true
	}
	if n.isLeaf() {
		for _, e := range n.entries {
			if !f(e.key, e.val) {
				return false
			}
		}
		return true
	}
	for i := 0; i < fanout; i++ {
		if n.bitmap&(1<<uint(i)) == 0 {
			continue
		}
		if !rangeNode(n.children[i], f) {
			return false
		}
	}
	return true
}
