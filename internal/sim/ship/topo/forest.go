// Package topo is the disjoint-set forest tracking which blocks share air.
//
// Nodes live in one arena addressed by dense index. Node 0 is the synthetic
// outside node; every chunk owns a contiguous run of nodes allocated by Grow.
// Nodes are never freed, only re-parented.
package topo

type Node int32

// Outside is the node standing for unbounded exterior space.
const Outside Node = 0

type Forest struct {
	parent []Node
	rank   []uint8
	size   []int32 // valid at roots only
}

func New() *Forest {
	return &Forest{
		parent: []Node{Outside},
		rank:   []uint8{0},
		size:   []int32{0},
	}
}

// Len is the number of nodes including Outside.
func (f *Forest) Len() int { return len(f.parent) }

// Grow appends n nodes already joined to the outside and returns the first.
func (f *Forest) Grow(n int) Node {
	first := Node(len(f.parent))
	out := f.Find(Outside)
	for i := 0; i < n; i++ {
		f.parent = append(f.parent, out)
		f.rank = append(f.rank, 0)
		f.size = append(f.size, 0)
	}
	f.size[out] += int32(n)
	return first
}

// Find returns the root of n, compressing the path behind it.
func (f *Forest) Find(n Node) Node {
	root := n
	for f.parent[root] != root {
		root = f.parent[root]
	}
	for f.parent[n] != root {
		next := f.parent[n]
		f.parent[n] = root
		n = next
	}
	return root
}

// Unite merges the trees of a and b by rank and returns the resulting root.
// Sizes are left to the caller.
func (f *Forest) Unite(a, b Node) Node {
	a = f.Find(a)
	b = f.Find(b)
	if a == b {
		return a
	}
	switch {
	case f.rank[a] < f.rank[b]:
		f.parent[a] = b
		return b
	case f.rank[a] > f.rank[b]:
		f.parent[b] = a
		return a
	default:
		f.parent[b] = a
		f.rank[a]++
		return a
	}
}

// Size is the block count recorded at root.
func (f *Forest) Size(root Node) int { return int(f.size[root]) }

func (f *Forest) SetSize(root Node, n int) { f.size[root] = int32(n) }

func (f *Forest) IsRoot(n Node) bool { return f.parent[n] == n }

// IsOutside reports whether n belongs to the outside tree.
func (f *Forest) IsOutside(n Node) bool {
	return f.Find(n) == f.Find(Outside)
}

// Reset makes every node a singleton root with zero size.
func (f *Forest) Reset() {
	for i := range f.parent {
		f.parent[i] = Node(i)
		f.rank[i] = 0
		f.size[i] = 0
	}
}

// Tally adds one to the size of n's root.
func (f *Forest) Tally(n Node) {
	f.size[f.Find(n)]++
}

// Roots returns every current root in index order.
func (f *Forest) Roots() []Node {
	var out []Node
	for i := range f.parent {
		if f.parent[i] == Node(i) {
			out = append(out, Node(i))
		}
	}
	return out
}
