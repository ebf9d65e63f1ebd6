// Package lineage holds the in-memory index over the append-only edge log.
//
// Nodes live in an arena keyed by fingerprint; adjacency is stored by arena
// index so traversals never chase object references. The index is not safe
// for concurrent use; callers serialize writers and may share readers.
package lineage

import (
	"context"
	"sort"

	"ai-bom-service/internal/core/domain"
)

// Direction selects which way a walk follows edges.
type Direction int

const (
	// Up follows child -> parent (ancestors).
	Up Direction = iota
	// Down follows parent -> child (descendants).
	Down
)

// deadlineCheckInterval is how many dequeued nodes pass between context checks.
const deadlineCheckInterval = 256

type Graph struct {
	ids   map[domain.Fingerprint]int
	nodes []domain.Fingerprint

	// parents[i][j] counts active relations where node i derives from node j.
	parents  []map[int]int
	children []map[int]int

	active  map[domain.EdgeKey]*domain.Edge
	lastSeq int64
	version uint64
}

func New() *Graph {
	return &Graph{
		ids:    make(map[domain.Fingerprint]int),
		active: make(map[domain.EdgeKey]*domain.Edge),
	}
}

func (g *Graph) node(fp domain.Fingerprint) int {
	if id, ok := g.ids[fp]; ok {
		return id
	}
	id := len(g.nodes)
	g.ids[fp] = id
	g.nodes = append(g.nodes, fp)
	g.parents = append(g.parents, nil)
	g.children = append(g.children, nil)
	return id
}

// Apply folds one edge event into the index and reports whether the active
// edge set changed. Events must arrive in sequence order.
func (g *Graph) Apply(e *domain.Edge) bool {
	if e.Seq > g.lastSeq {
		g.lastSeq = e.Seq
	}
	key := e.Key()
	_, isActive := g.active[key]

	if e.IsTombstone() {
		if !isActive {
			return false
		}
		delete(g.active, key)
		c, p := g.ids[key.Child], g.ids[key.Parent]
		decrement(g.parents[c], p)
		decrement(g.children[p], c)
		g.version++
		return true
	}

	if isActive {
		return false
	}
	c, p := g.node(key.Child), g.node(key.Parent)
	if g.parents[c] == nil {
		g.parents[c] = make(map[int]int)
	}
	if g.children[p] == nil {
		g.children[p] = make(map[int]int)
	}
	g.parents[c][p]++
	g.children[p][c]++
	g.active[key] = e
	g.version++
	return true
}

func decrement(m map[int]int, k int) {
	if m[k] <= 1 {
		delete(m, k)
		return
	}
	m[k]--
}

// Version increases every time the active edge set changes.
func (g *Graph) Version() uint64 {
	return g.version
}

// LastSeq is the highest event sequence applied so far.
func (g *Graph) LastSeq() int64 {
	return g.lastSeq
}

func (g *Graph) IsActive(key domain.EdgeKey) bool {
	_, ok := g.active[key]
	return ok
}

// ActiveEdge returns the assertion event backing an active edge.
func (g *Graph) ActiveEdge(key domain.EdgeKey) (*domain.Edge, bool) {
	e, ok := g.active[key]
	return e, ok
}

// Path returns the chain from -> ... -> to following parent links, or nil
// when to is not an ancestor of from. Path(x, x) is [x].
func (g *Graph) Path(from, to domain.Fingerprint) []domain.Fingerprint {
	if from == to {
		return []domain.Fingerprint{from}
	}
	src, ok := g.ids[from]
	if !ok {
		return nil
	}
	dst, ok := g.ids[to]
	if !ok {
		return nil
	}

	prev := make([]int, len(g.nodes))
	for i := range prev {
		prev[i] = -1
	}
	prev[src] = src
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.parents[cur] {
			if prev[next] != -1 {
				continue
			}
			prev[next] = cur
			if next == dst {
				return g.unwind(prev, src, dst)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func (g *Graph) unwind(prev []int, src, dst int) []domain.Fingerprint {
	var rev []int
	for cur := dst; cur != src; cur = prev[cur] {
		rev = append(rev, cur)
	}
	rev = append(rev, src)
	path := make([]domain.Fingerprint, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = g.nodes[id]
	}
	return path
}

// WouldCycle returns the existing path that the edge child -> parent would
// close, or nil when the edge keeps the graph acyclic.
func (g *Graph) WouldCycle(child, parent domain.Fingerprint) []domain.Fingerprint {
	return g.Path(parent, child)
}

// Walk collects every node reachable from origin in the given direction,
// excluding origin. maxDepth <= 0 is unbounded. The walk stops early when
// ctx is done and reports why it was truncated.
func (g *Graph) Walk(ctx context.Context, origin domain.Fingerprint, dir Direction, maxDepth int) ([]domain.Fingerprint, domain.TruncationReason) {
	src, ok := g.ids[origin]
	if !ok {
		return []domain.Fingerprint{}, domain.TruncatedNone
	}
	adj := g.parents
	if dir == Down {
		adj = g.children
	}

	visited := make([]bool, len(g.nodes))
	visited[src] = true
	type item struct{ id, depth int }
	queue := []item{{src, 0}}
	out := []domain.Fingerprint{}
	reason := domain.TruncatedNone

	for steps := 0; len(queue) > 0; steps++ {
		if steps%deadlineCheckInterval == 0 && ctx.Err() != nil {
			reason = domain.TruncatedDeadline
			break
		}
		cur := queue[0]
		queue = queue[1:]
		for next := range adj[cur.id] {
			if visited[next] {
				continue
			}
			if maxDepth > 0 && cur.depth >= maxDepth {
				reason = domain.TruncatedMaxDepth
				continue
			}
			visited[next] = true
			out = append(out, g.nodes[next])
			queue = append(queue, item{next, cur.depth + 1})
		}
	}
	return domain.SortFingerprints(out), reason
}

// Edges returns active edges, sorted by key. When fp is non-zero only edges
// touching fp are returned.
func (g *Graph) Edges(fp domain.Fingerprint) []*domain.Edge {
	out := make([]*domain.Edge, 0)
	for key, e := range g.active {
		if fp.IsZero() || key.Child == fp || key.Parent == fp {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

// EdgesWithin returns the active edges whose child and parent are both in set.
func (g *Graph) EdgesWithin(set map[domain.Fingerprint]struct{}) []domain.EdgeKey {
	keys := make([]domain.EdgeKey, 0)
	for key := range g.active {
		_, okChild := set[key.Child]
		_, okParent := set[key.Parent]
		if okChild && okParent {
			keys = append(keys, key)
		}
	}
	return domain.SortEdgeKeys(keys)
}

func sortEdges(edges []*domain.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key().Less(edges[j].Key()) })
}
