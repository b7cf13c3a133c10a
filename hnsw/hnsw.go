// Package hnsw implements a Hierarchical Navigable Small World graph: a
// multi-layer proximity graph supporting approximate k-nearest-neighbor
// search with logarithmic expected query cost.
//
// Locking discipline: one sync.RWMutex protects the structural top-level
// state (the nodes keyset, entry point and max level); each Node owns its
// own sync.RWMutex protecting its vector, metadata and neighbor lists.
// Insert/delete/update take the global write lock for the duration of the
// operation (the simplest correct variant); search_knn takes the global
// read lock plus per-node read locks as it visits nodes. The global lock
// is always taken before any node lock. Only link holds more than one
// node lock at a time: it keeps the neighbor's write lock while taking
// other nodes' read locks in no particular id order, which happens only
// under the global write lock.
package hnsw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecgo/distance"
	"github.com/hupe1980/vecgo/internal/queue"
	"github.com/hupe1980/vecgo/internal/visited"
)

// visitedPool recycles the per-search bitset so searchLayer's hot path
// doesn't allocate a fresh visited-nodes map on every call.
var visitedPool = sync.Pool{
	New: func() any { return visited.New(1024) },
}

// ErrNodeNotFound is returned when an operation references an id that is
// not present in the graph.
var ErrNodeNotFound = errors.New("hnsw: node not found")

// ErrInvalidConfig is returned by New when the supplied Config cannot
// produce a usable index.
var ErrInvalidConfig = errors.New("hnsw: invalid configuration")

// Node is the unit of storage in the graph.
type Node struct {
	mu sync.RWMutex

	id          uint64
	vector      []float32
	metadata    []byte
	level       int
	connections [][]uint64 // connections[l] holds neighbor ids at layer l
}

// ID returns the node's id. Safe to call without holding the node lock;
// id is immutable after construction.
func (n *Node) ID() uint64 { return n.id }

// Level returns the highest layer this node participates in.
func (n *Node) Level() int { return n.level }

// Vector returns a copy of the node's stored vector.
func (n *Node) Vector() []float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v := make([]float32, len(n.vector))
	copy(v, n.vector)
	return v
}

// Config configures a new HNSW index.
type Config struct {
	// Dimension is the fixed vector length for every node. Required, > 0.
	Dimension int
	// Metric selects the distance kernel.
	Metric distance.Metric
	// M is the target number of established connections per node
	// (per layer above 0; layer 0 allows 2*M). Typical default 16.
	M int
	// EfConstruction is the candidate set size explored during insert.
	// Typical default 200. Zero uses the default.
	EfConstruction int
	// EfSearch is the candidate set size explored during query. Typical
	// default 50. Zero uses the default.
	EfSearch int
	// Seed, when non-nil, makes level assignment deterministic.
	Seed *int64
}

const (
	defaultEfConstruction = 200
	defaultEfSearch       = 50
)

// Result is a single search hit.
type Result struct {
	ID       uint64
	Distance float32
}

// HNSW is a concurrent HNSW graph index.
type HNSW struct {
	mu sync.RWMutex // guards nodes keyset; entryPoint/maxLevel are atomic

	dimension      int
	metric         distance.Metric
	distanceFn     distance.Func
	m              int
	mMax0          int
	ml             float64
	efConstruction int
	efSearch       int

	rng *rand.Rand

	nodes      map[uint64]*Node
	entryPoint atomic.Uint64
	hasEntry   atomic.Bool
	maxLevel   atomic.Int64
	nextID     atomic.Uint64
}

// New constructs an empty HNSW index from cfg.
func New(cfg Config) (*HNSW, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0", ErrInvalidConfig)
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("%w: M must be >= 2", ErrInvalidConfig)
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = defaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = defaultEfSearch
	}

	distFn, err := distance.Provider(cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var rng *rand.Rand
	if cfg.Seed != nil {
		rng = rand.New(rand.NewSource(*cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &HNSW{
		dimension:      cfg.Dimension,
		metric:         cfg.Metric,
		distanceFn:     distFn,
		m:              cfg.M,
		mMax0:          2 * cfg.M,
		ml:             1 / math.Log(float64(cfg.M)),
		efConstruction: cfg.EfConstruction,
		efSearch:       cfg.EfSearch,
		rng:            rng,
		nodes:          make(map[uint64]*Node),
	}, nil
}

// Dimension returns the configured vector length.
func (h *HNSW) Dimension() int { return h.dimension }

// Metric returns the configured distance metric.
func (h *HNSW) Metric() distance.Metric { return h.metric }

// Len returns the number of nodes currently in the graph.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// EntryPoint returns the current entry point id and whether one exists.
func (h *HNSW) EntryPoint() (uint64, bool) {
	return h.entryPoint.Load(), h.hasEntry.Load()
}

// MaxLevel returns the highest layer index currently present.
func (h *HNSW) MaxLevel() int {
	return int(h.maxLevel.Load())
}

// Ids returns every node id currently in the graph, in ascending order.
func (h *HNSW) Ids() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uint64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h *HNSW) drawLevel() int {
	u := h.rng.Float64()
	for u <= 0 {
		u = h.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * h.ml))
}

// Insert assigns a fresh id to vector, links it into the graph and returns
// the id. metadata is an opaque payload stored alongside the node.
func (h *HNSW) Insert(vector []float32, metadata []byte) (uint64, error) {
	if len(vector) != h.dimension {
		return 0, &distance.ErrDimensionMismatch{Expected: h.dimension, Actual: len(vector)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID.Load()
	h.nextID.Add(1)

	if err := h.insertNodeLocked(id, vector, metadata); err != nil {
		return 0, err
	}
	return id, nil
}

// insertNodeLocked performs the insertion algorithm for a node with a
// pre-assigned id. Callers must hold h.mu for write.
func (h *HNSW) insertNodeLocked(id uint64, vector []float32, metadata []byte) error {
	vecCopy := make([]float32, len(vector))
	copy(vecCopy, vector)

	var metaCopy []byte
	if len(metadata) > 0 {
		metaCopy = make([]byte, len(metadata))
		copy(metaCopy, metadata)
	}

	level := h.drawLevel()
	node := &Node{
		id:          id,
		vector:      vecCopy,
		metadata:    metaCopy,
		level:       level,
		connections: make([][]uint64, level+1),
	}

	if len(h.nodes) == 0 {
		h.nodes[id] = node
		h.entryPoint.Store(id)
		h.hasEntry.Store(true)
		h.maxLevel.Store(int64(level))
		return nil
	}

	epID := h.entryPoint.Load()
	epNode := h.nodes[epID]
	currDist, err := h.distanceFn(epNode.Vector(), vecCopy)
	if err != nil {
		return err
	}
	curr := epID
	maxLevel := int(h.maxLevel.Load())

	for l := maxLevel; l > level; l-- {
		curr, currDist, err = h.greedyDescendLayer(vecCopy, curr, currDist, l)
		if err != nil {
			return err
		}
	}

	entry := queue.PriorityQueueItem{Node: curr, Distance: currDist}

	top := level
	if maxLevel < top {
		top = maxLevel
	}

	for l := top; l >= 0; l-- {
		candidates, err := h.searchLayer(vecCopy, entry, h.efConstruction, l)
		if err != nil {
			return err
		}

		selected := selectNeighbors(candidates, h.m)
		ids := make([]uint64, len(selected))
		for i, it := range selected {
			ids[i] = it.Node
		}
		node.connections[l] = ids

		for _, nb := range selected {
			if err := h.link(nb.Node, id, l); err != nil {
				return err
			}
		}

		if len(selected) > 0 {
			entry = selected[0]
		}
	}

	h.nodes[id] = node

	if level > maxLevel {
		h.entryPoint.Store(id)
		h.maxLevel.Store(int64(level))
	}

	return nil
}

// greedyDescendLayer repeatedly moves to the neighbor of curr at layer
// that is closer to q than curr itself, until no neighbor is closer.
func (h *HNSW) greedyDescendLayer(q []float32, curr uint64, currDist float32, layer int) (uint64, float32, error) {
	for {
		node := h.nodes[curr]
		node.mu.RLock()
		var neighbors []uint64
		if layer < len(node.connections) {
			neighbors = append([]uint64(nil), node.connections[layer]...)
		}
		node.mu.RUnlock()

		changed := false
		for _, nid := range neighbors {
			nb := h.nodes[nid]
			d, err := h.distanceFn(q, nb.Vector())
			if err != nil {
				return 0, 0, err
			}
			if d < currDist {
				curr = nid
				currDist = d
				changed = true
			}
		}
		if !changed {
			return curr, currDist, nil
		}
	}
}

// searchLayer implements §4.3.4: frontier min-heap plus bounded max-heap
// of the best-so-far results, returned in ascending distance order.
func (h *HNSW) searchLayer(q []float32, entry queue.PriorityQueueItem, ef int, layer int) ([]queue.PriorityQueueItem, error) {
	seen := visitedPool.Get().(*visited.VisitedSet)
	seen.EnsureCapacity(int(h.nextID.Load()) + 1)
	defer func() {
		seen.Reset()
		visitedPool.Put(seen)
	}()
	seen.Visit(entry.Node)

	candidates := queue.NewMin(ef)
	candidates.PushItem(entry)

	results := queue.NewMax(ef)
	results.PushItem(entry)

	for candidates.Len() > 0 {
		c, _ := candidates.PopItem()

		if top, ok := results.TopItem(); ok && results.Len() >= ef && c.Distance > top.Distance {
			break
		}

		node, ok := h.nodes[c.Node]
		if !ok {
			continue
		}
		node.mu.RLock()
		var neighbors []uint64
		if layer < len(node.connections) {
			neighbors = append([]uint64(nil), node.connections[layer]...)
		}
		node.mu.RUnlock()

		for _, nid := range neighbors {
			if seen.Visited(nid) {
				continue
			}
			seen.Visit(nid)

			nb, ok := h.nodes[nid]
			if !ok {
				continue
			}
			d, err := h.distanceFn(q, nb.Vector())
			if err != nil {
				return nil, err
			}

			top, hasTop := results.TopItem()
			if results.Len() < ef || (hasTop && d < top.Distance) {
				item := queue.PriorityQueueItem{Node: nid, Distance: d}
				candidates.PushItem(item)
				results.PushItem(item)
				if results.Len() > ef {
					results.PopItem()
				}
			}
		}
	}

	out := make([]queue.PriorityQueueItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		it, _ := results.PopItem()
		out[i] = it
	}
	return out, nil
}

// selectNeighbors takes the plain M closest candidates. candidates is
// assumed pre-sorted ascending by distance (as searchLayer returns).
//
// This is the "take M closest" alternative the spec explicitly sanctions
// as simpler than the full shrink heuristic; see DESIGN.md.
func selectNeighbors(candidates []queue.PriorityQueueItem, m int) []queue.PriorityQueueItem {
	if len(candidates) <= m {
		return candidates
	}
	return candidates[:m]
}

// link adds newID to neighborID's connection list at layer, pruning back
// to the layer's max degree (M at layer>0, 2M at layer 0) by recomputing
// distances to neighborID and keeping the closest.
func (h *HNSW) link(neighborID, newID uint64, layer int) error {
	neighbor, ok := h.nodes[neighborID]
	if !ok {
		return nil
	}

	neighbor.mu.Lock()
	defer neighbor.mu.Unlock()

	if layer >= len(neighbor.connections) {
		return nil
	}

	maxConn := h.m
	if layer == 0 {
		maxConn = h.mMax0
	}

	conns := append(neighbor.connections[layer], newID)
	if len(conns) <= maxConn {
		neighbor.connections[layer] = conns
		return nil
	}

	candidates := make([]queue.PriorityQueueItem, 0, len(conns))
	for _, cid := range conns {
		var vec []float32
		if cid == neighborID {
			vec = neighbor.vector
		} else if cn, ok := h.nodes[cid]; ok {
			vec = cn.Vector()
		} else {
			continue
		}
		d, err := h.distanceFn(neighbor.vector, vec)
		if err != nil {
			return err
		}
		candidates = append(candidates, queue.PriorityQueueItem{Node: cid, Distance: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Node < candidates[j].Node
	})

	if len(candidates) > maxConn {
		candidates = candidates[:maxConn]
	}

	pruned := make([]uint64, len(candidates))
	for i, it := range candidates {
		pruned[i] = it.Node
	}
	neighbor.connections[layer] = pruned

	return nil
}

// SearchKNN returns up to k nearest neighbors of query in ascending
// distance order. An empty index returns an empty, nil-error result.
func (h *HNSW) SearchKNN(query []float32, k int) ([]Result, error) {
	if len(query) != h.dimension {
		return nil, &distance.ErrDimensionMismatch{Expected: h.dimension, Actual: len(query)}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntry.Load() {
		return nil, nil
	}

	epID := h.entryPoint.Load()
	epNode, ok := h.nodes[epID]
	if !ok {
		return nil, nil
	}

	curr := epID
	currDist, err := h.distanceFn(epNode.Vector(), query)
	if err != nil {
		return nil, err
	}

	maxLevel := int(h.maxLevel.Load())
	for l := maxLevel; l >= 1; l-- {
		curr, currDist, err = h.greedyDescendLayer(query, curr, currDist, l)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := h.searchLayer(query, queue.PriorityQueueItem{Node: curr, Distance: currDist}, h.efSearch, 0)
	if err != nil {
		return nil, err
	}

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	results := make([]Result, len(candidates))
	for i, it := range candidates {
		results[i] = Result{ID: it.Node, Distance: it.Distance}
	}
	return results, nil
}

// Delete removes id from the graph, cleaning it out of every neighbor
// list that referenced it. Fails with ErrNodeNotFound if id is absent.
func (h *HNSW) Delete(id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deleteLocked(id)
}

func (h *HNSW) deleteLocked(id uint64) error {
	node, ok := h.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.mu.RLock()
	connections := make([][]uint64, len(node.connections))
	for i, layer := range node.connections {
		connections[i] = append([]uint64(nil), layer...)
	}
	node.mu.RUnlock()

	for level, neighbors := range connections {
		for _, nid := range neighbors {
			nb, ok := h.nodes[nid]
			if !ok {
				continue
			}
			nb.mu.Lock()
			if level < len(nb.connections) {
				nb.connections[level] = removeID(nb.connections[level], id)
			}
			nb.mu.Unlock()
		}
	}

	delete(h.nodes, id)

	if h.hasEntry.Load() && h.entryPoint.Load() == id {
		h.reassignEntryPointLocked()
	}

	return nil
}

func (h *HNSW) reassignEntryPointLocked() {
	var bestID uint64
	bestLevel := -1
	found := false

	for nid, n := range h.nodes {
		if !found || n.level > bestLevel || (n.level == bestLevel && nid < bestID) {
			bestID = nid
			bestLevel = n.level
			found = true
		}
	}

	if !found {
		h.hasEntry.Store(false)
		h.entryPoint.Store(0)
		h.maxLevel.Store(0)
		return
	}

	h.entryPoint.Store(bestID)
	h.maxLevel.Store(int64(bestLevel))
}

func removeID(ids []uint64, target uint64) []uint64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Update replaces id's vector and metadata and re-links it into the graph
// at a freshly drawn level, preserving its id. Fails with ErrNodeNotFound
// if id is absent.
func (h *HNSW) Update(id uint64, vector []float32, metadata []byte) error {
	if len(vector) != h.dimension {
		return &distance.ErrDimensionMismatch{Expected: h.dimension, Actual: len(vector)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.nodes[id]; !ok {
		return ErrNodeNotFound
	}

	if err := h.deleteLocked(id); err != nil {
		return err
	}

	return h.insertNodeLocked(id, vector, metadata)
}

// Metadata returns a copy of id's stored metadata payload.
func (h *HNSW) Metadata(id uint64) ([]byte, bool) {
	h.mu.RLock()
	node, ok := h.nodes[id]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	node.mu.RLock()
	defer node.mu.RUnlock()
	if len(node.metadata) == 0 {
		return nil, true
	}
	out := make([]byte, len(node.metadata))
	copy(out, node.metadata)
	return out, true
}
