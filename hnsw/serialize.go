package hnsw

import (
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/vecgo/persistence"
)

// Serialize writes the graph in the index_blob layout (see the package
// doc of persistence): node_count, max_level, optional entry_point, then
// each node's id, vector, connections grouped by layer, and metadata.
//
// One field not present in a literal byte-for-byte reading of the format
// table is written here out of necessity: a per-node layer_count u32
// immediately before per_layer_count_vector, so a reader knows how many
// entries that vector holds before it has read any connection ids. See
// DESIGN.md.
func (h *HNSW) Serialize(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bw := persistence.NewBinaryIndexWriter(w)

	ids := make([]uint64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := bw.WriteUint32(uint32(len(ids))); err != nil {
		return err
	}
	if err := bw.WriteUint32(uint32(h.maxLevel.Load())); err != nil {
		return err
	}

	if h.hasEntry.Load() {
		if err := bw.WriteUint8(1); err != nil {
			return err
		}
		if err := bw.WriteUint64(h.entryPoint.Load()); err != nil {
			return err
		}
	} else {
		if err := bw.WriteUint8(0); err != nil {
			return err
		}
	}

	for _, id := range ids {
		node := h.nodes[id]

		node.mu.RLock()
		vector := append([]float32(nil), node.vector...)
		metadata := append([]byte(nil), node.metadata...)
		connections := make([][]uint64, len(node.connections))
		for i, layer := range node.connections {
			connections[i] = append([]uint64(nil), layer...)
		}
		node.mu.RUnlock()

		if err := bw.WriteUint64(id); err != nil {
			return err
		}
		if err := bw.WriteUint32(uint32(len(vector))); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(vector); err != nil {
			return err
		}

		total := 0
		perLayer := make([]uint32, len(connections))
		for i, layer := range connections {
			perLayer[i] = uint32(len(layer))
			total += len(layer)
		}

		if err := bw.WriteUint32(uint32(total)); err != nil {
			return err
		}
		if err := bw.WriteUint32(uint32(len(perLayer))); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(perLayer); err != nil {
			return err
		}
		for _, layer := range connections {
			if err := bw.WriteUint64Slice(layer); err != nil {
				return err
			}
		}

		if err := bw.WriteBytes(metadata); err != nil {
			return err
		}
	}

	return nil
}

// Deserialize reads a graph previously written by Serialize into a fresh
// index built from cfg, validating the structural invariants of §3
// (neighbor ids resolve, vector length matches dimension) as it goes.
func Deserialize(r io.Reader, cfg Config) (*HNSW, error) {
	h, err := New(cfg)
	if err != nil {
		return nil, err
	}

	br := persistence.NewBinaryIndexReader(r)

	nodeCount, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if nodeCount > persistence.MaxNodeCount {
		return nil, fmt.Errorf("%w: node_count %d exceeds limit", persistence.ErrCorrupted, nodeCount)
	}

	maxLevel, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if maxLevel > persistence.MaxLevel {
		return nil, fmt.Errorf("%w: max_level %d exceeds limit", persistence.ErrCorrupted, maxLevel)
	}

	hasEntry, err := br.ReadUint8()
	if err != nil {
		return nil, err
	}
	var entryPoint uint64
	if hasEntry == 1 {
		entryPoint, err = br.ReadUint64()
		if err != nil {
			return nil, err
		}
	} else if hasEntry != 0 {
		return nil, fmt.Errorf("%w: has_entry_point byte %d is not 0 or 1", persistence.ErrCorrupted, hasEntry)
	}

	var maxID uint64
	anyNode := false

	for i := uint32(0); i < nodeCount; i++ {
		id, err := br.ReadUint64()
		if err != nil {
			return nil, err
		}

		vectorLen, err := br.ReadUint32()
		if err != nil {
			return nil, err
		}
		if vectorLen > persistence.MaxVectorLen || int(vectorLen) != cfg.Dimension {
			return nil, fmt.Errorf("%w: vector_len %d does not match dimension %d", persistence.ErrCorrupted, vectorLen, cfg.Dimension)
		}
		vector, err := br.ReadFloat32Slice(int(vectorLen))
		if err != nil {
			return nil, err
		}

		connectionCount, err := br.ReadUint32()
		if err != nil {
			return nil, err
		}
		if connectionCount > persistence.MaxConnectionCount {
			return nil, fmt.Errorf("%w: connection_count %d exceeds limit", persistence.ErrCorrupted, connectionCount)
		}

		layerCount, err := br.ReadUint32()
		if err != nil {
			return nil, err
		}
		if layerCount == 0 || layerCount > persistence.MaxLevel+1 {
			return nil, fmt.Errorf("%w: layer_count %d out of range", persistence.ErrCorrupted, layerCount)
		}

		perLayer, err := br.ReadUint32Slice(int(layerCount))
		if err != nil {
			return nil, err
		}
		var total uint32
		for _, c := range perLayer {
			if c > persistence.MaxConnectionCount {
				return nil, fmt.Errorf("%w: per-layer connection count %d exceeds limit", persistence.ErrCorrupted, c)
			}
			total += c
		}
		if total != connectionCount {
			return nil, fmt.Errorf("%w: per_layer_count_vector sums to %d, expected connection_count %d", persistence.ErrCorrupted, total, connectionCount)
		}

		neighborIDs, err := br.ReadUint64Slice(int(connectionCount))
		if err != nil {
			return nil, err
		}

		metadata, err := br.ReadBytes(persistence.MaxMetadataLen)
		if err != nil {
			return nil, err
		}

		connections := make([][]uint64, layerCount)
		offset := 0
		for l, c := range perLayer {
			connections[l] = append([]uint64(nil), neighborIDs[offset:offset+int(c)]...)
			offset += int(c)
		}

		h.nodes[id] = &Node{
			id:          id,
			vector:      vector,
			metadata:    metadata,
			level:       int(layerCount) - 1,
			connections: connections,
		}

		if !anyNode || id > maxID {
			maxID = id
			anyNode = true
		}
	}

	// Validate that every neighbor id resolves to a node actually present.
	for _, node := range h.nodes {
		for _, layer := range node.connections {
			for _, nid := range layer {
				if _, ok := h.nodes[nid]; !ok {
					return nil, fmt.Errorf("%w: neighbor id %d does not resolve to a stored node", persistence.ErrCorrupted, nid)
				}
			}
		}
	}

	if hasEntry == 1 {
		if _, ok := h.nodes[entryPoint]; !ok {
			return nil, fmt.Errorf("%w: entry_point %d does not resolve to a stored node", persistence.ErrCorrupted, entryPoint)
		}
		h.hasEntry.Store(true)
		h.entryPoint.Store(entryPoint)
	} else if len(h.nodes) > 0 {
		return nil, fmt.Errorf("%w: has_entry_point is false but node_count is %d", persistence.ErrCorrupted, len(h.nodes))
	}

	// Validate max_level against the levels actually present in the
	// deserialized nodes (§3 invariant 3, §8 property 3: the entry point
	// always sits at the graph's highest level).
	trueMaxLevel := -1
	for _, node := range h.nodes {
		if node.level > trueMaxLevel {
			trueMaxLevel = node.level
		}
	}
	if trueMaxLevel < 0 {
		trueMaxLevel = 0
	}
	if trueMaxLevel != int(maxLevel) {
		return nil, fmt.Errorf("%w: max_level %d does not match the highest node level %d", persistence.ErrCorrupted, maxLevel, trueMaxLevel)
	}
	if hasEntry == 1 && h.nodes[entryPoint].level != int(maxLevel) {
		return nil, fmt.Errorf("%w: entry_point %d has level %d, expected max_level %d", persistence.ErrCorrupted, entryPoint, h.nodes[entryPoint].level, maxLevel)
	}

	h.maxLevel.Store(int64(maxLevel))

	if anyNode {
		h.nextID.Store(maxID + 1)
	}

	return h, nil
}
