package hnsw

import "fmt"

// Stats prints a human-readable summary of the graph's shape, useful when
// tuning M/ef_construction/ef_search against a workload.
func (h *HNSW) Stats() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	maxLevel := int(h.maxLevel.Load())

	fmt.Println("Config:")
	fmt.Printf("\tM = %d\n", h.m)
	fmt.Printf("\tef_construction = %d\n", h.efConstruction)
	fmt.Printf("\tef_search = %d\n\n", h.efSearch)

	fmt.Println("Parameters:")
	fmt.Printf("\tmMax0 = %d\n", h.mMax0)
	entryPoint, hasEntry := h.entryPoint.Load(), h.hasEntry.Load()
	fmt.Printf("\tentry_point = %d (set=%v)\n", entryPoint, hasEntry)
	fmt.Printf("\tmax_level = %d\n", maxLevel)
	fmt.Printf("\tml = %f\n\n", h.ml)

	fmt.Printf("Number of nodes = %d\n\n", len(h.nodes))

	levelStats := make([]int, maxLevel+1)
	connectionStats := make([]int, maxLevel+1)
	connectionNodeStats := make([]int, maxLevel+1)

	for _, n := range h.nodes {
		n.mu.RLock()
		level := n.level
		if level <= maxLevel {
			levelStats[level]++
		}
		for l, conns := range n.connections {
			if l > maxLevel {
				break
			}
			if len(conns) > 0 {
				connectionStats[l] += len(conns)
				connectionNodeStats[l]++
			}
		}
		n.mu.RUnlock()
	}

	fmt.Println("Node Levels:")
	for k, v := range levelStats {
		avg := 0
		if connectionNodeStats[k] > 0 {
			avg = connectionStats[k] / connectionNodeStats[k]
		}
		fmt.Printf("\tLevel %d:\n", k)
		fmt.Printf("\t\tNumber of nodes: %d\n", v)
		fmt.Printf("\t\tNumber of connections: %d\n", connectionStats[k])
		fmt.Printf("\t\tAverage connections per node: %d\n", avg)
	}

	fmt.Printf("\nTotal number of node levels = %d\n", len(levelStats))
}
