package hnsw

import "fmt"

// Insert assigns vector and metadata a freshly minted id, wires it into
// the graph, and returns that id. The id only exists once this call
// allocates it, so Insert writes vector into the backing store itself,
// before any wiring runs — wireNode's pruning scores neighbors via
// g.store.Vector, including the new node's own id, and would silently
// drop its back-edges if the store didn't have it yet.
func (g *Graph) Insert(vector []float32, metadata []byte) (uint64, error) {
	if len(vector) != g.config.Dimension {
		return 0, &vecDimensionError{Want: g.config.Dimension, Got: len(vector)}
	}

	level := g.generateLevel()

	g.mu.Lock()
	id := g.nextNodeID()
	n := newNode(id, level)
	for i := range n.links {
		n.links[i] = make([]uint64, 0, g.config.M)
	}
	g.nodes[id] = n

	if err := g.store.Add(id, vector, metadata); err != nil {
		delete(g.nodes, id)
		g.mu.Unlock()
		return 0, fmt.Errorf("hnsw: insert: %w", err)
	}

	if !g.hasEntry {
		g.entryPoint = id
		g.hasEntry = true
		g.maxLevel = level
		g.liveCount++
		g.mu.Unlock()
		return id, nil
	}
	entry := g.entryPoint
	maxLevel := g.maxLevel
	g.liveCount++
	if level > maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}
	g.mu.Unlock()

	if err := g.wireNode(n, vector, entry, maxLevel); err != nil {
		// Roll the node back: Delete strips any edges already linked to it
		// and hands the entry point on if it had taken it.
		g.Delete(id)
		g.store.Delete(id)
		return 0, fmt.Errorf("hnsw: insert: %w", err)
	}
	return id, nil
}

// wireNode runs the two-phase HNSW connection algorithm for a node that
// has already been registered in g.nodes: greedy descent from the current
// top level down to node.level+1 (ef=1), then an efConstruction-wide
// search and bidirectional connect at every level from node.level to 0.
func (g *Graph) wireNode(n *node, vector []float32, entry uint64, maxLevel int) error {
	ep := entry
	for level := maxLevel; level > n.level; level-- {
		candidates, err := g.searchLayer(vector, ep, 1, level)
		if err != nil {
			return err
		}
		if len(candidates) > 0 {
			ep = candidates[0].ID
		}
	}

	for level := min(n.level, maxLevel); level >= 0; level-- {
		candidates, err := g.searchLayer(vector, ep, g.config.EfConstruction, level)
		if err != nil {
			return err
		}
		selected := g.selectNeighbors(candidates, level)
		g.connectBidirectional(n.id, selected, level)
		for _, c := range selected {
			g.pruneConnections(c.ID, level)
		}
		if len(selected) > 0 {
			ep = selected[0].ID
		}
	}
	return nil
}

func (g *Graph) connectBidirectional(id uint64, neighbors []*candidate, level int) {
	n := g.nodes[id]
	for _, nb := range neighbors {
		n.addNeighbor(level, nb.ID)
		if peer := g.nodes[nb.ID]; peer != nil && level < len(peer.links) {
			peer.addNeighbor(level, id)
		}
	}
}
