package hnsw

import "fmt"

// ErrNotFound is returned by Delete/Update for an id with no live node.
type ErrNotFound struct {
	ID uint64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("hnsw: node %d not found", e.ID)
}

// Delete removes id from the graph. The node's slot in g.nodes is kept
// forever as a tombstone (deleted=true, links cleared) rather than
// compacted out — ids are never reused, so a later Insert can't be
// handed a slot a deleted node once occupied. Neighbors of the deleted
// node attempt a lightweight pairwise reconnection at each level to
// soften the connectivity loss; the graph tolerates some degradation
// here rather than guaranteeing full repair.
func (g *Graph) Delete(id uint64) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok || n.deleted {
		g.mu.Unlock()
		return &ErrNotFound{ID: id}
	}

	for level := 0; level <= n.level; level++ {
		neighbors := n.neighbors(level)
		for _, nb := range neighbors {
			if peer := g.nodes[nb]; peer != nil {
				peer.removeNeighbor(level, id)
			}
		}
		g.reconnectNeighbors(neighbors, level)
	}

	n.mu.Lock()
	n.deleted = true
	n.links = nil
	n.mu.Unlock()

	g.liveCount--

	if g.hasEntry && g.entryPoint == id {
		g.replaceEntryPoint(id)
	}
	g.mu.Unlock()
	return nil
}

// reconnectNeighbors connects every pair of a deleted node's former
// neighbors at level directly to each other, bounded by maxM, so the
// graph doesn't fragment into disjoint islands around the deletion.
func (g *Graph) reconnectNeighbors(neighbors []uint64, level int) {
	if len(neighbors) < 2 {
		return
	}
	maxM := g.maxConnections(level)
	for i, a := range neighbors {
		nodeA := g.nodes[a]
		if nodeA == nil || nodeA.deleted || level >= len(nodeA.links) {
			continue
		}
		for _, b := range neighbors[i+1:] {
			nodeB := g.nodes[b]
			if nodeB == nil || nodeB.deleted || level >= len(nodeB.links) {
				continue
			}
			if len(nodeA.neighbors(level)) >= maxM {
				break
			}
			if hasNeighbor(nodeA, level, b) {
				continue
			}
			nodeA.addNeighbor(level, b)
			nodeB.addNeighbor(level, a)
		}
	}
}

func hasNeighbor(n *node, level int, id uint64) bool {
	for _, l := range n.neighbors(level) {
		if l == id {
			return true
		}
	}
	return false
}

// replaceEntryPoint picks a remaining live node with the highest level as
// the new entry point after the current one is deleted, or clears the
// entry point (maxLevel -1) when no live node remains. Caller holds g.mu.
func (g *Graph) replaceEntryPoint(deletedID uint64) {
	for candidateID, n := range g.nodes {
		if candidateID == deletedID || n.deleted {
			continue
		}
		g.entryPoint = candidateID
		g.maxLevel = n.level
		for otherID, other := range g.nodes {
			if otherID == deletedID || other.deleted {
				continue
			}
			if other.level > g.maxLevel {
				g.maxLevel = other.level
				g.entryPoint = otherID
			}
		}
		return
	}
	g.hasEntry = false
	g.maxLevel = -1
}
