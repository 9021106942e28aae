package hnsw

import "sort"

// levelMultiplier gives the base layer more connections than upper
// layers: level 0 carries most of the graph's navigability, so it keeps
// twice the usual M neighbors before pruning kicks in.
const levelMultiplier = 2.0

func (g *Graph) maxConnections(level int) int {
	if level == 0 {
		return int(float64(g.config.M) * levelMultiplier)
	}
	return g.config.M
}

// selectNeighbors takes the closest maxM candidates by distance — the
// simpler of the two heuristics the construction algorithm permits,
// skipping the diversity-aware heuristic's extra distance checks. The
// list passed in is sorted nearest-first already by searchLayer.
func (g *Graph) selectNeighbors(candidates []*candidate, level int) []*candidate {
	maxM := g.maxConnections(level)
	if len(candidates) <= maxM {
		return candidates
	}
	return candidates[:maxM]
}

// pruneConnections trims id's neighbor list at level back down to maxM,
// keeping its closest neighbors, after an insert may have pushed it over.
func (g *Graph) pruneConnections(id uint64, level int) {
	n := g.nodes[id]
	if n == nil || level >= len(n.links) {
		return
	}
	maxM := g.maxConnections(level)
	neighbors := n.neighbors(level)
	if len(neighbors) <= maxM {
		return
	}
	vec, err := g.store.Vector(id)
	if err != nil {
		return
	}

	scored := make([]*candidate, 0, len(neighbors))
	for _, nb := range neighbors {
		nbVec, err := g.store.Vector(nb)
		if err != nil {
			continue
		}
		d, err := g.distance(vec, nbVec)
		if err != nil {
			continue
		}
		scored = append(scored, &candidate{ID: nb, Distance: d})
	}
	sort.Slice(scored, func(i, j int) bool { return less(scored[i], scored[j]) })

	kept := scored
	if len(kept) > maxM {
		kept = kept[:maxM]
	}
	newLinks := make([]uint64, len(kept))
	for i, c := range kept {
		newLinks[i] = c.ID
	}
	n.setNeighbors(level, newLinks)
}
