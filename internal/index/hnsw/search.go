package hnsw

import "fmt"

// searchLayer explores level starting from entry, returning up to ef
// candidates ordered nearest-first. w is the frontier of nodes still to be
// expanded, ordered so the nearest unexplored candidate pops first (a
// minHeap); best is the running top-ef result set, ordered so the
// farthest member pops first (a maxHeap) so it can be evicted in
// O(log ef) the moment a closer candidate is found. Search stops once the
// frontier's nearest candidate is farther than best's farthest member —
// nothing left in the frontier can improve the result set from there.
func (g *Graph) searchLayer(query []float32, entry uint64, ef, level int) ([]*candidate, error) {
	visited := map[uint64]bool{entry: true}

	entryVec, err := g.store.Vector(entry)
	if err != nil {
		return nil, fmt.Errorf("hnsw: entry point %d missing from store: %w", entry, err)
	}
	d, err := g.distance(query, entryVec)
	if err != nil {
		return nil, err
	}

	start := &candidate{ID: entry, Distance: d}
	w := newMinHeap()
	w.push(start)
	best := newMaxHeap()
	best.push(start)

	for w.Len() > 0 {
		current := w.pop()
		if best.Len() >= ef && current.Distance > best.top().Distance {
			break
		}

		currentNode := g.nodes[current.ID]
		if currentNode == nil {
			continue
		}
		for _, nid := range currentNode.neighbors(level) {
			if visited[nid] {
				continue
			}
			visited[nid] = true

			n := g.nodes[nid]
			if n == nil || n.deleted {
				continue
			}
			vec, err := g.store.Vector(nid)
			if err != nil {
				continue
			}
			dist, err := g.distance(query, vec)
			if err != nil {
				continue
			}
			if best.Len() < ef || dist < best.top().Distance {
				c := &candidate{ID: nid, Distance: dist}
				w.push(c)
				best.push(c)
				if best.Len() > ef {
					best.pop()
				}
			}
		}
	}

	return best.sortedAscending(), nil
}

// Result is a single entry of a SearchKNN response.
type Result struct {
	ID       uint64
	Distance float32
}

// SearchKNN returns the k nearest live neighbors of query. It first
// descends greedily from the top level to level 1 (ef=1), then runs a
// full ef-wide search at level 0 and truncates to k.
func (g *Graph) SearchKNN(query []float32, k int) ([]Result, error) {
	if len(query) != g.config.Dimension {
		return nil, &vecDimensionError{Want: g.config.Dimension, Got: len(query)}
	}
	g.mu.RLock()
	if !g.hasEntry {
		g.mu.RUnlock()
		return nil, nil
	}
	entry := g.entryPoint
	maxLevel := g.maxLevel
	g.mu.RUnlock()

	for level := maxLevel; level > 0; level-- {
		candidates, err := g.searchLayer(query, entry, 1, level)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			entry = candidates[0].ID
		}
	}

	ef := g.config.EfSearch
	if k > ef {
		ef = k
	}
	candidates, err := g.searchLayer(query, entry, ef, 0)
	if err != nil {
		return nil, err
	}

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{ID: candidates[i].ID, Distance: candidates[i].Distance}
	}
	return results, nil
}

type vecDimensionError struct {
	Want, Got int
}

func (e *vecDimensionError) Error() string {
	return fmt.Sprintf("hnsw: query dimension %d does not match index dimension %d", e.Got, e.Want)
}
