package hnsw

// Update replaces the vector stored at id, preserving id and giving the
// node a freshly drawn level rather than reusing its old position —
// implemented as a delete followed by a reinsertion at the same id, the
// simplification the construction algorithm explicitly permits over an
// in-place edge repair.
func (g *Graph) Update(id uint64, vector []float32) error {
	if len(vector) != g.config.Dimension {
		return &vecDimensionError{Want: g.config.Dimension, Got: len(vector)}
	}

	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok || n.deleted {
		g.mu.Unlock()
		return &ErrNotFound{ID: id}
	}
	g.mu.Unlock()

	if err := g.Delete(id); err != nil {
		return err
	}

	level := g.generateLevel()
	g.mu.Lock()
	newNode := newNode(id, level)
	for i := range newNode.links {
		newNode.links[i] = make([]uint64, 0, g.config.M)
	}
	g.nodes[id] = newNode

	if !g.hasEntry {
		g.entryPoint = id
		g.hasEntry = true
		g.maxLevel = level
		g.liveCount++
		g.mu.Unlock()
		return nil
	}
	entry := g.entryPoint
	maxLevel := g.maxLevel
	g.liveCount++
	if level > maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}
	g.mu.Unlock()

	return g.wireNode(newNode, vector, entry, maxLevel)
}
