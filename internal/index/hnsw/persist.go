package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/zvdb-io/zvdb/internal/store"
)

const (
	maxNodeCount       = 1_000_000
	maxLevelLimit      = 100
	maxVectorLen       = 1_000_000
	maxConnectionCount = 1_000_000
)

// Serialize writes the HNSW index_blob section of the .zvdb format: node
// count, max level plus one (so an empty graph's maxLevel of -1 is written
// as 0), entry point, then per live node its id, vector,
// connections grouped by layer, and metadata. Nodes are written in
// ascending id order for a reproducible byte stream.
func (g *Graph) Serialize(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]uint64, 0, len(g.nodes))
	for id, n := range g.nodes {
		if !n.deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(ids))); err != nil {
		return fmt.Errorf("hnsw: write node_count: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(g.maxLevel+1)); err != nil {
		return fmt.Errorf("hnsw: write max_level: %w", err)
	}
	hasEntry := byte(0)
	if g.hasEntry {
		hasEntry = 1
	}
	if err := bw.WriteByte(hasEntry); err != nil {
		return fmt.Errorf("hnsw: write has_entry_point: %w", err)
	}
	if g.hasEntry {
		if err := binary.Write(bw, binary.LittleEndian, g.entryPoint); err != nil {
			return fmt.Errorf("hnsw: write entry_point: %w", err)
		}
	}

	for _, id := range ids {
		n := g.nodes[id]
		vec, metadata, err := g.store.Get(id)
		if err != nil {
			return fmt.Errorf("hnsw: node %d: %w", id, err)
		}
		if err := writeNodeEntry(bw, n, vec, metadata); err != nil {
			return fmt.Errorf("hnsw: node %d: %w", id, err)
		}
	}
	return bw.Flush()
}

func writeNodeEntry(bw *bufio.Writer, n *node, vec []float32, metadata []byte) error {
	if err := binary.Write(bw, binary.LittleEndian, n.id); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(vec))); err != nil {
		return err
	}
	for _, f := range vec {
		if err := binary.Write(bw, binary.LittleEndian, math.Float32bits(f)); err != nil {
			return err
		}
	}

	perLayer := make([]uint32, len(n.links))
	var allNeighbors []uint64
	for level, links := range n.links {
		perLayer[level] = uint32(len(links))
		allNeighbors = append(allNeighbors, links...)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(allNeighbors))); err != nil {
		return err
	}
	// per_layer_count_vector's own length (level+1) has to be on the wire
	// somewhere for a reader to know where it ends: connection_count alone
	// is ambiguous between, e.g., a single-layer node with 3 neighbors and
	// a 3-layer node with one neighbor each. We write it explicitly as
	// level, ahead of the vector itself — see DESIGN.md.
	if err := binary.Write(bw, binary.LittleEndian, uint32(n.level)); err != nil {
		return err
	}
	for _, c := range perLayer {
		if err := binary.Write(bw, binary.LittleEndian, c); err != nil {
			return err
		}
	}
	for _, nb := range allNeighbors {
		if err := binary.Write(bw, binary.LittleEndian, nb); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(metadata))); err != nil {
		return err
	}
	_, err := bw.Write(metadata)
	return err
}

// Deserialize rebuilds the graph's node set and link structure from an
// index_blob produced by Serialize. The vectors and metadata embedded in
// the blob are written into vs (which Deserialize does not assume is
// already populated) so the graph is self-contained on disk even though
// at runtime it shares the same store the rest of the index uses.
func (g *Graph) Deserialize(r io.Reader) error {
	br := bufio.NewReader(r)

	var nodeCount, maxLevelPlusOne uint32
	if err := binary.Read(br, binary.LittleEndian, &nodeCount); err != nil {
		return fmt.Errorf("hnsw: read node_count: %w", err)
	}
	if nodeCount > maxNodeCount {
		return fmt.Errorf("hnsw: node_count %d exceeds limit", nodeCount)
	}
	if err := binary.Read(br, binary.LittleEndian, &maxLevelPlusOne); err != nil {
		return fmt.Errorf("hnsw: read max_level: %w", err)
	}
	if maxLevelPlusOne > maxLevelLimit+1 {
		return fmt.Errorf("hnsw: max_level %d exceeds limit", maxLevelPlusOne)
	}
	hasEntryByte, err := br.ReadByte()
	if err != nil {
		return fmt.Errorf("hnsw: read has_entry_point: %w", err)
	}
	var entryPoint uint64
	hasEntry := hasEntryByte == 1
	if hasEntry {
		if err := binary.Read(br, binary.LittleEndian, &entryPoint); err != nil {
			return fmt.Errorf("hnsw: read entry_point: %w", err)
		}
	}

	nodes := make(map[uint64]*node, nodeCount)
	var maxID uint64
	var sawNode bool
	for i := uint32(0); i < nodeCount; i++ {
		n, vec, metadata, err := readNodeEntry(br)
		if err != nil {
			return fmt.Errorf("hnsw: node entry %d: %w", i, err)
		}
		// The vector store section of the .zvdb file is normally loaded
		// before the index blob, so these ids usually already exist; the
		// blob still carries its own copy so the graph is self-contained,
		// but we only need to populate the store from it when loading the
		// blob in isolation (e.g. a graph-only snapshot).
		if err := g.store.Add(n.id, vec, metadata); err != nil {
			if _, dup := err.(*store.ErrDuplicateID); !dup {
				return fmt.Errorf("hnsw: node entry %d: restoring store: %w", i, err)
			}
		}
		nodes[n.id] = n
		if !sawNode || n.id > maxID {
			maxID = n.id
			sawNode = true
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nodes
	g.hasEntry = hasEntry
	g.entryPoint = entryPoint
	g.maxLevel = int(maxLevelPlusOne) - 1
	g.liveCount = len(nodes)
	if sawNode {
		g.nextID = maxID + 1
	}
	return nil
}

func readNodeEntry(br *bufio.Reader) (*node, []float32, []byte, error) {
	var id uint64
	if err := binary.Read(br, binary.LittleEndian, &id); err != nil {
		return nil, nil, nil, fmt.Errorf("read id: %w", err)
	}
	var vectorLen uint32
	if err := binary.Read(br, binary.LittleEndian, &vectorLen); err != nil {
		return nil, nil, nil, fmt.Errorf("read vector_len: %w", err)
	}
	if vectorLen > maxVectorLen {
		return nil, nil, nil, fmt.Errorf("vector_len %d exceeds limit", vectorLen)
	}
	vec := make([]float32, vectorLen)
	for i := range vec {
		var bits uint32
		if err := binary.Read(br, binary.LittleEndian, &bits); err != nil {
			return nil, nil, nil, fmt.Errorf("read vector component %d: %w", i, err)
		}
		vec[i] = math.Float32frombits(bits)
	}

	var connectionCount uint32
	if err := binary.Read(br, binary.LittleEndian, &connectionCount); err != nil {
		return nil, nil, nil, fmt.Errorf("read connection_count: %w", err)
	}
	if connectionCount > maxConnectionCount {
		return nil, nil, nil, fmt.Errorf("connection_count %d exceeds limit", connectionCount)
	}

	var level uint32
	if err := binary.Read(br, binary.LittleEndian, &level); err != nil {
		return nil, nil, nil, fmt.Errorf("read level: %w", err)
	}
	if level > maxLevelLimit {
		return nil, nil, nil, fmt.Errorf("level %d exceeds limit", level)
	}
	perLayer := make([]uint32, level+1)
	for i := range perLayer {
		if err := binary.Read(br, binary.LittleEndian, &perLayer[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("read per_layer_count_vector[%d]: %w", i, err)
		}
	}

	n := newNode(id, len(perLayer)-1)
	neighborOffset := uint32(0)
	for level, count := range perLayer {
		links := make([]uint64, count)
		for i := range links {
			if err := binary.Read(br, binary.LittleEndian, &links[i]); err != nil {
				return nil, nil, nil, fmt.Errorf("read neighbor %d at level %d: %w", i, level, err)
			}
		}
		n.links[level] = links
		neighborOffset += count
	}
	if neighborOffset != connectionCount {
		return nil, nil, nil, fmt.Errorf("connection_count %d does not match sum of per-layer counts %d", connectionCount, neighborOffset)
	}

	var metadataLen uint32
	if err := binary.Read(br, binary.LittleEndian, &metadataLen); err != nil {
		return nil, nil, nil, fmt.Errorf("read metadata_len: %w", err)
	}
	if metadataLen > maxVectorLen {
		return nil, nil, nil, fmt.Errorf("metadata_len %d exceeds limit", metadataLen)
	}
	var metadata []byte
	if metadataLen > 0 {
		metadata = make([]byte, metadataLen)
		if _, err := io.ReadFull(br, metadata); err != nil {
			return nil, nil, nil, fmt.Errorf("read metadata: %w", err)
		}
	}
	return n, vec, metadata, nil
}
