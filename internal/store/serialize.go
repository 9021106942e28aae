package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// SerializeVectors writes count, then for each id in ascending order:
// id (u64), vector (dimension x float32, little-endian bits). This is
// the vector-store section of the .zvdb format; it deviates from a
// bare, positional vector_data section by tagging every entry with its
// id, so the section can be decoded on its own without first walking
// the index blob to recover a shared node order (see SPEC_FULL.md §6.1).
func (s *Store) SerializeVectors(w io.Writer) error {
	ids := s.SortedIDs()
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(ids))); err != nil {
		return fmt.Errorf("store: write vector count: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := make([]byte, 8)
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf, id)
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("store: write id %d: %w", id, err)
		}
		vec := s.vectors[id]
		for _, f := range vec {
			if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
				return fmt.Errorf("store: write vector for id %d: %w", id, err)
			}
		}
	}
	return bw.Flush()
}

// DeserializeVectors reads the section written by SerializeVectors and
// populates a fresh store's vector map. Dimension must already be set.
func (s *Store) DeserializeVectors(r io.Reader) error {
	br := bufio.NewReader(r)
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("store: read vector count: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[uint64][]float32, count)
	idBuf := make([]byte, 8)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, idBuf); err != nil {
			return fmt.Errorf("store: read id at entry %d: %w", i, err)
		}
		id := binary.LittleEndian.Uint64(idBuf)
		vec := make([]float32, s.dimension)
		for j := range vec {
			if err := binary.Read(br, binary.LittleEndian, &vec[j]); err != nil {
				return fmt.Errorf("store: read vector component for id %d: %w", id, err)
			}
		}
		s.vectors[id] = vec
	}
	return nil
}

// SerializeMetadata writes count, then for each id that has a metadata
// entry, zero-length ones included (ascending order): id (u64), length (u32), raw bytes. Ids with no
// metadata are omitted rather than writing a zero-length entry for every
// vector, since metadata is optional per id.
func (s *Store) SerializeMetadata(w io.Writer) error {
	ids := s.SortedIDs()
	bw := bufio.NewWriter(w)

	s.mu.RLock()
	present := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.metadata[id]; ok {
			present = append(present, id)
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(present))); err != nil {
		s.mu.RUnlock()
		return fmt.Errorf("store: write metadata count: %w", err)
	}
	for _, id := range present {
		md := s.metadata[id]
		if err := binary.Write(bw, binary.LittleEndian, id); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("store: write metadata id %d: %w", id, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(md))); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("store: write metadata length for id %d: %w", id, err)
		}
		if _, err := bw.Write(md); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("store: write metadata bytes for id %d: %w", id, err)
		}
	}
	s.mu.RUnlock()
	return bw.Flush()
}

// DeserializeMetadata reads the section written by SerializeMetadata.
// DeserializeVectors must run first so ids can be cross-checked.
func (s *Store) DeserializeMetadata(r io.Reader) error {
	br := bufio.NewReader(r)
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("store: read metadata count: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = make(map[uint64][]byte, count)
	for i := uint64(0); i < count; i++ {
		var id uint64
		if err := binary.Read(br, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("store: read metadata id at entry %d: %w", i, err)
		}
		if _, ok := s.vectors[id]; !ok {
			return fmt.Errorf("store: metadata references unknown id %d", id)
		}
		var length uint32
		if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
			return fmt.Errorf("store: read metadata length for id %d: %w", id, err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(br, buf); err != nil {
			return fmt.Errorf("store: read metadata bytes for id %d: %w", id, err)
		}
		s.metadata[id] = buf
	}
	return nil
}
