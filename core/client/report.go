package client

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
)

// ReplicaFailure is a per-node failure the orchestrator recovered from.
type ReplicaFailure struct {
	ChunkID uuid.UUID
	NodeID  model.NodeID
	Err     error
}

// WriteReport describes how a write or delete went per chunk replica.
type WriteReport struct {
	File     string
	Chunks   []uuid.UUID
	Replicas map[uuid.UUID]int // replicas per chunk that succeeded
	Targets  map[uuid.UUID]int // replicas per chunk that were attempted
	Failures []ReplicaFailure
}

func newWriteReport(file string) *WriteReport {
	return &WriteReport{
		File:     file,
		Chunks:   []uuid.UUID{},
		Replicas: map[uuid.UUID]int{},
		Targets:  map[uuid.UUID]int{},
	}
}

func (r *WriteReport) record(chunkID uuid.UUID, nodeID model.NodeID, err error) {
	r.Targets[chunkID]++
	if err != nil {
		r.Failures = append(r.Failures, ReplicaFailure{ChunkID: chunkID, NodeID: nodeID, Err: err})
		return
	}

	r.Replicas[chunkID]++
}

// Complete reports whether every replica operation succeeded.
func (r *WriteReport) Complete() bool {
	return len(r.Failures) == 0
}

// UnderReplicated returns chunks that reached some but not all replicas.
func (r *WriteReport) UnderReplicated() []uuid.UUID {
	chunks := make([]uuid.UUID, 0)
	for _, id := range r.Chunks {
		if n := r.Replicas[id]; n > 0 && n < r.Targets[id] {
			chunks = append(chunks, id)
		}
	}

	return chunks
}

// Lost returns chunks that reached no replica at all.
func (r *WriteReport) Lost() []uuid.UUID {
	chunks := make([]uuid.UUID, 0)
	for _, id := range r.Chunks {
		if r.Targets[id] > 0 && r.Replicas[id] == 0 {
			chunks = append(chunks, id)
		}
	}

	return chunks
}

// PartialReadError is returned by Read, alongside the bytes it could
// retrieve, when some chunks had no replica able to serve them.
type PartialReadError struct {
	File    string
	Missing []uuid.UUID
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("partial read of %s: %d chunks unavailable", e.File, len(e.Missing))
}
