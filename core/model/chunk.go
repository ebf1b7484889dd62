package model

import "github.com/google/uuid"

// Chunk is a chunk as held by a chunkserver: bytes on disk keyed by ID only.
type Chunk struct {
	ID       uuid.UUID
	Path     string // chunk path on disk
	Size     int
	Checksum int
}

// ChunkMetadata is the master's replica-location entry for a chunk.
type ChunkMetadata struct {
	ID           uuid.UUID
	ChunkServers []NodeID
}

// ChunkCount returns how many chunks of chunkSize bytes are needed to hold size bytes.
func ChunkCount(size, chunkSize int) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}

	return (size + (chunkSize - 1)) / chunkSize
}

// SplitChunks cuts data into contiguous slices of at most chunkSize bytes, in order.
func SplitChunks(data []byte, chunkSize int) [][]byte {
	n := ChunkCount(len(data), chunkSize)
	chunks := make([][]byte, 0, n)

	for i := 0; i < n; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}

	return chunks
}
