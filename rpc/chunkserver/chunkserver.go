package chunkserver

import (
	"github.com/google/uuid"
)

// ServiceName is the name the chunkserver API is registered under with net/rpc.
const ServiceName = "ChunkServerAPI"

type WriteChunkArgs struct {
	ChunkID  uuid.UUID
	CheckSum int
	Data     []byte
}

type WriteChunkReply struct {
	BytesWritten int
}

type ReadChunkArgs struct {
	ChunkID uuid.UUID
}

type ReadChunkReply struct {
	Data     []byte
	CheckSum int
}

type DeleteChunkArgs struct {
	ChunkID uuid.UUID
}

type DeleteChunkReply struct {
	Deleted bool
}

type HealthCheckArgs struct {
	Caller string
}

type HealthCheckReply struct {
	Status          int
	NumChunks       int
	DiskUsedPercent float64
}

type IChunkServer interface {
	WriteChunk(args *WriteChunkArgs, reply *WriteChunkReply) error
	ReadChunk(args *ReadChunkArgs, reply *ReadChunkReply) error
	DeleteChunk(args *DeleteChunkArgs, reply *DeleteChunkReply) error
	HealthCheck(args *HealthCheckArgs, reply *HealthCheckReply) error
}
