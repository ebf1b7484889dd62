package master

import (
	"time"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
)

type Master interface {
	// ChunkCount ...
	ChunkCount(args *ChunkCountArgs, reply *ChunkCountReply) error
	// Exists ...
	Exists(args *ExistsArgs, reply *ExistsReply) error
	// Allocate ...
	Allocate(args *AllocateArgs, reply *AllocateReply) error
	// AllocateAppend ...
	AllocateAppend(args *AllocateArgs, reply *AllocateReply) error
	// ResolveChunks ...
	ResolveChunks(args *ResolveChunksArgs, reply *ResolveChunksReply) error
	// ResolveReplicas ...
	ResolveReplicas(args *ResolveReplicasArgs, reply *ResolveReplicasReply) error
	// DeleteChunk ...
	DeleteChunk(args *DeleteChunkArgs, reply *DeleteChunkReply) error
	// DeleteFile ...
	DeleteFile(args *DeleteFileArgs, reply *DeleteFileReply) error
	// ListFiles ...
	ListFiles(args *ListFilesArgs, reply *ListFilesReply) error
	// NodeRegistry ...
	NodeRegistry(args *NodeRegistryArgs, reply *NodeRegistryReply) error
	// ChunkSize ...
	ChunkSize(args *ChunkSizeArgs, reply *ChunkSizeReply) error
	// NodeStatus ...
	NodeStatus(args *NodeStatusArgs, reply *NodeStatusReply) error
}

type ChunkCountArgs struct {
	Size int
}

type ChunkCountReply struct {
	Count int
}

type ExistsArgs struct {
	Path string
}

type ExistsReply struct {
	Exists bool
}

type AllocateArgs struct {
	Path      string
	NumChunks int
}

type AllocateReply struct {
	Chunks []uuid.UUID
}

type ResolveChunksArgs struct {
	Path string
}

type ResolveChunksReply struct {
	Chunks []uuid.UUID
}

type ResolveReplicasArgs struct {
	ChunkID uuid.UUID
}

type ResolveReplicasReply struct {
	ChunkServers []model.NodeID
}

type DeleteChunkArgs struct {
	ChunkID uuid.UUID
}

type DeleteChunkReply struct {
	Deleted bool
}

type DeleteFileArgs struct {
	Path string
}

type DeleteFileReply struct {
	NumChunks int
}

type ListFilesArgs struct {
	Prefix string
}

type ListFilesReply struct {
	Files []string
}

// gob refuses structs without exported fields, hence Caller on the
// otherwise empty requests.
type NodeRegistryArgs struct {
	Caller string
}

type NodeRegistryReply struct {
	Nodes []model.Node
}

type ChunkSizeArgs struct {
	Caller string
}

type ChunkSizeReply struct {
	ChunkSize int
}

type NodeStatusArgs struct {
	Caller string
}

type NodeHealth struct {
	ID                 model.NodeID
	Address            string
	State              string
	FailedHealthChecks int
	LastProbe          time.Time
	LastSeen           time.Time
	NumChunks          int
	DiskUsedPercent    float64
}

type NodeStatusReply struct {
	Nodes []NodeHealth
}
