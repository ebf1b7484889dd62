package master

import (
	"github.com/pyropy/chunkfs/core/metrics"
	rpc "github.com/pyropy/chunkfs/rpc/master"
)

// ServiceName is the name MasterAPI is registered under with net/rpc.
const ServiceName = "MasterAPI"

type MasterAPI struct {
	server *Master
}

var _ rpc.Master = (*MasterAPI)(nil)

func NewMasterAPI(master *Master) *MasterAPI {
	return &MasterAPI{
		server: master,
	}
}

func observe(operation string, err error) error {
	metrics.MasterOpsTotal.WithLabelValues(operation, metrics.Status(err)).Inc()
	if err != nil {
		log.Infow("rpc", "event", operation, "error", err)
	}

	return err
}

func (a *MasterAPI) ChunkCount(args *rpc.ChunkCountArgs, reply *rpc.ChunkCountReply) error {
	log.Debugw("rpc", "event", "MasterAPI.ChunkCount", "size", args.Size)
	count, err := a.server.ChunkCount(args.Size)
	reply.Count = count

	return observe("ChunkCount", err)
}

func (a *MasterAPI) Exists(args *rpc.ExistsArgs, reply *rpc.ExistsReply) error {
	log.Debugw("rpc", "event", "MasterAPI.Exists", "path", args.Path)
	reply.Exists = a.server.Exists(args.Path)

	return observe("Exists", nil)
}

func (a *MasterAPI) Allocate(args *rpc.AllocateArgs, reply *rpc.AllocateReply) error {
	log.Infow("rpc", "event", "MasterAPI.Allocate", "args", args)
	chunks, err := a.server.Allocate(args.Path, args.NumChunks)
	reply.Chunks = chunks

	return observe("Allocate", err)
}

func (a *MasterAPI) AllocateAppend(args *rpc.AllocateArgs, reply *rpc.AllocateReply) error {
	log.Infow("rpc", "event", "MasterAPI.AllocateAppend", "args", args)
	chunks, err := a.server.AllocateAppend(args.Path, args.NumChunks)
	reply.Chunks = chunks

	return observe("AllocateAppend", err)
}

func (a *MasterAPI) ResolveChunks(args *rpc.ResolveChunksArgs, reply *rpc.ResolveChunksReply) error {
	log.Debugw("rpc", "event", "MasterAPI.ResolveChunks", "path", args.Path)
	chunks, err := a.server.ResolveChunks(args.Path)
	reply.Chunks = chunks

	return observe("ResolveChunks", err)
}

func (a *MasterAPI) ResolveReplicas(args *rpc.ResolveReplicasArgs, reply *rpc.ResolveReplicasReply) error {
	log.Debugw("rpc", "event", "MasterAPI.ResolveReplicas", "chunkID", args.ChunkID)
	holders, err := a.server.ResolveReplicas(args.ChunkID)
	reply.ChunkServers = holders

	return observe("ResolveReplicas", err)
}

func (a *MasterAPI) DeleteChunk(args *rpc.DeleteChunkArgs, reply *rpc.DeleteChunkReply) error {
	log.Infow("rpc", "event", "MasterAPI.DeleteChunk", "chunkID", args.ChunkID)
	err := a.server.DeleteChunk(args.ChunkID)
	reply.Deleted = err == nil

	return observe("DeleteChunk", err)
}

func (a *MasterAPI) DeleteFile(args *rpc.DeleteFileArgs, reply *rpc.DeleteFileReply) error {
	log.Infow("rpc", "event", "MasterAPI.DeleteFile", "path", args.Path)
	n, err := a.server.DeleteFile(args.Path)
	reply.NumChunks = n

	return observe("DeleteFile", err)
}

func (a *MasterAPI) ListFiles(args *rpc.ListFilesArgs, reply *rpc.ListFilesReply) error {
	log.Debugw("rpc", "event", "MasterAPI.ListFiles", "prefix", args.Prefix)
	reply.Files = a.server.ListFiles(args.Prefix)

	return observe("ListFiles", nil)
}

func (a *MasterAPI) NodeRegistry(args *rpc.NodeRegistryArgs, reply *rpc.NodeRegistryReply) error {
	log.Debugw("rpc", "event", "MasterAPI.NodeRegistry", "caller", args.Caller)
	reply.Nodes = a.server.NodeRegistry().Nodes()

	return observe("NodeRegistry", nil)
}

func (a *MasterAPI) ChunkSize(args *rpc.ChunkSizeArgs, reply *rpc.ChunkSizeReply) error {
	log.Debugw("rpc", "event", "MasterAPI.ChunkSize", "caller", args.Caller)
	reply.ChunkSize = a.server.ChunkSize()

	return observe("ChunkSize", nil)
}

func (a *MasterAPI) NodeStatus(args *rpc.NodeStatusArgs, reply *rpc.NodeStatusReply) error {
	log.Debugw("rpc", "event", "MasterAPI.NodeStatus", "caller", args.Caller)
	for _, cs := range a.server.ChunkServers().GetAllChunkServers() {
		reply.Nodes = append(reply.Nodes, rpc.NodeHealth{
			ID:                 cs.ID,
			Address:            cs.Address,
			State:              string(cs.State),
			FailedHealthChecks: cs.FailedHealthChecks,
			LastProbe:          cs.LastProbe,
			LastSeen:           cs.LastHealthReport,
			NumChunks:          cs.NumChunks,
			DiskUsedPercent:    cs.DiskUsedPercent,
		})
	}

	return observe("NodeStatus", nil)
}
