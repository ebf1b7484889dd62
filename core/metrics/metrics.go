package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Master
var (
	MasterOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkfs_master_operations_total",
		Help: "Metadata operations handled by the master",
	}, []string{"operation", "status"})

	MasterFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chunkfs_master_files",
		Help: "Files currently registered with the master",
	})

	MasterChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chunkfs_master_chunks",
		Help: "Chunks currently holding a replica-location entry",
	})
)

// Node health, as seen by the liveness monitor
var (
	NodeAvailability = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chunkfs_node_availability",
		Help: "Node availability (0=down, 1=up)",
	}, []string{"node_id"})

	NodeProbeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkfs_node_probe_failures_total",
		Help: "Failed liveness probes per node",
	}, []string{"node_id"})
)

// Chunk store
var (
	ChunkStoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkfs_chunkstore_operations_total",
		Help: "Chunk store operations",
	}, []string{"operation", "status"})

	ChunkStoreBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkfs_chunkstore_bytes_total",
		Help: "Bytes written to or read from the chunk store",
	}, []string{"operation"})
)

// Client
var (
	ReplicaFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chunkfs_client_replica_failures_total",
		Help: "Replica operations the client could not complete",
	}, []string{"operation", "node_id"})

	MissingChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chunkfs_client_missing_chunks_total",
		Help: "Chunks skipped on read because no replica could serve them",
	})
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
