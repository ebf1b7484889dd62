package master

import (
	"context"
	"sync"
	"time"

	"github.com/pyropy/chunkfs/core/metrics"
	"github.com/pyropy/chunkfs/core/model"
	csRPC "github.com/pyropy/chunkfs/rpc/chunkserver"
	"github.com/pyropy/chunkfs/rpc/transport"
)

// Prober checks a single node.
type Prober interface {
	Probe(ctx context.Context, node model.Node) (*csRPC.HealthCheckReply, error)
}

// RPCProber probes nodes through ChunkServerAPI.HealthCheck.
type RPCProber struct{}

func (RPCProber) Probe(ctx context.Context, node model.Node) (*csRPC.HealthCheckReply, error) {
	args := csRPC.HealthCheckArgs{Caller: "master"}
	reply := csRPC.HealthCheckReply{}

	err := transport.Call(ctx, node.Address, csRPC.ServiceName+".HealthCheck", &args, &reply)
	if err != nil {
		return nil, err
	}

	return &reply, nil
}

// LivenessMonitor periodically probes every registered node and records
// the outcome in the node store. Its view is advisory: allocation and
// client reads never consult it.
type LivenessMonitor struct {
	nodes    *ChunkServerMetadataStore
	prober   Prober
	interval time.Duration
	timeout  time.Duration
}

func NewLivenessMonitor(nodes *ChunkServerMetadataStore, prober Prober, interval, timeout time.Duration) *LivenessMonitor {
	return &LivenessMonitor{
		nodes:    nodes,
		prober:   prober,
		interval: interval,
		timeout:  timeout,
	}
}

// Start probes on every tick until ctx is done.
func (lm *LivenessMonitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(lm.interval)
	defer ticker.Stop()

	lm.ProbeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Infow("liveness", "status", "monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			lm.ProbeAll(ctx)
		}
	}
}

// ProbeAll probes all nodes concurrently and waits for every probe.
func (lm *LivenessMonitor) ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, node := range lm.nodes.registry.Nodes() {
		wg.Add(1)
		go func(node model.Node) {
			defer wg.Done()
			lm.probe(ctx, node)
		}(node)
	}

	wg.Wait()
}

func (lm *LivenessMonitor) probe(ctx context.Context, node model.Node) {
	before := lm.nodes.GetChunkServerMetadata(node.ID)
	if before == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, lm.timeout)
	defer cancel()

	reply, err := lm.prober.Probe(probeCtx, node)

	var after *ChunkServerMetadata
	if err != nil {
		after = lm.nodes.MarkUnhealthy(node.ID)
		metrics.NodeProbeFailuresTotal.WithLabelValues(node.ID).Inc()
		log.Debugw("liveness", "node", node.ID, "address", node.Address, "error", err)
	} else {
		after = lm.nodes.MarkHealthy(node.ID, reply.NumChunks, reply.DiskUsedPercent)
	}

	if after == nil {
		return
	}

	availability := 1.0
	if after.State == NodeDown {
		availability = 0
	}
	metrics.NodeAvailability.WithLabelValues(node.ID).Set(availability)

	if before.State != after.State {
		log.Infow("liveness", "node", node.ID, "address", node.Address, "from", before.State, "to", after.State, "failedChecks", after.FailedHealthChecks)
	}
}
