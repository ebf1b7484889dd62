package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/checksum"
	csRPC "github.com/pyropy/chunkfs/rpc/chunkserver"
	"github.com/pyropy/chunkfs/rpc/transport"
	"github.com/sony/gobreaker"
)

// NodeClient talks to a single chunkserver. Calls go through a circuit
// breaker so a dead node fails fast once it has tripped.
type NodeClient struct {
	node    model.Node
	timeout time.Duration
	retries uint64
	cb      *gobreaker.CircuitBreaker
}

func NewNodeClient(node model.Node, cfg *Config) *NodeClient {
	settings := gobreaker.Settings{
		Name:    fmt.Sprintf("chunkserver-%s", node.ID),
		Timeout: cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.Failures
		},
		// only transport failures count against the node
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, model.ErrNodeUnreachable)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Infow("circuit", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &NodeClient{
		node:    node,
		timeout: cfg.Call.Timeout,
		retries: cfg.Write.Retries,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func (nc *NodeClient) ID() model.NodeID {
	return nc.node.ID
}

func (nc *NodeClient) call(ctx context.Context, method string, args any, reply any) error {
	_, err := nc.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, nc.timeout)
		defer cancel()

		return nil, transport.Call(ctx, nc.node.Address, csRPC.ServiceName+"."+method, args, reply)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", model.ErrNodeUnreachable, nc.node.ID, err)
	}

	return err
}

// retry runs op with bounded exponential backoff. Errors returned by the
// chunkserver itself and an open circuit are not retried.
func (nc *NodeClient) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, nc.retries), ctx)

	return backoff.Retry(func() error {
		err := op()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState):
			return backoff.Permanent(err)
		case errors.Is(err, model.ErrNodeUnreachable), errors.Is(err, model.ErrChecksumMismatch):
			return err
		default:
			return backoff.Permanent(err)
		}
	}, policy)
}

// WriteChunk stores data under chunkID on the node.
func (nc *NodeClient) WriteChunk(ctx context.Context, chunkID uuid.UUID, data []byte) error {
	args := csRPC.WriteChunkArgs{
		ChunkID:  chunkID,
		CheckSum: checksum.CalculateCheckSum(data),
		Data:     data,
	}

	return nc.retry(ctx, func() error {
		var reply csRPC.WriteChunkReply
		if err := nc.call(ctx, "WriteChunk", &args, &reply); err != nil {
			return err
		}

		if reply.BytesWritten != len(data) {
			return fmt.Errorf("%w: wrote %d of %d bytes", model.ErrNodeUnreachable, reply.BytesWritten, len(data))
		}

		return nil
	})
}

// ReadChunk fetches chunkID and verifies it against the checksum the node
// reports. It does not retry.
func (nc *NodeClient) ReadChunk(ctx context.Context, chunkID uuid.UUID) ([]byte, error) {
	var reply csRPC.ReadChunkReply
	if err := nc.call(ctx, "ReadChunk", &csRPC.ReadChunkArgs{ChunkID: chunkID}, &reply); err != nil {
		return nil, err
	}

	if len(reply.Data) == 0 {
		return nil, fmt.Errorf("%w: %s returned no bytes for %s", model.ErrChunkNotFound, nc.node.ID, chunkID)
	}

	if !checksum.Verify(reply.Data, reply.CheckSum) {
		return nil, fmt.Errorf("%w: chunk %s from %s", model.ErrChecksumMismatch, chunkID, nc.node.ID)
	}

	return reply.Data, nil
}

// DeleteChunk removes chunkID from the node. A chunk the node does not hold
// counts as deleted.
func (nc *NodeClient) DeleteChunk(ctx context.Context, chunkID uuid.UUID) error {
	return nc.retry(ctx, func() error {
		var reply csRPC.DeleteChunkReply
		return nc.call(ctx, "DeleteChunk", &csRPC.DeleteChunkArgs{ChunkID: chunkID}, &reply)
	})
}

// IsAvailable reports whether the node's circuit is not open.
func (nc *NodeClient) IsAvailable() bool {
	return nc.cb.State() != gobreaker.StateOpen
}
