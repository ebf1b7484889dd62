package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/rpc"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pyropy/chunkfs/core/model"
)

// connected is the status line net/rpc answers an HTTP CONNECT with.
const connected = "200 Connected to Go RPC"

// NewHandler registers rcvr under name on a fresh rpc.Server and returns a
// mux serving it at rpc.DefaultRPCPath alongside Prometheus metrics at /metrics.
func NewHandler(name string, rcvr any) (*http.ServeMux, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(name, rcvr); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	mux.Handle("/metrics", promhttp.Handler())

	return mux, nil
}

// Dial opens a net/rpc client to addr over HTTP CONNECT. The context bounds
// both the dial and, through the connection deadline, every call made on it.
func Dial(ctx context.Context, addr string) (*rpc.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrNodeUnreachable, addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	_, err = io.WriteString(conn, "CONNECT "+rpc.DefaultRPCPath+" HTTP/1.0\n\n")
	if err == nil {
		var resp *http.Response
		resp, err = http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: "CONNECT"})
		if err == nil && resp.Status != connected {
			err = errors.New("unexpected HTTP response: " + resp.Status)
		}
	}

	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s: %v", model.ErrNodeUnreachable, addr, err)
	}

	return rpc.NewClient(conn), nil
}

// Call dials addr, invokes method and closes the connection. Transport level
// failures are reported as model.ErrNodeUnreachable; errors returned by the
// remote method are mapped back to their model sentinels.
func Call(ctx context.Context, addr, method string, args any, reply any) error {
	client, err := Dial(ctx, addr)
	if err != nil {
		return err
	}

	defer client.Close()

	call := client.Go(method, args, reply, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", model.ErrNodeUnreachable, addr, ctx.Err())
	case c := <-call.Done:
		if c.Error == nil {
			return nil
		}

		var serverErr rpc.ServerError
		if errors.As(c.Error, &serverErr) {
			return model.FromRemote(c.Error)
		}

		return fmt.Errorf("%w: %s: %v", model.ErrNodeUnreachable, addr, c.Error)
	}
}
