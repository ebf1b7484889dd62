package model

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

type NodeID = string

type Node struct {
	ID      NodeID
	Address string
}

// NodeRegistry is the static mapping of node id to host:port. It decodes from
// envconfig values of the form "0=localhost:8010,1=localhost:8020".
type NodeRegistry map[NodeID]string

func (r *NodeRegistry) Decode(value string) error {
	registry := NodeRegistry{}

	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		id, addr, found := strings.Cut(pair, "=")
		id, addr = strings.TrimSpace(id), strings.TrimSpace(addr)
		if !found || id == "" || addr == "" {
			return fmt.Errorf("%w: node entry %q, want id=host:port", ErrInvalidArgument, pair)
		}

		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: node %s address %q: %v", ErrInvalidArgument, id, addr, err)
		}

		if _, dup := registry[id]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidArgument, id)
		}

		registry[id] = addr
	}

	*r = registry
	return nil
}

// IDs returns the node ids in sorted order.
func (r NodeRegistry) IDs() []NodeID {
	ids := make([]NodeID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

// Nodes returns the registry as a slice sorted by node id.
func (r NodeRegistry) Nodes() []Node {
	nodes := make([]Node, 0, len(r))
	for _, id := range r.IDs() {
		nodes = append(nodes, Node{ID: id, Address: r[id]})
	}

	return nodes
}

func (r NodeRegistry) String() string {
	parts := make([]string, 0, len(r))
	for _, n := range r.Nodes() {
		parts = append(parts, n.ID+"="+n.Address)
	}

	return strings.Join(parts, ",")
}
