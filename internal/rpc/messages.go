// Package rpc defines the NodeService wire messages and the hand-written
// client/server stubs that carry them over grpc. A .proto-driven service
// would normally back this package with protoc-gen-go/protoc-gen-go-grpc
// output; since no protoc step is wired into this tree's build, the
// messages are plain Go structs encoded with this package's gob codec
// instead of generated protobuf marshaling.
package rpc

import "pastryring/id"

// Descriptor mirrors overlay.Descriptor on the wire.
type Descriptor struct {
	ID   id.ID
	Addr string
}

// QueryType enumerates the three key-value operations the Query RPC can
// carry.
type QueryType int32

const (
	QueryGet QueryType = iota
	QueryDelete
	QuerySet
)

func (t QueryType) String() string {
	switch t {
	case QueryGet:
		return "Get"
	case QueryDelete:
		return "Delete"
	case QuerySet:
		return "Set"
	default:
		return "Unknown"
	}
}

// QueryError enumerates the error codes a Query response can carry.
type QueryError int32

const (
	QueryErrorNone QueryError = iota
	QueryErrorValueNotProvided
	QueryErrorKeyNotFound
)

func (e QueryError) String() string {
	switch e {
	case QueryErrorNone:
		return ""
	case QueryErrorValueNotProvided:
		return "ValueNotProvided"
	case QueryErrorKeyNotFound:
		return "KeyNotFound"
	default:
		return "Unknown"
	}
}

// GetNodeStateRequest carries no fields.
type GetNodeStateRequest struct{}

// GetNodeStateResponse is the read-only (self_id, leaf_set) view.
type GetNodeStateResponse struct {
	Self         Descriptor
	Predecessors []Descriptor
	Successors   []Descriptor
}

// GetNodeTableEntryRequest addresses a single routing-table cell.
type GetNodeTableEntryRequest struct {
	Row    int32
	Column int32
}

// GetNodeTableEntryResponse carries the entry at that cell, if any.
type GetNodeTableEntryResponse struct {
	Present bool
	Entry   Descriptor
}

// JoinRequest is forwarded, accumulating a routing table row per hop, as
// it's routed toward the joiner's own position in the ring.
type JoinRequest struct {
	Joiner        Descriptor
	Hops          int32
	MatchedDigits int32
	RoutingTable  []Descriptor
}

// JoinResponse is returned by whichever node determines it's the joiner's
// final destination.
type JoinResponse struct {
	Responder    Descriptor
	Hops         int32
	LeafSet      []Descriptor
	RoutingTable []Descriptor
}

// QueryRequest carries a Get/Set/Delete operation as it's routed toward
// the key's owning node.
type QueryRequest struct {
	FromID        Descriptor
	MatchedDigits int32
	Hops          int32
	Type          QueryType
	Key           id.ID
	Value         []byte
	HasValue      bool
}

// QueryResponse is returned once the request reaches its terminal node.
type QueryResponse struct {
	FromID   Descriptor
	Hops     int32
	Key      id.ID
	Value    []byte
	HasValue bool
	Error    QueryError
}

// TransferKeysRequest asks the recipient to stream every key it's no
// longer the closest node for, now that the requester has joined.
type TransferKeysRequest struct {
	Requester Descriptor
}

// TransferKeysEntry is one item of the TransferKeys server stream.
type TransferKeysEntry struct {
	Key   id.ID
	Value []byte
}

// AnnounceArrivalRequest is a fire-and-forget gossip notification that a
// new node has joined.
type AnnounceArrivalRequest struct {
	Node Descriptor
}

// FixLeafSetRequest is sent when the sender has detected that one of its
// leaf-set neighbors is unreachable; the recipient symmetrically inserts
// the sender into its own leaf set.
type FixLeafSetRequest struct {
	Node Descriptor
}
