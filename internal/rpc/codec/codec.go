// Package codec installs a gob-based grpc.Codec for the overlay's RPC
// messages. The upstream wire format would normally be protobuf generated
// from a .proto file by protoc, but this tree has no protoc-gen-go/
// protoc-gen-go-grpc step wired into its build, so request/response structs
// are encoded with encoding/gob instead and carried over the same grpc
// transport via grpc.ForceCodec.
package codec

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Name is the content-subtype registered with grpc's encoding registry.
const Name = "gob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return Name }

// ForceCodec is the call option every outbound RPC in this package uses so
// it's encoded with gobCodec regardless of the default codec the grpc
// server/dialer would otherwise negotiate.
func ForceCodec() grpc.CallOption {
	return grpc.ForceCodec(gobCodec{})
}
