package node

import (
	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
)

func fromDescriptor(d overlay.Descriptor) rpc.Descriptor {
	return rpc.Descriptor{ID: d.ID, Addr: d.Addr}
}

func toDescriptor(d rpc.Descriptor) overlay.Descriptor {
	return overlay.Descriptor{ID: d.ID, Addr: d.Addr}
}

func fromDescriptors(ds []overlay.Descriptor) []rpc.Descriptor {
	out := make([]rpc.Descriptor, len(ds))
	for i, d := range ds {
		out[i] = fromDescriptor(d)
	}
	return out
}

func toDescriptors(ds []rpc.Descriptor) []overlay.Descriptor {
	out := make([]overlay.Descriptor, len(ds))
	for i, d := range ds {
		out[i] = toDescriptor(d)
	}
	return out
}
