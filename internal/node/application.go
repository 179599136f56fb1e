package node

import "pastryring/internal/overlay"

// Application lets a caller observe membership changes without polling
// State. Optional — nodes work without one.
type Application interface {
	// PeersChanged is invoked whenever the leaf set changes composition.
	PeersChanged(peers []overlay.Descriptor)
}

type noopApplication struct{}

func (noopApplication) PeersChanged([]overlay.Descriptor) {}
