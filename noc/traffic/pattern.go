// Package traffic provides synthetic traffic sources that inject messages
// into a network-on-chip.
package traffic

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
)

// A Pattern chooses the destination of the messages a node sends.
type Pattern interface {
	// Destination returns the destination node for a message from src, or
	// -1 if src does not send.
	Destination(src int, r *rand.Rand) int
}

// UniformRandom sends to any other node with equal probability.
type UniformRandom struct {
	NumNodes int
}

// Destination implements Pattern.
func (p UniformRandom) Destination(src int, r *rand.Rand) int {
	if p.NumNodes < 2 {
		return -1
	}

	dst := r.Intn(p.NumNodes - 1)
	if dst >= src {
		dst++
	}

	return dst
}

// BitComplement sends to the node whose coordinates mirror the source's
// along every dimension.
type BitComplement struct {
	Size []int
}

// Destination implements Pattern.
func (p BitComplement) Destination(src int, _ *rand.Rand) int {
	coord := mesh.Coord(p.Size, src)
	for d, s := range p.Size {
		coord[d] = s - 1 - coord[d]
	}

	return notSelf(src, mesh.NodeID(p.Size, coord))
}

// Transpose sends to the node with the coordinates of the source in reverse
// order. All dimensions must have the same size.
type Transpose struct {
	Size []int
}

// Destination implements Pattern.
func (p Transpose) Destination(src int, _ *rand.Rand) int {
	coord := mesh.Coord(p.Size, src)
	n := len(coord)

	transposed := make([]int, n)
	for d := range coord {
		transposed[d] = coord[n-1-d]
	}

	return notSelf(src, mesh.NodeID(p.Size, transposed))
}

func notSelf(src, dst int) int {
	if src == dst {
		return -1
	}

	return dst
}

// NewPattern creates a pattern by name for a grid of the given size.
func NewPattern(name string, size []int) (Pattern, error) {
	switch name {
	case "uniform":
		return UniformRandom{NumNodes: mesh.NumNodes(size)}, nil
	case "bitcomplement":
		return BitComplement{Size: size}, nil
	case "transpose":
		for _, s := range size {
			if s != size[0] {
				return nil, errors.Errorf(
					"transpose needs a square network, got %v", size)
			}
		}

		return Transpose{Size: size}, nil
	default:
		return nil, errors.Errorf("unknown traffic pattern %q", name)
	}
}
