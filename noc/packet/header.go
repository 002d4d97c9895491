package packet

import (
	"fmt"
	"log"
)

// MaxLoad is the upper bound of a load score.
const MaxLoad = 100

// A Header is the routing information carried by a HEAD flit. It records, for
// every dimension, how many hops are left and in which direction.
type Header struct {
	offsets     []int
	forward     []bool
	sourceCoord []int

	dataFlitCount int
	loadFeedback  int
}

// NewHeader creates a header from signed per-dimension offsets. A positive
// offset moves forward along its dimension, a negative one moves back.
func NewHeader(signedOffsets []int, sourceCoord []int, dataFlitCount int) *Header {
	if dataFlitCount < 0 {
		log.Panicf("negative data flit count %d", dataFlitCount)
	}

	h := &Header{
		offsets:       make([]int, len(signedOffsets)),
		forward:       make([]bool, len(signedOffsets)),
		sourceCoord:   append([]int(nil), sourceCoord...),
		dataFlitCount: dataFlitCount,
	}

	for d, o := range signedOffsets {
		h.forward[d] = o >= 0
		if o < 0 {
			o = -o
		}
		h.offsets[d] = o
	}

	return h
}

// NumDimensions returns the number of dimensions the header encodes.
func (h *Header) NumDimensions() int {
	return len(h.offsets)
}

// Offset returns the number of hops left along the dimension.
func (h *Header) Offset(dim int) int {
	h.dimensionMustBeValid(dim)
	return h.offsets[dim]
}

// SignedOffset returns the remaining hops along the dimension, negative when
// the packet is travelling back.
func (h *Header) SignedOffset(dim int) int {
	h.dimensionMustBeValid(dim)

	if h.forward[dim] {
		return h.offsets[dim]
	}

	return -h.offsets[dim]
}

// Direction returns the direction the packet progresses in along the
// dimension. It is DirectionNone once the dimension is resolved.
func (h *Header) Direction(dim int) Direction {
	if !h.HasDirection(dim) {
		return DirectionNone
	}

	if h.forward[dim] {
		return DirectionForward
	}

	return DirectionBack
}

// DirectionBits packs the per-dimension direction flags, bit d set meaning
// forward along dimension d.
func (h *Header) DirectionBits() uint32 {
	var bits uint32

	for d, f := range h.forward {
		if f {
			bits |= 1 << uint(d)
		}
	}

	return bits
}

// HasDirection tells whether the packet still needs to travel along the
// dimension.
func (h *Header) HasDirection(dim int) bool {
	h.dimensionMustBeValid(dim)
	return h.offsets[dim] > 0
}

// Arrived returns true if no hop is left in any dimension.
func (h *Header) Arrived() bool {
	for _, o := range h.offsets {
		if o != 0 {
			return false
		}
	}

	return true
}

// DecrementOffset records one progressive hop along the dimension. Moving a
// resolved dimension or moving against the encoded direction is a routing
// bug and aborts the simulation.
func (h *Header) DecrementOffset(dim int, dir Direction) {
	h.dimensionMustBeValid(dim)

	if h.offsets[dim] == 0 {
		log.Panicf("offset of dimension %d is already 0", dim)
	}

	if dir != h.Direction(dim) {
		log.Panicf("hop %s along dimension %d does not progress, want %s",
			dir, dim, h.Direction(dim))
	}

	h.offsets[dim]--
}

// Misroute records a hop that moves away from the destination along the
// dimension, so that the remaining offsets still lead to the destination.
func (h *Header) Misroute(dim int, dir Direction) {
	h.dimensionMustBeValid(dim)

	if dir == DirectionNone {
		log.Panic("cannot misroute without a direction")
	}

	if h.offsets[dim] == 0 {
		h.offsets[dim] = 1
		h.forward[dim] = dir == DirectionBack

		return
	}

	if dir == h.Direction(dim) {
		log.Panicf("hop %s along dimension %d is progressive", dir, dim)
	}

	h.offsets[dim]++
}

// SourceCoord returns the coordinate of the node that injected the message.
func (h *Header) SourceCoord() []int {
	return h.sourceCoord
}

// DataFlitCount returns how many DATA flits follow the HEAD flit.
func (h *Header) DataFlitCount() int {
	return h.dataFlitCount
}

// LoadFeedback returns the load score written by the last forwarding node.
func (h *Header) LoadFeedback() int {
	return h.loadFeedback
}

// SetLoadFeedback writes the load score of the forwarding node.
func (h *Header) SetLoadFeedback(load int) {
	if load < 0 || load > MaxLoad {
		log.Panicf("load %d is out of [0, %d]", load, MaxLoad)
	}

	h.loadFeedback = load
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	c := *h
	c.offsets = append([]int(nil), h.offsets...)
	c.forward = append([]bool(nil), h.forward...)
	c.sourceCoord = append([]int(nil), h.sourceCoord...)

	return &c
}

func (h *Header) String() string {
	signed := make([]int, len(h.offsets))
	for d := range h.offsets {
		signed[d] = h.SignedOffset(d)
	}

	return fmt.Sprintf("offsets=%v flits=%d load=%d",
		signed, h.dataFlitCount, h.loadFeedback)
}

func (h *Header) dimensionMustBeValid(dim int) {
	if dim < 0 || dim >= len(h.offsets) {
		log.Panicf("dimension %d is out of range [0, %d)", dim, len(h.offsets))
	}
}
