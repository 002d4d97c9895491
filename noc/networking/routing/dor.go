// Package routing provides the routing protocols of the routers.
package routing

import (
	"log"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// DOR is dimension-order routing. It resolves the dimensions one after
// another in a fixed global order, which keeps the network free of deadlocks.
type DOR struct {
	order []int
}

// NewDOR creates a DOR protocol that resolves the dimensions in the given
// order. A nil order resolves dimension 0 first.
func NewDOR(order []int) *DOR {
	if order != nil {
		orderMustBePermutation(order)
	}

	return &DOR{order: append([]int(nil), order...)}
}

// Order returns the routing order for headers of n dimensions.
func (d *DOR) Order(n int) []int {
	if len(d.order) == 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}

		return order
	}

	if len(d.order) != n {
		log.Panicf("routing order %v does not cover %d dimensions",
			d.order, n)
	}

	return d.order
}

// NextDirection returns the dimension and direction of the next hop. ok is
// false once every dimension is resolved.
func (d *DOR) NextDirection(
	h *packet.Header,
) (dim int, dir packet.Direction, ok bool) {
	for _, dim := range d.Order(h.NumDimensions()) {
		if h.HasDirection(dim) {
			return dim, h.Direction(dim), true
		}
	}

	return -1, packet.DirectionNone, false
}

// RequestRoute routes a HEAD flit along the first unresolved dimension.
func (d *DOR) RequestRoute(
	r *networking.Router,
	source *networking.Port,
	_ int,
	pkt *packet.Packet,
) *networking.Route {
	h := pkt.Header

	dim, dir, ok := d.NextDirection(h)
	if !ok {
		return nil
	}

	out := r.GetOutputPort(source, dir, dim)
	if out == nil || !r.IsAvailable(out, source) {
		return nil
	}

	in := r.PeerInputPort(out)
	if in == nil {
		return nil
	}

	h.DecrementOffset(dim, dir)
	writeLoadFeedback(r, source, out, h)

	return &networking.Route{
		Packet:          pkt,
		SourcePort:      out,
		DestinationPort: in,
	}
}

func orderMustBePermutation(order []int) {
	seen := make([]bool, len(order))

	for _, dim := range order {
		if dim < 0 || dim >= len(order) || seen[dim] {
			log.Panicf("routing order %v is not a permutation", order)
		}

		seen[dim] = true
	}
}
