package routing

import (
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// IsProgressive returns true if leaving through the port reduces the
// remaining offset of the header.
func IsProgressive(p *networking.Port, h *packet.Header) bool {
	dim := p.Dimension()
	if dim < 0 || dim >= h.NumDimensions() {
		return false
	}

	if !h.HasDirection(dim) {
		return false
	}

	return p.Direction() == h.Direction(dim)
}

func writeLoadFeedback(
	r *networking.Router,
	source, out *networking.Port,
	h *packet.Header,
) {
	lc := r.LoadComponent()
	if lc == nil {
		return
	}

	h.SetLoadFeedback(lc.GetLoadForDirection(source, out))
}

// applyHop updates the header for a hop through out.
func applyHop(out *networking.Port, h *packet.Header) {
	if IsProgressive(out, h) {
		h.DecrementOffset(out.Dimension(), out.Direction())
		return
	}

	h.Misroute(out.Dimension(), out.Direction())
}
