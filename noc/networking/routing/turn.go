package routing

import (
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// A TurnModel restricts the output ports an adaptive protocol may consider.
type TurnModel int

// Turn models.
const (
	// TurnModelNone allows every output port, including misroutes.
	TurnModelNone TurnModel = iota

	// TurnModelNegativeFirst allows progressive ports only. Back hops come
	// before forward hops, which rules out cyclic channel waits on a mesh.
	TurnModelNegativeFirst
)

func (m TurnModel) String() string {
	switch m {
	case TurnModelNone:
		return "none"
	case TurnModelNegativeFirst:
		return "negative-first"
	}

	return "unknown"
}

// Allows returns true if a HEAD flit with header h may leave through out.
func (m TurnModel) Allows(out *networking.Port, h *packet.Header) bool {
	if m == TurnModelNone {
		return true
	}

	if !IsProgressive(out, h) {
		return false
	}

	if hasBackOffset(h) {
		return out.Direction() == packet.DirectionBack
	}

	return true
}

func hasBackOffset(h *packet.Header) bool {
	for d := 0; d < h.NumDimensions(); d++ {
		if h.HasDirection(d) && h.Direction(d) == packet.DirectionBack {
			return true
		}
	}

	return false
}
