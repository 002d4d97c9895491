package routing

import (
	"math"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// SO is self-optimized adaptive routing. Its score is a weighted average of
// progress, the load behind the candidate and the occupancy of the next
// buffer relative to the message length.
type SO struct {
	adaptive
}

// NewSO creates an SO protocol.
func NewSO(w Weights, seed int64) *SO {
	return &SO{adaptive: newAdaptive(w, seed)}
}

// WithTurnModel restricts the output ports that SO considers.
func (s *SO) WithTurnModel(m TurnModel) *SO {
	s.turnModel = m
	return s
}

// Evaluate scores the output port out for a HEAD flit that arrived on
// source.
func (s *SO) Evaluate(
	source, out *networking.Port,
	pkt *packet.Packet,
) float64 {
	w := s.weights

	score := w.Progressive * indicator(IsProgressive(out, pkt.Header))
	score += w.Load * float64(loadOf(source, out)) / packet.MaxLoad
	score += w.Remaining * occupancyShare(out, pkt)

	sum := math.Abs(w.Progressive) + math.Abs(w.Load) + math.Abs(w.Remaining)
	if sum == 0 {
		return score
	}

	return score / sum
}

// RequestRoute routes a HEAD flit to the best scoring output port. Ports
// along resolved dimensions are not considered.
func (s *SO) RequestRoute(
	r *networking.Router,
	source *networking.Port,
	_ int,
	pkt *packet.Packet,
) *networking.Route {
	h := pkt.Header
	if h.Arrived() {
		return nil
	}

	all := s.candidates(r, source, h)
	list := all[:0]

	for _, c := range all {
		if c.progressive || h.HasDirection(c.out.Dimension()) {
			list = append(list, c)
		}
	}

	return s.route(s, r, source, pkt, list, true)
}

// occupancyShare is the number of flits in the next buffer, up to the
// message length, divided by one more than the message length.
func occupancyShare(out *networking.Port, pkt *packet.Packet) float64 {
	in := out.Router().PeerInputPort(out)
	if in == nil {
		return 0
	}

	msgLen := pkt.MessageLength()
	count := in.InQueue().Size()

	if count > msgLen {
		count = msgLen
	}

	return float64(count) / float64(msgLen+1)
}
