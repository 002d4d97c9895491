package routing

import (
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// SLB is static load-bound adaptive routing. A candidate scores its
// progressive weight if it moves toward the destination, its load weight if
// the load behind it exceeds the threshold and its remaining weight if the
// next hop cannot accept a flit now.
type SLB struct {
	adaptive
	threshold int
}

// NewSLB creates an SLB protocol.
func NewSLB(w Weights, threshold int, seed int64) *SLB {
	return &SLB{
		adaptive:  newAdaptive(w, seed),
		threshold: threshold,
	}
}

// WithTurnModel restricts the output ports that SLB considers.
func (s *SLB) WithTurnModel(m TurnModel) *SLB {
	s.turnModel = m
	return s
}

// Threshold returns the load above which a candidate counts as congested.
func (s *SLB) Threshold() int {
	return s.threshold
}

// Evaluate scores the output port out for a HEAD flit that arrived on
// source.
func (s *SLB) Evaluate(
	source, out *networking.Port,
	pkt *packet.Packet,
) float64 {
	score := s.weights.Progressive * indicator(IsProgressive(out, pkt.Header))
	score += s.weights.Load * indicator(loadOf(source, out) > s.threshold)
	score += s.weights.Remaining * indicator(nextHopBusy(out))

	return score
}

// RequestRoute routes a HEAD flit to the best scoring output port.
func (s *SLB) RequestRoute(
	r *networking.Router,
	source *networking.Port,
	_ int,
	pkt *packet.Packet,
) *networking.Route {
	if pkt.Header.Arrived() {
		return nil
	}

	list := s.candidates(r, source, pkt.Header)

	return s.route(s, r, source, pkt, list, false)
}

func nextHopBusy(out *networking.Port) bool {
	ch := out.Channel()
	if ch != nil && !ch.IsIdle() {
		return true
	}

	in := out.Router().PeerInputPort(out)

	return in != nil && !in.InQueue().CanPush()
}
