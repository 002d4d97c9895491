// Package networking models the routers of a network-on-chip, the ports that
// connect them and the protocols that route and admit packets.
package networking

import (
	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A Route binds a HEAD flit to the output port of the current router and the
// input port of the next router. The DATA flits of the same message reuse it.
type Route struct {
	Packet          *packet.Packet
	SourcePort      *Port
	DestinationPort *Port
}

// A RoutingProtocol selects the next hop of HEAD flits.
type RoutingProtocol interface {
	// RequestRoute returns the route of a HEAD flit that arrived on source,
	// or nil if no output port can be used now. On success the header
	// offsets are updated in place.
	RequestRoute(
		r *Router,
		source *Port,
		destination int,
		pkt *packet.Packet,
	) *Route
}

// A SwitchingProtocol decides whether a packet may enter a buffer.
type SwitchingProtocol interface {
	// ApplyFlowControl returns false if pushing the packet into next would
	// overflow it or if ch is busy. ch is nil when the packet is injected
	// into its first buffer.
	ApplyFlowControl(
		pkt *packet.Packet,
		next sim.Buffer,
		ch *channel.Channel,
	) bool
}

// A LoadComponent estimates congestion on a 0 to 100 scale.
type LoadComponent interface {
	// GetLocalLoad returns the occupancy of the port's buffers.
	GetLocalLoad(p *Port) int

	// GetLoadForDirection returns the congestion expected when leaving the
	// router through candidate.
	GetLoadForDirection(source, candidate *Port) int
}
