package networking

import (
	"log"

	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A Router is a node of the network. It owns a set of ports and forwards the
// packets that arrive on them with its routing and switching protocols.
type Router struct {
	sim.HookableBase

	id      int
	name    string
	coord   []int
	network *Network
	ports   []*Port

	routing   RoutingProtocol
	switching SwitchingProtocol
	load      LoadComponent

	// output port ID -> input port ID holding it for the rest of a message
	reservations map[int]int

	// port ID -> last load feedback received on that port
	reportedLoad map[int]int
}

// ID returns the node ID of the router.
func (r *Router) ID() int {
	return r.id
}

// Name returns the name of the router.
func (r *Router) Name() string {
	return r.name
}

// Coord returns the grid coordinate of the router.
func (r *Router) Coord() []int {
	return r.coord
}

// Network returns the network that the router belongs to.
func (r *Router) Network() *Network {
	return r.network
}

// Ports returns the ports of the router.
func (r *Router) Ports() []*Port {
	return r.ports
}

// LocalPort returns the port that traffic sources inject into, or nil.
func (r *Router) LocalPort() *Port {
	for _, p := range r.ports {
		if p.IsLocal() {
			return p
		}
	}

	return nil
}

// RoutingProtocol returns the routing protocol of the router.
func (r *Router) RoutingProtocol() RoutingProtocol {
	return r.routing
}

// SwitchingProtocol returns the switching protocol of the router.
func (r *Router) SwitchingProtocol() SwitchingProtocol {
	return r.switching
}

// LoadComponent returns the load component of the router, or nil.
func (r *Router) LoadComponent() LoadComponent {
	return r.load
}

// GetOutputPort returns the port other than source that leaves the router in
// the given direction along the given dimension. It returns nil at the
// boundary of a mesh.
func (r *Router) GetOutputPort(
	source *Port,
	dir packet.Direction,
	dim int,
) *Port {
	for _, p := range r.ports {
		if p == source || !p.IsConnected() {
			continue
		}

		if p.direction == dir && p.dimension == dim {
			return p
		}
	}

	return nil
}

// PortFacing returns the port tagged with the direction and dimension,
// whether or not it is connected.
func (r *Router) PortFacing(dir packet.Direction, dim int) *Port {
	for _, p := range r.ports {
		if p.direction == dir && p.dimension == dim {
			return p
		}
	}

	return nil
}

// GetInputPort returns the port of this router that sits on the same channel
// as peerOutput, a port of a neighboring router. The canonical direction and
// dimension are probed first. If no port carries that tag, every other
// combination of dimension and direction is tried, and then untagged ports.
func (r *Router) GetInputPort(
	peerOutput *Port,
	dir packet.Direction,
	dim int,
) *Port {
	ch := peerOutput.Channel()
	if ch == nil {
		return nil
	}

	chID := ch.ID()

	if p := r.probe(chID, dir, dim); p != nil {
		return p
	}

	for d := 0; d < r.network.NumDimensions(); d++ {
		for _, candidateDir := range []packet.Direction{
			packet.DirectionForward, packet.DirectionBack,
		} {
			if d == dim && candidateDir == dir {
				continue
			}

			if p := r.probe(chID, candidateDir, d); p != nil {
				return p
			}
		}
	}

	for _, p := range r.ports {
		if p != peerOutput && p.channelID == chID {
			return p
		}
	}

	return nil
}

func (r *Router) probe(chID int, dir packet.Direction, dim int) *Port {
	for _, p := range r.ports {
		if p.channelID == chID && p.direction == dir && p.dimension == dim {
			return p
		}
	}

	return nil
}

// Neighbor returns the router on the other side of an output port.
func (r *Router) Neighbor(out *Port) *Router {
	peer := r.peerPortOf(out)
	if peer == nil {
		return nil
	}

	return peer.router
}

// PeerInputPort returns the input port of the neighboring router that
// receives what out transmits.
func (r *Router) PeerInputPort(out *Port) *Port {
	neighbor := r.Neighbor(out)
	if neighbor == nil {
		return nil
	}

	return neighbor.GetInputPort(out, out.direction.Opposite(), out.dimension)
}

func (r *Router) peerPortOf(out *Port) *Port {
	ch := out.Channel()
	if ch == nil {
		return nil
	}

	peerID := ch.PeerOf(out.senderID())
	if peerID < 0 {
		return nil
	}

	return r.network.Port(peerID)
}

// IsAvailable returns true if input may route through out. An output port is
// unavailable while it carries the message of another input port.
func (r *Router) IsAvailable(out, input *Port) bool {
	if !out.IsConnected() {
		return false
	}

	holder, reserved := r.reservations[out.id]

	return !reserved || holder == input.id
}

// IsReserved returns true if out carries the message of some input port.
func (r *Router) IsReserved(out *Port) bool {
	_, reserved := r.reservations[out.id]
	return reserved
}

// ReservationOf returns the input port holding out, or nil.
func (r *Router) ReservationOf(out *Port) *Port {
	holder, reserved := r.reservations[out.id]
	if !reserved {
		return nil
	}

	return r.network.Port(holder)
}

// RequestRoute asks the routing protocol for the next hop of a HEAD flit
// queued at source. The selected output port is reserved for source until
// the last flit of the message leaves.
func (r *Router) RequestRoute(source *Port, pkt *packet.Packet) *Route {
	pkt.MustHaveHeader()

	route := r.routing.RequestRoute(r, source, pkt.Destination, pkt)
	if route == nil {
		return nil
	}

	if route.SourcePort == nil || route.DestinationPort == nil {
		log.Panicf("incomplete route for %s at %s", pkt.ID, r.name)
	}

	if !r.IsAvailable(route.SourcePort, source) {
		log.Panicf("route for %s uses %s, which is held by %s",
			pkt.ID, route.SourcePort.name,
			r.ReservationOf(route.SourcePort).name)
	}

	r.reservations[route.SourcePort.id] = source.id

	return route
}

func (r *Router) release(out, input *Port) {
	holder, reserved := r.reservations[out.id]
	if reserved && holder == input.id {
		delete(r.reservations, out.id)
	}
}

// ReportedLoad returns the load feedback last received on a port.
func (r *Router) ReportedLoad(p *Port) int {
	return r.reportedLoad[p.id]
}

func (r *Router) recordLoad(p *Port, load int) {
	r.reportedLoad[p.id] = load
}

// Deliver hands a flit that reached its destination to the node. Observers
// of the port and of the router are notified.
func (r *Router) Deliver(p *Port, pkt *packet.Packet) {
	p.invoke(HookPosPacketReceived, pkt)

	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosPacketReceived,
		Item:   pkt,
		Detail: p,
	})
}
