package networking

import (
	"fmt"
	"log"

	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A Network owns all the routers, ports and channels of a network-on-chip.
// Components refer to each other through their indices in the network.
type Network struct {
	name   string
	engine sim.Engine

	size  []int
	torus bool

	routers     []*Router
	ports       []*Port
	channels    []*channel.Channel
	coordToNode map[string]int

	// IDs of the messages whose flits are dropped wherever they are buffered
	doomed map[string]bool

	detector *DeadlockDetector
}

// NewNetwork creates an empty network whose nodes are laid out on a grid of
// the given size.
func NewNetwork(name string, engine sim.Engine, size []int, torus bool) *Network {
	if engine == nil {
		panic("network requires an engine")
	}

	return &Network{
		name:        name,
		engine:      engine,
		size:        append([]int(nil), size...),
		torus:       torus,
		coordToNode: make(map[string]int),
		doomed:      make(map[string]bool),
	}
}

// Name returns the name of the network.
func (n *Network) Name() string {
	return n.name
}

// Engine returns the engine the network runs on.
func (n *Network) Engine() sim.Engine {
	return n.engine
}

// Size returns the number of nodes along every dimension.
func (n *Network) Size() []int {
	return n.size
}

// NumDimensions returns the number of dimensions of the grid.
func (n *Network) NumDimensions() int {
	return len(n.size)
}

// IsTorus returns true if the dimensions wrap around.
func (n *Network) IsTorus() bool {
	return n.torus
}

// Routers returns all the routers, indexed by node ID.
func (n *Network) Routers() []*Router {
	return n.routers
}

// Router returns the router of a node.
func (n *Network) Router(node int) *Router {
	return n.routers[node]
}

// RouterAt returns the router at a grid coordinate, or nil.
func (n *Network) RouterAt(coord []int) *Router {
	node, found := n.coordToNode[coordKey(coord)]
	if !found {
		return nil
	}

	return n.routers[node]
}

// NodeByCoord returns the node ID at a coordinate, or -1.
func (n *Network) NodeByCoord(coord []int) int {
	node, found := n.coordToNode[coordKey(coord)]
	if !found {
		return -1
	}

	return node
}

// Coord returns the coordinate of a node.
func (n *Network) Coord(node int) []int {
	return n.routers[node].coord
}

// Ports returns all the ports, indexed by port ID.
func (n *Network) Ports() []*Port {
	return n.ports
}

// Port returns a port by ID.
func (n *Network) Port(id int) *Port {
	return n.ports[id]
}

// Channels returns all the channels, indexed by channel ID.
func (n *Network) Channels() []*channel.Channel {
	return n.channels
}

// Channel returns a channel by ID.
func (n *Network) Channel(id int) *channel.Channel {
	return n.channels[id]
}

// Endpoint lets channels deliver to ports.
func (n *Network) Endpoint(portID int) channel.Endpoint {
	return n.ports[portID]
}

// Connect creates a channel with the builder and attaches the two ports to it.
func (n *Network) Connect(a, b *Port, builder channel.Builder) *channel.Channel {
	ch := builder.
		WithEngine(n.engine).
		WithResolver(n).
		Build(fmt.Sprintf("%s.Channel[%d]", n.name, len(n.channels)),
			len(n.channels))
	n.channels = append(n.channels, ch)

	n.attach(a, ch)
	n.attach(b, ch)

	return ch
}

// AttachToChannel plugs one more port into an existing channel, turning it
// into a bus.
func (n *Network) AttachToChannel(p *Port, ch *channel.Channel) {
	n.attach(p, ch)
}

// AcceptPortHook registers a hook on every port of the network.
func (n *Network) AcceptPortHook(h sim.Hook) {
	for _, p := range n.ports {
		p.AcceptHook(h)
	}
}

// AcceptChannelHook registers a hook on every channel of the network.
func (n *Network) AcceptChannelHook(h sim.Hook) {
	for _, ch := range n.channels {
		ch.AcceptHook(h)
	}
}

// WatchDeadlocks attaches a DeadlockDetector to the ports of the network and
// to its engine. Ports added afterward are not watched.
func (n *Network) WatchDeadlocks(timeout sim.VTimeInSec) *DeadlockDetector {
	if n.detector != nil {
		log.Panicf("network %s is already watched for deadlocks", n.name)
	}

	n.detector = NewDeadlockDetector(n, timeout)
	n.AcceptPortHook(n.detector)
	n.engine.AcceptHook(n.detector)

	return n.detector
}

// DeadlockDetector returns the detector watching the network, or nil.
func (n *Network) DeadlockDetector() *DeadlockDetector {
	return n.detector
}

// DropStalledMessages drops every message that has a flit at the head of an
// inbound or outbound buffer. The remaining flits of those messages are
// dropped as they reach the head of a buffer. It returns how many messages
// were dropped.
func (n *Network) DropStalledMessages() int {
	count := 0

	for _, p := range n.ports {
		if p.disabled {
			continue
		}

		if p.inQueue.Size() > 0 {
			pkt := p.inQueue.Peek().(*packet.Packet)
			if n.doom(pkt) {
				count++
			}
		}

		if p.outQueue != nil && p.outQueue.Size() > 0 {
			pkt := p.outQueue.Peek().(staged).pkt
			if n.doom(pkt) {
				count++
			}
		}

		if p.inQueue.Size() > 0 || (p.outQueue != nil && p.outQueue.Size() > 0) {
			p.scheduleDrain(p.firstAttemptTime())
		}
	}

	return count
}

// IsDropping returns true if the message of the flit is being dropped.
func (n *Network) IsDropping(pkt *packet.Packet) bool {
	return n.doomed[pkt.MessageID]
}

func (n *Network) doom(pkt *packet.Packet) bool {
	if n.doomed[pkt.MessageID] {
		return false
	}

	n.doomed[pkt.MessageID] = true

	for _, p := range n.ports {
		p.abandon(pkt.MessageID)
	}

	return true
}

func (n *Network) attach(p *Port, ch *channel.Channel) {
	if p.channelID >= 0 {
		log.Panicf("port %s is already connected", p.name)
	}

	ch.Attach(p.id)
	p.channelID = ch.ID()
}

func (n *Network) addRouter(r *Router) {
	key := coordKey(r.coord)
	if _, found := n.coordToNode[key]; found {
		log.Panicf("two routers at coordinate %v", r.coord)
	}

	if len(r.coord) != len(n.size) {
		log.Panicf("coordinate %v does not match network size %v",
			r.coord, n.size)
	}

	r.id = len(n.routers)
	n.coordToNode[key] = r.id
	n.routers = append(n.routers, r)
}

func (n *Network) addPort(p *Port) {
	p.id = len(n.ports)
	n.ports = append(n.ports, p)
}

func coordKey(coord []int) string {
	return fmt.Sprint(coord)
}
