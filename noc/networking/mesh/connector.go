// Package mesh builds n-dimensional mesh and torus networks.
package mesh

import (
	"fmt"
	"strings"

	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/flowcontrol"
	"github.com/sarchlab/nocsim/noc/networking/routing"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A RoutingFactory creates the routing protocol of a node.
type RoutingFactory func(node int) networking.RoutingProtocol

// A SwitchingFactory creates the switching protocol of a node.
type SwitchingFactory func(node int) networking.SwitchingProtocol

// A LoadFactory creates the load component of a node.
type LoadFactory func(node int) networking.LoadComponent

// Connector can connect routers into a mesh or a torus. Every node gets a
// local port and, along every dimension, a forward and a back port wherever
// a neighbor exists.
type Connector struct {
	engine sim.Engine
	size   []int
	torus  bool

	routing   RoutingFactory
	switching SwitchingFactory
	load      LoadFactory

	bufferCapacity int
	outCapacity    int
	delay          sim.VTimeInSec
	bandwidth      float64
	freq           sim.Freq
	synchronous    bool
	speedup        int
	retryInterval  sim.VTimeInSec
	maxRetries     int

	deadlockTimeout sim.VTimeInSec
}

// NewConnector creates a connector for a 4x4 mesh with dimension-order
// routing and wormhole switching.
func NewConnector() *Connector {
	return &Connector{
		size: []int{4, 4},
		routing: func(int) networking.RoutingProtocol {
			return routing.NewDOR(nil)
		},
		switching: func(int) networking.SwitchingProtocol {
			return flowcontrol.NewWormhole()
		},
		bufferCapacity: 4,
		freq:           1 * sim.GHz,
		speedup:        1,
	}
}

// WithEngine sets the engine that the network runs on.
func (c *Connector) WithEngine(engine sim.Engine) *Connector {
	c.engine = engine
	return c
}

// WithDimensions sets the number of nodes along every dimension.
func (c *Connector) WithDimensions(size ...int) *Connector {
	c.size = append([]int(nil), size...)
	return c
}

// WithTorus makes every dimension wrap around.
func (c *Connector) WithTorus(torus bool) *Connector {
	c.torus = torus
	return c
}

// WithRoutingFactory sets how the routing protocol of each node is created.
func (c *Connector) WithRoutingFactory(f RoutingFactory) *Connector {
	c.routing = f
	return c
}

// WithSwitchingFactory sets how the switching protocol of each node is
// created.
func (c *Connector) WithSwitchingFactory(f SwitchingFactory) *Connector {
	c.switching = f
	return c
}

// WithLoadFactory sets how the load component of each node is created.
func (c *Connector) WithLoadFactory(f LoadFactory) *Connector {
	c.load = f
	return c
}

// WithBufferCapacity sets the inbound buffer capacity of every port.
func (c *Connector) WithBufferCapacity(n int) *Connector {
	c.bufferCapacity = n
	return c
}

// WithOutputBufferCapacity gives every port an outbound buffer.
func (c *Connector) WithOutputBufferCapacity(n int) *Connector {
	c.outCapacity = n
	return c
}

// WithChannelDelay sets the propagation delay of every channel.
func (c *Connector) WithChannelDelay(d sim.VTimeInSec) *Connector {
	c.delay = d
	return c
}

// WithBandwidth sets the bandwidth of every channel in bits per second.
func (c *Connector) WithBandwidth(bitsPerSecond float64) *Connector {
	c.bandwidth = bitsPerSecond
	return c
}

// WithFreq sets the network clock.
func (c *Connector) WithFreq(f sim.Freq) *Connector {
	c.freq = f
	return c
}

// WithSynchronous makes ports drain on clock edges, with DATA flits moving
// speedup times per cycle.
func (c *Connector) WithSynchronous(speedup int) *Connector {
	c.synchronous = true
	c.speedup = speedup

	return c
}

// WithRetryInterval sets the retry interval of asynchronous ports.
func (c *Connector) WithRetryInterval(t sim.VTimeInSec) *Connector {
	c.retryInterval = t
	return c
}

// WithMaxRetries sets how many times a blocked HEAD flit is retried before
// its message is dropped.
func (c *Connector) WithMaxRetries(n int) *Connector {
	c.maxRetries = n
	return c
}

// WithDeadlockTimeout drops the messages at the head of every buffer when the
// network makes no progress for longer than t. 0 never drops.
func (c *Connector) WithDeadlockTimeout(t sim.VTimeInSec) *Connector {
	c.deadlockTimeout = t
	return c
}

// Build creates the network.
func (c *Connector) Build(name string) *networking.Network {
	c.mustBeValid()

	n := networking.NewNetwork(name, c.engine, c.size, c.torus)

	numNodes := NumNodes(c.size)
	for node := 0; node < numNodes; node++ {
		c.buildRouter(n, name, node)
	}

	chBuilder := channel.MakeBuilder().
		WithDelay(c.delay).
		WithBandwidth(c.bandwidth)

	for node := 0; node < numNodes; node++ {
		r := n.Router(node)

		for dim := range c.size {
			out := r.PortFacing(packet.DirectionForward, dim)
			if out == nil {
				continue
			}

			neighbor := n.RouterAt(c.neighborCoord(r.Coord(), dim, 1))
			in := neighbor.PortFacing(packet.DirectionBack, dim)

			n.Connect(out, in, chBuilder)
		}
	}

	if c.deadlockTimeout > 0 {
		n.WatchDeadlocks(c.deadlockTimeout)
	}

	return n
}

func (c *Connector) buildRouter(n *networking.Network, name string, node int) {
	coord := Coord(c.size, node)

	rb := networking.MakeRouterBuilder().
		WithNetwork(n).
		WithCoord(coord).
		WithRoutingProtocol(c.routing(node)).
		WithSwitchingProtocol(c.switching(node))
	if c.load != nil {
		rb = rb.WithLoadComponent(c.load(node))
	}

	r := rb.Build(fmt.Sprintf("%s.Router%s", name, coordName(coord)))

	pb := networking.MakePortBuilder().
		WithRouter(r).
		WithBufferCapacity(c.bufferCapacity).
		WithOutputBufferCapacity(c.outCapacity).
		WithFreq(c.freq).
		WithRetryInterval(c.retryInterval).
		WithMaxRetries(c.maxRetries)
	if c.synchronous {
		pb = pb.WithSynchronous(c.speedup)
	}

	pb.Build(r.Name() + ".Local")

	for dim := range c.size {
		if c.hasNeighbor(coord, dim, 1) {
			pb.WithDirection(packet.DirectionForward, dim).
				Build(fmt.Sprintf("%s.Forward%d", r.Name(), dim))
		}

		if c.hasNeighbor(coord, dim, -1) {
			pb.WithDirection(packet.DirectionBack, dim).
				Build(fmt.Sprintf("%s.Back%d", r.Name(), dim))
		}
	}
}

func (c *Connector) hasNeighbor(coord []int, dim, step int) bool {
	if c.size[dim] < 2 {
		return false
	}

	if c.torus {
		return true
	}

	next := coord[dim] + step

	return next >= 0 && next < c.size[dim]
}

func (c *Connector) neighborCoord(coord []int, dim, step int) []int {
	next := append([]int(nil), coord...)
	next[dim] = (next[dim] + step + c.size[dim]) % c.size[dim]

	return next
}

func (c *Connector) mustBeValid() {
	if c.engine == nil {
		panic("engine is not set")
	}

	if len(c.size) == 0 {
		panic("network needs at least one dimension")
	}

	for _, s := range c.size {
		if s <= 0 {
			panic(fmt.Sprintf("invalid network size %v", c.size))
		}
	}
}

// NumNodes returns the number of nodes of a grid.
func NumNodes(size []int) int {
	n := 1
	for _, s := range size {
		n *= s
	}

	return n
}

// Coord returns the coordinate of a node. Dimension 0 varies fastest.
func Coord(size []int, node int) []int {
	coord := make([]int, len(size))

	for d, s := range size {
		coord[d] = node % s
		node /= s
	}

	return coord
}

// NodeID returns the node at a coordinate.
func NodeID(size []int, coord []int) int {
	node, stride := 0, 1

	for d, s := range size {
		node += coord[d] * stride
		stride *= s
	}

	return node
}

func coordName(coord []int) string {
	var sb strings.Builder
	for _, x := range coord {
		fmt.Fprintf(&sb, "[%d]", x)
	}

	return sb.String()
}
