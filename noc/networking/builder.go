package networking

import (
	"fmt"

	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// RouterBuilder can build routers.
type RouterBuilder struct {
	network   *Network
	coord     []int
	routing   RoutingProtocol
	switching SwitchingProtocol
	load      LoadComponent
}

// MakeRouterBuilder creates a RouterBuilder.
func MakeRouterBuilder() RouterBuilder {
	return RouterBuilder{}
}

// WithNetwork sets the network that the router joins.
func (b RouterBuilder) WithNetwork(n *Network) RouterBuilder {
	b.network = n
	return b
}

// WithCoord sets the grid coordinate of the router.
func (b RouterBuilder) WithCoord(coord []int) RouterBuilder {
	b.coord = append([]int(nil), coord...)
	return b
}

// WithRoutingProtocol sets the routing protocol.
func (b RouterBuilder) WithRoutingProtocol(rp RoutingProtocol) RouterBuilder {
	b.routing = rp
	return b
}

// WithSwitchingProtocol sets the switching protocol.
func (b RouterBuilder) WithSwitchingProtocol(
	sp SwitchingProtocol,
) RouterBuilder {
	b.switching = sp
	return b
}

// WithLoadComponent sets the load component. It is optional.
func (b RouterBuilder) WithLoadComponent(lc LoadComponent) RouterBuilder {
	b.load = lc
	return b
}

// Build creates a router and adds it to the network.
func (b RouterBuilder) Build(name string) *Router {
	if b.network == nil {
		panic("router requires a network")
	}

	if b.routing == nil {
		panic("router requires a routing protocol")
	}

	if b.switching == nil {
		panic("router requires a switching protocol")
	}

	r := &Router{
		name:         name,
		coord:        b.coord,
		network:      b.network,
		routing:      b.routing,
		switching:    b.switching,
		load:         b.load,
		reservations: make(map[int]int),
		reportedLoad: make(map[int]int),
	}

	b.network.addRouter(r)

	return r
}

// PortBuilder can build ports.
type PortBuilder struct {
	router         *Router
	direction      packet.Direction
	dimension      int
	bufferCapacity int
	outCapacity    int

	synchronous     bool
	freq            sim.Freq
	dataFlitSpeedup int
	retryInterval   sim.VTimeInSec
	maxRetries      int
}

// MakePortBuilder creates a PortBuilder for a local port with a buffer of 4
// flits and a 1 GHz clock.
func MakePortBuilder() PortBuilder {
	return PortBuilder{
		direction:       packet.DirectionNone,
		dimension:       -1,
		bufferCapacity:  4,
		freq:            1 * sim.GHz,
		dataFlitSpeedup: 1,
	}
}

// WithRouter sets the router that owns the port.
func (b PortBuilder) WithRouter(r *Router) PortBuilder {
	b.router = r
	return b
}

// WithDirection sets the direction and dimension the port faces.
func (b PortBuilder) WithDirection(dir packet.Direction, dim int) PortBuilder {
	b.direction = dir
	b.dimension = dim
	return b
}

// WithBufferCapacity sets the capacity of the inbound buffer in flits.
func (b PortBuilder) WithBufferCapacity(n int) PortBuilder {
	b.bufferCapacity = n
	return b
}

// WithOutputBufferCapacity adds an outbound buffer of n flits. With 0, flits
// move directly from the input buffers onto the channel.
func (b PortBuilder) WithOutputBufferCapacity(n int) PortBuilder {
	b.outCapacity = n
	return b
}

// WithFreq sets the network clock.
func (b PortBuilder) WithFreq(f sim.Freq) PortBuilder {
	b.freq = f
	return b
}

// WithSynchronous makes the drain loop fire on clock edges. DATA flits move
// speedup times per cycle.
func (b PortBuilder) WithSynchronous(speedup int) PortBuilder {
	b.synchronous = true
	b.dataFlitSpeedup = speedup
	return b
}

// WithRetryInterval sets how long an asynchronous port waits before it
// retries when the channel gives no timing hint. It defaults to one cycle.
func (b PortBuilder) WithRetryInterval(t sim.VTimeInSec) PortBuilder {
	b.retryInterval = t
	return b
}

// WithMaxRetries makes the port drop a message whose HEAD flit stays blocked
// for more than n attempts. 0 retries forever.
func (b PortBuilder) WithMaxRetries(n int) PortBuilder {
	b.maxRetries = n
	return b
}

// Build creates a port and adds it to the router and to its network.
func (b PortBuilder) Build(name string) *Port {
	b.mustBeValid()

	p := &Port{
		name:            name,
		router:          b.router,
		network:         b.router.network,
		channelID:       -1,
		viaPortID:       -1,
		direction:       b.direction,
		dimension:       b.dimension,
		inQueue:         sim.NewBuffer(name+".InBuf", b.bufferCapacity),
		synchronous:     b.synchronous,
		freq:            b.freq,
		dataFlitSpeedup: b.dataFlitSpeedup,
		retryInterval:   b.retryInterval,
		maxRetries:      b.maxRetries,
	}

	if p.retryInterval == 0 {
		p.retryInterval = b.freq.Period()
	}

	if b.outCapacity > 0 {
		p.outQueue = sim.NewBuffer(name+".OutBuf", b.outCapacity)
	}

	b.router.network.addPort(p)
	b.router.ports = append(b.router.ports, p)

	return p
}

func (b PortBuilder) mustBeValid() {
	if b.router == nil {
		panic("port requires a router")
	}

	if b.freq <= 0 {
		panic("port requires a positive frequency")
	}

	if b.retryInterval < 0 {
		panic("retry interval cannot be negative")
	}

	if b.dataFlitSpeedup <= 0 {
		panic("speedup must be positive")
	}

	if (b.direction == packet.DirectionNone) != (b.dimension < 0) {
		panic(fmt.Sprintf("direction %s does not match dimension %d",
			b.direction, b.dimension))
	}

	if b.dimension >= b.router.network.NumDimensions() {
		panic(fmt.Sprintf("dimension %d out of range", b.dimension))
	}
}
