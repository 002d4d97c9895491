package traffic

import (
	"math/rand"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A Source injects messages into the local port of one node. Every cycle it
// starts a new message with the injection probability, then offers the
// oldest pending flit to the network.
type Source struct {
	*sim.TickingComponent

	net     *networking.Network
	node    int
	port    *networking.Port
	pattern Pattern
	rng     *rand.Rand

	injectionRate float64
	dataFlitCount int
	flitSize      int
	cycles        int

	cycle      int
	pending    []*packet.Packet
	numCreated int
	numSent    int
}

// Node returns the node the source injects into.
func (s *Source) Node() int {
	return s.node
}

// NumMessagesCreated returns how many messages the source generated.
func (s *Source) NumMessagesCreated() int {
	return s.numCreated
}

// NumFlitsSent returns how many flits the network accepted.
func (s *Source) NumFlitsSent() int {
	return s.numSent
}

// NumPendingFlits returns how many generated flits still wait for the
// network.
func (s *Source) NumPendingFlits() int {
	return len(s.pending)
}

// Tick generates and injects traffic.
func (s *Source) Tick() bool {
	madeProgress := false

	if s.cycle < s.cycles {
		s.cycle++
		s.generate()

		madeProgress = true
	}

	madeProgress = s.inject() || madeProgress

	return madeProgress || len(s.pending) > 0
}

func (s *Source) generate() {
	if s.rng.Float64() >= s.injectionRate {
		return
	}

	dst := s.pattern.Destination(s.node, s.rng)
	if dst < 0 {
		return
	}

	b := packet.MakeBuilder().
		WithSource(s.node, s.net.Coord(s.node)).
		WithDestination(dst, s.net.Coord(dst)).
		WithDataFlitCount(s.dataFlitCount).
		WithFlitSize(s.flitSize).
		WithSendTime(s.CurrentTime())
	if s.net.IsTorus() {
		b = b.WithTorus(s.net.Size())
	}

	s.pending = append(s.pending, b.BuildMessage()...)
	s.numCreated++
}

func (s *Source) inject() bool {
	if len(s.pending) == 0 {
		return false
	}

	if !s.port.Send(s.pending[0]) {
		return false
	}

	s.pending = s.pending[1:]
	s.numSent++

	return true
}

// SourceBuilder can build traffic sources.
type SourceBuilder struct {
	engine        sim.Engine
	freq          sim.Freq
	net           *networking.Network
	pattern       Pattern
	injectionRate float64
	dataFlitCount int
	flitSize      int
	cycles        int
	seed          int64
}

// MakeSourceBuilder creates a SourceBuilder with 1 GHz, 16-byte flits and an
// injection rate of 0.1.
func MakeSourceBuilder() SourceBuilder {
	return SourceBuilder{
		freq:          1 * sim.GHz,
		injectionRate: 0.1,
		flitSize:      16,
		cycles:        1000,
	}
}

// WithEngine sets the engine.
func (b SourceBuilder) WithEngine(engine sim.Engine) SourceBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency at which messages are generated.
func (b SourceBuilder) WithFreq(freq sim.Freq) SourceBuilder {
	b.freq = freq
	return b
}

// WithNetwork sets the network to inject into.
func (b SourceBuilder) WithNetwork(net *networking.Network) SourceBuilder {
	b.net = net
	return b
}

// WithPattern sets how destinations are chosen.
func (b SourceBuilder) WithPattern(p Pattern) SourceBuilder {
	b.pattern = p
	return b
}

// WithInjectionRate sets the probability of starting a message in a cycle.
func (b SourceBuilder) WithInjectionRate(rate float64) SourceBuilder {
	b.injectionRate = rate
	return b
}

// WithDataFlitCount sets how many DATA flits follow every HEAD flit.
func (b SourceBuilder) WithDataFlitCount(n int) SourceBuilder {
	b.dataFlitCount = n
	return b
}

// WithFlitSize sets the size of every flit in bytes.
func (b SourceBuilder) WithFlitSize(bytes int) SourceBuilder {
	b.flitSize = bytes
	return b
}

// WithCycles sets for how many cycles messages are generated.
func (b SourceBuilder) WithCycles(n int) SourceBuilder {
	b.cycles = n
	return b
}

// WithSeed seeds the random number generator of the source.
func (b SourceBuilder) WithSeed(seed int64) SourceBuilder {
	b.seed = seed
	return b
}

// Build creates a source for a node.
func (b SourceBuilder) Build(name string, node int) *Source {
	if b.engine == nil || b.net == nil || b.pattern == nil {
		panic("traffic source requires an engine, a network and a pattern")
	}

	if b.injectionRate < 0 || b.injectionRate > 1 {
		panic("injection rate must be in [0, 1]")
	}

	port := b.net.Router(node).LocalPort()
	if port == nil {
		panic("node has no local port")
	}

	s := &Source{
		net:           b.net,
		node:          node,
		port:          port,
		pattern:       b.pattern,
		rng:           rand.New(rand.NewSource(b.seed)),
		injectionRate: b.injectionRate,
		dataFlitCount: b.dataFlitCount,
		flitSize:      b.flitSize,
		cycles:        b.cycles,
	}
	s.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, s)

	return s
}
