package channel

import (
	"github.com/sarchlab/nocsim/sim"
)

// Builder can build channels.
type Builder struct {
	engine    sim.Engine
	resolver  Resolver
	delay     sim.VTimeInSec
	bandwidth float64
}

// MakeBuilder creates a Builder with no delay and unlimited bandwidth.
func MakeBuilder() Builder {
	return Builder{}
}

// WithEngine sets the engine that the channel schedules its events on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithResolver sets how the channel finds the ports it delivers to.
func (b Builder) WithResolver(r Resolver) Builder {
	b.resolver = r
	return b
}

// WithDelay sets the propagation delay.
func (b Builder) WithDelay(d sim.VTimeInSec) Builder {
	b.delay = d
	return b
}

// WithBandwidth sets the bandwidth in bits per second.
func (b Builder) WithBandwidth(bitsPerSecond float64) Builder {
	b.bandwidth = bitsPerSecond
	return b
}

// Build creates a new channel.
func (b Builder) Build(name string, id int) *Channel {
	if b.engine == nil {
		panic("channel requires an engine")
	}

	if b.resolver == nil {
		panic("channel requires a resolver")
	}

	if b.delay < 0 {
		panic("channel delay cannot be negative")
	}

	return &Channel{
		id:        id,
		name:      name,
		engine:    b.engine,
		resolver:  b.resolver,
		delay:     b.delay,
		bandwidth: b.bandwidth,
		state:     StateIdle,
		sender:    -1,
	}
}
