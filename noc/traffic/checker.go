package traffic

import (
	"log"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// Checker verifies that every injected flit is delivered exactly once, at
// its destination. Attach it to all the ports of a network.
type Checker struct {
	injected  []*packet.Packet
	delivered map[*packet.Packet]bool
	dropped   map[*packet.Packet]bool
}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{
		delivered: make(map[*packet.Packet]bool),
		dropped:   make(map[*packet.Packet]bool),
	}
}

// Func implements sim.Hook.
func (c *Checker) Func(ctx sim.HookCtx) {
	pkt, ok := ctx.Item.(*packet.Packet)
	if !ok {
		return
	}

	switch ctx.Pos {
	case networking.HookPosPacketInjected:
		c.injected = append(c.injected, pkt)
	case networking.HookPosPacketReceived:
		port, isPort := ctx.Domain.(*networking.Port)
		if !isPort {
			return
		}

		c.receive(pkt, port)
	case networking.HookPosPacketDropped:
		c.dropped[pkt] = true
	}
}

func (c *Checker) receive(pkt *packet.Packet, port *networking.Port) {
	if pkt.Destination != port.Node() {
		log.Panicf("flit %s delivered to node %d instead of %d",
			pkt.ID, port.Node(), pkt.Destination)
	}

	if c.delivered[pkt] {
		log.Panicf("flit %s is delivered twice", pkt.ID)
	}

	c.delivered[pkt] = true
}

// NumInjected returns how many flits entered the network.
func (c *Checker) NumInjected() int {
	return len(c.injected)
}

// NumDelivered returns how many flits reached their destination.
func (c *Checker) NumDelivered() int {
	return len(c.delivered)
}

// MustHaveDeliveredAll panics if an injected flit was neither delivered nor
// dropped.
func (c *Checker) MustHaveDeliveredAll() {
	missing := 0

	for _, pkt := range c.injected {
		if c.delivered[pkt] || c.dropped[pkt] {
			continue
		}

		log.Printf("flit %s expected, but not delivered\n", pkt.ID)

		missing++
	}

	if missing > 0 {
		log.Panicf("%d flits are lost", missing)
	}
}
