// Package channel provides the links that connect ports of neighbouring
// routers.
package channel

import (
	"fmt"
	"log"

	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// State is the state of a channel.
type State int

// A channel moves IDLE -> TRANSMITTING -> PROPAGATING -> IDLE.
const (
	StateIdle State = iota
	StateTransmitting
	StatePropagating
)

func (s State) String() string {
	switch s {
	case StateTransmitting:
		return "TRANSMITTING"
	case StatePropagating:
		return "PROPAGATING"
	default:
		return "IDLE"
	}
}

// HookPosStateChange marks a transition of the channel state machine. The
// Item is the in-flight packet and the Detail is the new State.
var HookPosStateChange = &sim.HookPos{Name: "Channel State Change"}

// An Endpoint is something that can receive packets from a channel.
type Endpoint interface {
	// Receive is called once per copy of the packet. to is the port the
	// sender addressed; other receivers only overhear the packet.
	Receive(pkt *packet.Packet, from, to int)
}

// A Resolver finds the endpoint that owns a port ID.
type Resolver interface {
	Endpoint(portID int) Endpoint
}

// A Channel is a link shared by the ports attached to it. It carries at most
// one packet at a time.
type Channel struct {
	sim.HookableBase

	id       int
	name     string
	engine   sim.Engine
	resolver Resolver

	delay     sim.VTimeInSec
	bandwidth float64

	ports []int

	state             State
	inFlight          *packet.Packet
	sender            int
	sent              bool
	pendingDeliveries int
}

// ID returns the index of the channel in its network.
func (c *Channel) ID() int {
	return c.id
}

// Name returns the name of the channel.
func (c *Channel) Name() string {
	return c.name
}

// Delay returns the propagation delay.
func (c *Channel) Delay() sim.VTimeInSec {
	return c.delay
}

// Bandwidth returns the bandwidth in bits per second. 0 means unlimited.
func (c *Channel) Bandwidth() float64 {
	return c.bandwidth
}

// State returns the current state.
func (c *Channel) State() State {
	return c.state
}

// IsIdle returns true if a transmission can start.
func (c *Channel) IsIdle() bool {
	return c.state == StateIdle
}

// InFlight returns the packet that is on the channel, or nil.
func (c *Channel) InFlight() *packet.Packet {
	return c.inFlight
}

// Ports returns the IDs of the attached ports.
func (c *Channel) Ports() []int {
	return c.ports
}

// Attach registers a port on the channel.
func (c *Channel) Attach(portID int) {
	for _, p := range c.ports {
		if p == portID {
			panic(fmt.Sprintf("port %d already attached to %s", portID, c.name))
		}
	}

	c.ports = append(c.ports, portID)
}

// IsAttached returns true if the port is attached to the channel.
func (c *Channel) IsAttached(portID int) bool {
	for _, p := range c.ports {
		if p == portID {
			return true
		}
	}

	return false
}

// PeerOf returns the first attached port that is not the given port, or -1.
func (c *Channel) PeerOf(portID int) int {
	for _, p := range c.ports {
		if p != portID {
			return p
		}
	}

	return -1
}

// TransmissionTime returns how long it takes to put the packet on the wire.
func (c *Channel) TransmissionTime(pkt *packet.Packet) sim.VTimeInSec {
	if c.bandwidth <= 0 {
		return 0
	}

	return sim.VTimeInSec(float64(pkt.Size*8) / c.bandwidth)
}

// TransmitStart occupies the channel with the packet. It returns false and
// leaves the channel untouched if another packet is in flight.
func (c *Channel) TransmitStart(sender int, pkt *packet.Packet) bool {
	if c.state != StateIdle {
		return false
	}

	if !c.IsAttached(sender) {
		log.Panicf("port %d is not attached to %s", sender, c.name)
	}

	c.inFlight = pkt
	c.sender = sender
	c.sent = false
	c.setState(StateTransmitting)

	return true
}

// Send delivers the in-flight packet to every attached port except the
// sender, after the transmission time and the propagation delay. It must
// directly follow a successful TransmitStart from the same sender.
func (c *Channel) Send(to, from int) {
	if c.state != StateTransmitting || c.sent || from != c.sender {
		log.Panicf("%s: send from %d without a matching TransmitStart",
			c.name, from)
	}

	if !c.IsAttached(to) || to == from {
		log.Panicf("%s: port %d is not a valid receiver", c.name, to)
	}

	c.sent = true

	now := c.engine.CurrentTime()
	txDone := now + c.TransmissionTime(c.inFlight)
	c.engine.Schedule(propagateEvent{sim.NewEventBase(txDone, c)})

	for _, p := range c.ports {
		if p == from {
			continue
		}

		pkt := c.inFlight
		if p != to {
			pkt = c.inFlight.Clone()
		}

		c.pendingDeliveries++
		c.engine.Schedule(deliverEvent{
			EventBase: sim.NewEventBase(txDone+c.delay, c),
			pkt:       pkt,
			from:      from,
			to:        to,
			receiver:  p,
		})
	}
}

// Handle moves the state machine forward.
func (c *Channel) Handle(e sim.Event) error {
	switch e := e.(type) {
	case propagateEvent:
		c.setState(StatePropagating)
	case deliverEvent:
		c.deliver(e)
	default:
		log.Panicf("%s cannot handle event of type %T", c.name, e)
	}

	return nil
}

func (c *Channel) deliver(e deliverEvent) {
	e.pkt.RecvTime = e.Time()
	c.resolver.Endpoint(e.receiver).Receive(e.pkt, e.from, e.to)

	c.pendingDeliveries--
	if c.pendingDeliveries == 0 {
		c.setState(StateIdle)
		c.inFlight = nil
	}
}

func (c *Channel) setState(s State) {
	c.state = s

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosStateChange,
			Item:   c.inFlight,
			Detail: s,
		})
	}
}

type propagateEvent struct {
	*sim.EventBase
}

type deliverEvent struct {
	*sim.EventBase
	pkt      *packet.Packet
	from, to int
	receiver int
}
