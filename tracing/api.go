// Package tracing observes the flits that travel through a network and turns
// the observations into statistics, database records, and logs.
package tracing

import (
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
	Hooks() []sim.Hook
}

// EventKind tells what happened to a flit.
type EventKind int

// A list of things that can happen to a flit.
const (
	EventInjected EventKind = iota
	EventSent
	EventReceived
	EventBlocked
	EventDropped
)

func (k EventKind) String() string {
	switch k {
	case EventInjected:
		return "injected"
	case EventSent:
		return "sent"
	case EventReceived:
		return "received"
	case EventBlocked:
		return "blocked"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// A PacketEvent is one observation of a flit at a port.
type PacketEvent struct {
	Kind   EventKind
	Time   sim.VTimeInSec
	Port   *networking.Port
	Packet *packet.Packet
}

// Where returns the name of the port that observed the flit.
func (e PacketEvent) Where() string {
	if e.Port == nil {
		return ""
	}

	return e.Port.Name()
}

// RouterName returns the name of the router that owns the port.
func (e PacketEvent) RouterName() string {
	if e.Port == nil || e.Port.Router() == nil {
		return ""
	}

	return e.Port.Router().Name()
}

var kindOfPos = map[*sim.HookPos]EventKind{
	networking.HookPosPacketInjected: EventInjected,
	networking.HookPosPacketSent:     EventSent,
	networking.HookPosPacketReceived: EventReceived,
	networking.HookPosPacketBlocked:  EventBlocked,
	networking.HookPosPacketDropped:  EventDropped,
}
