// Package flowcontrol provides the switching protocols that admit flits into
// buffers.
package flowcontrol

import (
	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// Wormhole admits a flit when the next buffer has a free slot and the
// channel is idle.
type Wormhole struct{}

// NewWormhole creates a Wormhole protocol.
func NewWormhole() *Wormhole {
	return &Wormhole{}
}

// ApplyFlowControl implements networking.SwitchingProtocol.
func (w *Wormhole) ApplyFlowControl(
	pkt *packet.Packet,
	next sim.Buffer,
	ch *channel.Channel,
) bool {
	if channelBusy(ch) || !next.CanPush() {
		markBlocked(pkt)
		return false
	}

	return true
}

// VirtualCutThrough admits a HEAD flit only when the next buffer can hold
// the whole message. DATA flits need one free slot.
type VirtualCutThrough struct{}

// NewVirtualCutThrough creates a VirtualCutThrough protocol.
func NewVirtualCutThrough() *VirtualCutThrough {
	return &VirtualCutThrough{}
}

// ApplyFlowControl implements networking.SwitchingProtocol.
func (v *VirtualCutThrough) ApplyFlowControl(
	pkt *packet.Packet,
	next sim.Buffer,
	ch *channel.Channel,
) bool {
	if channelBusy(ch) {
		markBlocked(pkt)
		return false
	}

	need := 1
	if pkt.IsHead() {
		need = pkt.MessageLength()
	}

	if next.Capacity()-next.Size() < need {
		markBlocked(pkt)
		return false
	}

	return true
}

func channelBusy(ch *channel.Channel) bool {
	return ch != nil && !ch.IsIdle()
}

func markBlocked(pkt *packet.Packet) {
	if pkt.IsHead() {
		pkt.Blocked = true
	}
}
