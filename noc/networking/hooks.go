package networking

import "github.com/sarchlab/nocsim/sim"

// Hook positions fired by ports. The Item of the HookCtx is always the
// *packet.Packet involved.
var (
	// HookPosPacketInjected marks a packet accepted from a traffic source.
	HookPosPacketInjected = &sim.HookPos{Name: "Packet Injected"}

	// HookPosPacketSent marks a packet put on a channel.
	HookPosPacketSent = &sim.HookPos{Name: "Packet Sent"}

	// HookPosPacketReceived marks a packet delivered at its destination.
	HookPosPacketReceived = &sim.HookPos{Name: "Packet Received"}

	// HookPosPacketBlocked marks a HEAD flit held by routing or flow control.
	HookPosPacketBlocked = &sim.HookPos{Name: "Packet Blocked"}

	// HookPosPacketDropped marks a flit dropped after too many retries or
	// because its message was caught in a deadlock.
	HookPosPacketDropped = &sim.HookPos{Name: "Packet Dropped"}
)
