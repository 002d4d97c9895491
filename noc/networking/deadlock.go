package networking

import "github.com/sarchlab/nocsim/sim"

// A DeadlockDetector watches a network for stalls. Progress is a flit being
// injected, put on a channel, delivered or dropped. If the network makes no
// progress for longer than the timeout, the messages at the head of every
// buffer are dropped.
//
// Register the detector on the ports of the network and on the engine, which
// drives the check after every event.
type DeadlockDetector struct {
	network *Network
	timeout sim.VTimeInSec

	lastProgress       sim.VTimeInSec
	numRecoveries      int
	numMessagesDropped int
}

// NewDeadlockDetector creates a detector that breaks stalls longer than
// timeout.
func NewDeadlockDetector(n *Network, timeout sim.VTimeInSec) *DeadlockDetector {
	if timeout <= 0 {
		panic("deadlock timeout must be positive")
	}

	return &DeadlockDetector{
		network: n,
		timeout: timeout,
	}
}

// Timeout returns how long the network may stall.
func (d *DeadlockDetector) Timeout() sim.VTimeInSec {
	return d.timeout
}

// NumRecoveries returns how many stalls were broken.
func (d *DeadlockDetector) NumRecoveries() int {
	return d.numRecoveries
}

// NumMessagesDropped returns how many messages were dropped to break stalls.
func (d *DeadlockDetector) NumMessagesDropped() int {
	return d.numMessagesDropped
}

// Func implements sim.Hook.
func (d *DeadlockDetector) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosPacketInjected, HookPosPacketSent,
		HookPosPacketReceived, HookPosPacketDropped:
		d.lastProgress = d.network.engine.CurrentTime()
	case sim.HookPosAfterEvent:
		d.check()
	}
}

func (d *DeadlockDetector) check() {
	now := d.network.engine.CurrentTime()
	if now-d.lastProgress <= d.timeout {
		return
	}

	d.lastProgress = now

	dropped := d.network.DropStalledMessages()
	if dropped == 0 {
		return
	}

	d.numRecoveries++
	d.numMessagesDropped += dropped
}
