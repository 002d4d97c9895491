package networking

import (
	"log"

	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// A Port is the network interface between a router and a channel. It buffers
// the flits that arrive from the channel and drains them toward the next hop
// in a self-rescheduling loop.
//
// A port without a channel is a local port. Traffic sources inject into it
// with Send.
type Port struct {
	sim.HookableBase

	id        int
	name      string
	router    *Router
	network   *Network
	channelID int
	viaPortID int

	direction packet.Direction
	dimension int

	inQueue  sim.Buffer
	outQueue sim.Buffer

	synchronous     bool
	freq            sim.Freq
	dataFlitSpeedup int
	retryInterval   sim.VTimeInSec
	maxRetries      int

	pendingDrain           sim.Event
	lastScheduledEventTime sim.VTimeInSec
	lastDrainTime          sim.VTimeInSec
	hasDrained             bool
	disabled               bool

	route          *Route
	remainingFlits int
	retries        int

	deliverMessage   string
	deliverRemaining int

	numDropped int
}

// staged is a flit waiting in an output queue with the input port of the next
// router it is heading to.
type staged struct {
	pkt *packet.Packet
	dst *Port
}

type drainEvent struct {
	*sim.EventBase
}

// ID returns the index of the port in the network.
func (p *Port) ID() int {
	return p.id
}

// Name returns the name of the port.
func (p *Port) Name() string {
	return p.name
}

// Router returns the router that owns the port.
func (p *Port) Router() *Router {
	return p.router
}

// Node returns the node ID of the owning router.
func (p *Port) Node() int {
	return p.router.id
}

// Direction returns the direction the port faces.
func (p *Port) Direction() packet.Direction {
	return p.direction
}

// Dimension returns the dimension the port faces, or -1 for a local port.
func (p *Port) Dimension() int {
	return p.dimension
}

// InQueue returns the inbound buffer.
func (p *Port) InQueue() sim.Buffer {
	return p.inQueue
}

// OutQueue returns the outbound buffer, or nil if the port transmits directly
// from the input ports of its router.
func (p *Port) OutQueue() sim.Buffer {
	return p.outQueue
}

// IsLocal returns true for the injection port of a node.
func (p *Port) IsLocal() bool {
	return p.direction == packet.DirectionNone && p.channelID < 0 &&
		p.viaPortID < 0
}

// IsConnected returns true if the port can transmit on a channel, either its
// own or the one of its via port.
func (p *Port) IsConnected() bool {
	return p.Channel() != nil
}

// Channel returns the channel the port transmits on, or nil. A port with a
// via port transmits on the via port's channel.
func (p *Port) Channel() *channel.Channel {
	if p.viaPortID >= 0 {
		return p.network.Port(p.viaPortID).Channel()
	}

	if p.channelID < 0 {
		return nil
	}

	return p.network.Channel(p.channelID)
}

// SetViaPort makes the port transmit through another port's channel.
func (p *Port) SetViaPort(via *Port) {
	if via == p {
		log.Panicf("port %s cannot be its own via port", p.name)
	}

	p.viaPortID = via.id
}

// NumDropped returns how many flits the port dropped.
func (p *Port) NumDropped() int {
	return p.numDropped
}

func (p *Port) senderID() int {
	if p.viaPortID >= 0 {
		return p.viaPortID
	}

	return p.id
}

func (p *Port) engine() sim.Engine {
	return p.network.engine
}

func (p *Port) now() sim.VTimeInSec {
	return p.network.engine.CurrentTime()
}

// Send injects a flit from a traffic source. It returns false if flow
// control rejects the flit. The caller should retry later.
func (p *Port) Send(pkt *packet.Packet) bool {
	pkt.MustHaveHeader()

	if p.deliverIfArrived(pkt) {
		return true
	}

	if !p.router.switching.ApplyFlowControl(pkt, p.inQueue, nil) {
		if pkt.IsHead() {
			p.invoke(HookPosPacketBlocked, pkt)
		}

		return false
	}

	p.inQueue.Push(pkt)
	p.invoke(HookPosPacketInjected, pkt)
	p.scheduleDrain(p.firstAttemptTime())

	return true
}

// Receive is called by the channel when a flit arrives.
func (p *Port) Receive(pkt *packet.Packet, _, to int) {
	if to != p.id {
		return
	}

	if pkt.IsHead() {
		pkt.MustHaveHeader()
		p.router.recordLoad(p, pkt.Header.LoadFeedback())
	}

	if p.deliverIfArrived(pkt) {
		return
	}

	if !p.inQueue.CanPush() {
		log.Panicf("flit %s overflows %s", pkt.ID, p.inQueue.Name())
	}

	p.inQueue.Push(pkt)
	p.scheduleDrain(p.arrivalAttemptTime())
}

func (p *Port) deliverIfArrived(pkt *packet.Packet) bool {
	if pkt.IsHead() {
		if !pkt.Header.Arrived() {
			return false
		}

		if pkt.Destination != p.Node() {
			log.Panicf("flit %s for node %d arrived at node %d",
				pkt.ID, pkt.Destination, p.Node())
		}

		p.deliverMessage = pkt.MessageID
		p.deliverRemaining = pkt.Header.DataFlitCount()
		p.router.Deliver(p, pkt)

		return true
	}

	if p.deliverRemaining == 0 || pkt.MessageID != p.deliverMessage {
		return false
	}

	p.deliverRemaining--
	p.router.Deliver(p, pkt)

	return true
}

// Handle drains the buffers of the port.
func (p *Port) Handle(e sim.Event) error {
	evt, ok := e.(drainEvent)
	if !ok {
		log.Panicf("port %s cannot handle event of type %T", p.name, e)
	}

	if p.pendingDrain == nil || p.pendingDrain.ID() != evt.ID() {
		return nil
	}

	p.pendingDrain = nil
	p.lastDrainTime = evt.Time()
	p.hasDrained = true

	if p.disabled {
		return nil
	}

	next := sim.VTimeInSec(-1)

	if p.outQueue != nil && p.outQueue.Size() > 0 {
		next = earliest(next, p.drainOutQueue())
	}

	if p.inQueue.Size() > 0 {
		next = earliest(next, p.drainInQueue())
	}

	if next >= 0 {
		p.scheduleDrain(next)
	}

	return nil
}

func (p *Port) drainOutQueue() sim.VTimeInSec {
	item := p.outQueue.Peek().(staged)

	if p.network.IsDropping(item.pkt) {
		p.outQueue.Pop()
		p.drop(item.pkt)

		return p.nextAttemptTime(item.pkt, nil)
	}

	if !p.transmit(item.pkt, item.dst) {
		return p.nextAttemptTime(item.pkt, p.Channel())
	}

	p.outQueue.Pop()

	return p.nextAttemptTime(item.pkt, p.Channel())
}

func (p *Port) drainInQueue() sim.VTimeInSec {
	pkt := p.inQueue.Peek().(*packet.Packet)

	if p.network.IsDropping(pkt) {
		p.discard(pkt)
		return p.nextAttemptTime(pkt, nil)
	}

	if p.synchronous && pkt.IsHead() {
		if edge := p.freq.ThisTick(p.now()); edge > p.now() {
			return edge
		}
	}

	route := p.routeFor(pkt)
	if route == nil {
		return p.hold(pkt, nil)
	}

	if !p.forward(pkt, route) {
		return p.hold(pkt, route.SourcePort.Channel())
	}

	p.inQueue.Pop()
	p.retries = 0

	if !pkt.IsHead() {
		p.remainingFlits--
	}

	if p.remainingFlits == 0 {
		p.router.release(route.SourcePort, p)
		p.route = nil
	}

	return p.nextAttemptTime(pkt, route.SourcePort.Channel())
}

func (p *Port) routeFor(pkt *packet.Packet) *Route {
	if !pkt.IsHead() {
		if p.route == nil {
			log.Panicf("DATA flit %s has no route at %s", pkt.ID, p.name)
		}

		return p.route
	}

	if p.route != nil {
		if p.route.Packet != pkt {
			log.Panicf("HEAD flit %s at %s while %s still holds a route",
				pkt.ID, p.name, p.route.Packet.ID)
		}

		return p.route
	}

	route := p.router.RequestRoute(p, pkt)
	if route == nil {
		return nil
	}

	p.route = route
	p.remainingFlits = pkt.Header.DataFlitCount()

	return route
}

func (p *Port) forward(pkt *packet.Packet, route *Route) bool {
	out := route.SourcePort

	if out.outQueue == nil {
		return out.transmit(pkt, route.DestinationPort)
	}

	if !out.outQueue.CanPush() {
		return false
	}

	out.outQueue.Push(staged{pkt: pkt, dst: route.DestinationPort})
	out.scheduleDrain(out.firstAttemptTime())

	return true
}

func (p *Port) transmit(pkt *packet.Packet, dst *Port) bool {
	ch := p.Channel()

	if !p.router.switching.ApplyFlowControl(pkt, dst.inQueue, ch) {
		return false
	}

	sender := p.senderID()
	if !ch.TransmitStart(sender, pkt) {
		return false
	}

	ch.Send(dst.id, sender)
	pkt.Hops++
	p.invoke(HookPosPacketSent, pkt)

	return true
}

func (p *Port) hold(pkt *packet.Packet, ch *channel.Channel) sim.VTimeInSec {
	if !pkt.IsHead() {
		return p.nextAttemptTime(pkt, ch)
	}

	p.invoke(HookPosPacketBlocked, pkt)

	p.retries++
	if p.maxRetries > 0 && p.retries > p.maxRetries {
		p.dropMessage(pkt)
	}

	return p.nextAttemptTime(pkt, ch)
}

// dropMessage drops a blocked HEAD flit. Its DATA flits are dropped as they
// reach the head of a buffer.
func (p *Port) dropMessage(head *packet.Packet) {
	p.network.doom(head)
	p.discard(head)
}

// discard drops the flit at the head of the inbound buffer.
func (p *Port) discard(pkt *packet.Packet) {
	p.inQueue.Pop()
	p.retries = 0
	p.drop(pkt)
}

// abandon releases the route and the delivery that a dropped message holds.
// Its remaining flits may never reach the port.
func (p *Port) abandon(messageID string) {
	if p.route != nil && p.route.Packet.MessageID == messageID {
		p.router.release(p.route.SourcePort, p)
		p.route = nil
		p.remainingFlits = 0
		p.retries = 0
	}

	if p.deliverMessage == messageID {
		p.deliverRemaining = 0
	}
}

func (p *Port) drop(pkt *packet.Packet) {
	p.numDropped++
	p.invoke(HookPosPacketDropped, pkt)
}

func (p *Port) firstAttemptTime() sim.VTimeInSec {
	now := p.now()
	if p.synchronous {
		return p.freq.ThisTick(now)
	}

	return now
}

// arrivalAttemptTime returns when a flit that just arrived from a channel
// is first considered. In synchronous mode a hop takes at least one cycle.
func (p *Port) arrivalAttemptTime() sim.VTimeInSec {
	now := p.now()
	if p.synchronous {
		return p.freq.NextTick(now)
	}

	return now
}

// nextAttemptTime returns when the drain loop fires again after handling
// pkt. In synchronous mode HEAD flits move on clock edges while DATA flits
// move on sub-cycles. Otherwise the loop waits until the channel can be
// reused.
func (p *Port) nextAttemptTime(
	pkt *packet.Packet,
	ch *channel.Channel,
) sim.VTimeInSec {
	now := p.now()

	if p.synchronous {
		if !pkt.IsHead() && p.dataFlitSpeedup > 1 {
			return p.freq.SubTick(now, p.dataFlitSpeedup)
		}

		return p.freq.NextTick(now)
	}

	next := now
	if ch != nil {
		next = now + ch.TransmissionTime(pkt) + ch.Delay()
	}

	if next <= now {
		next = now + p.retryInterval
	}

	return next
}

func (p *Port) scheduleDrain(t sim.VTimeInSec) {
	if p.disabled {
		return
	}

	if p.hasDrained && t <= p.lastDrainTime {
		t = p.nextAttemptAfter(p.lastDrainTime)
	}

	if p.pendingDrain != nil {
		if p.lastScheduledEventTime <= t {
			return
		}

		p.engine().Cancel(p.pendingDrain)
		p.pendingDrain = nil
	}

	evt := drainEvent{EventBase: sim.NewEventBase(t, p)}
	p.pendingDrain = evt
	p.lastScheduledEventTime = t
	p.engine().Schedule(evt)
}

func (p *Port) nextAttemptAfter(t sim.VTimeInSec) sim.VTimeInSec {
	if p.synchronous {
		return p.freq.NextTick(t)
	}

	return t + p.retryInterval
}

// Disable stops the drain loop. Flits already buffered stay in place.
func (p *Port) Disable() {
	p.disabled = true

	if p.pendingDrain != nil {
		p.engine().Cancel(p.pendingDrain)
		p.pendingDrain = nil
	}
}

// Enable restarts a disabled drain loop.
func (p *Port) Enable() {
	if !p.disabled {
		return
	}

	p.disabled = false

	if p.inQueue.Size() > 0 || (p.outQueue != nil && p.outQueue.Size() > 0) {
		p.scheduleDrain(p.firstAttemptTime())
	}
}

// Dispose releases the port. No event of the port fires afterward.
func (p *Port) Dispose() {
	p.Disable()
	p.inQueue.Clear()

	if p.outQueue != nil {
		p.outQueue.Clear()
	}

	if p.route != nil {
		p.router.release(p.route.SourcePort, p)
		p.route = nil
	}
}

// IsDisabled returns true if the drain loop is stopped.
func (p *Port) IsDisabled() bool {
	return p.disabled
}

// CurrentRoute returns the route held by the message at the head of the
// inbound buffer, or nil.
func (p *Port) CurrentRoute() *Route {
	return p.route
}

// LastScheduledEventTime returns the time of the latest drain attempt that
// the port scheduled.
func (p *Port) LastScheduledEventTime() sim.VTimeInSec {
	return p.lastScheduledEventTime
}

// HasPendingDrain returns true if a drain attempt is scheduled.
func (p *Port) HasPendingDrain() bool {
	return p.pendingDrain != nil
}

func (p *Port) invoke(pos *sim.HookPos, pkt *packet.Packet) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   pkt,
	})
}

func earliest(a, b sim.VTimeInSec) sim.VTimeInSec {
	if a < 0 || b < a {
		return b
	}

	return a
}
