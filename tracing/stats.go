package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/nocsim/sim"
)

// RouterStats counts the flits that went through one router.
type RouterStats struct {
	Name          string
	FlitsSent     uint64
	FlitsReceived uint64
	Blocked       uint64
	FlitsDropped  uint64
}

// Summary is a snapshot of the statistics collected so far.
type Summary struct {
	MessagesInjected uint64
	MessagesReceived uint64
	FlitsInjected    uint64
	FlitsSent        uint64
	FlitsReceived    uint64
	Blocked          uint64
	FlitsDropped     uint64

	// AverageLatency is measured from the creation of a message to the
	// delivery of its last flit.
	AverageLatency sim.VTimeInSec
	AverageHops    float64

	Routers []RouterStats
}

type inflightMessage struct {
	remaining int
	sendTime  sim.VTimeInSec
	hops      int
}

// StatsCollector aggregates flit events into network statistics. It can be
// read while the simulation is running.
type StatsCollector struct {
	lock sync.Mutex

	summary      Summary
	totalLatency sim.VTimeInSec
	totalHops    uint64
	routers      map[string]*RouterStats
	inflight     map[string]*inflightMessage
}

// NewStatsCollector creates a new StatsCollector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		routers:  make(map[string]*RouterStats),
		inflight: make(map[string]*inflightMessage),
	}
}

// InjectPacket counts a flit accepted from a traffic source.
func (c *StatsCollector) InjectPacket(evt PacketEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.summary.FlitsInjected++
	if evt.Packet.IsHead() {
		c.summary.MessagesInjected++
	}
}

// SendPacket counts a flit put on a channel.
func (c *StatsCollector) SendPacket(evt PacketEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.summary.FlitsSent++
	c.router(evt).FlitsSent++
}

// ReceivePacket counts a delivered flit and completes its message when the
// last flit arrives.
func (c *StatsCollector) ReceivePacket(evt PacketEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.summary.FlitsReceived++
	c.router(evt).FlitsReceived++

	pkt := evt.Packet
	if pkt.IsHead() {
		c.inflight[pkt.MessageID] = &inflightMessage{
			remaining: pkt.MessageLength(),
			sendTime:  pkt.SendTime,
			hops:      pkt.Hops,
		}
	}

	msg, ok := c.inflight[pkt.MessageID]
	if !ok {
		return
	}

	msg.remaining--
	if msg.remaining > 0 {
		return
	}

	delete(c.inflight, pkt.MessageID)

	c.summary.MessagesReceived++
	c.totalLatency += evt.Time - msg.sendTime
	c.totalHops += uint64(msg.hops)
}

// BlockPacket counts a held HEAD flit.
func (c *StatsCollector) BlockPacket(evt PacketEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.summary.Blocked++
	c.router(evt).Blocked++
}

// DropPacket counts a dropped flit.
func (c *StatsCollector) DropPacket(evt PacketEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.summary.FlitsDropped++
	c.router(evt).FlitsDropped++
	delete(c.inflight, evt.Packet.MessageID)
}

func (c *StatsCollector) router(evt PacketEvent) *RouterStats {
	name := evt.RouterName()

	r, ok := c.routers[name]
	if !ok {
		r = &RouterStats{Name: name}
		c.routers[name] = r
	}

	return r
}

// Summary returns a copy of the statistics. Routers are sorted by name.
func (c *StatsCollector) Summary() Summary {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := c.summary
	if s.MessagesReceived > 0 {
		s.AverageLatency = c.totalLatency / sim.VTimeInSec(s.MessagesReceived)
		s.AverageHops = float64(c.totalHops) / float64(s.MessagesReceived)
	}

	s.Routers = make([]RouterStats, 0, len(c.routers))
	for _, r := range c.routers {
		s.Routers = append(s.Routers, *r)
	}

	sort.Slice(s.Routers, func(i, j int) bool {
		return s.Routers[i].Name < s.Routers[j].Name
	})

	return s
}
