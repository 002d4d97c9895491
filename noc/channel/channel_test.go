package channel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

type receivedCopy struct {
	pkt      *packet.Packet
	from, to int
	at       sim.VTimeInSec
}

type fakeEndpoint struct {
	engine   sim.Engine
	received []receivedCopy
}

func (e *fakeEndpoint) Receive(pkt *packet.Packet, from, to int) {
	e.received = append(e.received, receivedCopy{
		pkt: pkt, from: from, to: to, at: e.engine.CurrentTime(),
	})
}

type fakeResolver map[int]*fakeEndpoint

func (r fakeResolver) Endpoint(id int) Endpoint {
	return r[id]
}

type inFlightMonitor struct {
	busy    int
	maxBusy int
	states  []State
}

func (m *inFlightMonitor) Func(ctx sim.HookCtx) {
	s := ctx.Detail.(State)
	m.states = append(m.states, s)

	switch s {
	case StateTransmitting:
		m.busy++
	case StateIdle:
		m.busy--
	}

	if m.busy > m.maxBusy {
		m.maxBusy = m.busy
	}
}

func newFlit(size int) *packet.Packet {
	return packet.MakeBuilder().
		WithSource(0, []int{0}).
		WithDestination(1, []int{1}).
		WithFlitSize(size).
		Build()
}

var _ = Describe("Channel", func() {
	var (
		engine   *sim.SerialEngine
		resolver fakeResolver
		c        *Channel
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		resolver = fakeResolver{
			0: {engine: engine},
			1: {engine: engine},
			2: {engine: engine},
		}
		c = MakeBuilder().
			WithEngine(engine).
			WithResolver(resolver).
			WithDelay(2e-9).
			WithBandwidth(64e9).
			Build("Channel", 0)
		c.Attach(0)
		c.Attach(1)
	})

	It("should reject attaching the same port twice", func() {
		Expect(func() { c.Attach(0) }).To(Panic())
	})

	It("should find the peer of a port", func() {
		Expect(c.PeerOf(0)).To(Equal(1))
		Expect(c.PeerOf(1)).To(Equal(0))
	})

	It("should compute the transmission time", func() {
		Expect(c.TransmissionTime(newFlit(8))).To(
			BeNumerically("~", 1e-9, 1e-18))
	})

	It("should reject a second TransmitStart while busy", func() {
		Expect(c.TransmitStart(0, newFlit(8))).To(BeTrue())
		Expect(c.State()).To(Equal(StateTransmitting))

		Expect(c.TransmitStart(1, newFlit(8))).To(BeFalse())
		Expect(c.TransmitStart(0, newFlit(8))).To(BeFalse())
	})

	It("should reject back-to-back transmissions with no delay", func() {
		c = MakeBuilder().
			WithEngine(engine).
			WithResolver(resolver).
			Build("Instant", 1)
		c.Attach(0)
		c.Attach(1)

		Expect(c.TransmitStart(0, newFlit(8))).To(BeTrue())
		c.Send(1, 0)
		Expect(c.TransmitStart(0, newFlit(8))).To(BeFalse())

		Expect(engine.Run()).To(Succeed())
		Expect(c.IsIdle()).To(BeTrue())
		Expect(c.TransmitStart(0, newFlit(8))).To(BeTrue())
	})

	It("should walk through the state machine and deliver", func() {
		monitor := &inFlightMonitor{}
		c.AcceptHook(monitor)
		flit := newFlit(8)

		Expect(c.TransmitStart(0, flit)).To(BeTrue())
		c.Send(1, 0)
		Expect(engine.Run()).To(Succeed())

		Expect(monitor.states).To(Equal([]State{
			StateTransmitting, StatePropagating, StateIdle,
		}))
		Expect(c.InFlight()).To(BeNil())

		received := resolver[1].received
		Expect(received).To(HaveLen(1))
		Expect(received[0].pkt).To(BeIdenticalTo(flit))
		Expect(received[0].at).To(BeNumerically("~", 3e-9, 1e-18))
		Expect(flit.RecvTime).To(BeNumerically("~", 3e-9, 1e-18))
		Expect(resolver[0].received).To(BeEmpty())
	})

	It("should panic on Send without TransmitStart", func() {
		Expect(func() { c.Send(1, 0) }).To(Panic())
	})

	It("should panic on Send from another port", func() {
		c.TransmitStart(0, newFlit(8))
		Expect(func() { c.Send(0, 1) }).To(Panic())
	})

	It("should broadcast on a bus", func() {
		c.Attach(2)
		flit := newFlit(8)

		c.TransmitStart(0, flit)
		c.Send(2, 0)
		Expect(engine.Run()).To(Succeed())

		Expect(resolver[1].received).To(HaveLen(1))
		Expect(resolver[1].received[0].to).To(Equal(2))
		Expect(resolver[1].received[0].pkt).NotTo(BeIdenticalTo(flit))
		Expect(resolver[2].received).To(HaveLen(1))
		Expect(resolver[2].received[0].pkt).To(BeIdenticalTo(flit))
		Expect(c.IsIdle()).To(BeTrue())
	})

	It("should never carry two packets at once", func() {
		monitor := &inFlightMonitor{}
		c.AcceptHook(monitor)

		sender := &retryingSender{c: c, engine: engine, remaining: 20}
		engine.Schedule(retryEvent{sim.NewEventBase(0, sender)})
		other := &retryingSender{c: c, engine: engine, remaining: 20, id: 1}
		engine.Schedule(retryEvent{sim.NewEventBase(0, other)})

		Expect(engine.Run()).To(Succeed())

		Expect(monitor.maxBusy).To(Equal(1))
		Expect(sender.remaining + other.remaining).To(Equal(0))
	})
})

type retryEvent struct {
	*sim.EventBase
}

type retryingSender struct {
	c         *Channel
	engine    sim.Engine
	id        int
	remaining int
}

func (s *retryingSender) Handle(_ sim.Event) error {
	if s.remaining == 0 {
		return nil
	}

	if s.c.TransmitStart(s.id, newFlit(8)) {
		s.c.Send(s.c.PeerOf(s.id), s.id)
		s.remaining--
	}

	next := s.engine.CurrentTime() + 0.5e-9
	s.engine.Schedule(retryEvent{sim.NewEventBase(next, s)})

	return nil
}
