package networking_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// drainWatcher fails the test if a port ever handles two drain attempts at
// the same time.
type drainWatcher struct {
	seen       map[string]bool
	duplicates []string
}

func (w *drainWatcher) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBeforeEvent {
		return
	}

	evt := ctx.Item.(sim.Event)

	p, ok := evt.Handler().(*networking.Port)
	if !ok {
		return
	}

	key := fmt.Sprintf("%s@%.15e", p.Name(), evt.Time())
	if w.seen[key] {
		w.duplicates = append(w.duplicates, key)
	}

	w.seen[key] = true
}

var _ = Describe("Port", func() {
	var (
		engine   *sim.SerialEngine
		net      *networking.Network
		recorder *packetRecorder
	)

	Context("when routing never succeeds", func() {
		var local *networking.Port

		BeforeEach(func() {
			engine = sim.NewSerialEngine()
			net = mesh.NewConnector().
				WithEngine(engine).
				WithDimensions(2, 1).
				WithRoutingFactory(func(int) networking.RoutingProtocol {
					return blockAll{}
				}).
				WithMaxRetries(2).
				Build("Net")

			recorder = newPacketRecorder()
			net.AcceptPortHook(recorder)
			local = net.Router(0).LocalPort()
		})

		It("should reject the fifth flit of a 4-flit buffer", func() {
			for i := 0; i < 4; i++ {
				head := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]
				Expect(local.Send(head)).To(BeTrue())
			}

			fifth := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]

			Expect(local.Send(fifth)).To(BeFalse())
			Expect(local.InQueue().Size()).To(Equal(4))
			Expect(fifth.Blocked).To(BeTrue())
			Expect(recorder.count(networking.HookPosPacketInjected)).To(Equal(4))
			Expect(recorder.count(networking.HookPosPacketBlocked)).To(Equal(1))
		})

		It("should drop the message after too many retries", func() {
			for _, f := range message(0, []int{0, 0}, 1, []int{1, 0}, 2) {
				Expect(local.Send(f)).To(BeTrue())
			}

			Expect(engine.Run()).To(Succeed())

			Expect(local.InQueue().Size()).To(Equal(0))
			Expect(local.NumDropped()).To(Equal(3))
			Expect(recorder.count(networking.HookPosPacketDropped)).To(Equal(3))
			Expect(recorder.count(networking.HookPosPacketBlocked)).To(Equal(3))
			Expect(recorder.count(networking.HookPosPacketSent)).To(Equal(0))
			Expect(local.HasPendingDrain()).To(BeFalse())
		})

		It("should stop draining when disabled", func() {
			head := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]
			local.Send(head)
			Expect(local.HasPendingDrain()).To(BeTrue())

			local.Disable()
			local.Disable()

			Expect(local.HasPendingDrain()).To(BeFalse())
			Expect(engine.Run()).To(Succeed())
			Expect(local.InQueue().Size()).To(Equal(1))
			Expect(recorder.count(networking.HookPosPacketBlocked)).To(Equal(0))
		})

		It("should not fire after being disposed", func() {
			head := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]
			local.Send(head)

			local.Dispose()

			Expect(engine.Run()).To(Succeed())
			Expect(local.IsDisabled()).To(BeTrue())
			Expect(local.InQueue().Size()).To(Equal(0))
			Expect(recorder.count(networking.HookPosPacketBlocked)).To(Equal(0))
		})
	})

	Context("on a mesh", func() {
		BeforeEach(func() {
			engine = sim.NewSerialEngine()
			net = mesh.NewConnector().
				WithEngine(engine).
				WithDimensions(2, 1).
				WithChannelDelay(2 * sim.VTimeInSec(1e-9)).
				Build("Net")

			recorder = newPacketRecorder()
			net.AcceptPortHook(recorder)
		})

		It("should deliver a message to the neighbor", func() {
			local := net.Router(0).LocalPort()
			flits := message(0, []int{0, 0}, 1, []int{1, 0}, 2)

			for _, f := range flits {
				Expect(local.Send(f)).To(BeTrue())
			}

			Expect(engine.Run()).To(Succeed())

			Expect(recorder.byPos[networking.HookPosPacketReceived]).
				To(Equal(flits))
			for _, f := range flits {
				Expect(f.Hops).To(Equal(1))
				Expect(f.RecvTime).To(BeNumerically(">", f.SendTime))
			}
			Expect(net.Router(0).IsReserved(
				net.Router(0).PortFacing(packet.DirectionForward, 0),
			)).To(BeFalse())
		})

		It("should resume after being enabled again", func() {
			local := net.Router(0).LocalPort()
			head := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]
			local.Send(head)
			local.Disable()
			Expect(engine.Run()).To(Succeed())
			Expect(recorder.count(networking.HookPosPacketReceived)).To(Equal(0))

			local.Enable()
			Expect(engine.Run()).To(Succeed())

			Expect(recorder.count(networking.HookPosPacketReceived)).To(Equal(1))
		})

		It("should deliver a message sent to the local node at once", func() {
			local := net.Router(1).LocalPort()
			flits := message(1, []int{1, 0}, 1, []int{1, 0}, 1)

			Expect(local.Send(flits[0])).To(BeTrue())
			Expect(local.Send(flits[1])).To(BeTrue())

			Expect(recorder.byPos[networking.HookPosPacketReceived]).
				To(Equal(flits))
			Expect(local.InQueue().Size()).To(Equal(0))
		})

		It("should ignore flits addressed to other ports", func() {
			in := net.Router(1).PortFacing(packet.DirectionBack, 0)
			head := message(0, []int{0, 0}, 1, []int{1, 0}, 0)[0]

			in.Receive(head, -1, in.ID()+1)

			Expect(in.InQueue().Size()).To(Equal(0))
			Expect(recorder.count(networking.HookPosPacketReceived)).To(Equal(0))
		})
	})

	It("should transmit through its via port", func() {
		engine = sim.NewSerialEngine()
		toExtra := &fixedRoute{}
		net = mesh.NewConnector().
			WithEngine(engine).
			WithDimensions(2, 1).
			WithRoutingFactory(func(int) networking.RoutingProtocol {
				return toExtra
			}).
			Build("Net")
		r := net.Router(0)
		via := r.PortFacing(packet.DirectionForward, 0)

		extra := networking.MakePortBuilder().
			WithRouter(r).
			WithDirection(packet.DirectionForward, 0).
			Build("Net.Extra")
		Expect(extra.IsConnected()).To(BeFalse())

		extra.SetViaPort(via)
		toExtra.out = extra
		recorder = newPacketRecorder()
		net.AcceptPortHook(recorder)

		Expect(extra.IsConnected()).To(BeTrue())
		Expect(extra.Channel()).To(BeIdenticalTo(via.Channel()))
		Expect(r.PeerInputPort(extra)).To(BeIdenticalTo(
			net.Router(1).PortFacing(packet.DirectionBack, 0)))

		for _, f := range message(0, []int{0, 0}, 1, []int{1, 0}, 1) {
			Expect(r.LocalPort().Send(f)).To(BeTrue())
		}

		Expect(engine.Run()).To(Succeed())

		Expect(recorder.count(networking.HookPosPacketReceived)).To(Equal(2))
		Expect(recorder.count(networking.HookPosPacketSent)).To(Equal(2))
		Expect(r.IsReserved(extra)).To(BeFalse())
	})

	It("should never schedule two drains at the same time", func() {
		engine = sim.NewSerialEngine()
		net = mesh.NewConnector().
			WithEngine(engine).
			WithDimensions(3, 3).
			WithBufferCapacity(2).
			Build("Mesh")
		watcher := &drainWatcher{seen: make(map[string]bool)}
		engine.AcceptHook(watcher)

		for src := 0; src < 9; src++ {
			dst := 8 - src
			if dst == src {
				continue
			}

			local := net.Router(src).LocalPort()
			for _, f := range message(src, net.Coord(src), dst, net.Coord(dst), 1) {
				Expect(local.Send(f)).To(BeTrue())
			}
		}

		Expect(engine.Run()).To(Succeed())

		Expect(watcher.seen).NotTo(BeEmpty())
		Expect(watcher.duplicates).To(BeEmpty())
	})

	It("should stage flits in the output buffer", func() {
		engine = sim.NewSerialEngine()
		net = mesh.NewConnector().
			WithEngine(engine).
			WithDimensions(3, 1).
			WithOutputBufferCapacity(2).
			Build("Mesh")
		recorder = newPacketRecorder()
		net.AcceptPortHook(recorder)

		local := net.Router(0).LocalPort()
		flits := message(0, []int{0, 0}, 2, []int{2, 0}, 3)
		sent := 0

		ticker := &sendTicker{port: local, flits: flits, sent: &sent}
		tc := sim.NewTickingComponent("Sender", engine, 1*sim.GHz, ticker)
		tc.TickLater()

		Expect(engine.Run()).To(Succeed())

		Expect(sent).To(Equal(4))
		Expect(recorder.byPos[networking.HookPosPacketReceived]).To(Equal(flits))
		Expect(net.Router(0).PortFacing(packet.DirectionForward, 0).
			OutQueue().Capacity()).To(Equal(2))
	})

	It("should attach a third port to a channel", func() {
		engine = sim.NewSerialEngine()
		net = mesh.NewConnector().
			WithEngine(engine).
			WithDimensions(2, 1).
			Build("Net")
		r0 := net.Router(0)
		ch := r0.PortFacing(packet.DirectionForward, 0).Channel()
		tap := networking.MakePortBuilder().
			WithRouter(net.Router(1)).
			WithDirection(packet.DirectionForward, 0).
			Build("Net.Tap")

		net.AttachToChannel(tap, ch)

		Expect(ch.Ports()).To(HaveLen(3))
		Expect(tap.Channel()).To(BeIdenticalTo(ch))
		Expect(ch.State()).To(Equal(channel.StateIdle))
	})
})

// fixedRoute always leaves through out.
type fixedRoute struct {
	out *networking.Port
}

func (f *fixedRoute) RequestRoute(
	r *networking.Router,
	_ *networking.Port,
	_ int,
	pkt *packet.Packet,
) *networking.Route {
	in := r.PeerInputPort(f.out)
	pkt.Header.DecrementOffset(f.out.Dimension(), f.out.Direction())

	return &networking.Route{
		Packet:          pkt,
		SourcePort:      f.out,
		DestinationPort: in,
	}
}

type sendTicker struct {
	port  *networking.Port
	flits []*packet.Packet
	sent  *int
}

func (t *sendTicker) Tick() bool {
	if *t.sent == len(t.flits) {
		return false
	}

	if t.port.Send(t.flits[*t.sent]) {
		*t.sent++
	}

	return true
}
