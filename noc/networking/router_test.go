package networking_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/noc/channel"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/flowcontrol"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/networking/routing"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

var _ = Describe("Router", func() {
	var (
		engine sim.Engine
		net    *networking.Network
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		net = mesh.NewConnector().
			WithEngine(engine).
			WithDimensions(3, 3).
			Build("Mesh")
	})

	It("should find output ports", func() {
		r := net.RouterAt([]int{1, 1})
		local := r.LocalPort()

		out := r.GetOutputPort(local, packet.DirectionForward, 0)

		Expect(out).NotTo(BeNil())
		Expect(out.Direction()).To(Equal(packet.DirectionForward))
		Expect(out.Dimension()).To(Equal(0))
		Expect(out.Router()).To(BeIdenticalTo(r))
	})

	It("should not return the source port", func() {
		r := net.RouterAt([]int{1, 1})
		fwd := r.PortFacing(packet.DirectionForward, 0)

		Expect(r.GetOutputPort(fwd, packet.DirectionForward, 0)).To(BeNil())
	})

	It("should return nil at the mesh boundary", func() {
		r := net.RouterAt([]int{0, 0})
		local := r.LocalPort()

		Expect(r.GetOutputPort(local, packet.DirectionBack, 0)).To(BeNil())
		Expect(r.GetOutputPort(local, packet.DirectionBack, 1)).To(BeNil())
	})

	It("should find the input port of the neighbor", func() {
		r := net.RouterAt([]int{0, 1})
		out := r.PortFacing(packet.DirectionForward, 0)

		neighbor := r.Neighbor(out)
		in := neighbor.GetInputPort(out, packet.DirectionBack, 0)

		Expect(neighbor.Coord()).To(Equal([]int{1, 1}))
		Expect(in).To(BeIdenticalTo(
			neighbor.PortFacing(packet.DirectionBack, 0)))
		Expect(r.PeerInputPort(out)).To(BeIdenticalTo(in))
	})

	It("should map coordinates and node IDs", func() {
		Expect(net.NodeByCoord([]int{2, 1})).To(Equal(5))
		Expect(net.Coord(5)).To(Equal([]int{2, 1}))
		Expect(net.NodeByCoord([]int{3, 0})).To(Equal(-1))
	})

	Context("when the ports are not tagged canonically", func() {
		var (
			a, b, other *networking.Port
			r1          *networking.Router
		)

		BeforeEach(func() {
			engine = sim.NewSerialEngine()
			net = networking.NewNetwork("Net", engine, []int{2, 2}, false)

			r0 := networking.MakeRouterBuilder().
				WithNetwork(net).
				WithCoord([]int{0, 0}).
				WithRoutingProtocol(routing.NewDOR(nil)).
				WithSwitchingProtocol(flowcontrol.NewWormhole()).
				Build("R0")
			r1 = networking.MakeRouterBuilder().
				WithNetwork(net).
				WithCoord([]int{1, 0}).
				WithRoutingProtocol(routing.NewDOR(nil)).
				WithSwitchingProtocol(flowcontrol.NewWormhole()).
				Build("R1")
			r2 := networking.MakeRouterBuilder().
				WithNetwork(net).
				WithCoord([]int{0, 1}).
				WithRoutingProtocol(routing.NewDOR(nil)).
				WithSwitchingProtocol(flowcontrol.NewWormhole()).
				Build("R2")

			a = networking.MakePortBuilder().
				WithRouter(r0).
				WithDirection(packet.DirectionForward, 0).
				Build("R0.A")
			b = networking.MakePortBuilder().
				WithRouter(r1).
				WithDirection(packet.DirectionForward, 1).
				Build("R1.B")
			other = networking.MakePortBuilder().
				WithRouter(r1).
				WithDirection(packet.DirectionBack, 0).
				Build("R1.Other")
			c := networking.MakePortBuilder().
				WithRouter(r2).
				WithDirection(packet.DirectionBack, 1).
				Build("R2.C")

			net.Connect(a, b, channel.MakeBuilder())
			net.Connect(c, other, channel.MakeBuilder())
		})

		It("should fall back to the port on the same channel", func() {
			in := r1.GetInputPort(a, packet.DirectionBack, 0)

			Expect(in).To(BeIdenticalTo(b))
			Expect(in).NotTo(BeIdenticalTo(other))
		})

		It("should fall back to an untagged port on the same channel", func() {
			r0 := net.Router(0)
			d := networking.MakePortBuilder().
				WithRouter(r0).
				WithDirection(packet.DirectionForward, 1).
				Build("R0.D")
			pe := networking.MakePortBuilder().
				WithRouter(r1).
				Build("R1.PE")
			net.Connect(d, pe, channel.MakeBuilder())

			Expect(r1.GetInputPort(d, packet.DirectionBack, 1)).
				To(BeIdenticalTo(pe))
			Expect(r0.PeerInputPort(d)).To(BeIdenticalTo(pe))
		})

		It("should return nil for an unconnected peer", func() {
			r0 := net.Router(0)
			loose := networking.MakePortBuilder().
				WithRouter(r0).
				WithDirection(packet.DirectionForward, 1).
				Build("R0.Loose")

			Expect(r1.GetInputPort(loose, packet.DirectionBack, 1)).To(BeNil())
		})
	})

	It("should reserve the output port of a routed HEAD flit", func() {
		r := net.RouterAt([]int{0, 0})
		local := r.LocalPort()
		up := r.GetOutputPort(local, packet.DirectionForward, 1)
		flits := message(0, []int{0, 0}, 2, []int{2, 0}, 1)

		route := r.RequestRoute(local, flits[0])

		Expect(route).NotTo(BeNil())
		Expect(route.Packet).To(BeIdenticalTo(flits[0]))
		Expect(route.SourcePort.Direction()).To(Equal(packet.DirectionForward))
		Expect(route.SourcePort.Dimension()).To(Equal(0))
		Expect(r.IsReserved(route.SourcePort)).To(BeTrue())
		Expect(r.ReservationOf(route.SourcePort)).To(BeIdenticalTo(local))
		Expect(r.IsAvailable(route.SourcePort, local)).To(BeTrue())
		Expect(r.IsAvailable(route.SourcePort, up)).To(BeFalse())
		Expect(flits[0].Header.Offset(0)).To(Equal(1))
	})

	It("should record load feedback per port", func() {
		r := net.RouterAt([]int{1, 0})
		in := r.PortFacing(packet.DirectionBack, 0)
		flits := message(0, []int{0, 0}, 2, []int{2, 0}, 0)
		flits[0].Header.DecrementOffset(0, packet.DirectionForward)
		flits[0].Header.SetLoadFeedback(42)

		in.Receive(flits[0], -1, in.ID())

		Expect(r.ReportedLoad(in)).To(Equal(42))
	})
})
