package routing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/networking/routing"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

var _ = Describe("DOR", func() {
	It("should resolve dimension 0 first by default", func() {
		dor := routing.NewDOR(nil)
		h := packet.NewHeader([]int{2, -1}, []int{0, 1}, 0)

		dim, dir, ok := dor.NextDirection(h)

		Expect(ok).To(BeTrue())
		Expect(dim).To(Equal(0))
		Expect(dir).To(Equal(packet.DirectionForward))
	})

	It("should follow the routing order", func() {
		dor := routing.NewDOR([]int{1, 0})
		h := packet.NewHeader([]int{2, -1}, []int{0, 1}, 0)

		dim, dir, ok := dor.NextDirection(h)

		Expect(ok).To(BeTrue())
		Expect(dim).To(Equal(1))
		Expect(dir).To(Equal(packet.DirectionBack))
	})

	It("should reject an order that is not a permutation", func() {
		Expect(func() { routing.NewDOR([]int{0, 0}) }).To(Panic())
		Expect(func() { routing.NewDOR([]int{0, 2}) }).To(Panic())
	})

	It("should reach the destination after every offset is consumed", func() {
		dor := routing.NewDOR(nil)
		h := packet.NewHeader([]int{5, 2}, []int{0, 0}, 0)

		for i := 0; i < 7; i++ {
			dim, dir, ok := dor.NextDirection(h)
			Expect(ok).To(BeTrue())

			h.DecrementOffset(dim, dir)
		}

		Expect(h.Offset(0)).To(Equal(0))
		Expect(h.Offset(1)).To(Equal(0))

		_, dir, ok := dor.NextDirection(h)
		Expect(ok).To(BeFalse())
		Expect(dir).To(Equal(packet.DirectionNone))
	})

	Context("on a mesh", func() {
		var net *networking.Network

		BeforeEach(func() {
			net = mesh.NewConnector().
				WithEngine(sim.NewSerialEngine()).
				WithDimensions(3, 3).
				Build("Mesh")
		})

		It("should route and decrement the header", func() {
			r := net.RouterAt([]int{0, 0})
			local := r.LocalPort()
			pkt := head(0, []int{0, 0}, 8, []int{2, 2}, 0)

			route := routing.NewDOR(nil).RequestRoute(r, local, 8, pkt)

			Expect(route).NotTo(BeNil())
			Expect(route.SourcePort).To(BeIdenticalTo(
				r.PortFacing(packet.DirectionForward, 0)))
			Expect(route.DestinationPort.Router().Coord()).
				To(Equal([]int{1, 0}))
			Expect(pkt.Header.Offset(0)).To(Equal(1))
			Expect(pkt.Header.Offset(1)).To(Equal(2))
		})

		It("should hold the packet if the output port is taken", func() {
			r := net.RouterAt([]int{1, 0})
			local := r.LocalPort()
			west := r.PortFacing(packet.DirectionBack, 0)

			first := head(1, []int{1, 0}, 2, []int{2, 0}, 3)
			Expect(r.RequestRoute(local, first)).NotTo(BeNil())

			second := head(0, []int{0, 0}, 2, []int{2, 0}, 0)
			second.Header.DecrementOffset(0, packet.DirectionForward)

			route := routing.NewDOR(nil).RequestRoute(r, west, 2, second)

			Expect(route).To(BeNil())
			Expect(second.Header.Offset(0)).To(Equal(1))
		})
	})
})
