package load_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/load"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

var _ = Describe("BufferLoad", func() {
	var (
		bl  *load.BufferLoad
		net *networking.Network
		r   *networking.Router
	)

	flit := func() *packet.Packet {
		return packet.MakeBuilder().
			WithSource(0, []int{0, 0}).
			WithDestination(1, []int{1, 0}).
			Build()
	}

	feedback := func(p *networking.Port, value int) {
		pkt := flit()
		pkt.Header.SetLoadFeedback(value)
		p.Receive(pkt, -1, p.ID())
		p.InQueue().Clear()
	}

	BeforeEach(func() {
		bl = load.NewBufferLoad()
		net = mesh.NewConnector().
			WithEngine(sim.NewSerialEngine()).
			WithDimensions(3, 3).
			WithLoadFactory(func(int) networking.LoadComponent { return bl }).
			Build("Mesh")
		r = net.RouterAt([]int{1, 1})
	})

	It("should report the occupancy of the buffers", func() {
		east := r.PortFacing(packet.DirectionForward, 0)

		Expect(bl.GetLocalLoad(east)).To(Equal(0))

		east.InQueue().Push(flit())
		Expect(bl.GetLocalLoad(east)).To(Equal(25))

		east.InQueue().Push(flit())
		east.InQueue().Push(flit())
		Expect(bl.GetLocalLoad(east)).To(Equal(75))

		east.InQueue().Push(flit())
		Expect(bl.GetLocalLoad(east)).To(Equal(100))
	})

	It("should stay in range from empty to full", func() {
		for _, p := range r.Ports() {
			for {
				Expect(bl.GetLocalLoad(p)).To(BeNumerically(">=", 0))
				Expect(bl.GetLocalLoad(p)).To(BeNumerically("<=", 100))

				for _, c := range r.Ports() {
					if c.Dimension() < 0 {
						continue
					}

					l := bl.GetLoadForDirection(p, c)
					Expect(l).To(BeNumerically(">=", 0))
					Expect(l).To(BeNumerically("<=", 100))
				}

				if !p.InQueue().CanPush() {
					break
				}

				p.InQueue().Push(flit())
			}
		}
	})

	It("should weigh the direct load twice the orthogonal average", func() {
		east := r.PortFacing(packet.DirectionForward, 0)
		west := r.PortFacing(packet.DirectionBack, 0)
		north := r.PortFacing(packet.DirectionForward, 1)
		south := r.PortFacing(packet.DirectionBack, 1)

		east.InQueue().Push(flit())
		east.InQueue().Push(flit())
		feedback(west, 100)
		feedback(north, 60)
		feedback(south, 30)

		// direct 50, orthogonal average 45
		Expect(bl.GetLoadForDirection(west, east)).To(Equal(48))
	})

	It("should use the reported load when it is higher", func() {
		east := r.PortFacing(packet.DirectionForward, 0)
		feedback(east, 90)

		// direct 90, orthogonal average 0
		Expect(bl.GetLoadForDirection(r.LocalPort(), east)).To(Equal(60))
	})
})
