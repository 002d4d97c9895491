package traffic_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/traffic"
)

var _ = Describe("Patterns", func() {
	var r *rand.Rand

	BeforeEach(func() {
		r = rand.New(rand.NewSource(1))
	})

	It("should never send uniform traffic to the source", func() {
		p := traffic.UniformRandom{NumNodes: 16}
		seen := make(map[int]bool)

		for i := 0; i < 2000; i++ {
			dst := p.Destination(5, r)
			Expect(dst).NotTo(Equal(5))
			Expect(dst).To(BeNumerically(">=", 0))
			Expect(dst).To(BeNumerically("<", 16))
			seen[dst] = true
		}

		Expect(seen).To(HaveLen(15))
	})

	It("should not send uniform traffic in a single-node network", func() {
		Expect(traffic.UniformRandom{NumNodes: 1}.Destination(0, r)).
			To(Equal(-1))
	})

	It("should mirror coordinates with bit complement", func() {
		size := []int{4, 4}
		p := traffic.BitComplement{Size: size}

		Expect(p.Destination(mesh.NodeID(size, []int{0, 0}), r)).
			To(Equal(mesh.NodeID(size, []int{3, 3})))
		Expect(p.Destination(mesh.NodeID(size, []int{1, 3}), r)).
			To(Equal(mesh.NodeID(size, []int{2, 0})))
	})

	It("should swap coordinates with transpose", func() {
		size := []int{4, 4}
		p := traffic.Transpose{Size: size}

		Expect(p.Destination(mesh.NodeID(size, []int{1, 3}), r)).
			To(Equal(mesh.NodeID(size, []int{3, 1})))
		Expect(p.Destination(mesh.NodeID(size, []int{2, 2}), r)).
			To(Equal(-1))
	})

	It("should create patterns by name", func() {
		p, err := traffic.NewPattern("transpose", []int{4, 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(traffic.Transpose{Size: []int{4, 4}}))

		_, err = traffic.NewPattern("transpose", []int{4, 2})
		Expect(err).To(HaveOccurred())

		_, err = traffic.NewPattern("hotspot", []int{4, 4})
		Expect(err).To(MatchError(ContainSubstring("hotspot")))
	})
})
