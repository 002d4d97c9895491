package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	f := 1 * GHz

	It("should get the period", func() {
		Expect(f.Period()).To(BeNumerically("==", 1e-9))
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	It("should count elapsed cycles", func() {
		Expect(f.Cycle(0)).To(Equal(uint64(0)))
		Expect(f.Cycle(2.5e-9)).To(Equal(uint64(2)))
		Expect(f.Cycle(3e-9)).To(Equal(uint64(3)))
	})

	DescribeTable("this tick",
		func(now, expected float64) {
			Expect(f.ThisTick(VTimeInSec(now))).
				To(BeNumerically("~", expected, 1e-15))
		},
		Entry("on an edge", 5e-9, 5e-9),
		Entry("between edges", 5.3e-9, 6e-9),
		Entry("at zero", 0.0, 0.0),
	)

	DescribeTable("next tick",
		func(now, expected float64) {
			Expect(f.NextTick(VTimeInSec(now))).
				To(BeNumerically("~", expected, 1e-15))
		},
		Entry("on an edge", 31e-9, 32e-9),
		Entry("between edges", 17.1e-9, 18e-9),
		Entry("at zero", 0.0, 1e-9),
	)

	It("should get the next tick of a large time", func() {
		Expect(f.NextTick(102.000000001)).
			To(BeNumerically("~", 102.000000002, 1e-12))
	})

	It("should get a sub tick", func() {
		Expect(f.SubTick(10e-9, 4)).To(BeNumerically("~", 10.25e-9, 1e-15))
		Expect(func() { f.SubTick(0, 0) }).To(Panic())
	})
})
