package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingTicker struct {
	ticks    []VTimeInSec
	progress int
	engine   Engine
}

func (t *countingTicker) Tick() bool {
	t.ticks = append(t.ticks, t.engine.CurrentTime())
	if t.progress > 0 {
		t.progress--
		return true
	}

	return false
}

var _ = Describe("TickingComponent", func() {
	var (
		engine *SerialEngine
		ticker *countingTicker
		tc     *TickingComponent
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		ticker = &countingTicker{engine: engine}
		tc = NewTickingComponent("TC", engine, 1*GHz, ticker)
	})

	It("should tick on the next cycle boundary", func() {
		tc.TickLater()

		Expect(engine.Run()).To(Succeed())
		Expect(ticker.ticks).To(HaveLen(1))
		Expect(ticker.ticks[0]).To(BeNumerically("~", 1e-9, 1e-15))
	})

	It("should keep ticking while progress is made", func() {
		ticker.progress = 2
		tc.TickLater()

		Expect(engine.Run()).To(Succeed())
		Expect(ticker.ticks).To(HaveLen(3))
		Expect(ticker.ticks[2]).To(BeNumerically("~", 3e-9, 1e-15))
	})

	It("should not schedule a second tick for the same cycle", func() {
		tc.TickLater()
		tc.TickLater()

		Expect(engine.Run()).To(Succeed())
		Expect(ticker.ticks).To(HaveLen(1))
	})

	It("should tick now at time zero", func() {
		tc.TickNow()

		Expect(engine.Run()).To(Succeed())
		Expect(ticker.ticks).To(Equal([]VTimeInSec{0}))
	})

	It("should be named", func() {
		Expect(tc.Name()).To(Equal("TC"))
	})
})

var _ = Describe("EventLogger", func() {
	It("should log events before they are handled", func() {
		core, logs := observer.New(zap.DebugLevel)
		engine := NewSerialEngine()
		engine.AcceptHook(NewEventLogger(zap.New(core)))

		h := &recordingHandler{name: "H"}
		engine.Schedule(newSampleEvent(2, h, "a"))

		Expect(engine.Run()).To(Succeed())
		Expect(logs.Len()).To(Equal(1))

		fields := logs.All()[0].ContextMap()
		Expect(fields["time"]).To(Equal(2.0))
		Expect(fields["handler"]).To(Equal("H"))
	})
})
