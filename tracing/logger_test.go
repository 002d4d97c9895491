package tracing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/sim"
	"github.com/sarchlab/nocsim/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("PacketLogger", func() {
	It("should log every flit event at debug level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		engine := sim.NewSerialEngine()
		net := buildMesh(engine)
		tracing.CollectNetworkTrace(net,
			tracing.NewPacketLogger(zap.New(core)))

		flits := sendMessage(net, 0, 1, 0)
		Expect(engine.Run()).To(Succeed())

		Expect(logs.FilterMessage("packet injected").Len()).To(Equal(1))
		Expect(logs.FilterMessage("packet sent").Len()).To(Equal(1))

		received := logs.FilterMessage("packet received").All()
		Expect(received).To(HaveLen(1))
		Expect(received[0].ContextMap()).To(HaveKeyWithValue("id", flits[0].ID))
		Expect(received[0].ContextMap()).To(
			HaveKeyWithValue("where", "Mesh.Router[1][0].Back0"))
	})

	It("should log drops as warnings", func() {
		core, logs := observer.New(zapcore.WarnLevel)
		engine := sim.NewSerialEngine()
		net := buildMesh(engine)
		logger := tracing.NewPacketLogger(zap.New(core))

		flits := sendMessage(net, 0, 1, 0)
		evt := tracing.PacketEvent{
			Kind:   tracing.EventDropped,
			Port:   net.Router(0).LocalPort(),
			Packet: flits[0],
		}

		logger.SendPacket(tracing.PacketEvent{
			Kind: tracing.EventSent, Packet: flits[0]})
		logger.DropPacket(evt)

		Expect(logs.Len()).To(Equal(1))
		Expect(logs.All()[0].Level).To(Equal(zapcore.WarnLevel))
		Expect(logs.All()[0].Message).To(Equal("packet dropped"))
	})
})
