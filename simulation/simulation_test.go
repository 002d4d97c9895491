package simulation

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/datarecording"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/tracing"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Simulation", func() {
	var (
		mockCtrl   *gomock.Controller
		dir        string
		simulation *Simulation
	)

	BeforeEach(func() {
		var err error

		mockCtrl = gomock.NewController(GinkgoT())

		dir, err = os.MkdirTemp("", "nocsim-sim")
		Expect(err).NotTo(HaveOccurred())

		simulation, err = MakeBuilder().
			WithoutMonitoring().
			WithPacketTrace().
			WithOutputFileName(filepath.Join(dir, "out")).
			Build()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
		os.RemoveAll(dir)
	})

	It("should register a component", func() {
		comp := NewMockNamed(mockCtrl)
		comp.EXPECT().Name().Return("comp").AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(simulation.GetComponentByName("comp")).To(BeIdenticalTo(comp))
		Expect(simulation.GetComponentByName("other")).To(BeNil())
		Expect(simulation.Components()).To(HaveLen(1))
	})

	It("should not register a component twice", func() {
		comp := NewMockNamed(mockCtrl)
		comp.EXPECT().Name().Return("comp").AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(func() { simulation.RegisterComponent(comp) }).To(Panic())
	})

	It("should observe a registered network", func() {
		net := mesh.NewConnector().
			WithEngine(simulation.GetEngine()).
			WithDimensions(2, 2).
			Build("Mesh")
		simulation.RegisterNetwork(net)
		simulation.AddProperty("Routing", "dor")

		Expect(simulation.GetNetworkByName("Mesh")).To(BeIdenticalTo(net))
		Expect(func() { simulation.RegisterNetwork(net) }).To(Panic())

		flits := packet.MakeBuilder().
			WithSource(0, net.Coord(0)).
			WithDestination(3, net.Coord(3)).
			WithDataFlitCount(1).
			BuildMessage()
		for _, f := range flits {
			Expect(net.Router(0).LocalPort().Send(f)).To(BeTrue())
		}

		Expect(simulation.Run()).To(Succeed())
		Expect(simulation.Stats().Summary().MessagesReceived).
			To(Equal(uint64(1)))
		Expect(simulation.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(filepath.Join(dir, "out.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(tracing.PacketTraceTable, tracing.PacketTraceEntry{})
		reader.MapTable(datarecording.ExecInfoTable, datarecording.ExecInfo{})

		_, total, err := reader.Query(context.Background(),
			tracing.PacketTraceTable,
			datarecording.QueryParams{Where: "Event = 'received'"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))

		_, total, err = reader.Query(context.Background(),
			datarecording.ExecInfoTable,
			datarecording.QueryParams{Where: "Property = 'Routing'"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
	})

	It("should reject inconsistent options", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithoutRecording().
				WithPacketTrace().Build()
		}).To(Panic())
	})

	It("should run without any output", func() {
		s, err := MakeBuilder().WithoutMonitoring().WithoutRecording().Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.GetDataRecorder()).To(BeNil())
		Expect(s.Run()).To(Succeed())
		Expect(s.Terminate()).To(Succeed())
	})
})
