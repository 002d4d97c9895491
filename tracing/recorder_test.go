package tracing_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nocsim/datarecording"
	"github.com/sarchlab/nocsim/sim"
	"github.com/sarchlab/nocsim/tracing"
)

var _ = Describe("PacketRecorder", func() {
	var (
		dir      string
		db       *sql.DB
		recorder datarecording.DataRecorder
		engine   *sim.SerialEngine
	)

	BeforeEach(func() {
		var err error

		dir, err = os.MkdirTemp("", "nocsim-trace")
		Expect(err).NotTo(HaveOccurred())

		db, err = sql.Open("sqlite3", filepath.Join(dir, "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())

		recorder = datarecording.NewWithDB(db)
		engine = sim.NewSerialEngine()
	})

	AfterEach(func() {
		db.Close()
		os.RemoveAll(dir)
	})

	query := func(where string) []*tracing.PacketTraceEntry {
		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(tracing.PacketTraceTable, tracing.PacketTraceEntry{})

		results, _, err := reader.Query(context.Background(),
			tracing.PacketTraceTable,
			datarecording.QueryParams{Where: where, OrderBy: "Time, SeqID"})
		Expect(err).NotTo(HaveOccurred())

		entries := make([]*tracing.PacketTraceEntry, len(results))
		for i, r := range results {
			entries[i] = r.(*tracing.PacketTraceEntry)
		}

		return entries
	}

	It("should write every event of a message", func() {
		net := buildMesh(engine)
		r, err := tracing.NewPacketRecorder(recorder)
		Expect(err).NotTo(HaveOccurred())
		tracing.CollectNetworkTrace(net, r)

		flits := sendMessage(net, 0, 3, 1)
		Expect(engine.Run()).To(Succeed())
		Expect(recorder.Flush()).To(Succeed())

		Expect(query("Event = 'injected'")).To(HaveLen(2))
		Expect(query("Event = 'sent'")).To(HaveLen(4))

		received := query("Event = 'received'")
		Expect(received).To(HaveLen(2))
		Expect(received[0].PacketID).To(Equal(flits[0].ID))
		Expect(received[0].Kind).To(Equal("HEAD"))
		Expect(received[0].Node).To(Equal(3))
		Expect(received[0].Hops).To(Equal(2))
		Expect(received[1].MessageID).To(Equal(flits[0].MessageID))
		Expect(received[1].Time).To(BeNumerically(">", 0))
	})

	It("should only record filtered events", func() {
		net := buildMesh(engine)
		r, err := tracing.NewPacketRecorder(recorder)
		Expect(err).NotTo(HaveOccurred())
		r.WithFilter(func(evt tracing.PacketEvent) bool {
			return evt.Kind == tracing.EventReceived
		})
		tracing.CollectNetworkTrace(net, r)

		sendMessage(net, 0, 1, 2)
		Expect(engine.Run()).To(Succeed())
		Expect(recorder.Flush()).To(Succeed())

		Expect(query("")).To(HaveLen(3))
	})

	It("should refuse to create the table twice", func() {
		_, err := tracing.NewPacketRecorder(recorder)
		Expect(err).NotTo(HaveOccurred())

		_, err = tracing.NewPacketRecorder(recorder)
		Expect(err).To(HaveOccurred())
	})
})
