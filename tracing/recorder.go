package tracing

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/nocsim/datarecording"
)

// PacketTraceTable is the table that PacketRecorder writes into.
const PacketTraceTable = "packet_trace"

// PacketTraceEntry is one row of the packet trace table.
type PacketTraceEntry struct {
	Time      float64
	Event     string
	Where     string
	Node      int
	PacketID  string
	MessageID string
	SeqID     int
	Kind      string
	Source    int
	Dest      int
	Hops      int
}

// PacketRecorder writes every observed flit event into a DataRecorder.
type PacketRecorder struct {
	recorder datarecording.DataRecorder
	filter   func(evt PacketEvent) bool
}

// NewPacketRecorder creates the packet trace table in the recorder.
func NewPacketRecorder(
	recorder datarecording.DataRecorder,
) (*PacketRecorder, error) {
	err := recorder.CreateTable(PacketTraceTable, PacketTraceEntry{})
	if err != nil {
		return nil, errors.Wrap(err, "create packet trace table")
	}

	return &PacketRecorder{recorder: recorder}, nil
}

// WithFilter only records the events for which the filter returns true.
func (r *PacketRecorder) WithFilter(
	filter func(evt PacketEvent) bool,
) *PacketRecorder {
	r.filter = filter
	return r
}

// InjectPacket records the event.
func (r *PacketRecorder) InjectPacket(evt PacketEvent) { r.record(evt) }

// SendPacket records the event.
func (r *PacketRecorder) SendPacket(evt PacketEvent) { r.record(evt) }

// ReceivePacket records the event.
func (r *PacketRecorder) ReceivePacket(evt PacketEvent) { r.record(evt) }

// BlockPacket records the event.
func (r *PacketRecorder) BlockPacket(evt PacketEvent) { r.record(evt) }

// DropPacket records the event.
func (r *PacketRecorder) DropPacket(evt PacketEvent) { r.record(evt) }

func (r *PacketRecorder) record(evt PacketEvent) {
	if r.filter != nil && !r.filter(evt) {
		return
	}

	pkt := evt.Packet
	entry := PacketTraceEntry{
		Time:      float64(evt.Time),
		Event:     evt.Kind.String(),
		Where:     evt.Where(),
		Node:      -1,
		PacketID:  pkt.ID,
		MessageID: pkt.MessageID,
		SeqID:     pkt.SeqID,
		Kind:      pkt.Kind.String(),
		Source:    pkt.Source,
		Dest:      pkt.Destination,
		Hops:      pkt.Hops,
	}

	if evt.Port != nil {
		entry.Node = evt.Port.Node()
	}

	err := r.recorder.InsertData(PacketTraceTable, entry)
	if err != nil {
		panic(err)
	}
}
