package tracing

// A Tracer can collect flit traces
type Tracer interface {
	InjectPacket(evt PacketEvent)
	SendPacket(evt PacketEvent)
	ReceivePacket(evt PacketEvent)
	BlockPacket(evt PacketEvent)
	DropPacket(evt PacketEvent)
}
