package tracing

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PacketLogger writes flit events to a zap logger. Drops are warnings and
// everything else is debug output.
type PacketLogger struct {
	logger *zap.Logger
}

// NewPacketLogger returns a new PacketLogger which will write in to the
// logger.
func NewPacketLogger(logger *zap.Logger) *PacketLogger {
	return &PacketLogger{logger: logger}
}

// InjectPacket logs the event.
func (l *PacketLogger) InjectPacket(evt PacketEvent) {
	l.log(zapcore.DebugLevel, evt)
}

// SendPacket logs the event.
func (l *PacketLogger) SendPacket(evt PacketEvent) {
	l.log(zapcore.DebugLevel, evt)
}

// ReceivePacket logs the event.
func (l *PacketLogger) ReceivePacket(evt PacketEvent) {
	l.log(zapcore.DebugLevel, evt)
}

// BlockPacket logs the event.
func (l *PacketLogger) BlockPacket(evt PacketEvent) {
	l.log(zapcore.DebugLevel, evt)
}

// DropPacket logs the event.
func (l *PacketLogger) DropPacket(evt PacketEvent) {
	l.log(zapcore.WarnLevel, evt)
}

func (l *PacketLogger) log(level zapcore.Level, evt PacketEvent) {
	ce := l.logger.Check(level, "packet "+evt.Kind.String())
	if ce == nil {
		return
	}

	pkt := evt.Packet
	ce.Write(
		zap.Float64("time", float64(evt.Time)),
		zap.String("where", evt.Where()),
		zap.String("id", pkt.ID),
		zap.String("msg", pkt.MessageID),
		zap.Int("seq", pkt.SeqID),
		zap.Stringer("kind", pkt.Kind),
		zap.Int("src", pkt.Source),
		zap.Int("dst", pkt.Destination),
		zap.Int("hops", pkt.Hops),
	)
}
