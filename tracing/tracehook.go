package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// CollectTrace let the tracer to collect trace from a domain. The domain is
// a port or a router.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// CollectNetworkTrace attaches the tracer to every port of the network.
func CollectNetworkTrace(net *networking.Network, tracer Tracer) {
	for _, p := range net.Ports() {
		CollectTrace(p, tracer)
	}
}

// A traceHook is a hook that traces flits
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	kind, ok := kindOfPos[ctx.Pos]
	if !ok {
		return
	}

	pkt, ok := ctx.Item.(*packet.Packet)
	if !ok {
		return
	}

	port := portOf(ctx)
	evt := PacketEvent{
		Kind:   kind,
		Port:   port,
		Packet: pkt,
	}

	if port != nil {
		evt.Time = port.Router().Network().Engine().CurrentTime()
	}

	switch kind {
	case EventInjected:
		h.t.InjectPacket(evt)
	case EventSent:
		h.t.SendPacket(evt)
	case EventReceived:
		h.t.ReceivePacket(evt)
	case EventBlocked:
		h.t.BlockPacket(evt)
	case EventDropped:
		h.t.DropPacket(evt)
	}
}

// Ports fire hooks on themselves. Routers fire with the port as the detail.
func portOf(ctx sim.HookCtx) *networking.Port {
	if p, ok := ctx.Domain.(*networking.Port); ok {
		return p
	}

	if p, ok := ctx.Detail.(*networking.Port); ok {
		return p
	}

	return nil
}
