package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
	"github.com/sarchlab/nocsim/sim"
)

// MetricsHook exports the flit events of a network and the progress of the
// engine as Prometheus metrics. Hook it to the ports of a network and to the
// engine.
type MetricsHook struct {
	timeTeller sim.TimeTeller

	FlitsTotal       *prometheus.CounterVec
	RouterFlitsTotal *prometheus.CounterVec
	FlitLatency      prometheus.Histogram
	EventsTotal      prometheus.Counter
	SimTime          prometheus.Gauge
}

var eventOfPos = map[*sim.HookPos]string{
	networking.HookPosPacketInjected: "injected",
	networking.HookPosPacketSent:     "sent",
	networking.HookPosPacketReceived: "received",
	networking.HookPosPacketBlocked:  "blocked",
	networking.HookPosPacketDropped:  "dropped",
}

// NewMetricsHook creates the metrics and registers them with the registerer.
func NewMetricsHook(
	reg prometheus.Registerer,
	timeTeller sim.TimeTeller,
) *MetricsHook {
	factory := promauto.With(reg)

	return &MetricsHook{
		timeTeller: timeTeller,
		FlitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nocsim_flits_total",
				Help: "Total number of flit events, by event.",
			},
			[]string{"event"},
		),
		RouterFlitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nocsim_router_flits_total",
				Help: "Total number of flit events, by router and event.",
			},
			[]string{"router", "event"},
		),
		FlitLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "nocsim_flit_latency_seconds",
				Help: "Simulated time from message creation to flit delivery.",
				Buckets: prometheus.ExponentialBuckets(
					1e-9, 2, 16),
			},
		),
		EventsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nocsim_engine_events_total",
				Help: "Total number of events handled by the engine.",
			},
		),
		SimTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nocsim_sim_time_seconds",
				Help: "Current simulated time.",
			},
		),
	}
}

// Func updates the metrics.
func (h *MetricsHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == sim.HookPosAfterEvent {
		h.EventsTotal.Inc()

		if evt, ok := ctx.Item.(sim.Event); ok {
			h.SimTime.Set(float64(evt.Time()))
		}

		return
	}

	event, ok := eventOfPos[ctx.Pos]
	if !ok {
		return
	}

	h.FlitsTotal.WithLabelValues(event).Inc()

	if port, ok := ctx.Domain.(*networking.Port); ok {
		h.RouterFlitsTotal.WithLabelValues(port.Router().Name(), event).Inc()
	}

	pkt, ok := ctx.Item.(*packet.Packet)
	if ok && ctx.Pos == networking.HookPosPacketReceived {
		h.FlitLatency.Observe(
			float64(h.timeTeller.CurrentTime() - pkt.SendTime))
	}
}
