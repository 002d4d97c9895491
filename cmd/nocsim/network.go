package main

import (
	"fmt"

	"github.com/sarchlab/nocsim/config"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/networking/flowcontrol"
	"github.com/sarchlab/nocsim/noc/networking/load"
	"github.com/sarchlab/nocsim/noc/networking/mesh"
	"github.com/sarchlab/nocsim/noc/networking/routing"
	"github.com/sarchlab/nocsim/noc/traffic"
	"github.com/sarchlab/nocsim/sim"
)

func freqOf(cfg config.Config) sim.Freq {
	return sim.Freq(cfg.Network.FreqGHz) * sim.GHz
}

func nanoseconds(ns float64) sim.VTimeInSec {
	return sim.VTimeInSec(ns * 1e-9)
}

func routingFactory(cfg config.Routing) mesh.RoutingFactory {
	weights := routing.Weights{
		Progressive: cfg.ProgressiveWeight,
		Load:        cfg.LoadWeight,
		Remaining:   cfg.RemainingWeight,
	}

	turn := routing.TurnModelNone
	if cfg.TurnModel == config.TurnModelNegativeFirst {
		turn = routing.TurnModelNegativeFirst
	}

	switch cfg.Protocol {
	case config.RoutingSLB:
		return func(node int) networking.RoutingProtocol {
			return routing.NewSLB(weights, cfg.LoadThreshold,
				cfg.Seed+int64(node)).WithTurnModel(turn)
		}
	case config.RoutingSO:
		return func(node int) networking.RoutingProtocol {
			return routing.NewSO(weights, cfg.Seed+int64(node)).
				WithTurnModel(turn)
		}
	default:
		return func(int) networking.RoutingProtocol {
			return routing.NewDOR(cfg.Order)
		}
	}
}

func switchingFactory(cfg config.Switching) mesh.SwitchingFactory {
	if cfg.Protocol == config.SwitchingVCT {
		return func(int) networking.SwitchingProtocol {
			return flowcontrol.NewVirtualCutThrough()
		}
	}

	return func(int) networking.SwitchingProtocol {
		return flowcontrol.NewWormhole()
	}
}

// buildNetwork creates the mesh or torus that the configuration describes.
func buildNetwork(cfg config.Config, engine sim.Engine) *networking.Network {
	n := cfg.Network

	c := mesh.NewConnector().
		WithEngine(engine).
		WithDimensions(n.Dimensions...).
		WithTorus(n.Torus).
		WithRoutingFactory(routingFactory(cfg.Routing)).
		WithSwitchingFactory(switchingFactory(cfg.Switching)).
		WithLoadFactory(func(int) networking.LoadComponent {
			return load.NewBufferLoad()
		}).
		WithBufferCapacity(n.BufferCapacity).
		WithOutputBufferCapacity(n.OutputBufferCapacity).
		WithChannelDelay(nanoseconds(n.ChannelDelayNS)).
		WithBandwidth(n.BandwidthGbps * 1e9).
		WithFreq(freqOf(cfg)).
		WithRetryInterval(nanoseconds(n.RetryIntervalNS)).
		WithMaxRetries(n.MaxRetries)

	if n.Synchronous {
		c = c.WithSynchronous(n.DataFlitSpeedup)
	}

	if n.DeadlockTimeoutCycles > 0 {
		c = c.WithDeadlockTimeout(
			freqOf(cfg).Period() * sim.VTimeInSec(n.DeadlockTimeoutCycles))
	}

	name := "Mesh"
	if n.Torus {
		name = "Torus"
	}

	return c.Build(name)
}

// buildSources creates one traffic source per node.
func buildSources(
	cfg config.Config,
	engine sim.Engine,
	net *networking.Network,
) ([]*traffic.Source, error) {
	t := cfg.Traffic

	pattern, err := traffic.NewPattern(t.Pattern, net.Size())
	if err != nil {
		return nil, err
	}

	b := traffic.MakeSourceBuilder().
		WithEngine(engine).
		WithFreq(freqOf(cfg)).
		WithNetwork(net).
		WithPattern(pattern).
		WithInjectionRate(t.InjectionRate).
		WithDataFlitCount(t.DataFlits).
		WithFlitSize(t.FlitSize).
		WithCycles(t.Cycles)

	sources := make([]*traffic.Source, 0, len(net.Routers()))
	for node := range net.Routers() {
		src := b.WithSeed(t.Seed + int64(node)).
			Build(fmt.Sprintf("Source[%d]", node), node)
		sources = append(sources, src)
	}

	return sources, nil
}
