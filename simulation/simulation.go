// Package simulation bundles the engine with the services that observe a
// network-on-chip run.
package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sarchlab/nocsim/datarecording"
	"github.com/sarchlab/nocsim/monitoring"
	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/sim"
	"github.com/sarchlab/nocsim/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id     string
	engine *sim.SerialEngine
	logger *zap.Logger

	dataRecorder   datarecording.DataRecorder
	execRecorder   *datarecording.ExecRecorder
	packetRecorder *tracing.PacketRecorder
	stats          *tracing.StatsCollector
	registry       *prometheus.Registry
	metrics        *monitoring.MetricsHook
	monitor        *monitoring.Monitor
	monitorURL     string

	networks         []*networking.Network
	networkNameIndex map[string]int
	components       []sim.Named
	compNameIndex    map[string]int
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *sim.SerialEngine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// when recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, if any.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Stats returns the statistics collected from all registered networks.
func (s *Simulation) Stats() *tracing.StatsCollector {
	return s.stats
}

// Registry returns the Prometheus registry of the simulation.
func (s *Simulation) Registry() *prometheus.Registry {
	return s.registry
}

// RegisterNetwork starts observing the flits of a network.
func (s *Simulation) RegisterNetwork(n *networking.Network) {
	if _, ok := s.networkNameIndex[n.Name()]; ok {
		panic("network " + n.Name() + " already registered")
	}

	s.networks = append(s.networks, n)
	s.networkNameIndex[n.Name()] = len(s.networks) - 1

	tracing.CollectNetworkTrace(n, s.stats)
	n.AcceptPortHook(s.metrics)

	if s.packetRecorder != nil {
		tracing.CollectNetworkTrace(n, s.packetRecorder)
	}

	if s.logger.Core().Enabled(zap.DebugLevel) {
		tracing.CollectNetworkTrace(n, tracing.NewPacketLogger(s.logger))
	}

	if s.monitor != nil {
		s.monitor.RegisterNetwork(n)
	}
}

// GetNetworkByName returns the network with the given name, or nil.
func (s *Simulation) GetNetworkByName(name string) *networking.Network {
	i, ok := s.networkNameIndex[name]
	if !ok {
		return nil
	}

	return s.networks[i]
}

// RegisterComponent registers a component, such as a traffic source, with
// the simulation.
func (s *Simulation) RegisterComponent(c sim.Named) {
	if s.compNameIndex == nil {
		s.compNameIndex = make(map[string]int)
	}

	compName := c.Name()
	if _, ok := s.compNameIndex[compName]; ok {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Named {
	i, ok := s.compNameIndex[name]
	if !ok {
		return nil
	}

	return s.components[i]
}

// Components returns all registered components.
func (s *Simulation) Components() []sim.Named {
	return s.components
}

// AddProperty records a property of the run, such as a configuration value.
func (s *Simulation) AddProperty(property, value string) {
	if s.execRecorder != nil {
		s.execRecorder.AddProperty(property, value)
	}
}

// Run runs the engine until no event is left.
func (s *Simulation) Run() error {
	if s.execRecorder != nil {
		s.execRecorder.Start()
	}

	return s.engine.Run()
}

// Terminate writes the remaining records and closes the output.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	if err := s.execRecorder.End(); err != nil {
		return err
	}

	return s.dataRecorder.Close()
}
