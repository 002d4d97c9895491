package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sarchlab/nocsim/datarecording"
	"github.com/sarchlab/nocsim/monitoring"
	"github.com/sarchlab/nocsim/sim"
	"github.com/sarchlab/nocsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordingOn    bool
	packetTrace    bool
	outputFileName string
	logger         *zap.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:   true,
		recordingOn: true,
		logger:      zap.NewNop(),
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page once the server starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithoutRecording disables the SQLite output.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithPacketTrace records every flit event in the packet_trace table.
func (b Builder) WithPacketTrace() Builder {
	b.packetTrace = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithLogger sets the logger that flit events are written to at debug level.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.packetTrace {
		panic("packet trace cannot be recorded when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:               xid.New().String(),
		logger:           b.logger,
		networkNameIndex: make(map[string]int),
	}

	s.engine = sim.NewSerialEngine()
	s.stats = tracing.NewStatsCollector()
	s.registry = prometheus.NewRegistry()
	s.metrics = monitoring.NewMetricsHook(s.registry, s.engine)
	s.engine.AcceptHook(s.metrics)

	if b.logger.Core().Enabled(zap.DebugLevel) {
		s.engine.AcceptHook(sim.NewEventLogger(b.logger.Named("engine")))
	}

	if b.recordingOn {
		if err := b.buildRecorders(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(b.monitorPort).
			WithBrowser(b.openBrowser)
		s.monitor.RegisterEngine(s.engine)
		s.monitor.RegisterStats(s.stats)
		s.monitor.RegisterGatherer(s.registry)

		url, err := s.monitor.StartServer()
		if err != nil {
			return nil, err
		}

		s.monitorURL = url
	}

	return s, nil
}

func (b Builder) buildRecorders(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "nocsim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return err
	}

	s.dataRecorder = recorder

	s.execRecorder, err = datarecording.NewExecRecorder(recorder)
	if err != nil {
		return err
	}

	if b.packetTrace {
		s.packetRecorder, err = tracing.NewPacketRecorder(recorder)
		if err != nil {
			return err
		}
	}

	return nil
}
