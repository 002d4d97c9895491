package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/nocsim/config"
	"github.com/sarchlab/nocsim/monitoring"
	"github.com/sarchlab/nocsim/noc/traffic"
	"github.com/sarchlab/nocsim/simulation"
	"github.com/sarchlab/nocsim/tracing"
)

const configEnv = "NOCSIM_CONFIG"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic-traffic simulation and print a summary.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Output.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		check, err := cmd.Flags().GetBool("check")
		if err != nil {
			return err
		}

		_, err = runSimulation(cfg, check, logger, cmd.OutOrStdout())

		return err
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "TOML configuration file (default $"+configEnv+")")
	f.IntSlice("dims", nil, "size of every dimension, e.g. 4,4")
	f.Bool("torus", false, "wrap every dimension around")
	f.String("routing", "", "routing protocol: dor, slb, or so")
	f.IntSlice("order", nil, "dimension order of dor routing, e.g. 1,0")
	f.String("turn-model", "", "ports adaptive routing may use: none or negative-first")
	f.String("switching", "", "switching protocol: wormhole or vct")
	f.Int("buffer", 0, "input buffer capacity in flits")
	f.Int("deadlock-timeout", 0, "stalled cycles before buffered messages are dropped, 0 never")
	f.String("pattern", "", "traffic pattern: uniform, bitcomplement, transpose")
	f.Float64("rate", 0, "messages injected per node per cycle")
	f.Int("data-flits", 0, "DATA flits following every HEAD flit")
	f.Int("cycles", 0, "cycles during which traffic is generated")
	f.Int64("seed", 0, "seed of the traffic and of adaptive routing")
	f.Bool("record", false, "record the run into a SQLite file")
	f.String("output", "", "SQLite file name without extension")
	f.Bool("trace", false, "record every flit event")
	f.Bool("monitor", false, "serve the monitoring API while running")
	f.Int("monitor-port", 0, "port of the monitoring API")
	f.Bool("browser", false, "open the monitoring API in a browser")
	f.String("log-level", "", "debug, info, warn, or error")
	f.Bool("check", false, "verify that every flit is delivered exactly once")
}

// loadConfig reads the configuration file and applies the flags that were
// set on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()

	flagPath, err := f.GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	path := configPath(flagPath)

	cfg := config.Default()
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	}

	overrides := map[string]func() error{
		"dims": func() (err error) {
			cfg.Network.Dimensions, err = f.GetIntSlice("dims")
			return err
		},
		"torus": func() (err error) {
			cfg.Network.Torus, err = f.GetBool("torus")
			return err
		},
		"routing": func() (err error) {
			cfg.Routing.Protocol, err = f.GetString("routing")
			return err
		},
		"order": func() (err error) {
			cfg.Routing.Order, err = f.GetIntSlice("order")
			return err
		},
		"turn-model": func() (err error) {
			cfg.Routing.TurnModel, err = f.GetString("turn-model")
			return err
		},
		"switching": func() (err error) {
			cfg.Switching.Protocol, err = f.GetString("switching")
			return err
		},
		"buffer": func() (err error) {
			cfg.Network.BufferCapacity, err = f.GetInt("buffer")
			return err
		},
		"deadlock-timeout": func() (err error) {
			cfg.Network.DeadlockTimeoutCycles, err = f.GetInt("deadlock-timeout")
			return err
		},
		"pattern": func() (err error) {
			cfg.Traffic.Pattern, err = f.GetString("pattern")
			return err
		},
		"rate": func() (err error) {
			cfg.Traffic.InjectionRate, err = f.GetFloat64("rate")
			return err
		},
		"data-flits": func() (err error) {
			cfg.Traffic.DataFlits, err = f.GetInt("data-flits")
			return err
		},
		"cycles": func() (err error) {
			cfg.Traffic.Cycles, err = f.GetInt("cycles")
			return err
		},
		"record": func() (err error) {
			cfg.Output.Record, err = f.GetBool("record")
			return err
		},
		"output": func() (err error) {
			cfg.Output.File, err = f.GetString("output")
			return err
		},
		"trace": func() (err error) {
			cfg.Output.PacketTrace, err = f.GetBool("trace")
			return err
		},
		"monitor": func() (err error) {
			cfg.Output.Monitor, err = f.GetBool("monitor")
			return err
		},
		"monitor-port": func() (err error) {
			cfg.Output.MonitorPort, err = f.GetInt("monitor-port")
			return err
		},
		"browser": func() (err error) {
			cfg.Output.OpenBrowser, err = f.GetBool("browser")
			return err
		},
		"log-level": func() (err error) {
			cfg.Output.LogLevel, err = f.GetString("log-level")
			return err
		},
		"seed": func() error {
			seed, err := f.GetInt64("seed")
			cfg.Traffic.Seed = seed
			cfg.Routing.Seed = seed

			return err
		},
	}

	for name, apply := range overrides {
		if !f.Changed(name) {
			continue
		}

		if err := apply(); err != nil {
			return config.Config{}, errors.Wrapf(err, "flag --%s", name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// configPath prefers the --config flag over the environment.
func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}

	return os.Getenv(configEnv)
}

// runSimulation builds the network and the traffic sources, runs until all
// traffic drains, and writes a summary to out.
func runSimulation(
	cfg config.Config,
	check bool,
	logger *zap.Logger,
	out io.Writer,
) (tracing.Summary, error) {
	s, err := buildSimulation(cfg, logger)
	if err != nil {
		return tracing.Summary{}, err
	}

	engine := s.GetEngine()
	net := buildNetwork(cfg, engine)
	s.RegisterNetwork(net)

	var checker *traffic.Checker
	if check {
		checker = traffic.NewChecker()
		net.AcceptPortHook(checker)
	}

	sources, err := buildSources(cfg, engine, net)
	if err != nil {
		return tracing.Summary{}, err
	}

	for _, src := range sources {
		s.RegisterComponent(src)
		src.TickLater()
	}

	if m := s.GetMonitor(); m != nil {
		bar := m.CreateProgressBar("Cycles", uint64(cfg.Traffic.Cycles))
		engine.AcceptHook(monitoring.NewCycleProgressHook(bar, freqOf(cfg)))
		defer m.CompleteProgressBar(bar)
	}

	encoded, err := cfg.Encode()
	if err != nil {
		logger.Warn("configuration not recorded", zap.Error(err))
	} else {
		s.AddProperty("Config", string(encoded))
	}

	logger.Info("simulation started",
		zap.String("id", s.ID()),
		zap.Ints("dimensions", cfg.Network.Dimensions),
		zap.String("routing", cfg.Routing.Protocol),
		zap.String("turn_model", cfg.Routing.TurnModel),
		zap.String("switching", cfg.Switching.Protocol))

	if err := s.Run(); err != nil {
		return tracing.Summary{}, errors.Wrap(err, "run simulation")
	}

	if checker != nil {
		checker.MustHaveDeliveredAll()
	}

	if d := net.DeadlockDetector(); d != nil && d.NumRecoveries() > 0 {
		logger.Warn("network deadlocked",
			zap.Int("recoveries", d.NumRecoveries()),
			zap.Int("messages_dropped", d.NumMessagesDropped()))
	}

	summary := s.Stats().Summary()
	if err := printSummary(out, summary, engine.CurrentTime()); err != nil {
		return summary, err
	}

	logger.Info("simulation finished",
		zap.Float64("time", float64(engine.CurrentTime())),
		zap.Uint64("messages", summary.MessagesReceived))

	return summary, s.Terminate()
}

func buildSimulation(
	cfg config.Config,
	logger *zap.Logger,
) (*simulation.Simulation, error) {
	o := cfg.Output

	b := simulation.MakeBuilder().WithLogger(logger)

	if o.Monitor {
		b = b.WithMonitorPort(o.MonitorPort)
		if o.OpenBrowser {
			b = b.WithBrowser()
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if o.Record {
		b = b.WithOutputFileName(o.File)
		if o.PacketTrace {
			b = b.WithPacketTrace()
		}
	} else {
		b = b.WithoutRecording()
	}

	return b.Build()
}
