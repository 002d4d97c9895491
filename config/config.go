// Package config holds the parameters of a network-on-chip simulation run.
package config

import (
	"bytes"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is the complete description of a run.
type Config struct {
	Network   Network   `toml:"network"`
	Routing   Routing   `toml:"routing"`
	Switching Switching `toml:"switching"`
	Traffic   Traffic   `toml:"traffic"`
	Output    Output    `toml:"output"`
}

// Network describes the topology, the ports, and the channels.
type Network struct {
	Dimensions           []int   `toml:"dimensions"`
	Torus                bool    `toml:"torus"`
	BufferCapacity       int     `toml:"buffer_capacity"`
	OutputBufferCapacity int     `toml:"output_buffer_capacity"`
	ChannelDelayNS       float64 `toml:"channel_delay_ns"`
	// BandwidthGbps of 0 makes transmission instantaneous.
	BandwidthGbps   float64 `toml:"bandwidth_gbps"`
	FreqGHz         float64 `toml:"freq_ghz"`
	Synchronous     bool    `toml:"synchronous"`
	DataFlitSpeedup int     `toml:"data_flit_speedup"`
	// RetryIntervalNS of 0 retries after one clock period.
	RetryIntervalNS float64 `toml:"retry_interval_ns"`
	// MaxRetries of 0 never drops.
	MaxRetries int `toml:"max_retries"`
	// DeadlockTimeoutCycles of 0 lets a stalled network stall forever.
	DeadlockTimeoutCycles int `toml:"deadlock_timeout_cycles"`
}

// Routing selects and parameterizes the routing protocol.
type Routing struct {
	Protocol          string  `toml:"protocol"`
	Order             []int   `toml:"order,omitempty"`
	ProgressiveWeight float64 `toml:"progressive_weight"`
	LoadWeight        float64 `toml:"load_weight"`
	RemainingWeight   float64 `toml:"remaining_weight"`
	LoadThreshold     int     `toml:"load_threshold"`
	// TurnModel restricts the ports that SLB and SO consider.
	TurnModel string `toml:"turn_model"`
	Seed      int64  `toml:"seed"`
}

// Switching selects the flow control.
type Switching struct {
	Protocol string `toml:"protocol"`
}

// Traffic describes the synthetic load injected at every node.
type Traffic struct {
	Pattern       string  `toml:"pattern"`
	InjectionRate float64 `toml:"injection_rate"`
	DataFlits     int     `toml:"data_flits"`
	FlitSize      int     `toml:"flit_size"`
	Cycles        int     `toml:"cycles"`
	Seed          int64   `toml:"seed"`
}

// Output controls what a run produces besides the summary.
type Output struct {
	Record      bool   `toml:"record"`
	File        string `toml:"file"`
	PacketTrace bool   `toml:"packet_trace"`
	Monitor     bool   `toml:"monitor"`
	MonitorPort int    `toml:"monitor_port"`
	OpenBrowser bool   `toml:"open_browser"`
	LogLevel    string `toml:"log_level"`
}

// Routing protocol names.
const (
	RoutingDOR = "dor"
	RoutingSLB = "slb"
	RoutingSO  = "so"
)

// Turn model names.
const (
	TurnModelNone          = "none"
	TurnModelNegativeFirst = "negative-first"
)

// Switching protocol names.
const (
	SwitchingWormhole = "wormhole"
	SwitchingVCT      = "vct"
)

// Default returns the configuration of a 4x4 mesh with dimension-order
// routing and wormhole switching under uniform random traffic.
func Default() Config {
	return Config{
		Network: Network{
			Dimensions:      []int{4, 4},
			BufferCapacity:  4,
			ChannelDelayNS:  1,
			FreqGHz:         1,
			DataFlitSpeedup: 1,

			DeadlockTimeoutCycles: 1000,
		},
		Routing: Routing{
			Protocol:          RoutingDOR,
			ProgressiveWeight: 2,
			LoadWeight:        -4,
			RemainingWeight:   -1,
			LoadThreshold:     50,
			TurnModel:         TurnModelNegativeFirst,
			Seed:              1,
		},
		Switching: Switching{
			Protocol: SwitchingWormhole,
		},
		Traffic: Traffic{
			Pattern:       "uniform",
			InjectionRate: 0.1,
			DataFlits:     3,
			FlitSize:      16,
			Cycles:        1000,
			Seed:          1,
		},
		Output: Output{
			LogLevel: "info",
		},
	}
}

// Load reads a TOML file on top of the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	cfg, err := Decode(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load %s", path)
	}

	return cfg, nil
}

// Decode parses TOML on top of the defaults and validates the result.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	defaultDims := cfg.Network.Dimensions
	cfg.Network.Dimensions = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if cfg.Network.Dimensions == nil {
		cfg.Network.Dimensions = defaultDims
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}

	return data, nil
}

// NumNodes returns the number of nodes of the topology.
func (c Config) NumNodes() int {
	n := 1
	for _, s := range c.Network.Dimensions {
		n *= s
	}

	return n
}

// Validate rejects inconsistent values. Protocol names are lowercased.
func (c *Config) Validate() error {
	c.Routing.Protocol = strings.ToLower(c.Routing.Protocol)
	c.Switching.Protocol = strings.ToLower(c.Switching.Protocol)
	c.Routing.TurnModel = strings.ToLower(c.Routing.TurnModel)

	if err := c.Network.validate(); err != nil {
		return errors.Wrap(err, "network")
	}

	if err := c.Routing.validate(len(c.Network.Dimensions)); err != nil {
		return errors.Wrap(err, "routing")
	}

	switch c.Switching.Protocol {
	case SwitchingWormhole, SwitchingVCT:
	default:
		return errors.Errorf("switching: unknown protocol %q",
			c.Switching.Protocol)
	}

	if err := c.Traffic.validate(); err != nil {
		return errors.Wrap(err, "traffic")
	}

	// A VCT router only forwards a HEAD once the next buffer holds the
	// whole message.
	if c.Switching.Protocol == SwitchingVCT &&
		c.Network.BufferCapacity < c.Traffic.DataFlits+1 {
		return errors.Errorf(
			"switching: vct needs buffer_capacity %d to hold %d flits",
			c.Network.BufferCapacity, c.Traffic.DataFlits+1)
	}

	if c.Output.PacketTrace && !c.Output.Record {
		return errors.New("output: packet_trace requires record")
	}

	return nil
}

func (n Network) validate() error {
	if len(n.Dimensions) == 0 {
		return errors.New("dimensions must not be empty")
	}

	for d, s := range n.Dimensions {
		if s < 1 {
			return errors.Errorf("dimension %d has size %d", d, s)
		}
	}

	switch {
	case n.BufferCapacity < 1:
		return errors.Errorf("buffer_capacity %d is less than 1",
			n.BufferCapacity)
	case n.OutputBufferCapacity < 0:
		return errors.Errorf("output_buffer_capacity %d is negative",
			n.OutputBufferCapacity)
	case n.ChannelDelayNS < 0:
		return errors.Errorf("channel_delay_ns %g is negative",
			n.ChannelDelayNS)
	case n.BandwidthGbps < 0:
		return errors.Errorf("bandwidth_gbps %g is negative", n.BandwidthGbps)
	case n.FreqGHz <= 0:
		return errors.Errorf("freq_ghz %g must be positive", n.FreqGHz)
	case n.DataFlitSpeedup < 1:
		return errors.Errorf("data_flit_speedup %d is less than 1",
			n.DataFlitSpeedup)
	case n.RetryIntervalNS < 0:
		return errors.Errorf("retry_interval_ns %g is negative",
			n.RetryIntervalNS)
	case n.MaxRetries < 0:
		return errors.Errorf("max_retries %d is negative", n.MaxRetries)
	case n.DeadlockTimeoutCycles < 0:
		return errors.Errorf("deadlock_timeout_cycles %d is negative",
			n.DeadlockTimeoutCycles)
	}

	return nil
}

func (r Routing) validate(numDims int) error {
	switch r.Protocol {
	case RoutingDOR, RoutingSLB, RoutingSO:
	default:
		return errors.Errorf("unknown protocol %q", r.Protocol)
	}

	if len(r.Order) > 0 {
		if len(r.Order) != numDims {
			return errors.Errorf("order %v does not cover %d dimensions",
				r.Order, numDims)
		}

		seen := make([]bool, numDims)
		for _, d := range r.Order {
			if d < 0 || d >= numDims || seen[d] {
				return errors.Errorf("order %v is not a permutation", r.Order)
			}

			seen[d] = true
		}
	}

	switch r.TurnModel {
	case TurnModelNone, TurnModelNegativeFirst:
	default:
		return errors.Errorf("unknown turn_model %q", r.TurnModel)
	}

	if r.LoadThreshold < 0 || r.LoadThreshold > 100 {
		return errors.Errorf("load_threshold %d is outside [0, 100]",
			r.LoadThreshold)
	}

	return nil
}

func (t Traffic) validate() error {
	switch {
	case t.InjectionRate < 0 || t.InjectionRate > 1:
		return errors.Errorf("injection_rate %g is outside [0, 1]",
			t.InjectionRate)
	case t.DataFlits < 0:
		return errors.Errorf("data_flits %d is negative", t.DataFlits)
	case t.FlitSize < 1:
		return errors.Errorf("flit_size %d is less than 1", t.FlitSize)
	case t.Cycles < 0:
		return errors.Errorf("cycles %d is negative", t.Cycles)
	}

	return nil
}
