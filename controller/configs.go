package controller

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sim"
	"github.com/calvinmclean/tensile/twchart"

	"gopkg.in/yaml.v2"
)

// SerialPortSim selects the simulated instrument instead of a serial port
const SerialPortSim = "sim"

// Config has the host settings. Values are loaded from an optional YAML file and then overridden
// by environment variables
type Config struct {
	SerialPort   string        `yaml:"serial_port"`
	BaudRate     int           `yaml:"baud_rate"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	OutputDir    string        `yaml:"output_dir"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	TWChartAddr  string        `yaml:"twchart_addr"`
	SessionName  string        `yaml:"session_name"`
	// Channels maps chart probe positions to telemetry series, like "1=Force,2=Displacement"
	Channels     string        `yaml:"channels"`
	Specimen     sim.Specimen  `yaml:"specimen"`
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		BaudRate:     tensile.BaudRate,
		ReadyTimeout: tensile.ReadyTimeout,
		OutputDir:    ".",
		Specimen:     sim.DefaultSpecimen(),
	}
}

// LoadConfig reads path on top of the defaults. An empty path returns the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}

	err = yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from TENSILE_* and TWCHART_ADDR environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TENSILE_PORT"); v != "" {
		c.SerialPort = v
	}
	if v := os.Getenv("TENSILE_BAUD"); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TENSILE_BAUD %q: %w", v, err)
		}
		c.BaudRate = baud
	}
	if v := os.Getenv("TENSILE_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("TENSILE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("TWCHART_ADDR"); v != "" {
		c.TWChartAddr = v
	}
	if v := os.Getenv("TENSILE_SESSION"); v != "" {
		c.SessionName = v
	}
	return nil
}

func (c Config) channels() string {
	if c.Channels == "" {
		return twchart.DefaultChannels
	}
	return c.Channels
}
