package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Awards  AwardsConfig  `yaml:"awards"`
	Display DisplayConfig `yaml:"display"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClusterConfig contains DX cluster connection settings
type ClusterConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Callsign         string   `yaml:"callsign"`
	LoginCommands    []string `yaml:"login_commands"`
	ReconnectSeconds int      `yaml:"reconnect_seconds"`
}

// AwardsConfig contains award tracking settings
type AwardsConfig struct {
	GridBand         string `yaml:"grid_band"`
	HomeGrid         string `yaml:"home_grid"`
	NeededTTLMinutes int    `yaml:"needed_ttl_minutes"`
}

// DisplayConfig contains spot display settings
type DisplayConfig struct {
	BufferSize             int      `yaml:"buffer_size"`
	Bands                  []string `yaml:"bands"`
	GridPrefix             string   `yaml:"grid_prefix"`
	EntityContains         string   `yaml:"entity_contains"`
	BlockedSpotters        []string `yaml:"blocked_spotters"`
	RebuildIntervalSeconds int      `yaml:"rebuild_interval_seconds"`
}

// DataConfig contains paths to the award and prefix data files
type DataConfig struct {
	CountryFile   string `yaml:"country_file"`
	EntityMapFile string `yaml:"entity_map_file"`
	ChallengeFile string `yaml:"challenge_file"`
	EligibleFile  string `yaml:"eligible_file"`
	WorkedFile    string `yaml:"worked_grids_file"`
	ADIFFile      string `yaml:"adif_file"`
	GridDB        string `yaml:"grid_db"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Load loads configuration from a YAML file and applies defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cluster.Port == 0 {
		c.Cluster.Port = 7300
	}
	if c.Cluster.ReconnectSeconds == 0 {
		c.Cluster.ReconnectSeconds = 5
	}
	if c.Awards.GridBand == "" {
		c.Awards.GridBand = "6m"
	}
	if c.Awards.NeededTTLMinutes == 0 {
		c.Awards.NeededTTLMinutes = 30
	}
	if c.Display.BufferSize == 0 {
		c.Display.BufferSize = 500
	}
	if c.Display.RebuildIntervalSeconds == 0 {
		c.Display.RebuildIntervalSeconds = 2
	}
}

func (c *Config) validate() error {
	if c.Cluster.Host == "" {
		return fmt.Errorf("cluster.host is required")
	}
	if c.Cluster.Callsign == "" {
		return fmt.Errorf("cluster.callsign is required")
	}
	return nil
}

// NeededTTL returns the needed-buffer TTL as a duration.
func (c *Config) NeededTTL() time.Duration {
	return time.Duration(c.Awards.NeededTTLMinutes) * time.Minute
}

// ReconnectDelay returns the reconnect wait as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Cluster.ReconnectSeconds) * time.Second
}

// RebuildInterval returns the display rebuild cap as a duration.
func (c *Config) RebuildInterval() time.Duration {
	return time.Duration(c.Display.RebuildIntervalSeconds) * time.Second
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Cluster: %s:%d (as %s)\n", c.Cluster.Host, c.Cluster.Port, c.Cluster.Callsign)
	fmt.Printf("Awards: grid band %s, needed TTL %dm\n", c.Awards.GridBand, c.Awards.NeededTTLMinutes)
	fmt.Printf("Display: buffer %d, rebuild every %ds\n", c.Display.BufferSize, c.Display.RebuildIntervalSeconds)
	if len(c.Display.Bands) > 0 {
		fmt.Printf("Bands: %s\n", strings.Join(c.Display.Bands, ", "))
	}
	if len(c.Display.BlockedSpotters) > 0 {
		fmt.Printf("Blocked spotters: %s\n", strings.Join(c.Display.BlockedSpotters, ", "))
	}
}
