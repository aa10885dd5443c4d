package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config carries everything the engine and monitor need at startup.
type Config struct {
	// Chain and identity settings
	RPCEndpoint   string `json:"rpc_endpoint"`
	OwnerAddress  string `json:"owner_address"`
	EngineAddress string `json:"engine_address"`

	// Trade parameters
	MinProfitThreshold *big.Int `json:"min_profit_threshold"`
	MaxSlippageBps     uint64   `json:"max_slippage_bps"`
	DeadlineWindow     Duration `json:"deadline_window"`

	// Allow-list bootstrap (YAML, see Allowlist)
	AllowlistFile string `json:"allowlist_file"`

	// Monitor settings
	Monitor MonitorConfig `json:"monitor"`

	// Metrics endpoint, empty disables the listener
	MetricsListen string `json:"metrics_listen"`
}

// MonitorConfig controls the polling opportunity monitor.
type MonitorConfig struct {
	Enabled       bool      `json:"enabled"`
	Interval      Duration  `json:"interval"`
	MaxPerCycle   int       `json:"max_per_cycle"`
	MinConfidence float64   `json:"min_confidence"`
	AutoExecute   bool      `json:"auto_execute"`
	QuoteCache    int       `json:"quote_cache_size"`
	RateLimit     RateLimit `json:"rate_limit"`
}

// RateLimit bounds venue quote traffic.
type RateLimit struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// Duration wraps time.Duration with "30s"-style JSON encoding.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Validate aggregates every configuration problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.OwnerAddress == "" {
		errs = append(errs, "owner_address must be specified")
	}
	if c.EngineAddress == "" {
		errs = append(errs, "engine_address must be specified")
	}
	if c.MinProfitThreshold == nil || c.MinProfitThreshold.Sign() < 0 {
		errs = append(errs, "min_profit_threshold must be non-negative")
	}
	if c.MaxSlippageBps > 1000 {
		errs = append(errs, "max_slippage_bps must not exceed 1000")
	}
	if c.Monitor.Enabled {
		if c.Monitor.Interval.Std() <= 0 {
			errs = append(errs, "monitor.interval must be positive")
		}
		if c.Monitor.MaxPerCycle <= 0 {
			errs = append(errs, "monitor.max_per_cycle must be positive")
		}
		if c.Monitor.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, "monitor.rate_limit.requests_per_second must be positive")
		}
		if c.Monitor.RateLimit.BurstSize <= 0 {
			errs = append(errs, "monitor.rate_limit.burst_size must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultConfig returns conservative defaults for everything a file can
// omit.
func DefaultConfig() *Config {
	return &Config{
		MinProfitThreshold: big.NewInt(0),
		MaxSlippageBps:     300, // 3%
		DeadlineWindow:     Duration(15 * time.Minute),
		Monitor: MonitorConfig{
			Enabled:       false,
			Interval:      Duration(30 * time.Second),
			MaxPerCycle:   10,
			MinConfidence: 0.7,
			QuoteCache:    256,
			RateLimit: RateLimit{
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
		},
	}
}

// LoadConfig reads the JSON config file, falling back to
// $HOME/.arbengine.json when the path is empty.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".arbengine.json")
	}

	file, err := os.Open(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
