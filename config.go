package qec

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BreakerConfig configures the oracle circuit breaker.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" toml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" toml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max" toml:"half_open_max"`
}

// RateLimitConfig throttles oracle calls. Burst 0 turns throttling off.
type RateLimitConfig struct {
	Burst    int           `yaml:"burst" toml:"burst"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// Config holds everything a sweep needs.
type Config struct {
	Workers     int       `yaml:"workers" toml:"workers"`
	Seed        uint64    `yaml:"seed" toml:"seed"`
	Shots       int       `yaml:"shots" toml:"shots"`
	NoiseLevels []float64 `yaml:"noise_levels" toml:"noise_levels"`
	Ratio       float64   `yaml:"ratio" toml:"ratio"`
	MaxErrors   int       `yaml:"max_errors" toml:"max_errors"`
	MaxAttempts int       `yaml:"max_attempts" toml:"max_attempts"`
	Rounds      int       `yaml:"rounds" toml:"rounds"`
	NoiseModel  string    `yaml:"noise_model" toml:"noise_model"`

	Mode      string `yaml:"mode" toml:"mode"`
	Criterion string `yaml:"criterion" toml:"criterion"`
	TieBreak  string `yaml:"tie_break" toml:"tie_break"`
	State     string `yaml:"state" toml:"state"`

	ReadoutFlip float64         `yaml:"readout_flip" toml:"readout_flip"`
	Breaker     BreakerConfig   `yaml:"breaker" toml:"breaker"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogPretty bool   `yaml:"log_pretty" toml:"log_pretty"`
	StorePath string `yaml:"store_path" toml:"store_path"`
}

// DefaultConfig prepares |0_L⟩ with 200 shots, r=0.25,
// at most two errors, 20 postselection attempts per shot.
func DefaultConfig() *Config {
	return &Config{
		Workers:     0,
		Seed:        1,
		Shots:       200,
		NoiseLevels: []float64{0, 0.05, 0.15},
		Ratio:       DefaultRatio,
		MaxErrors:   DefaultMaxErrors,
		MaxAttempts: DefaultMaxAttempts,
		Rounds:      5,
		NoiseModel:  "geometric",
		Mode:        "active",
		Criterion:   "outcome",
		TieBreak:    "ambiguous",
		State:       "zero",
		Breaker: BreakerConfig{
			MaxFailures:  5,
			ResetTimeout: time.Second,
			HalfOpenMax:  1,
		},
		LogLevel:  "info",
		StorePath: "",
	}
}

/*
LoadConfig builds a Config from defaults, an optional file and the
environment. A .env file in the working directory is loaded first when
present. The file format follows the extension (.yaml/.yml or .toml); a
missing file is not an error. QEC_* environment variables win over the file.
*/
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

/*
ApplyEnvOverrides reads QEC_* variables. A variable that is set but does not
parse is an ErrParameterBounds naming the variable; unset variables keep the
current value.
*/
func (c *Config) ApplyEnvOverrides() error {
	env := &envReader{}

	c.Workers = env.asInt("QEC_WORKERS", c.Workers)
	c.Seed = env.asUint64("QEC_SEED", c.Seed)
	c.Shots = env.asInt("QEC_SHOTS", c.Shots)
	c.NoiseLevels = env.asFloats("QEC_NOISE_LEVELS", c.NoiseLevels)
	c.Ratio = env.asFloat("QEC_RATIO", c.Ratio)
	c.MaxErrors = env.asInt("QEC_MAX_ERRORS", c.MaxErrors)
	c.MaxAttempts = env.asInt("QEC_MAX_ATTEMPTS", c.MaxAttempts)
	c.Rounds = env.asInt("QEC_ROUNDS", c.Rounds)
	c.NoiseModel = getEnv("QEC_NOISE_MODEL", c.NoiseModel)
	c.Mode = getEnv("QEC_MODE", c.Mode)
	c.Criterion = getEnv("QEC_CRITERION", c.Criterion)
	c.TieBreak = getEnv("QEC_TIE_BREAK", c.TieBreak)
	c.State = getEnv("QEC_STATE", c.State)
	c.ReadoutFlip = env.asFloat("QEC_READOUT_FLIP", c.ReadoutFlip)
	c.RateLimit.Burst = env.asInt("QEC_RATE_BURST", c.RateLimit.Burst)
	c.LogLevel = getEnv("QEC_LOG_LEVEL", c.LogLevel)
	c.StorePath = getEnv("QEC_STORE_PATH", c.StorePath)

	return env.err
}

// Validate checks ranges and that every enum spelling parses.
func (c *Config) Validate() error {
	if c.Shots < 0 {
		return fmt.Errorf("%w: shots=%d", ErrParameterBounds, c.Shots)
	}
	for _, p := range c.NoiseLevels {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: noise level %g", ErrParameterBounds, p)
		}
	}
	if c.Ratio <= 0 || c.Ratio > 1 {
		return fmt.Errorf("%w: ratio=%g", ErrParameterBounds, c.Ratio)
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("%w: max_errors=%d", ErrParameterBounds, c.MaxErrors)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts=%d", ErrParameterBounds, c.MaxAttempts)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds=%d", ErrParameterBounds, c.Rounds)
	}
	if c.ReadoutFlip < 0 || c.ReadoutFlip > 1 {
		return fmt.Errorf("%w: readout_flip=%g", ErrParameterBounds, c.ReadoutFlip)
	}
	if c.RateLimit.Burst < 0 || (c.RateLimit.Burst > 0 && c.RateLimit.Interval <= 0) {
		return fmt.Errorf("%w: rate_limit=%+v", ErrParameterBounds, c.RateLimit)
	}
	if _, err := ParseNoiseKind(c.NoiseModel); err != nil {
		return err
	}
	if _, err := c.ParsedMode(); err != nil {
		return err
	}
	if _, err := ParseCriterion(c.Criterion); err != nil {
		return err
	}
	if _, err := ParseTieBreak(c.TieBreak); err != nil {
		return err
	}
	if _, err := ParseState(c.State); err != nil {
		return err
	}
	return nil
}

// ParsedMode returns the configured mode.
func (c *Config) ParsedMode() (Mode, error) {
	return ParseMode(c.Mode)
}

/*
CycleOptions turns the configuration into cycle options. The mode is left
out because sweeps pass it explicitly.
*/
func (c *Config) CycleOptions() ([]CycleOption, error) {
	criterion, err := ParseCriterion(c.Criterion)
	if err != nil {
		return nil, err
	}
	tieBreak, err := ParseTieBreak(c.TieBreak)
	if err != nil {
		return nil, err
	}
	state, err := ParseState(c.State)
	if err != nil {
		return nil, err
	}
	return []CycleOption{
		WithCriterion(criterion),
		WithDecoder(Decoder{TieBreak: tieBreak}),
		WithState(state),
		WithMaxAttempts(c.MaxAttempts),
	}, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and keeps the first failure.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q", ErrParameterBounds, key, value)
	}
}

func (r *envReader) asInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return intVal
}

func (r *envReader) asUint64(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return u
}

func (r *envReader) asFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return f
}

// asFloats reads a comma separated list.
func (r *envReader) asFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []float64
	for _, field := range strings.Split(value, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			r.fail(key, value)
			return defaultValue
		}
		out = append(out, f)
	}
	return out
}
