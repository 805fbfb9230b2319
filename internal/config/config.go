// Package config implements the configuration for the spn statistical harness.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel            = "NOTICE"
	defaultCorrectnessTrials   = 1000
	defaultPerformanceTrials   = 3000
	defaultDiffusionTrials     = 100
	defaultConfusionTrials     = 100
	defaultEquivalenceSamples  = 1000
	defaultEquivalenceSeedSize = 32
	defaultJSONFile            = "results.json"
	defaultTextFile            = "results.txt"

	// RNGSeedSize is the size, in bytes, of Bench.RNGSeed once decoded.
	RNGSeedSize = 32
)

var defaultSeedSizes = []int{8, 16, 32, 64}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Bench is the statistical harness configuration.
type Bench struct {
	// SeedSizes lists the seed lengths, in bits, that every test is run for.
	SeedSizes []int

	// CorrectnessTrials is the number of round trips per seed size.
	CorrectnessTrials int

	// PerformanceTrials is the number of timed GEN/ENC/DEC calls per seed size.
	PerformanceTrials int

	// DiffusionTrials is the number of random messages per seed size; every
	// bit of each message is flipped in turn.
	DiffusionTrials int

	// ConfusionTrials is the number of random seeds per seed size; every
	// bit of each seed is flipped in turn.
	ConfusionTrials int

	// EquivalenceSamples is the number of random seeds encrypting the same
	// message in the key equivalence test.
	EquivalenceSamples int

	// EquivalenceSeedSize is the seed length used by the key equivalence test.
	EquivalenceSeedSize int

	// Workers bounds the number of trials run in parallel. Zero means one
	// per CPU.
	Workers int

	// RNGSeed is a hex encoded 32 byte seed for the trial generator. When
	// empty a fresh seed is drawn for every run.
	RNGSeed string
}

func (b *Bench) fixup() {
	if len(b.SeedSizes) == 0 {
		b.SeedSizes = append([]int(nil), defaultSeedSizes...)
	}
	if b.CorrectnessTrials == 0 {
		b.CorrectnessTrials = defaultCorrectnessTrials
	}
	if b.PerformanceTrials == 0 {
		b.PerformanceTrials = defaultPerformanceTrials
	}
	if b.DiffusionTrials == 0 {
		b.DiffusionTrials = defaultDiffusionTrials
	}
	if b.ConfusionTrials == 0 {
		b.ConfusionTrials = defaultConfusionTrials
	}
	if b.EquivalenceSamples == 0 {
		b.EquivalenceSamples = defaultEquivalenceSamples
	}
	if b.EquivalenceSeedSize == 0 {
		b.EquivalenceSeedSize = defaultEquivalenceSeedSize
	}
	if b.Workers == 0 {
		b.Workers = runtime.NumCPU()
	}
}

func (b *Bench) validate() error {
	for _, n := range b.SeedSizes {
		if n < 1 {
			return fmt.Errorf("config: Bench: SeedSizes entry %d is not positive", n)
		}
	}
	for name, v := range map[string]int{
		"CorrectnessTrials":   b.CorrectnessTrials,
		"PerformanceTrials":   b.PerformanceTrials,
		"DiffusionTrials":     b.DiffusionTrials,
		"ConfusionTrials":     b.ConfusionTrials,
		"EquivalenceSamples":  b.EquivalenceSamples,
		"EquivalenceSeedSize": b.EquivalenceSeedSize,
		"Workers":             b.Workers,
	} {
		if v < 0 {
			return fmt.Errorf("config: Bench: %s is negative", name)
		}
	}
	if b.RNGSeed != "" {
		if _, err := b.Seed(); err != nil {
			return err
		}
	}
	return nil
}

// Seed decodes RNGSeed. It returns nil if no seed is configured.
func (b *Bench) Seed() ([]byte, error) {
	if b.RNGSeed == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(b.RNGSeed)
	if err != nil {
		return nil, fmt.Errorf("config: Bench: RNGSeed is not hex: %v", err)
	}
	if len(raw) != RNGSeedSize {
		return nil, fmt.Errorf("config: Bench: RNGSeed must be %d bytes, got %d", RNGSeedSize, len(raw))
	}
	return raw, nil
}

// Output controls where reports are written.
type Output struct {
	// JSONFile receives the structured report. Empty disables it.
	JSONFile string

	// TextFile receives the human readable report. Empty disables it.
	TextFile string

	// CBORFile receives the report in CBOR. Empty disables it.
	CBORFile string

	// DataDir holds the results archive. Empty disables archiving.
	DataDir string
}

// Metrics is the Prometheus configuration.
type Metrics struct {
	// Address is the listen address of the /metrics endpoint, e.g.
	// "127.0.0.1:9100". Empty disables the endpoint.
	Address string
}

// Config is the top level harness configuration.
type Config struct {
	Logging *Logging
	Bench   *Bench
	Output  *Output
	Metrics *Metrics
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most people should call one of the Load variants
// instead.
func (c *Config) FixupAndValidate() error {
	if c.Logging == nil {
		c.Logging = &Logging{Level: defaultLogLevel}
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if c.Bench == nil {
		c.Bench = &Bench{}
	}
	c.Bench.fixup()
	if err := c.Bench.validate(); err != nil {
		return err
	}
	if c.Output == nil {
		c.Output = &Output{
			JSONFile: defaultJSONFile,
			TextFile: defaultTextFile,
		}
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}
	return nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := new(Config)
	if err := c.FixupAndValidate(); err != nil {
		panic(err)
	}
	return c
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	if f == "" {
		return nil, errors.New("config file must be specified")
	}
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %v", err)
	}
	return Load(b)
}
