package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/jancona/convsim/conv"
	"gopkg.in/ini.v1"
)

// Section is the INI section holding simulation settings.
const Section = "simulation"

// MaxGridPoints bounds the number of SNR points in one sweep.
const MaxGridPoints = 10000

var ErrInvalidConfig = errors.New("invalid configuration")

// Config describes one SNR sweep.
type Config struct {
	Strategy   conv.Strategy
	StartDB    float64
	StepDB     float64
	EndDB      float64
	BitsLen    int // sent bits per trial, tail included
	Iterations int // trials per SNR point
	Workers    int
	Seed       uint64
	TieBreak   conv.TieBreak
	FrameCheck bool
}

func DefaultConfig() Config {
	return Config{
		Strategy:   conv.HardDP,
		StartDB:    1.0,
		StepDB:     0.5,
		EndDB:      5.0,
		BitsLen:    1024,
		Iterations: 10000,
		Workers:    1,
		Seed:       1,
		TieBreak:   conv.TieLowest,
		FrameCheck: true,
	}
}

// LoadConfig reads the [simulation] section of an INI file on top of
// DefaultConfig. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config '%s': %w", path, err)
	}
	return FromINI(f)
}

func FromINI(f *ini.File) (Config, error) {
	c := DefaultConfig()
	sec := f.Section(Section)

	var err error
	if sec.HasKey("strategy") {
		if c.Strategy, err = conv.ParseStrategy(sec.Key("strategy").String()); err != nil {
			return c, fmt.Errorf("strategy: %w", err)
		}
	}
	if sec.HasKey("tie_break") {
		if c.TieBreak, err = conv.ParseTieBreak(sec.Key("tie_break").String()); err != nil {
			return c, fmt.Errorf("tie_break: %w", err)
		}
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"start_db", &c.StartDB},
		{"step_db", &c.StepDB},
		{"end_db", &c.EndDB},
	}
	for _, fl := range floats {
		if !sec.HasKey(fl.key) {
			continue
		}
		if *fl.dst, err = sec.Key(fl.key).Float64(); err != nil {
			return c, fmt.Errorf("%s: %w", fl.key, err)
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"bits_len", &c.BitsLen},
		{"iterations", &c.Iterations},
		{"workers", &c.Workers},
	}
	for _, in := range ints {
		if !sec.HasKey(in.key) {
			continue
		}
		if *in.dst, err = sec.Key(in.key).Int(); err != nil {
			return c, fmt.Errorf("%s: %w", in.key, err)
		}
	}
	if sec.HasKey("seed") {
		if c.Seed, err = sec.Key("seed").Uint64(); err != nil {
			return c, fmt.Errorf("seed: %w", err)
		}
	}
	if sec.HasKey("frame_check") {
		if c.FrameCheck, err = sec.Key("frame_check").Bool(); err != nil {
			return c, fmt.Errorf("frame_check: %w", err)
		}
	}
	return c, c.Validate()
}

// ToINI renders c as an INI file that FromINI reads back unchanged.
func (c Config) ToINI() *ini.File {
	f := ini.Empty()
	sec := f.Section(Section)
	sec.Key("strategy").SetValue(c.Strategy.String())
	sec.Key("start_db").SetValue(fmt.Sprint(c.StartDB))
	sec.Key("step_db").SetValue(fmt.Sprint(c.StepDB))
	sec.Key("end_db").SetValue(fmt.Sprint(c.EndDB))
	sec.Key("bits_len").SetValue(fmt.Sprint(c.BitsLen))
	sec.Key("iterations").SetValue(fmt.Sprint(c.Iterations))
	sec.Key("workers").SetValue(fmt.Sprint(c.Workers))
	sec.Key("seed").SetValue(fmt.Sprint(c.Seed))
	sec.Key("tie_break").SetValue(c.TieBreak.String())
	sec.Key("frame_check").SetValue(fmt.Sprint(c.FrameCheck))
	return f
}

func (c Config) Validate() error {
	switch {
	case c.StepDB <= 0 || math.IsNaN(c.StepDB):
		return fmt.Errorf("step_db %v must be positive: %w", c.StepDB, ErrInvalidConfig)
	case math.IsNaN(c.StartDB) || math.IsInf(c.StartDB, 0):
		return fmt.Errorf("start_db %v: %w", c.StartDB, ErrInvalidConfig)
	case c.EndDB < c.StartDB || math.IsNaN(c.EndDB) || math.IsInf(c.EndDB, 0):
		return fmt.Errorf("end_db %v below start_db %v: %w", c.EndDB, c.StartDB, ErrInvalidConfig)
	case (c.EndDB-c.StartDB)/c.StepDB >= MaxGridPoints:
		return fmt.Errorf("sweep from %v to %v by %v has more than %d points: %w",
			c.StartDB, c.EndDB, c.StepDB, MaxGridPoints, ErrInvalidConfig)
	case c.BitsLen < conv.TailLen:
		return fmt.Errorf("bits_len %d shorter than the %d-bit tail: %w", c.BitsLen, conv.TailLen, ErrInvalidConfig)
	case c.Iterations < 1:
		return fmt.Errorf("iterations %d: %w", c.Iterations, ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("workers %d: %w", c.Workers, ErrInvalidConfig)
	}
	if _, err := c.Strategy.MarshalText(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.TieBreak != conv.TieLowest && c.TieBreak != conv.TieRandom {
		return fmt.Errorf("tie_break %v: %w", c.TieBreak, ErrInvalidConfig)
	}
	return nil
}

// Grid returns the SNR points of the sweep: int((end-start)/step)+1 values
// from StartDB in StepDB increments.
func (c Config) Grid() []float64 {
	n := int((c.EndDB-c.StartDB)/c.StepDB) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = c.StartDB + float64(i)*c.StepDB
	}
	return out
}

// SigmaForSNR converts Eb/N0 in dB to the per-coordinate noise standard
// deviation for a rate 1/2 code with unit-energy symbols.
func SigmaForSNR(db float64) float64 {
	return 1 / math.Sqrt(2*math.Pow(10, db/10))
}

// frameCheckLen is the smallest BitsLen that holds a payload bit, the CRC
// and the tail.
const frameCheckLen = 1 + crcBits + conv.TailLen

// framed reports whether trials carry a CRC-protected payload.
func (c Config) framed() bool {
	return c.FrameCheck && c.BitsLen >= frameCheckLen
}
