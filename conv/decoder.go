package conv

import (
	"errors"
	"fmt"
)

var ErrUnknownStrategy = errors.New("unknown decoding strategy")

type Strategy int

const (
	// Lookahead is the three-symbol table decoder on quantized symbols.
	Lookahead Strategy = iota
	// HardDP is the Viterbi decoder on quantized symbols.
	HardDP
	// SoftDP is the Viterbi decoder on unquantized observations.
	SoftDP
)

var strategyNames = [...]string{
	Lookahead: "hard",
	HardDP:    "hard-dp",
	SoftDP:    "soft",
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Lookahead, HardDP, SoftDP}
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("%d: %w", int(s), ErrUnknownStrategy)
	}
	return []byte(strategyNames[s]), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Decoder turns channel observations back into the tail-forced bit
// sequence. Hard strategies quantize internally.
type Decoder interface {
	Strategy() Strategy
	Decode(rx []Soft) ([]Bit, error)
}

type LookaheadDecoder struct {
	Table *Table
}

func (LookaheadDecoder) Strategy() Strategy { return Lookahead }

func (d LookaheadDecoder) Decode(rx []Soft) ([]Bit, error) {
	return DecodeLookahead(d.Table, QuantizeAll(rx))
}

type HardDecoder struct {
	Options *DPOptions
}

func (HardDecoder) Strategy() Strategy { return HardDP }

func (d HardDecoder) Decode(rx []Soft) ([]Bit, error) {
	return DecodeHardDP(QuantizeAll(rx), len(rx), d.Options)
}

type SoftDecoder struct {
	Options *DPOptions
}

func (SoftDecoder) Strategy() Strategy { return SoftDP }

func (d SoftDecoder) Decode(rx []Soft) ([]Bit, error) {
	return DecodeSoftDP(rx, len(rx), d.Options)
}

// NewDecoder returns the decoder for s. The look-ahead decoder shares
// DefaultTable; opts only affects the DP decoders.
func NewDecoder(s Strategy, opts *DPOptions) (Decoder, error) {
	switch s {
	case Lookahead:
		return LookaheadDecoder{Table: DefaultTable()}, nil
	case HardDP:
		return HardDecoder{Options: opts}, nil
	case SoftDP:
		return SoftDecoder{Options: opts}, nil
	}
	return nil, fmt.Errorf("%v: %w", s, ErrUnknownStrategy)
}
