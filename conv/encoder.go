// Package conv implements the rate 1/2, memory 2 convolutional code with
// generators 111 and 101, an AWGN channel model and three decoders for it.
package conv

import (
	"errors"
	"fmt"
)

const (
	NumStates  = 4 // 2-bit shift register
	NumSymbols = 4 // 2 coded bits per input bit
	TailLen    = 2 // zero bits that flush the encoder back to StateOO
)

var (
	ErrInvalidBit     = errors.New("bit must be 0 or 1")
	ErrIndexRange     = errors.New("index out of range")
	ErrShortSequence  = fmt.Errorf("sequence shorter than %d tail bits", TailLen)
	ErrTailNotFlushed = fmt.Errorf("last %d bits must be 0", TailLen)
)

type Bit uint8

// State is the encoder memory: the most recent input bit followed by the
// one before it.
type State uint8

const (
	StateOO State = iota
	StateOI
	StateIO
	StateII
)

// Symbol is the pair of coded bits sent for one input bit. The first
// letter is the first bit on the air.
type Symbol uint8

const (
	SymbolOO Symbol = iota
	SymbolOI
	SymbolIO
	SymbolII
)

func (s State) Index() int {
	return int(s)
}

func StateFromIndex(i int) (State, error) {
	if i < 0 || i >= NumStates {
		return 0, fmt.Errorf("state %d: %w", i, ErrIndexRange)
	}
	return State(i), nil
}

func (s State) String() string {
	return bitPairString(uint8(s))
}

func (s Symbol) Index() int {
	return int(s)
}

func SymbolFromIndex(i int) (Symbol, error) {
	if i < 0 || i >= NumSymbols {
		return 0, fmt.Errorf("symbol %d: %w", i, ErrIndexRange)
	}
	return Symbol(i), nil
}

// Bits returns the two coded bits in transmission order.
func (s Symbol) Bits() (Bit, Bit) {
	return Bit(s>>1) & 1, Bit(s) & 1
}

func (s Symbol) String() string {
	return bitPairString(uint8(s))
}

func bitPairString(v uint8) string {
	return fmt.Sprintf("%d%d", (v>>1)&1, v&1)
}

type transition struct {
	next State
	sym  Symbol
}

// Generators 111 and 101: c1 = b^s1^s2, c2 = b^s2, next = (b, s1).
var transitions = [NumStates][2]transition{
	StateOO: {{StateOO, SymbolOO}, {StateIO, SymbolII}},
	StateOI: {{StateOO, SymbolII}, {StateIO, SymbolOO}},
	StateIO: {{StateOI, SymbolIO}, {StateII, SymbolOI}},
	StateII: {{StateOI, SymbolOI}, {StateII, SymbolIO}},
}

// Step feeds one bit into the encoder. Only the low bit of b is used.
func Step(s State, b Bit) (State, Symbol) {
	t := transitions[s&3][b&1]
	return t.next, t.sym
}

// Distance is the number of coded bits in which a and b differ.
func Distance(a, b Symbol) int {
	x := (a ^ b) & 3
	return int(x>>1) + int(x&1)
}

// EncodeSequence folds Step over bits, starting from initial.
func EncodeSequence(initial State, bits []Bit) (State, []Symbol) {
	state := initial
	out := make([]Symbol, 0, len(bits))
	for _, b := range bits {
		var sym Symbol
		state, sym = Step(state, b)
		out = append(out, sym)
	}
	return state, out
}

// Encode encodes a tail-forced bit sequence from StateOO. The encoder is
// back in StateOO after the last symbol.
func Encode(bits []Bit) ([]Symbol, error) {
	if len(bits) < TailLen {
		return nil, ErrShortSequence
	}
	for i, b := range bits {
		if b > 1 {
			return nil, fmt.Errorf("bit %d = %d: %w", i, b, ErrInvalidBit)
		}
	}
	for _, b := range bits[len(bits)-TailLen:] {
		if b != 0 {
			return nil, ErrTailNotFlushed
		}
	}
	_, out := EncodeSequence(StateOO, bits)
	return out, nil
}

// ForceTail returns a copy of bits with the last TailLen bits cleared.
func ForceTail(bits []Bit) []Bit {
	out := make([]Bit, len(bits))
	copy(out, bits)
	for i := max(0, len(out)-TailLen); i < len(out); i++ {
		out[i] = 0
	}
	return out
}
