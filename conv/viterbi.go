package conv

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"golang.org/x/exp/constraints"
)

var (
	ErrLengthMismatch = errors.New("observation count does not match sequence length")
	ErrNoPath         = errors.New("no surviving path ends in state OO")
	ErrNoRand         = errors.New("random tie-break requires a random source")
	ErrUnknownTie     = errors.New("unknown tie-break policy")
)

// TieBreak selects which predecessor survives when two paths reach a
// trellis node at equal cost.
type TieBreak int

const (
	// TieLowest keeps the first relaxation: the lower predecessor state,
	// bit 0 before bit 1.
	TieLowest TieBreak = iota
	// TieRandom replaces the survivor on a fair coin flip.
	TieRandom
)

func (t TieBreak) String() string {
	switch t {
	case TieLowest:
		return "lowest"
	case TieRandom:
		return "random"
	}
	return fmt.Sprintf("TieBreak(%d)", int(t))
}

func ParseTieBreak(name string) (TieBreak, error) {
	switch name {
	case "lowest", "":
		return TieLowest, nil
	case "random":
		return TieRandom, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownTie)
}

// DPOptions configures the dynamic-programming decoders. A nil *DPOptions
// means TieLowest.
type DPOptions struct {
	TieBreak TieBreak
	// Rand is required for TieRandom. It is not safe for concurrent use,
	// so decoders running in parallel need their own.
	Rand *rand.Rand
}

func (o *DPOptions) resolve() (TieBreak, *rand.Rand, error) {
	if o == nil {
		return TieLowest, nil, nil
	}
	switch o.TieBreak {
	case TieLowest:
		return TieLowest, nil, nil
	case TieRandom:
		if o.Rand == nil {
			return 0, nil, ErrNoRand
		}
		return TieRandom, o.Rand, nil
	}
	return 0, nil, fmt.Errorf("%v: %w", o.TieBreak, ErrUnknownTie)
}

type metric interface {
	constraints.Integer | constraints.Float
}

// node is one trellis cell: the cheapest known way to be in a state at a
// time, and the edge that got there.
type node[M metric] struct {
	cost M
	prev State
	bit  Bit
	ok   bool
}

// viterbi runs the forward pass over n observations from StateOO and traces
// back from StateOO at time n.
func viterbi[M metric, O any](rx []O, n int, opts *DPOptions, cost func(Symbol, O) M) ([]Bit, error) {
	if n != len(rx) {
		return nil, fmt.Errorf("n=%d, %d observations: %w", n, len(rx), ErrLengthMismatch)
	}
	if n < TailLen {
		return nil, ErrShortSequence
	}
	tie, rng, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	memo := make([][NumStates]node[M], n+1)
	memo[0][StateOO] = node[M]{ok: true}
	for t := range n {
		for s := range State(NumStates) {
			from := memo[t][s]
			if !from.ok {
				continue
			}
			for b := range Bit(2) {
				next, sym := Step(s, b)
				c := from.cost + cost(sym, rx[t])
				to := &memo[t+1][next]
				switch {
				case !to.ok || c < to.cost:
					*to = node[M]{cost: c, prev: s, bit: b, ok: true}
				case c == to.cost && tie == TieRandom && rng.IntN(2) == 1:
					*to = node[M]{cost: c, prev: s, bit: b, ok: true}
				}
			}
		}
	}
	return traceback(memo)
}

func traceback[M metric](memo [][NumStates]node[M]) ([]Bit, error) {
	n := len(memo) - 1
	out := make([]Bit, n)
	s := StateOO
	for t := n; t > 0; t-- {
		nd := memo[t][s]
		if !nd.ok {
			return nil, fmt.Errorf("t=%d state %v: %w", t, s, ErrNoPath)
		}
		out[t-1] = nd.bit
		s = nd.prev
	}
	return out, nil
}

// DecodeHardDP is the hard-decision Viterbi decoder: the branch cost is
// the Hamming distance between the expected and received symbol.
func DecodeHardDP(rx []Symbol, n int, opts *DPOptions) ([]Bit, error) {
	return viterbi(rx, n, opts, Distance)
}

// DecodeSoftDP is the soft-decision Viterbi decoder: the branch cost is
// the squared Euclidean distance from the expected constellation point.
func DecodeSoftDP(rx []Soft, n int, opts *DPOptions) ([]Bit, error) {
	return viterbi(rx, n, opts, softCost)
}

func softCost(sym Symbol, o Soft) float64 {
	p := Point(sym)
	d0, d1 := p[0]-o[0], p[1]-o[1]
	return d0*d0 + d1*d1
}
