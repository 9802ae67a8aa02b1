package conv

import (
	"errors"
	"sync"
)

// Window is the number of received symbols the look-ahead table inspects
// per decided bit.
const Window = 3

var ErrNoTable = errors.New("look-ahead table not built")

// Table maps (state, three received symbols) to the next decoded bit.
// A built Table is read-only and safe for concurrent use.
type Table struct {
	next [NumStates][NumSymbols][NumSymbols][NumSymbols]Bit

	// StateTies counts end states reached by two hypotheses at equal
	// distance; the first enumerated hypothesis is kept.
	StateTies int
	// VoteTies counts entries where the majority vote split evenly and the
	// globally closest hypothesis decided instead.
	VoteTies int
}

// DefaultTable returns a process-wide table, built on first use.
var DefaultTable = sync.OnceValue(BuildLookaheadTable)

type hypothesis struct {
	dist  int
	first Bit
	ok    bool
}

// BuildLookaheadTable enumerates every start state and received triple.
func BuildLookaheadTable() *Table {
	t := &Table{}
	for s := range NumStates {
		for r0 := range NumSymbols {
			for r1 := range NumSymbols {
				for r2 := range NumSymbols {
					rx := [Window]Symbol{Symbol(r0), Symbol(r1), Symbol(r2)}
					t.next[s][r0][r1][r2] = t.decide(State(s), rx)
				}
			}
		}
	}
	return t
}

// decide replays all 2^Window input hypotheses from start, keeps the
// closest one per end state and takes a majority vote over their first
// bits.
func (t *Table) decide(start State, rx [Window]Symbol) Bit {
	var best [NumStates]hypothesis
	var closest hypothesis

	// h is enumerated with the first bit in the MSB, so lower bit patterns
	// come first.
	for h := range 1 << Window {
		state := start
		dist := 0
		for i := range Window {
			var sym Symbol
			state, sym = Step(state, Bit(h>>(Window-1-i))&1)
			dist += Distance(sym, rx[i])
		}
		cand := hypothesis{dist: dist, first: Bit(h>>(Window-1)) & 1, ok: true}

		switch cur := &best[state]; {
		case !cur.ok || dist < cur.dist:
			*cur = cand
		case dist == cur.dist:
			t.StateTies++
		}
		if !closest.ok || dist < closest.dist {
			closest = cand
		}
	}

	var zeros, ones int
	for _, h := range best {
		switch {
		case !h.ok:
		case h.first == 0:
			zeros++
		default:
			ones++
		}
	}
	switch {
	case zeros > ones:
		return 0
	case ones > zeros:
		return 1
	}
	t.VoteTies++
	return closest.first
}

func (t *Table) Next(s State, s0, s1, s2 Symbol) Bit {
	return t.next[s&3][s0&3][s1&3][s2&3]
}

// DecodeLookahead decodes hard symbols by table lookup from StateOO. The
// last TailLen bits are not looked up; they are the zero flush bits.
func DecodeLookahead(t *Table, rx []Symbol) ([]Bit, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	if len(rx) < TailLen {
		return nil, ErrShortSequence
	}
	out := make([]Bit, 0, len(rx))
	state := StateOO
	for i := range len(rx) - TailLen {
		b := t.Next(state, rx[i], rx[i+1], rx[i+2])
		state, _ = Step(state, b)
		out = append(out, b)
	}
	for range TailLen {
		out = append(out, 0)
	}
	return out, nil
}
