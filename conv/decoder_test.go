package conv

import (
	"math/rand/v2"
	"testing"

	"github.com/icza/gog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    Strategy
		wantErr bool
	}{
		{"hard", Lookahead, false},
		{"hard-dp", HardDP, false},
		{"soft", SoftDP, false},
		{"viterbi", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy() = %v, want %v", got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.name {
				t.Errorf("String() = %v, want %v", got.String(), tt.name)
			}
		})
	}
}

func TestStrategyText(t *testing.T) {
	for _, s := range Strategies() {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Strategy
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	_, err := Strategy(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "Strategy(9)", Strategy(9).String())
}

func TestNewDecoder(t *testing.T) {
	for _, s := range Strategies() {
		d, err := NewDecoder(s, nil)
		require.NoError(t, err)
		assert.Equal(t, s, d.Strategy())
	}
	_, err := NewDecoder(Strategy(-1), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestDecodersEndToEnd(t *testing.T) {
	bits := []Bit{1, 0, 1, 1, 0, 0}
	syms := gog.Must(Encode(bits))
	assert.Equal(t, []Symbol{SymbolII, SymbolIO, SymbolOO, SymbolOI, SymbolOI, SymbolII}, syms)

	rx := points(syms)
	opts := &DPOptions{TieBreak: TieRandom, Rand: rand.New(rand.NewPCG(1, 1))}
	for _, s := range Strategies() {
		d := gog.Must(NewDecoder(s, opts))
		got, err := d.Decode(rx)
		require.NoError(t, err, s.String())
		assert.Equal(t, bits, got, s.String())
	}
}

func TestDecodeShortInput(t *testing.T) {
	for _, s := range Strategies() {
		d := gog.Must(NewDecoder(s, nil))
		_, err := d.Decode([]Soft{{1, 1}})
		assert.ErrorIs(t, err, ErrShortSequence, s.String())
	}
}
