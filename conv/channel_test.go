package conv

import (
	"math/rand/v2"
	"testing"

	"github.com/icza/gog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

type constGaussian float64

func (g constGaussian) Rand() float64 { return float64(g) }

func TestPoint(t *testing.T) {
	tests := []struct {
		sym  Symbol
		want Soft
	}{
		{SymbolOO, Soft{-1, -1}},
		{SymbolOI, Soft{-1, 1}},
		{SymbolIO, Soft{1, -1}},
		{SymbolII, Soft{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.sym.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Point(tt.sym))
			assert.Equal(t, tt.sym, Quantize(Point(tt.sym)))
		})
	}
}

func TestAddNoise(t *testing.T) {
	assert.Equal(t, Soft{1, -1}, AddNoise(SymbolIO, 0, constGaussian(5)))
	assert.Equal(t, Soft{1.5, -0.5}, AddNoise(SymbolIO, 0.25, constGaussian(2)))
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   Soft
		want Symbol
	}{
		{"zero is one", Soft{0, 0}, SymbolII},
		{"negative zero", Soft{-1e-12, 0}, SymbolOI},
		{"large", Soft{42, -42}, SymbolIO},
		{"small negative", Soft{-0.1, -3}, SymbolOO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quantize(tt.in))
		})
	}
	assert.Equal(t, []Symbol{SymbolII, SymbolOO}, QuantizeAll([]Soft{{1, 1}, {-1, -1}}))
}

func TestNewChannel(t *testing.T) {
	_, err := NewChannel(-0.1, rand.NewPCG(1, 2))
	assert.ErrorIs(t, err, ErrNegativeSigma)

	ch := gog.Must(NewChannel(0, rand.NewPCG(1, 2)))
	syms := []Symbol{SymbolOO, SymbolOI, SymbolIO, SymbolII}
	got := ch.Transmit(syms)
	for i, s := range syms {
		assert.Equal(t, Point(s), got[i])
	}
}

func TestChannelDeterministic(t *testing.T) {
	syms := make([]Symbol, 64)
	for i := range syms {
		syms[i] = Symbol(i % NumSymbols)
	}
	a := gog.Must(NewChannel(0.7, rand.NewPCG(7, 9))).Transmit(syms)
	b := gog.Must(NewChannel(0.7, rand.NewPCG(7, 9))).Transmit(syms)
	assert.Equal(t, a, b)
	c := gog.Must(NewChannel(0.7, rand.NewPCG(8, 9))).Transmit(syms)
	assert.NotEqual(t, a, c)
}

func TestChannelNoiseStatistics(t *testing.T) {
	const (
		n     = 20000
		sigma = 0.5
	)
	ch, err := NewChannel(sigma, rand.NewPCG(42, 0))
	require.NoError(t, err)
	assert.Equal(t, sigma, ch.Sigma())

	rx := ch.Transmit(make([]Symbol, n))
	xs := make([]float64, 0, 2*n)
	for _, o := range rx {
		xs = append(xs, o[0], o[1])
	}
	mean, std := stat.MeanStdDev(xs, nil)
	assert.InDelta(t, -1, mean, 0.02)
	assert.InDelta(t, sigma, std, 0.02)
}

func TestLowNoiseRoundTrip(t *testing.T) {
	bits := []Bit{1, 0, 1, 1, 0, 0}
	syms := gog.Must(Encode(bits))
	ch := gog.Must(NewChannel(0.01, rand.NewPCG(3, 4)))
	rx := ch.Transmit(syms)
	assert.Equal(t, syms, QuantizeAll(rx))
	for _, s := range Strategies() {
		d := gog.Must(NewDecoder(s, nil))
		assert.Equal(t, bits, gog.Must(d.Decode(rx)), s.String())
	}
}
