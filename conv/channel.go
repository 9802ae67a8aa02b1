package conv

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrNegativeSigma = errors.New("noise sigma must not be negative")

// Soft is an unquantized channel observation, one value per coded bit.
type Soft [2]float64

// Gaussian supplies standard normal samples.
type Gaussian interface {
	Rand() float64
}

// Point maps a symbol to its BPSK constellation point: 0 -> -1, 1 -> +1.
func Point(s Symbol) Soft {
	b0, b1 := s.Bits()
	return Soft{bpsk(b0), bpsk(b1)}
}

func bpsk(b Bit) float64 {
	if b == 0 {
		return -1
	}
	return 1
}

// AddNoise adds independent N(0, sigma^2) noise to each coordinate of
// the symbol's constellation point.
func AddNoise(s Symbol, sigma float64, g Gaussian) Soft {
	p := Point(s)
	if sigma == 0 {
		return p
	}
	p[0] += sigma * g.Rand()
	p[1] += sigma * g.Rand()
	return p
}

// Quantize recovers a hard symbol by a sign test on each coordinate.
// Zero counts as a 1.
func Quantize(o Soft) Symbol {
	var s Symbol
	if o[0] >= 0 {
		s |= 2
	}
	if o[1] >= 0 {
		s |= 1
	}
	return s
}

func QuantizeAll(rx []Soft) []Symbol {
	out := make([]Symbol, len(rx))
	for i, o := range rx {
		out[i] = Quantize(o)
	}
	return out
}

// Channel is an AWGN channel with a fixed sigma. It is not safe for
// concurrent use; give each goroutine its own.
type Channel struct {
	sigma float64
	noise Gaussian
}

func NewChannel(sigma float64, src rand.Source) (*Channel, error) {
	if sigma < 0 {
		return nil, ErrNegativeSigma
	}
	return &Channel{
		sigma: sigma,
		noise: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}, nil
}

func (c *Channel) Sigma() float64 {
	return c.sigma
}

func (c *Channel) Transmit(syms []Symbol) []Soft {
	out := make([]Soft, len(syms))
	for i, s := range syms {
		out[i] = AddNoise(s, c.sigma, c.noise)
	}
	return out
}
