// Package sim runs Monte-Carlo bit-error-rate sweeps of the conv decoders
// over an AWGN channel.
package sim

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jancona/convsim/conv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Stream salts keep the bit, noise and tie-break generators of a trial
// independent while sharing the configured seed.
const (
	noiseSalt = 0x9e3779b97f4a7c15
	tieSalt   = 0xc2b2ae3d27d4eb4f
)

// Point is the outcome of all trials at one SNR.
type Point struct {
	SNR       float64
	Sigma     float64
	Bits      int64
	BitErrors int64
	BER       float64
	// Log10BER is -Inf when no bit errors were seen.
	Log10BER       float64
	TrialBERStdDev float64
	Frames         int
	FrameErrors    int
	// CRCFailures and Undetected are only counted when frame checking is on.
	CRCFailures int
	Undetected  int
}

// FER is the fraction of trials with at least one bit error.
func (p Point) FER() float64 {
	if p.Frames == 0 {
		return 0
	}
	return float64(p.FrameErrors) / float64(p.Frames)
}

type Result struct {
	ID      string
	Config  Config
	Started time.Time
	Elapsed time.Duration
	Points  []Point
}

// Totals sums bits and bit errors over all points.
func (r *Result) Totals() (bits, errors int64) {
	for _, p := range r.Points {
		bits += p.Bits
		errors += p.BitErrors
	}
	return bits, errors
}

type Simulator struct {
	cfg     Config
	metrics *Metrics
}

// New validates cfg. m may be nil.
func New(cfg Config, m *Metrics) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg, metrics: m}, nil
}

func (s *Simulator) Config() Config {
	return s.cfg
}

// Run sweeps the SNR grid. Results depend only on the configuration, not
// on the number of workers.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		ID:      uuid.NewString(),
		Config:  s.cfg,
		Started: time.Now(),
	}
	grid := s.cfg.Grid()
	log.Printf("[INFO] run %s: %v decoder, %d SNR points, %d trials of %d bits each",
		res.ID, s.cfg.Strategy, len(grid), s.cfg.Iterations, s.cfg.BitsLen)

	for i, snr := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.runPoint(ctx, i, snr)
		if err != nil {
			return nil, fmt.Errorf("%v dB: %w", snr, err)
		}
		log.Printf("[DEBUG] %v dB sigma=%.4f: %d/%d bit errors, BER %g, %d frame errors",
			snr, p.Sigma, p.BitErrors, p.Bits, p.BER, p.FrameErrors)
		s.metrics.observePoint(s.cfg.Strategy.String(), p)
		res.Points = append(res.Points, p)
	}
	res.Elapsed = time.Since(res.Started)
	return res, nil
}

type trial struct {
	bits   int
	errors int
	framed bool
	crcOK  bool
}

func (s *Simulator) runPoint(ctx context.Context, i int, snr float64) (Point, error) {
	sigma := SigmaForSNR(snr)
	strategy := s.cfg.Strategy.String()
	trials := make([]trial, s.cfg.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for j := range trials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			t, err := s.runTrial(i, j, sigma)
			if err != nil {
				return fmt.Errorf("trial %d: %w", j, err)
			}
			s.metrics.observeTrial(strategy, t, time.Since(start))
			trials[j] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Point{}, err
	}

	p := Point{SNR: snr, Sigma: sigma, Frames: len(trials)}
	bers := make([]float64, len(trials))
	for j, t := range trials {
		p.Bits += int64(t.bits)
		p.BitErrors += int64(t.errors)
		bers[j] = float64(t.errors) / float64(t.bits)
		if t.errors > 0 {
			p.FrameErrors++
		}
		if t.framed {
			switch {
			case !t.crcOK:
				p.CRCFailures++
			case t.errors > 0:
				p.Undetected++
			}
		}
	}
	p.BER = float64(p.BitErrors) / float64(p.Bits)
	p.Log10BER = math.Log10(p.BER)
	if len(bers) > 1 {
		_, p.TrialBERStdDev = stat.MeanStdDev(bers, nil)
	}
	return p, nil
}

// runTrial encodes, transmits and decodes one random message. Trial j of
// point i always draws from the same streams.
func (s *Simulator) runTrial(i, j int, sigma float64) (trial, error) {
	stream := uint64(i)<<32 | uint64(j)
	sent := s.message(rand.New(rand.NewPCG(s.cfg.Seed, stream)))

	syms, err := conv.Encode(sent)
	if err != nil {
		return trial{}, err
	}
	ch, err := conv.NewChannel(sigma, rand.NewPCG(s.cfg.Seed^noiseSalt, stream))
	if err != nil {
		return trial{}, err
	}
	opts := &conv.DPOptions{TieBreak: s.cfg.TieBreak}
	if opts.TieBreak == conv.TieRandom {
		opts.Rand = rand.New(rand.NewPCG(s.cfg.Seed^tieSalt, stream))
	}
	dec, err := conv.NewDecoder(s.cfg.Strategy, opts)
	if err != nil {
		return trial{}, err
	}
	got, err := dec.Decode(ch.Transmit(syms))
	if err != nil {
		return trial{}, err
	}
	if len(got) != len(sent) {
		return trial{}, fmt.Errorf("decoded %d bits, sent %d", len(got), len(sent))
	}

	t := trial{bits: len(sent), framed: s.cfg.framed()}
	for k := range sent {
		if got[k] != sent[k] {
			t.errors++
		}
	}
	if t.framed {
		t.crcOK = checkCRC(got[:len(got)-conv.TailLen])
	}
	return t, nil
}

// message draws BitsLen tail-forced bits. With frame checking the bits
// before the tail end in a CRC over the random payload.
func (s *Simulator) message(r *rand.Rand) []conv.Bit {
	body := s.cfg.BitsLen - conv.TailLen
	if s.cfg.framed() {
		body -= crcBits
	}
	bits := make([]conv.Bit, body, s.cfg.BitsLen)
	for k := range bits {
		bits[k] = conv.Bit(r.Uint32() & 1)
	}
	if s.cfg.framed() {
		bits = appendCRC(bits)
	}
	for range conv.TailLen {
		bits = append(bits, 0)
	}
	return bits
}
