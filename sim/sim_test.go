package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/icza/gog"
	"github.com/jancona/convsim/conv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(s conv.Strategy) Config {
	c := DefaultConfig()
	c.Strategy = s
	c.StartDB, c.StepDB, c.EndDB = 0, 1, 2
	c.BitsLen = 96
	c.Iterations = 40
	c.Seed = 2024
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	c := DefaultConfig()
	c.Workers = 0
	_, err := New(c, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c = DefaultConfig()
	c.EndDB = math.NaN()
	_, err = New(c, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunHighSNR(t *testing.T) {
	for _, s := range conv.Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			c := smallConfig(s)
			c.StartDB, c.EndDB = 30, 30
			res, err := gog.Must(New(c, nil)).Run(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Points, 1)

			p := res.Points[0]
			assert.Equal(t, int64(c.BitsLen*c.Iterations), p.Bits)
			assert.Zero(t, p.BitErrors)
			assert.Zero(t, p.BER)
			assert.True(t, math.IsInf(p.Log10BER, -1))
			assert.Zero(t, p.FrameErrors)
			assert.Zero(t, p.CRCFailures)
			assert.Zero(t, p.Undetected)
			assert.NotEmpty(t, res.ID)
		})
	}
}

func TestRunLowSNR(t *testing.T) {
	c := smallConfig(conv.Lookahead)
	c.StartDB, c.EndDB = -5, -5
	res, err := gog.Must(New(c, nil)).Run(context.Background())
	require.NoError(t, err)

	p := res.Points[0]
	assert.Positive(t, p.BitErrors)
	assert.LessOrEqual(t, p.BER, 1.0)
	assert.Equal(t, float64(p.BitErrors)/float64(p.Bits), p.BER)
	assert.Positive(t, p.TrialBERStdDev)
	assert.LessOrEqual(t, p.CRCFailures+p.Undetected, p.FrameErrors)
	assert.Equal(t, c.Iterations, p.Frames)
}

func TestRunDeterministic(t *testing.T) {
	for _, tie := range []conv.TieBreak{conv.TieLowest, conv.TieRandom} {
		t.Run(tie.String(), func(t *testing.T) {
			c := smallConfig(conv.HardDP)
			c.TieBreak = tie

			c.Workers = 1
			serial, err := gog.Must(New(c, nil)).Run(context.Background())
			require.NoError(t, err)
			c.Workers = 8
			parallel, err := gog.Must(New(c, nil)).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, serial.Points, parallel.Points)
			assert.NotEqual(t, serial.ID, parallel.ID)
		})
	}
}

func TestRunSeedChangesResult(t *testing.T) {
	c := smallConfig(conv.SoftDP)
	c.StartDB, c.EndDB = -3, -3
	a, err := gog.Must(New(c, nil)).Run(context.Background())
	require.NoError(t, err)
	c.Seed++
	b, err := gog.Must(New(c, nil)).Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.Points, b.Points)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gog.Must(New(smallConfig(conv.SoftDP), nil)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := smallConfig(conv.SoftDP)
	res, err := gog.Must(New(c, m)).Run(context.Background())
	require.NoError(t, err)

	bits, errs := res.Totals()
	label := c.Strategy.String()
	assert.Equal(t, float64(bits), testutil.ToFloat64(m.bits.WithLabelValues(label)))
	assert.Equal(t, float64(errs), testutil.ToFloat64(m.bitErrors.WithLabelValues(label)))
	assert.Equal(t, float64(len(res.Points)*c.Iterations), testutil.ToFloat64(m.frames.WithLabelValues(label)))

	var frameErrors, crcFailures int
	for _, p := range res.Points {
		frameErrors += p.FrameErrors
		crcFailures += p.CRCFailures
		assert.Equal(t, p.BER, testutil.ToFloat64(m.ber.WithLabelValues(label, formatSNR(p.SNR))))
	}
	assert.Equal(t, float64(frameErrors), testutil.ToFloat64(m.frameErrors.WithLabelValues(label)))
	assert.Equal(t, float64(crcFailures), testutil.ToFloat64(m.crcFailures.WithLabelValues(label)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.trialDuration))
}

func TestMessage(t *testing.T) {
	for _, framed := range []bool{true, false} {
		c := smallConfig(conv.SoftDP)
		c.FrameCheck = framed
		s := gog.Must(New(c, nil))
		msg := s.message(rand.New(rand.NewPCG(1, 2)))
		require.Len(t, msg, c.BitsLen)
		assert.Equal(t, []conv.Bit{0, 0}, msg[len(msg)-conv.TailLen:])
		if framed {
			assert.True(t, checkCRC(msg[:len(msg)-conv.TailLen]))
		}
	}

	// Too short to carry a CRC: frame checking is skipped.
	c := smallConfig(conv.SoftDP)
	c.BitsLen = frameCheckLen - 1
	assert.False(t, c.framed())
}
