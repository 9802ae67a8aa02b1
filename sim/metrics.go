package sim

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by a Simulator. A nil
// *Metrics records nothing.
type Metrics struct {
	bits          *prometheus.CounterVec   // sent bits, tail included
	bitErrors     *prometheus.CounterVec   // decoded bits that differ from sent
	frames        *prometheus.CounterVec   // trials
	frameErrors   *prometheus.CounterVec   // trials with at least one bit error
	crcFailures   *prometheus.CounterVec   // framed trials whose CRC did not verify
	trialDuration *prometheus.HistogramVec // encode, transmit and decode of one trial
	ber           *prometheus.GaugeVec     // last completed point per SNR
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convsim_bits_total",
				Help: "Bits sent through the channel",
			},
			[]string{"strategy"},
		),
		bitErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convsim_bit_errors_total",
				Help: "Decoded bits that differ from the sent bits",
			},
			[]string{"strategy"},
		),
		frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convsim_frames_total",
				Help: "Simulated trials",
			},
			[]string{"strategy"},
		),
		frameErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convsim_frame_errors_total",
				Help: "Trials with at least one bit error",
			},
			[]string{"strategy"},
		),
		crcFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convsim_crc_failures_total",
				Help: "Framed trials whose CRC did not verify after decoding",
			},
			[]string{"strategy"},
		),
		trialDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convsim_trial_duration_seconds",
				Help:    "Time to encode, transmit and decode one trial",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"strategy"},
		),
		ber: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "convsim_ber",
				Help: "Bit error rate of the last completed SNR point",
			},
			[]string{"strategy", "snr_db"},
		),
	}
}

func (m *Metrics) observeTrial(strategy string, t trial, d time.Duration) {
	if m == nil {
		return
	}
	m.bits.WithLabelValues(strategy).Add(float64(t.bits))
	m.bitErrors.WithLabelValues(strategy).Add(float64(t.errors))
	m.frames.WithLabelValues(strategy).Inc()
	if t.errors > 0 {
		m.frameErrors.WithLabelValues(strategy).Inc()
	}
	if t.framed && !t.crcOK {
		m.crcFailures.WithLabelValues(strategy).Inc()
	}
	m.trialDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) observePoint(strategy string, p Point) {
	if m == nil {
		return
	}
	m.ber.WithLabelValues(strategy, formatSNR(p.SNR)).Set(p.BER)
}

func formatSNR(db float64) string {
	return strconv.FormatFloat(db, 'f', -1, 64)
}
