package sim

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Report is the YAML form of a Result.
type Report struct {
	ID        string        `yaml:"id"`
	Strategy  string        `yaml:"strategy"`
	Started   time.Time     `yaml:"started"`
	Elapsed   string        `yaml:"elapsed"`
	Config    ReportConfig  `yaml:"config"`
	Points    []ReportPoint `yaml:"points"`
	Bits      int64         `yaml:"bits"`
	BitErrors int64         `yaml:"bit_errors"`
}

type ReportConfig struct {
	StartDB    float64 `yaml:"start_db"`
	StepDB     float64 `yaml:"step_db"`
	EndDB      float64 `yaml:"end_db"`
	BitsLen    int     `yaml:"bits_len"`
	Iterations int     `yaml:"iterations"`
	Seed       uint64  `yaml:"seed"`
	TieBreak   string  `yaml:"tie_break"`
	FrameCheck bool    `yaml:"frame_check"`
}

type ReportPoint struct {
	SNR            float64  `yaml:"snr_db"`
	Sigma          float64  `yaml:"sigma"`
	Bits           int64    `yaml:"bits"`
	BitErrors      int64    `yaml:"bit_errors"`
	BER            float64  `yaml:"ber"`
	Log10BER       *float64 `yaml:"log10_ber"` // null when no errors were seen
	TrialBERStdDev float64  `yaml:"trial_ber_stddev"`
	Frames         int      `yaml:"frames"`
	FrameErrors    int      `yaml:"frame_errors"`
	CRCFailures    int      `yaml:"crc_failures,omitempty"`
	Undetected     int      `yaml:"undetected,omitempty"`
}

// finite returns nil for NaN and infinities.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func NewReport(r *Result) Report {
	rep := Report{
		ID:       r.ID,
		Strategy: r.Config.Strategy.String(),
		Started:  r.Started,
		Elapsed:  r.Elapsed.String(),
		Config: ReportConfig{
			StartDB:    r.Config.StartDB,
			StepDB:     r.Config.StepDB,
			EndDB:      r.Config.EndDB,
			BitsLen:    r.Config.BitsLen,
			Iterations: r.Config.Iterations,
			Seed:       r.Config.Seed,
			TieBreak:   r.Config.TieBreak.String(),
			FrameCheck: r.Config.framed(),
		},
	}
	rep.Bits, rep.BitErrors = r.Totals()
	for _, p := range r.Points {
		rep.Points = append(rep.Points, ReportPoint{
			SNR:            p.SNR,
			Sigma:          p.Sigma,
			Bits:           p.Bits,
			BitErrors:      p.BitErrors,
			BER:            p.BER,
			Log10BER:       finite(p.Log10BER),
			TrialBERStdDev: p.TrialBERStdDev,
			Frames:         p.Frames,
			FrameErrors:    p.FrameErrors,
			CRCFailures:    p.CRCFailures,
			Undetected:     p.Undetected,
		})
	}
	return rep
}

// WriteReport writes r as a YAML document.
func WriteReport(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(r)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// WriteTable writes one aligned row per SNR point.
func WriteTable(w io.Writer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SNR(dB)\tsigma\tbits\terrors\tBER\tlog10(BER)\tFER\t\n")
	for _, p := range r.Points {
		l := "-"
		if v := finite(p.Log10BER); v != nil {
			l = fmt.Sprintf("%.3f", *v)
		}
		fmt.Fprintf(tw, "%.2f\t%.4f\t%d\t%d\t%.3e\t%s\t%.4f\t\n",
			p.SNR, p.Sigma, p.Bits, p.BitErrors, p.BER, l, p.FER())
	}
	return tw.Flush()
}
