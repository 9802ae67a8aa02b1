package store

import (
	"strconv"
	"time"

	"github.com/jancona/convsim/sim"
)

// Run is one stored SNR sweep.
type Run struct {
	ID         string  `gorm:"primarykey;size:36" json:"id"`
	Strategy   string  `gorm:"index;size:16;not null" json:"strategy"`
	StartDB    float64 `gorm:"column:start_db" json:"start_db"`
	StepDB     float64 `gorm:"column:step_db" json:"step_db"`
	EndDB      float64 `gorm:"column:end_db" json:"end_db"`
	BitsLen    int     `gorm:"not null" json:"bits_len"`
	Iterations int     `gorm:"not null" json:"iterations"`
	Workers    int     `json:"workers"`
	// Seed is kept as text; SQLite integers cannot hold every uint64.
	Seed       string    `gorm:"size:20" json:"seed"`
	TieBreak   string    `gorm:"size:16" json:"tie_break"`
	FrameCheck bool      `json:"frame_check"`
	Bits       int64     `json:"bits"`
	BitErrors  int64     `json:"bit_errors"`
	Started    time.Time `gorm:"index;not null" json:"started"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	CreatedAt  time.Time `json:"created_at"`

	Points []Point `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"points,omitempty"`
}

// TableName specifies the table name for Run
func (Run) TableName() string {
	return "runs"
}

// Point is the result at one SNR of a Run.
type Point struct {
	ID             uint     `gorm:"primarykey" json:"id"`
	RunID          string   `gorm:"index;size:36;not null" json:"run_id"`
	SNR            float64  `gorm:"column:snr_db;not null" json:"snr_db"`
	Sigma          float64  `json:"sigma"`
	Bits           int64    `json:"bits"`
	BitErrors      int64    `json:"bit_errors"`
	BER            float64  `gorm:"column:ber" json:"ber"`
	Log10BER       *float64 `gorm:"column:log10_ber" json:"log10_ber"`
	TrialBERStdDev float64  `gorm:"column:trial_ber_stddev" json:"trial_ber_stddev"`
	Frames         int      `json:"frames"`
	FrameErrors    int      `json:"frame_errors"`
	CRCFailures    int      `gorm:"column:crc_failures" json:"crc_failures"`
	Undetected     int      `json:"undetected"`
}

// TableName specifies the table name for Point
func (Point) TableName() string {
	return "points"
}

// NewRun converts a simulation result to its stored form.
func NewRun(r *sim.Result) *Run {
	rep := sim.NewReport(r)
	run := &Run{
		ID:         r.ID,
		Strategy:   rep.Strategy,
		StartDB:    r.Config.StartDB,
		StepDB:     r.Config.StepDB,
		EndDB:      r.Config.EndDB,
		BitsLen:    r.Config.BitsLen,
		Iterations: r.Config.Iterations,
		Workers:    r.Config.Workers,
		Seed:       strconv.FormatUint(r.Config.Seed, 10),
		TieBreak:   rep.Config.TieBreak,
		FrameCheck: rep.Config.FrameCheck,
		Bits:       rep.Bits,
		BitErrors:  rep.BitErrors,
		Started:    r.Started,
		ElapsedMs:  r.Elapsed.Milliseconds(),
	}
	for _, p := range rep.Points {
		run.Points = append(run.Points, Point{
			RunID:          r.ID,
			SNR:            p.SNR,
			Sigma:          p.Sigma,
			Bits:           p.Bits,
			BitErrors:      p.BitErrors,
			BER:            p.BER,
			Log10BER:       p.Log10BER,
			TrialBERStdDev: p.TrialBERStdDev,
			Frames:         p.Frames,
			FrameErrors:    p.FrameErrors,
			CRCFailures:    p.CRCFailures,
			Undetected:     p.Undetected,
		})
	}
	return run
}
