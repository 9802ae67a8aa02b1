package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/logutils"
	"github.com/icza/gog"
	"github.com/jancona/convsim/conv"
	"github.com/jancona/convsim/sim"
	"github.com/jancona/convsim/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configArg     *string  = flag.String("config", "", "INI file with a [simulation] section")
	strategyArg   *string  = flag.String("strategy", "hard-dp", "Decoder: hard, hard-dp or soft")
	startArg      *float64 = flag.Float64("start", 1.0, "First Eb/N0 point in dB")
	stepArg       *float64 = flag.Float64("step", 0.5, "Eb/N0 step in dB")
	endArg        *float64 = flag.Float64("end", 5.0, "Last Eb/N0 point in dB")
	bitsArg       *int     = flag.Int("bits", 1024, "Bits per trial, including the 2-bit tail")
	iterationsArg *int     = flag.Int("iterations", 10000, "Trials per SNR point")
	workersArg    *int     = flag.Int("workers", 1, "Trials run in parallel")
	seedArg       *uint64  = flag.Uint64("seed", 1, "Random seed")
	tieArg        *string  = flag.String("tie", "lowest", "DP tie-break: lowest or random")
	frameCheckArg *bool    = flag.Bool("frame-check", true, "Protect each trial's payload with a CRC-16")
	reportArg     *string  = flag.String("report", "", "Write a YAML report to this file")
	dbArg         *string  = flag.String("db", "", "Store the run in this SQLite database")
	listArg       *int     = flag.Int("list", 0, "List this many of the latest runs stored in -db and exit")
	showArg       *string  = flag.String("show", "", "Print the points of the run with this ID stored in -db and exit")
	deleteArg     *string  = flag.String("delete", "", "Delete the run with this ID from -db and exit")
	metricsArg    *string  = flag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9117")
	isDebugArg    *bool    = flag.Bool("debug", false, "Emit debug log messages")
	logDestArg    *string  = flag.String("log", "", "Device/file for log (default stderr)")
	helpArg       *bool    = flag.Bool("h", false, "Print arguments")
)

func main() {
	flag.Parse()

	if *helpArg {
		flag.Usage()
		return
	}
	setupLogging()

	if err := run(os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(stdout io.Writer) error {
	switch {
	case *listArg > 0:
		return listRuns(stdout, *dbArg, *listArg)
	case *showArg != "":
		return showRun(stdout, *dbArg, *showArg)
	case *deleteArg != "":
		return deleteRun(*dbArg, *deleteArg)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error in configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := sim.NewMetrics(reg)
	if *metricsArg != "" {
		srv, err := serveMetrics(*metricsArg, reg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	s, err := sim.New(cfg, metrics)
	if err != nil {
		return fmt.Errorf("error creating simulator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := s.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if err := sim.WriteTable(stdout, res); err != nil {
		return fmt.Errorf("error writing table: %w", err)
	}
	bits, errs := res.Totals()
	log.Printf("[INFO] run %s done in %v: %d bit errors in %d bits",
		res.ID, res.Elapsed.Round(time.Millisecond), errs, bits)

	if *reportArg != "" {
		if err := writeReport(*reportArg, res); err != nil {
			return err
		}
	}
	if *dbArg != "" {
		if err := saveRun(*dbArg, res); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig starts from the config file, or the defaults without one,
// and applies the flags given on the command line.
func loadConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if *configArg != "" {
		var err error
		if cfg, err = sim.LoadConfig(*configArg); err != nil {
			return cfg, err
		}
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "strategy":
			cfg.Strategy, err = conv.ParseStrategy(*strategyArg)
		case "tie":
			cfg.TieBreak, err = conv.ParseTieBreak(*tieArg)
		case "start":
			cfg.StartDB = *startArg
		case "step":
			cfg.StepDB = *stepArg
		case "end":
			cfg.EndDB = *endArg
		case "bits":
			cfg.BitsLen = *bitsArg
		case "iterations":
			cfg.Iterations = *iterationsArg
		case "workers":
			cfg.Workers = *workersArg
		case "seed":
			cfg.Seed = *seedArg
		case "frame-check":
			cfg.FrameCheck = *frameCheckArg
		}
	})
	if err != nil {
		return cfg, err
	}
	log.Printf("[DEBUG] config: %+v", cfg)
	return cfg, cfg.Validate()
}

// serveMetrics listens on addr before returning, so a bad address fails the run.
func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("[INFO] serving metrics on %s/metrics", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
	return srv, nil
}

func writeReport(path string, res *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report '%s': %w", path, err)
	}
	if err := sim.WriteReport(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveRun(path string, res *sim.Result) error {
	db, err := store.Open(store.Config{Path: path})
	if err != nil {
		return err
	}
	defer db.Close()
	run, err := db.Save(res)
	if err != nil {
		return err
	}
	log.Printf("[INFO] saved run %s with %d points to %s", run.ID, len(run.Points), path)
	return nil
}

func listRuns(w io.Writer, path string, n int) error {
	db, err := store.Open(store.Config{Path: path})
	if err != nil {
		return err
	}
	defer db.Close()
	runs, err := db.Runs(n)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tstarted\tstrategy\tSNR(dB)\tbits\terrors\t\n")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f..%.2f\t%d\t%d\t\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.Strategy, r.StartDB, r.EndDB, r.Bits, r.BitErrors)
	}
	return tw.Flush()
}

func showRun(w io.Writer, path, id string) error {
	db, err := store.Open(store.Config{Path: path})
	if err != nil {
		return err
	}
	defer db.Close()
	r, err := db.Run(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s: %s, %d bits x %d iterations, seed %s, tie-break %s\n",
		r.ID, r.Strategy, r.BitsLen, r.Iterations, r.Seed, r.TieBreak)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SNR(dB)\tsigma\tbits\terrors\tBER\tframe errors\tCRC failures\t\n")
	for _, p := range r.Points {
		fmt.Fprintf(tw, "%.2f\t%.4f\t%d\t%d\t%.3e\t%d\t%d\t\n",
			p.SNR, p.Sigma, p.Bits, p.BitErrors, p.BER, p.FrameErrors, p.CRCFailures)
	}
	return tw.Flush()
}

func deleteRun(path, id string) error {
	db, err := store.Open(store.Config{Path: path})
	if err != nil {
		return err
	}
	defer db.Close()
	points, err := db.Points(id)
	if err != nil {
		return err
	}
	if err := db.Delete(id); err != nil {
		return err
	}
	log.Printf("[INFO] deleted run %s with %d points from %s", id, len(points), path)
	return nil
}

func setupLogging() {
	var err error
	minLogLevel := gog.If(*isDebugArg, "DEBUG", "INFO")
	logWriter := os.Stderr
	if *logDestArg != "" {
		logWriter, err = os.OpenFile(*logDestArg, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Error opening log output, exiting: %v", err)
		}
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: logutils.LogLevel(minLogLevel),
		Writer:   logWriter,
	}
	log.SetOutput(filter)
	log.Print("[DEBUG] Debug is on")
}
