// Command liftscore scores a recorded lift from a JSON lines stream of pose
// keypoints and barbell detections, and prints the session summary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/monitoring"
	"github.com/euzop/Powerlift/internal/report"
	"github.com/euzop/Powerlift/internal/scoring"
	"github.com/euzop/Powerlift/internal/session"
	"github.com/euzop/Powerlift/internal/timeutil"
	"github.com/euzop/Powerlift/internal/version"
)

var (
	inputPath   = flag.String("input", "-", "JSON lines frame file (- for stdin)")
	configPath  = flag.String("config", "", "Tuning config JSON file (defaults built in)")
	exercise    = flag.String("exercise", "deadlift", "Exercise: deadlift, squat or bench")
	fps         = flag.Float64("fps", 0, "Frame rate override (0 uses the config value)")
	live        = flag.Bool("live", false, "Replay through the bounded worker, paced at the frame rate")
	reportDir   = flag.String("report", "", "Directory for report.html and trajectory.png")
	jsonOut     = flag.String("json", "", "Also write the summary JSON to this file")
	verbose     = flag.Bool("verbose", false, "Enable diag and trace logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const stopTimeout = 10 * time.Second

type options struct {
	tuning   *config.TuningConfig
	exercise scoring.Exercise
	fps      float64
	live     bool
	clock    timeutil.Clock
}

type result struct {
	summary    session.Summary
	trajectory session.Trajectory
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("liftscore", version.String())
		return
	}

	writers := monitoring.LogWriters{Ops: os.Stderr}
	if *verbose {
		writers.Diag = os.Stderr
		writers.Trace = os.Stderr
	}
	monitoring.SetLogWriters(writers)

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ex, err := scoring.ParseExercise(*exercise)
	if err != nil {
		log.Fatalf("invalid -exercise: %v", err)
	}
	if *fps < 0 {
		log.Fatalf("-fps must be positive, got %v", *fps)
	}

	in := io.Reader(os.Stdin)
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, options{
		tuning:   tuning,
		exercise: ex,
		fps:      *fps,
		live:     *live,
		clock:    timeutil.RealClock{},
	}, in)
	if err != nil {
		log.Fatalf("scoring failed: %v", err)
	}

	out, err := json.MarshalIndent(res.summary, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode summary: %v", err)
	}
	fmt.Println(string(out))

	if *jsonOut != "" {
		if err := os.WriteFile(*jsonOut, append(out, '\n'), 0644); err != nil {
			log.Fatalf("failed to write %s: %v", *jsonOut, err)
		}
		monitoring.Logf("wrote %s", *jsonOut)
	}
	if *reportDir != "" {
		if err := writeReports(*reportDir, res); err != nil {
			log.Fatalf("failed to write reports: %v", err)
		}
	}
}

// run scores every frame read from in. Frames the session rejects are
// logged and skipped; a line that cannot be decoded aborts the run.
func run(ctx context.Context, o options, in io.Reader) (result, error) {
	sess := session.New(session.ConfigFromTuning(o.tuning), o.exercise)
	rate := o.tuning.GetFPS()
	if o.fps > 0 {
		rate = o.fps
		sess.SetFPS(rate)
	}
	monitoring.Diagf("session %s: exercise=%s fps=%.1f live=%t", sess.ID(), o.exercise, rate, o.live)

	frames := newFrameReader(in)
	if o.live {
		return runLive(ctx, sess, frames, o, rate)
	}

	for {
		if err := ctx.Err(); err != nil {
			monitoring.Opsf("session %s: interrupted, finalizing", sess.ID())
			break
		}
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result{}, err
		}
		if _, err := sess.Process(f); err != nil {
			monitoring.Opsf("session %s: skipped frame %d: %v", sess.ID(), f.Index, err)
		}
	}
	return result{summary: sess.Finalize(), trajectory: sess.Trajectory()}, nil
}

// runLive feeds frames through a Worker at the frame rate, as a camera
// would, so slow scoring shows up as dropped frames.
func runLive(ctx context.Context, sess *session.Session, frames *frameReader, o options, rate float64) (result, error) {
	clock := o.clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	w := session.NewWorker(sess, session.WorkerConfigFromTuning(o.tuning), clock)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.Run(runCtx)

	interval := time.Duration(float64(time.Second) / rate)
	var readErr error
	for ctx.Err() == nil {
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		if err := w.Submit(f); err != nil && !errors.Is(err, session.ErrDropped) {
			readErr = err
			break
		}
		clock.Sleep(interval)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	summary, err := w.Stop(stopCtx)
	if err != nil {
		return result{}, err
	}
	if readErr != nil {
		return result{}, readErr
	}
	return result{summary: summary, trajectory: sess.Trajectory()}, nil
}

func writeReports(dir string, res result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	htmlPath := filepath.Join(dir, "report.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, res.summary, res.trajectory); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", htmlPath)

	plotPath := filepath.Join(dir, "trajectory.png")
	switch err := report.SavePlot(plotPath, res.trajectory); {
	case errors.Is(err, report.ErrEmptyTrajectory):
		monitoring.Logf("skipped %s: no observed points", plotPath)
	case err != nil:
		return err
	default:
		monitoring.Logf("wrote %s", plotPath)
	}
	return nil
}
