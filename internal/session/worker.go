package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/euzop/Powerlift/internal/config"
	"github.com/euzop/Powerlift/internal/monitoring"
	"github.com/euzop/Powerlift/internal/timeutil"
)

// WorkerConfig controls the live frame queue.
type WorkerConfig struct {
	QueueSize     int
	DropPolicy    string // config.DropNewest or config.DropOldest
	StatsInterval time.Duration
}

// DefaultWorkerConfig returns the built-in queue defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfigFromTuning(config.EmptyTuningConfig())
}

// WorkerConfigFromTuning builds a WorkerConfig from a loaded TuningConfig.
func WorkerConfigFromTuning(cfg *config.TuningConfig) WorkerConfig {
	return WorkerConfig{
		QueueSize:     cfg.GetQueueSize(),
		DropPolicy:    cfg.GetDropPolicy(),
		StatsInterval: cfg.GetStatsInterval(),
	}
}

// WorkerStats is a point-in-time view of the worker counters.
type WorkerStats struct {
	Submitted  uint64 `json:"submitted"`
	Processed  uint64 `json:"processed"`
	Dropped    uint64 `json:"dropped"`
	Rejected   uint64 `json:"rejected"` // out-of-order frames
	QueueDepth int    `json:"queue_depth"`
	QueueCap   int    `json:"queue_cap"`
	Running    bool   `json:"running"`
}

// Worker feeds a Session from a bounded queue on one goroutine. Capture
// never blocks: when the queue is full a frame is dropped according to the
// drop policy. The Session is touched only by Run; other goroutines see
// copies through Latest and Stop.
type Worker struct {
	sess  *Session
	cfg   WorkerConfig
	clock timeutil.Clock
	queue chan Frame

	// intakeMu orders Submit against Stop so no frame is enqueued after
	// intake closes.
	intakeMu sync.RWMutex
	stopping bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	latestMu  sync.Mutex
	latest    FrameResult
	hasLatest bool

	submitted atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
	running   atomic.Bool

	// Owned by Run.
	lastStatsTime      time.Time
	lastProcessedCount uint64

	summaryOnce sync.Once
	summary     Summary
}

// NewWorker creates a worker for sess. A nil clock uses the real clock.
func NewWorker(sess *Session, cfg WorkerConfig, clock timeutil.Clock) *Worker {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.DropPolicy != config.DropOldest {
		cfg.DropPolicy = config.DropNewest
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Worker{
		sess:   sess,
		cfg:    cfg,
		clock:  clock,
		queue:  make(chan Frame, cfg.QueueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Submit enqueues a frame without blocking. It returns ErrStopped after
// Stop, and ErrDropped when the frame itself was discarded. Under the
// drop-oldest policy the oldest queued frame is discarded instead.
func (w *Worker) Submit(f Frame) error {
	w.intakeMu.RLock()
	defer w.intakeMu.RUnlock()
	if w.stopping {
		return ErrStopped
	}
	w.submitted.Add(1)

	select {
	case w.queue <- f:
		return nil
	default:
	}

	if w.cfg.DropPolicy == config.DropOldest {
		select {
		case old := <-w.queue:
			w.noteDrop(old.Index)
		default:
		}
		select {
		case w.queue <- f:
			return nil
		default:
		}
	}
	w.noteDrop(f.Index)
	return ErrDropped
}

func (w *Worker) noteDrop(index int) {
	dropped := w.dropped.Add(1)
	monitoring.Opsf("worker %s: dropped frame %d (total dropped: %d), queue full", w.sess.ID(), index, dropped)
}

// Run processes queued frames until Stop is called or ctx is cancelled.
// Either way intake is closed and the frames already accepted are
// processed before Run returns.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	defer func() {
		w.running.Store(false)
		close(w.done)
	}()
	w.lastStatsTime = w.clock.Now()

	for {
		select {
		case f := <-w.queue:
			w.handle(f)
		case <-w.stopCh:
			w.drain()
			return
		case <-ctx.Done():
			monitoring.Opsf("worker %s: context done: %v", w.sess.ID(), ctx.Err())
			w.closeIntake()
			w.drain()
			return
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case f := <-w.queue:
			w.handle(f)
		default:
			return
		}
	}
}

func (w *Worker) handle(f Frame) {
	res, err := w.sess.Process(f)
	if err != nil {
		w.rejected.Add(1)
		return
	}
	count := w.processed.Add(1)

	w.latestMu.Lock()
	w.latest = res
	w.hasLatest = true
	w.latestMu.Unlock()

	w.logPeriodicStats(count)
}

// logPeriodicStats logs throughput once per stats interval.
func (w *Worker) logPeriodicStats(count uint64) {
	if w.cfg.StatsInterval <= 0 {
		return
	}
	elapsed := w.clock.Since(w.lastStatsTime)
	if elapsed < w.cfg.StatsInterval {
		return
	}
	framesInInterval := count - w.lastProcessedCount
	fps := float64(framesInInterval) / elapsed.Seconds()
	monitoring.Opsf("worker %s: stats fps=%.1f frames=%d dropped=%d rejected=%d queue=%d/%d",
		w.sess.ID(), fps, framesInInterval, w.dropped.Load(), w.rejected.Load(), len(w.queue), cap(w.queue))
	w.lastStatsTime = w.clock.Now()
	w.lastProcessedCount = count
}

func (w *Worker) closeIntake() {
	w.intakeMu.Lock()
	w.stopping = true
	w.intakeMu.Unlock()
}

// Latest returns a copy of the most recent frame result. ok is false until
// a frame has been processed.
func (w *Worker) Latest() (FrameResult, bool) {
	w.latestMu.Lock()
	defer w.latestMu.Unlock()
	if !w.hasLatest {
		return FrameResult{}, false
	}
	return w.latest.Clone(), true
}

// Stats returns the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Submitted:  w.submitted.Load(),
		Processed:  w.processed.Load(),
		Dropped:    w.dropped.Load(),
		Rejected:   w.rejected.Load(),
		QueueDepth: len(w.queue),
		QueueCap:   cap(w.queue),
		Running:    w.running.Load(),
	}
}

// Stop closes intake, waits for Run to process every accepted frame and
// returns the session summary. Run must have been started. Stop gives up
// when ctx is done; calling it again after Run has returned yields the
// same summary.
func (w *Worker) Stop(ctx context.Context) (Summary, error) {
	w.closeIntake()
	w.stopOnce.Do(func() { close(w.stopCh) })

	select {
	case <-w.done:
	case <-ctx.Done():
		return Summary{}, fmt.Errorf("waiting for worker to drain: %w", ctx.Err())
	}

	w.summaryOnce.Do(func() {
		w.summary = w.sess.Finalize()
		st := w.Stats()
		monitoring.Opsf("worker %s: stopped processed=%d dropped=%d rejected=%d",
			w.sess.ID(), st.Processed, st.Dropped, st.Rejected)
	})
	return w.summary, nil
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }
