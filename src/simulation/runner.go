package simulation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

const pausePollInterval = 50 * time.Millisecond

// Runner drives a Simulation from a single goroutine: pacing, step limit, pause and
// resume. The run halts on the first step error.
type Runner struct {
	sim          *Simulation
	stepInterval time.Duration
	maxSteps     int
	paused       atomic.Bool
	running      atomic.Bool
	steps        atomic.Int64
	mutex        sync.Mutex
	lastErr      error
}

func NewRunner(sim *Simulation) *Runner {
	return &Runner{sim: sim}
}

func (r *Runner) WithStepInterval(interval time.Duration) *Runner {
	r.stepInterval = interval
	return r
}

// WithMaxSteps bounds the number of steps after initialization. Zero runs until cancelled.
func (r *Runner) WithMaxSteps(maxSteps int) *Runner {
	r.maxSteps = maxSteps
	return r
}

func (r *Runner) WithPaused(paused bool) *Runner {
	r.paused.Store(paused)
	return r
}

func (r *Runner) Build() (*Runner, error) {
	if r.sim == nil {
		return nil, errors.New("runner needs a simulation")
	}
	if r.stepInterval < 0 {
		return nil, errors.New("step interval must not be negative")
	}
	if r.maxSteps < 0 {
		return nil, errors.New("max steps must not be negative")
	}
	return r, nil
}

func RunnerFromConfig(sim *Simulation, config *datamodels.SimulationConfig) (*Runner, error) {
	return NewRunner(sim).
		WithStepInterval(config.StepInterval).
		WithMaxSteps(config.MaxSteps).
		Build()
}

func (r *Runner) Pause() {
	if !r.paused.Swap(true) {
		slog.Info("Runner paused", "steps", r.Steps())
	}
}

func (r *Runner) Resume() {
	if r.paused.Swap(false) {
		slog.Info("Runner resumed", "steps", r.Steps())
	}
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Steps counts the steps taken by Run, not the seed ticks.
func (r *Runner) Steps() int {
	return int(r.steps.Load())
}

func (r *Runner) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastErr
}

// Run initializes the simulation if needed, then steps it until the step limit is
// reached, ctx is cancelled, or a step fails. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("runner is already running")
	}
	defer r.running.Store(false)

	r.mutex.Lock()
	var err error
	if !r.sim.IsInitialized() {
		err = r.sim.Initialize(ctx)
	}
	r.mutex.Unlock()
	if err != nil {
		return r.halt(err)
	}

	var ticker *time.Ticker
	if r.stepInterval > 0 {
		ticker = time.NewTicker(r.stepInterval)
		defer ticker.Stop()
	}

	for {
		if r.maxSteps > 0 && r.Steps() >= r.maxSteps {
			slog.Info("Runner reached max steps", "steps", r.Steps())
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if r.IsPaused() {
			if ticker == nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(pausePollInterval):
				}
			}
			continue
		}

		r.mutex.Lock()
		_, err := r.sim.Step(ctx)
		r.mutex.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return r.halt(err)
		}
		r.steps.Add(1)
	}
}

func (r *Runner) halt(err error) error {
	r.mutex.Lock()
	r.lastErr = err
	r.mutex.Unlock()
	slog.Error("Runner halted", "steps", r.Steps(), "error", err)
	return err
}

// Records is a consistent snapshot of the run so far.
func (r *Runner) Records() []datamodels.StepRecord {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sim.Records()
}

func (r *Runner) Summary() Summary {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return Summarize(r.sim.Records(), r.sim.Config().InitialCapital)
}
