// Package ticker runs the fetch → render → show → wait loop and the panel
// teardown that follows it.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"PaperTicker/internal/collector"
	"PaperTicker/internal/config"
	"PaperTicker/internal/display"
	"PaperTicker/internal/logging"
	"PaperTicker/internal/model"
	"PaperTicker/internal/notifier"
	"PaperTicker/internal/recorder"
	"PaperTicker/internal/render"
)

// ErrCancelled is returned by Run when its context is cancelled.
var ErrCancelled = errors.New("ticker: cancelled")

// ErrInvalidState is returned when a lifecycle method is called out of order.
var ErrInvalidState = errors.New("ticker: invalid state transition")

// State is the lifecycle position of a Loop. Transitions only move forward.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateTearingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateTearingDown:
		return "tearing-down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of one pass of the loop.
type Result struct {
	Outcome model.Outcome
	Frame   *render.Frame
	Err     error
}

// Waiter blocks until the next refresh is due.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Deps are the collaborators injected into a Loop.
type Deps struct {
	Display   display.Display
	Collector *collector.Collector
	Renderer  *render.Renderer
	Waiter    Waiter
	Recorder  recorder.Recorder
	Notifier  *notifier.TelegramNotifier
	Gate      *logging.Gate
	SessionID string
	Now       func() time.Time
	Sleep     display.Sleeper
}

// Loop owns the display handle for the lifetime of the process.
type Loop struct {
	cfg   config.Config
	deps  Deps
	state State

	startedAt   time.Time
	frames      int
	fetchErrors int
	ghostCycles int
}

// New builds a Loop. cfg is copied and never modified.
func New(cfg config.Config, deps Deps) (*Loop, error) {
	if deps.Display == nil || deps.Collector == nil || deps.Renderer == nil || deps.Waiter == nil {
		return nil, errors.New("ticker: display, collector, renderer and waiter are required")
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Gate == nil {
		deps.Gate = logging.NewGate(nil, cfg.LogInfo, cfg.LogError)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = display.SleepContext
	}
	return &Loop{cfg: cfg, deps: deps, state: StateStarting}, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return l.state }

// Start initialises and clears the panel.
func (l *Loop) Start() error {
	if l.state != StateStarting {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, l.state)
	}
	log.Println("[INFO] Running...")
	l.startedAt = l.deps.Now()
	l.recordSession("START", "")

	log.Printf("[INFO] Initialising and clearing %s...", l.deps.Display.Name())
	if err := l.deps.Display.Init(); err != nil {
		l.journal(model.RefreshInit, model.OutcomeFatal, err.Error())
		return err
	}
	if err := l.deps.Display.Clear(); err != nil {
		l.journal(model.RefreshClear, model.OutcomeFatal, err.Error())
		return err
	}
	l.journal(model.RefreshClear, model.OutcomeOK, "start")

	l.state = StateRunning
	log.Println("[INFO] Showing time...")
	return nil
}

// Step renders and shows one frame. A failed price fetch only drops the price
// from the frame; a display failure is fatal.
func (l *Loop) Step(ctx context.Context) Result {
	if l.state != StateRunning {
		return Result{Outcome: model.OutcomeFatal, Err: fmt.Errorf("%w: step while %s", ErrInvalidState, l.state)}
	}
	now := l.deps.Now()

	outcome := model.OutcomeOK
	var price *float64
	quote, fetchErr := l.deps.Collector.Collect(ctx)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return Result{Outcome: model.OutcomeFatal, Err: ErrCancelled}
		}
		l.deps.Gate.Errorf("%v", fetchErr)
		outcome = model.OutcomeFetchError
		l.fetchErrors++
	} else {
		price = &quote.Price
	}

	frame := l.deps.Renderer.Render(now, price)
	if frame.HasPrice() {
		l.deps.Gate.Infof("%s", frame.Price)
	}

	if err := l.deps.Display.Show(frame.Image); err != nil {
		l.journal(model.RefreshFrame, model.OutcomeFatal, err.Error())
		return Result{Outcome: model.OutcomeFatal, Frame: frame, Err: err}
	}
	l.frames++
	l.journal(model.RefreshFrame, outcome, "")
	return Result{Outcome: outcome, Frame: frame, Err: fetchErr}
}

// Run starts the panel and refreshes it until ctx is cancelled or a pass is
// fatal. One-shot displays stop after their first frame and Run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		res := l.Step(ctx)
		if res.Outcome == model.OutcomeFatal {
			return res.Err
		}
		if l.deps.Display.OneShot() {
			l.state = StateStopped
			l.recordSession("STOP", "one-shot")
			return nil
		}
		if err := l.deps.Waiter.Wait(ctx); err != nil {
			return ErrCancelled
		}
	}
}

// Teardown clears the panel, optionally runs the ghost fix, draws a blank
// frame and puts the panel to sleep, in that order. The first display error
// aborts the sequence. Cancelling ctx only cuts the ghost fix short.
// One-shot displays have nothing to tear down.
func (l *Loop) Teardown(ctx context.Context, reason string) error {
	if l.state == StateTearingDown || (l.state == StateStopped && !l.deps.Display.OneShot()) {
		return fmt.Errorf("%w: teardown from %s", ErrInvalidState, l.state)
	}
	if l.deps.Display.OneShot() {
		l.state = StateStopped
		return nil
	}
	l.state = StateTearingDown
	err := l.teardown(ctx)
	l.state = StateStopped

	note := reason
	if err != nil {
		note = fmt.Sprintf("%s; teardown: %v", reason, err)
	}
	l.recordSession("STOP", note)
	l.notify(reason, err)
	return err
}

func (l *Loop) teardown(ctx context.Context) error {
	d := l.deps.Display

	log.Println("[INFO] Clearing...")
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Clear(); err != nil {
		return err
	}
	l.journal(model.RefreshClear, model.OutcomeOK, "teardown")

	if l.cfg.GhostFix.Enabled {
		log.Println("[INFO] Running ghost fix loop...")
		n, err := display.GhostFix(ctx, d, l.cfg.GhostFix.Iterations, l.cfg.GhostFix.Dwell, l.deps.Sleep, func(n int) {
			l.journal(model.RefreshGhostCycle, model.OutcomeOK, fmt.Sprintf("cycle %d", n))
		})
		l.ghostCycles = n
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			log.Printf("[WARN] ghost fix stopped after %d cycles: %v", n, err)
		default:
			return err
		}
	}

	log.Println("[INFO] Displaying blank image...")
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Show(render.Fill(d.Bounds(), image1bit.On)); err != nil {
		return err
	}
	l.journal(model.RefreshBlank, model.OutcomeOK, "")

	log.Println("[INFO] Going to sleep...")
	if err := d.Sleep(); err != nil {
		return err
	}
	l.journal(model.RefreshSleep, model.OutcomeOK, "")
	return nil
}

func (l *Loop) journal(kind model.RefreshKind, outcome model.Outcome, note string) {
	if err := l.deps.Recorder.RecordRefresh(&recorder.RefreshEvent{
		SessionID: l.deps.SessionID,
		Kind:      kind,
		Outcome:   outcome,
		Note:      note,
	}); err != nil {
		log.Printf("[ERROR] record refresh: %v", err)
	}
}

func (l *Loop) recordSession(phase, note string) {
	if err := l.deps.Recorder.RecordSession(&recorder.SessionEvent{
		SessionID: l.deps.SessionID,
		Phase:     phase,
		Display:   l.deps.Display.Name(),
		Note:      note,
	}); err != nil {
		log.Printf("[ERROR] record session: %v", err)
	}
}

func (l *Loop) notify(reason string, teardownErr error) {
	if !l.deps.Notifier.Enabled() {
		return
	}
	msg := notifier.FormatTeardown(&notifier.TeardownReport{
		SessionID:   l.deps.SessionID,
		Display:     l.deps.Display.Name(),
		Reason:      reason,
		Frames:      l.frames,
		FetchErrors: l.fetchErrors,
		GhostCycles: l.ghostCycles,
		StartedAt:   l.startedAt,
		StoppedAt:   l.deps.Now(),
		Err:         teardownErr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := l.deps.Notifier.SendWithRetry(ctx, msg, 2); err != nil {
		log.Printf("[ERROR] send teardown alert: %v", err)
	}
}
