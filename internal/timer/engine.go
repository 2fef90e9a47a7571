// Package timer implements the wellness countdown engines: the Pomodoro
// work/break cycle, the eye-care work/rest cycle, and the simple interval
// reminders. Engines are driven by an external one-second tick and are not
// safe for concurrent use; the daemon loop owns all mutation.
package timer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// NotifyFunc receives phase-boundary notifications.
type NotifyFunc func(domain.Notification)

// PersistFunc receives a snapshot after every state mutation.
type PersistFunc func(domain.TimerSnapshot)

// Boundary notification copy.
var (
	pomodoroBreakStart = domain.Notification{
		Title: "Great job! Time for a break",
		Body:  "Take a moment to rest your eyes and stretch.",
	}
	pomodoroBreakEnd = domain.Notification{
		Title: "Break time is over!",
		Body:  "Time to get back to work!",
	}
	eyeCareRestStart = domain.Notification{
		Title: "Time for an eye break!",
		Body:  "Look at something 20 feet away for 20 seconds.",
	}
	eyeCareRestEnd = domain.Notification{
		Title: "Rest completed!",
		Body:  "Your eyes should feel refreshed now.",
	}
)

// Engine is a two-phase countdown state machine. The Pomodoro engine pauses
// at every phase boundary (the user starts the break deliberately); the
// eye-care engine cycles continuously while running.
type Engine struct {
	kind    domain.TimerKind
	logger  *zap.Logger
	notify  NotifyFunc
	persist PersistFunc

	phase    domain.TimerPhase
	running  bool
	elapsed  int
	workSec  int
	restSec  int
	progress float64
}

// NewEngine seeds an engine from a persisted record.
func NewEngine(kind domain.TimerKind, rec domain.TimerRecord, notify NotifyFunc, persist PersistFunc, logger *zap.Logger) *Engine {
	e := &Engine{
		kind:     kind,
		logger:   logger,
		notify:   notify,
		persist:  persist,
		phase:    rec.Phase,
		running:  rec.Running,
		elapsed:  rec.ElapsedSec,
		workSec:  rec.WorkDurationSec,
		restSec:  rec.RestDurationSec,
		progress: rec.ProgressPercent,
	}
	if e.phase != domain.PhaseRest {
		e.phase = domain.PhaseWork
	}
	e.clampDurations()
	if e.elapsed < 0 || e.elapsed > e.phaseDuration() {
		e.elapsed = 0
		e.progress = e.freshProgress()
	}
	return e
}

func (e *Engine) clampDurations() {
	minWork, minRest := MinDurations(e.kind)
	if e.workSec < minWork {
		e.workSec = minWork
	}
	if e.restSec < minRest {
		e.restSec = minRest
	}
}

// MinDurations returns the configuration floor for a timer kind.
func MinDurations(kind domain.TimerKind) (workSec, restSec int) {
	if kind == domain.TimerEyeCare {
		return domain.MinEyeCareWorkSec, domain.MinEyeCareRestSec
	}
	return domain.MinPomodoroWorkSec, domain.MinPomodoroBreakSec
}

func (e *Engine) phaseDuration() int {
	if e.phase == domain.PhaseRest {
		return e.restSec
	}
	return e.workSec
}

// freshProgress is the progress value at the start of a phase: the Pomodoro
// display counts down from 100, the eye-care rest ring also starts full, and
// the eye-care work phase reports no rest progress.
func (e *Engine) freshProgress() float64 {
	switch {
	case e.kind == domain.TimerPomodoro:
		return 100
	case e.phase == domain.PhaseRest:
		return 100
	default:
		return 0
	}
}

// Start begins (or resumes) the countdown. No-op while already running.
func (e *Engine) Start() {
	if e.running {
		return
	}
	e.running = true
	e.persistSnapshot()
}

// Pause stops the countdown, preserving elapsed time.
func (e *Engine) Pause() {
	if !e.running {
		return
	}
	e.running = false
	e.persistSnapshot()
}

// Reset stops the engine and reseeds the given phase from zero.
func (e *Engine) Reset(phase domain.TimerPhase) {
	if phase != domain.PhaseRest {
		phase = domain.PhaseWork
	}
	e.running = false
	e.phase = phase
	e.elapsed = 0
	e.progress = e.freshProgress()
	e.persistSnapshot()
}

// UpdateSettings changes the configured durations. Durations below the
// documented minimum are rejected. While paused the display reseeds
// immediately; while running the new durations take effect at the next
// boundary comparison.
func (e *Engine) UpdateSettings(workSec, restSec int) error {
	minWork, minRest := MinDurations(e.kind)
	if workSec < minWork {
		return fmt.Errorf("%s work duration %ds below minimum %ds", e.kind, workSec, minWork)
	}
	if restSec < minRest {
		return fmt.Errorf("%s rest duration %ds below minimum %ds", e.kind, restSec, minRest)
	}

	e.workSec = workSec
	e.restSec = restSec

	if !e.running {
		e.elapsed = 0
		if e.kind == domain.TimerEyeCare {
			e.phase = domain.PhaseWork
		}
		e.progress = e.freshProgress()
	}
	e.persistSnapshot()
	return nil
}

// Tick advances the engine by one second. Call once per second while the
// owning loop's cadence timer fires; ticks while paused are ignored.
func (e *Engine) Tick() {
	if !e.running {
		return
	}

	e.elapsed++
	if e.elapsed >= e.phaseDuration() {
		e.completePhase()
		return
	}
	e.progress = e.currentProgress()
	e.persistSnapshot()
}

// currentProgress is remaining-time-based for the Pomodoro display and for
// the eye-care rest ring, and zero during the eye-care work phase.
func (e *Engine) currentProgress() float64 {
	total := e.phaseDuration()
	if total <= 0 {
		return 0
	}
	if e.kind == domain.TimerPomodoro || e.phase == domain.PhaseRest {
		p := float64(total-e.elapsed) / float64(total) * 100
		if p < 0 {
			return 0
		}
		if p > 100 {
			return 100
		}
		return p
	}
	return 0
}

func (e *Engine) completePhase() {
	from := e.phase
	if e.phase == domain.PhaseWork {
		e.phase = domain.PhaseRest
	} else {
		e.phase = domain.PhaseWork
	}
	e.elapsed = 0
	e.progress = e.freshProgress()

	// The Pomodoro engine stops at every boundary; the eye-care cycle rolls on.
	if e.kind == domain.TimerPomodoro {
		e.running = false
	}

	e.logger.Info("timer phase completed",
		zap.String("kind", string(e.kind)),
		zap.String("from", string(from)),
		zap.String("to", string(e.phase)))

	if e.notify != nil {
		e.notify(e.boundaryNotification(from))
	}
	e.persistSnapshot()
}

func (e *Engine) boundaryNotification(completed domain.TimerPhase) domain.Notification {
	if e.kind == domain.TimerEyeCare {
		if completed == domain.PhaseWork {
			return eyeCareRestStart
		}
		return eyeCareRestEnd
	}
	if completed == domain.PhaseWork {
		return pomodoroBreakStart
	}
	return pomodoroBreakEnd
}

// Snapshot returns the current state for displays and persistence.
func (e *Engine) Snapshot() domain.TimerSnapshot {
	return domain.TimerSnapshot{
		Kind:            e.kind,
		Phase:           e.phase,
		Running:         e.running,
		ElapsedSec:      e.elapsed,
		WorkDurationSec: e.workSec,
		RestDurationSec: e.restSec,
		ProgressPercent: e.progress,
	}
}

// Record returns the state in persisted form.
func (e *Engine) Record() domain.TimerRecord {
	return domain.TimerRecord{
		Phase:           e.phase,
		Running:         e.running,
		ElapsedSec:      e.elapsed,
		WorkDurationSec: e.workSec,
		RestDurationSec: e.restSec,
		ProgressPercent: e.progress,
	}
}

func (e *Engine) persistSnapshot() {
	if e.persist != nil {
		e.persist(e.Snapshot())
	}
}
