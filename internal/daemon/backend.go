package daemon

import (
	"fmt"
	"strings"

	"github.com/mindwell/companion/internal/api"
	"github.com/mindwell/companion/internal/domain"
	"github.com/mindwell/companion/internal/timer"
)

// call runs f on the daemon loop and waits for its result, giving HTTP
// handlers a synchronous view of single-threaded state.
func call[T any](r *Runner, f func() T) T {
	reply := make(chan T, 1)
	r.commands <- func() { reply <- f() }
	return <-reply
}

func (r *Runner) Session() domain.SessionSnapshot {
	return call(r, r.session.Snapshot)
}

func (r *Runner) Timers() []domain.TimerSnapshot {
	return call(r, r.timerSnapshots)
}

func (r *Runner) Usage() []domain.AppUsage {
	return call(r, r.tracker.Snapshot)
}

func (r *Runner) ToggleFocus() domain.SessionSnapshot {
	return call(r, func() domain.SessionSnapshot {
		r.session.Toggle()
		return r.session.Snapshot()
	})
}

func (r *Runner) TestPopup() {
	call(r, func() struct{} {
		r.session.TestPopup()
		return struct{}{}
	})
}

func (r *Runner) AddWhitelist(app string) domain.SessionSnapshot {
	return call(r, func() domain.SessionSnapshot {
		r.session.AddToWhitelist(app)
		return r.session.Snapshot()
	})
}

func (r *Runner) RemoveWhitelist(app string) (domain.SessionSnapshot, error) {
	type result struct {
		snap domain.SessionSnapshot
		err  error
	}
	res := call(r, func() result {
		if err := r.session.RemoveFromWhitelist(app); err != nil {
			return result{err: err}
		}
		return result{snap: r.session.Snapshot()}
	})
	return res.snap, res.err
}

func (r *Runner) UpdateAlertPrefs(prefs api.AlertPrefs) domain.SessionSnapshot {
	return call(r, func() domain.SessionSnapshot {
		if prefs.CustomText != nil {
			r.session.UpdateCustomText(*prefs.CustomText)
		}
		if prefs.CustomImage != nil {
			r.session.UpdateCustomImage(*prefs.CustomImage)
		}
		if prefs.ToggleDim {
			r.session.ToggleDimOption()
		}
		return r.session.Snapshot()
	})
}

func (r *Runner) engineFor(kind domain.TimerKind) (*timer.Engine, error) {
	switch kind {
	case domain.TimerPomodoro:
		return r.pomodoro, nil
	case domain.TimerEyeCare:
		return r.eyeCare, nil
	default:
		return nil, fmt.Errorf("unknown timer kind %q", kind)
	}
}

func (r *Runner) TimerCommand(kind domain.TimerKind, action string) ([]domain.TimerSnapshot, error) {
	type result struct {
		snaps []domain.TimerSnapshot
		err   error
	}
	res := call(r, func() result {
		engine, err := r.engineFor(kind)
		if err != nil {
			return result{err: err}
		}
		switch action {
		case "start":
			engine.Start()
		case "pause":
			engine.Pause()
		case "reset":
			engine.Reset(domain.PhaseWork)
		default:
			return result{err: fmt.Errorf("unknown timer action %q", action)}
		}
		return result{snaps: r.timerSnapshots()}
	})
	return res.snaps, res.err
}

func (r *Runner) UpdateTimer(kind domain.TimerKind, upd api.TimerUpdate) ([]domain.TimerSnapshot, error) {
	type result struct {
		snaps []domain.TimerSnapshot
		err   error
	}
	res := call(r, func() result {
		engine, err := r.engineFor(kind)
		if err != nil {
			return result{err: err}
		}
		if err := engine.UpdateSettings(upd.WorkDurationSec, upd.RestDurationSec); err != nil {
			return result{err: err}
		}
		return result{snaps: r.timerSnapshots()}
	})
	return res.snaps, res.err
}

func (r *Runner) SetReminder(kind string, enabled bool) error {
	return call(r, func() error {
		switch timer.ReminderKind(strings.ToLower(kind)) {
		case timer.ReminderHydration:
			r.hydration.SetEnabled(enabled)
		case timer.ReminderPosture:
			r.posture.SetEnabled(enabled)
		default:
			return fmt.Errorf("unknown reminder kind %q", kind)
		}
		return nil
	})
}

var _ api.Backend = (*Runner)(nil)
