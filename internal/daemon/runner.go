// Package daemon wires every component together and runs the single loop
// that owns all state mutation. Shell events, one-second ticks, and API
// calls are serialized onto that loop; nothing in the core is locked.
package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/alert"
	"github.com/mindwell/companion/internal/config"
	"github.com/mindwell/companion/internal/domain"
	"github.com/mindwell/companion/internal/session"
	"github.com/mindwell/companion/internal/timer"
	"github.com/mindwell/companion/internal/usage"
	"github.com/mindwell/companion/internal/window"
)

// Runner owns the daemon loop and every stateful component. Construct with
// New, then call Run exactly once.
type Runner struct {
	logger   *zap.Logger
	cfg      config.Config
	store    domain.SettingsStore
	bridge   domain.ShellBridge
	resolver domain.WindowResolver
	notifier domain.Notifier
	clock    domain.Clock

	presenter *alert.Presenter
	session   *session.Session
	pomodoro  *timer.Engine
	eyeCare   *timer.Engine
	hydration *timer.Reminder
	posture   *timer.Reminder
	tracker   *usage.Tracker
	poller    *window.Poller

	// commands carries closures from HTTP goroutines and presenter timer
	// callbacks onto the loop. Buffered so an auto-dismiss firing while the
	// loop is mid-iteration never blocks.
	commands chan func()
}

// New builds the full component graph for the configured default user.
func New(cfg config.Config, store domain.SettingsStore, bridge domain.ShellBridge,
	resolver domain.WindowResolver, notifier domain.Notifier, logger *zap.Logger) *Runner {

	r := &Runner{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		bridge:   bridge,
		resolver: resolver,
		notifier: notifier,
		clock:    domain.SystemClock{},
		tracker:  usage.NewTracker(),
		commands: make(chan func(), 64),
	}

	r.presenter = alert.NewPresenter(logger)
	r.presenter.Subscribe(r)

	r.session = session.New(cfg.DefaultUser, store, bridge, r.presenter, r.clock, logger)
	// Settle-delay callbacks must mutate session state on the loop, not on
	// the timer goroutine that fires them.
	r.session.SetScheduler(r.loopScheduler)
	r.buildTimers()
	r.poller = window.NewPoller(bridge, cfg.PollEvery(), logger)

	return r
}

// loopScheduler arms a delayed call whose body executes on the daemon loop,
// the same hop AlertDismissed takes. Cancellation stops the timer; a closure
// already queued still runs, so scheduled bodies guard their own state.
func (r *Runner) loopScheduler(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, func() {
		select {
		case r.commands <- f:
		default:
			r.logger.Warn("command queue full, scheduled callback dropped")
		}
	})
	return func() { t.Stop() }
}

// buildTimers (re)creates the engines and reminders from the current user's
// settings record. Called at construction and on every user change.
func (r *Runner) buildTimers() {
	rec := r.session.Settings()

	r.pomodoro = timer.NewEngine(domain.TimerPomodoro, rec.Pomodoro,
		r.notifyUser, func(s domain.TimerSnapshot) { r.persistTimer(s) }, r.logger)
	r.eyeCare = timer.NewEngine(domain.TimerEyeCare, rec.EyeCare,
		r.notifyUser, func(s domain.TimerSnapshot) { r.persistTimer(s) }, r.logger)

	r.hydration = timer.NewReminder(timer.ReminderHydration, rec.Hydration,
		r.notifyUser, func(rr domain.ReminderRecord) { r.persistReminder(timer.ReminderHydration, rr) },
		r.logger)
	r.posture = timer.NewReminder(timer.ReminderPosture, rec.Posture,
		r.notifyUser, func(rr domain.ReminderRecord) { r.persistReminder(timer.ReminderPosture, rr) },
		r.logger)
}

// Run drives the loop until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("daemon loop starting",
		zap.String("user", r.session.UserID()),
		zap.Bool("shell", r.bridge.Available()))

	r.pushUserData()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.presenter.Clear()
			r.logger.Info("daemon loop stopped")
			return nil
		case <-ticker.C:
			r.tick()
		case ev, ok := <-r.bridge.Events():
			if !ok {
				return fmt.Errorf("shell event stream closed")
			}
			r.handleShellEvent(ev)
		case cmd := <-r.commands:
			cmd()
		}
	}
}

func (r *Runner) tick() {
	now := r.clock.Now()

	r.pomodoro.Tick()
	r.eyeCare.Tick()
	r.hydration.Tick()
	r.posture.Tick()

	if app := r.session.Snapshot().CurrentApp; app != "" {
		r.tracker.Credit(app, now, time.Second)
	}

	// The pull fallback only matters while focus mode needs fresh windows.
	if r.session.Active() {
		r.poller.Tick(now)
	}
}

func (r *Runner) handleShellEvent(ev domain.ShellEvent) {
	switch ev.Name {
	case domain.EventActiveWindowChanged:
		if ev.Window == nil {
			return
		}
		r.poller.MarkPush(r.clock.Now())
		r.session.HandleWindowEvent(r.resolver.Resolve(*ev.Window))
	case domain.EventAppUsageUpdate:
		r.tracker.Merge(ev.Usage)
		r.sendSafe(domain.ChanGetUserAppUsage, r.tracker.Snapshot())
	case domain.EventPopupDismissed:
		r.presenter.Dismiss(ev.AlertID)
	case domain.EventUserChanged:
		r.switchUser(ev.UserID)
	default:
		r.logger.Debug("unhandled shell event", zap.String("event", ev.Name))
	}
}

// switchUser tears down the outgoing user's state and reseeds everything
// for the incoming one. Nothing cross-user survives: timers restart from
// the documented defaults, not from whatever the incoming user's record
// last persisted. Record-based seeding happens only at daemon startup.
func (r *Runner) switchUser(userID string) {
	if userID == "" || userID == r.session.UserID() {
		return
	}
	r.session.SetUser(userID)

	defaults := domain.DefaultSettings()
	rec := r.session.Settings()
	rec.Pomodoro = defaults.Pomodoro
	rec.EyeCare = defaults.EyeCare
	rec.Hydration = defaults.Hydration
	rec.Posture = defaults.Posture

	r.buildTimers()
	r.saveSettings()
	r.tracker.Reset()
	r.pushUserData()
}

// ReloadSettings re-reads the current user's record from the store and
// applies it to the live session and timers. The file watcher calls this
// when the settings file changes outside the daemon; safe from any
// goroutine.
func (r *Runner) ReloadSettings() {
	call(r, func() struct{} {
		before := r.session.Settings()
		r.session.ReloadSettings()
		if r.session.Settings() != before {
			r.buildTimers()
			r.pushUserData()
		}
		return struct{}{}
	})
}

// pushUserData sends the incoming user's settings and timer state to the
// shell so it can render without a round trip.
func (r *Runner) pushUserData() {
	r.sendSafe(domain.ChanGetUserData, map[string]any{
		"session":  r.session.Snapshot(),
		"settings": r.session.Settings(),
		"timers":   r.timerSnapshots(),
	})
}

func (r *Runner) timerSnapshots() []domain.TimerSnapshot {
	return []domain.TimerSnapshot{r.pomodoro.Snapshot(), r.eyeCare.Snapshot()}
}

// notifyUser fans a notification out to the shell toast channel and the
// native notification service. Both paths are best effort.
func (r *Runner) notifyUser(n domain.Notification) {
	r.sendSafe(domain.ChanShowNotification, n)
	if err := r.notifier.Notify(n); err != nil {
		r.logger.Debug("native notification failed", zap.Error(err))
	}
}

func (r *Runner) persistTimer(snap domain.TimerSnapshot) {
	rec := r.session.Settings()
	switch snap.Kind {
	case domain.TimerPomodoro:
		rec.Pomodoro = r.pomodoro.Record()
	case domain.TimerEyeCare:
		rec.EyeCare = r.eyeCare.Record()
	}
	r.saveSettings()
}

func (r *Runner) persistReminder(kind timer.ReminderKind, rr domain.ReminderRecord) {
	rec := r.session.Settings()
	switch kind {
	case timer.ReminderHydration:
		rec.Hydration = rr
	case timer.ReminderPosture:
		rec.Posture = rr
	}
	r.saveSettings()
}

func (r *Runner) saveSettings() {
	if err := r.store.Save(r.session.UserID(), r.session.Settings()); err != nil {
		r.logger.Warn("settings save failed",
			zap.String("user", r.session.UserID()), zap.Error(err))
	}
}

func (r *Runner) sendSafe(channel string, payload any) {
	if err := r.bridge.Send(channel, payload); err != nil {
		r.logger.Debug("shell send failed", zap.String("channel", channel), zap.Error(err))
	}
}

// AlertDisplayed forwards a newly visible alert to the shell for rendering.
// Invoked synchronously from inside the loop.
func (r *Runner) AlertDisplayed(req domain.AlertRequest) {
	r.sendSafe(domain.ChanShowFocusPopup, req)
}

// AlertDismissed closes the shell popup and updates the session. The
// auto-dismiss timer fires on its own goroutine, so this hops onto the loop.
func (r *Runner) AlertDismissed(id string) {
	select {
	case r.commands <- func() {
		r.session.HandleDismissal(id)
		r.sendSafe(domain.ChanDismissFocusPopup, map[string]string{"id": id})
	}:
	default:
		r.logger.Warn("command queue full, dismissal dropped", zap.String("id", id))
	}
}

var _ domain.AlertObserver = (*Runner)(nil)
