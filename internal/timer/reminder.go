package timer

import (
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// ReminderKind identifies one of the simple interval reminders.
type ReminderKind string

const (
	ReminderHydration ReminderKind = "hydration"
	ReminderPosture   ReminderKind = "posture"
)

var reminderCopy = map[ReminderKind]domain.Notification{
	ReminderHydration: {
		Title: "Hydration Reminder",
		Body:  "Time to drink some water! Stay hydrated for better focus.",
	},
	ReminderPosture: {
		Title: "Posture Reminder",
		Body:  "Time to check your posture! Sit up straight and stretch a bit.",
	},
}

// Reminder is a single-interval countdown that fires a notification and
// restarts itself. Enabling it resets the countdown to the full interval.
// Like Engine, it is owned and ticked by the daemon loop.
type Reminder struct {
	kind    ReminderKind
	logger  *zap.Logger
	notify  NotifyFunc
	persist func(domain.ReminderRecord)

	enabled  bool
	timeLeft int
	interval int
}

// NewReminder seeds a reminder from its persisted record.
func NewReminder(kind ReminderKind, rec domain.ReminderRecord, notify NotifyFunc, persist func(domain.ReminderRecord), logger *zap.Logger) *Reminder {
	r := &Reminder{
		kind:     kind,
		logger:   logger,
		notify:   notify,
		persist:  persist,
		enabled:  rec.Enabled,
		timeLeft: rec.TimeLeftSec,
		interval: rec.IntervalSec,
	}
	if r.interval <= 0 {
		r.interval = defaultInterval(kind)
	}
	if r.timeLeft <= 0 || r.timeLeft > r.interval {
		r.timeLeft = r.interval
	}
	return r
}

func defaultInterval(kind ReminderKind) int {
	if kind == ReminderPosture {
		return domain.DefaultPostureSec
	}
	return domain.DefaultHydrationSec
}

// SetEnabled toggles the reminder. Enabling resets the countdown.
func (r *Reminder) SetEnabled(enabled bool) {
	if enabled == r.enabled {
		return
	}
	r.enabled = enabled
	if enabled {
		r.timeLeft = r.interval
	}
	r.persistRecord()
}

// Tick advances the countdown by one second while enabled. At zero it fires
// the notification and restarts the interval.
func (r *Reminder) Tick() {
	if !r.enabled {
		return
	}
	r.timeLeft--
	if r.timeLeft > 0 {
		r.persistRecord()
		return
	}

	r.logger.Debug("reminder fired", zap.String("kind", string(r.kind)))
	if r.notify != nil {
		r.notify(reminderCopy[r.kind])
	}
	r.timeLeft = r.interval
	r.persistRecord()
}

// Enabled reports the toggle state.
func (r *Reminder) Enabled() bool { return r.enabled }

// TimeLeftSec returns whole seconds until the next reminder.
func (r *Reminder) TimeLeftSec() int { return r.timeLeft }

// Record returns the state in persisted form.
func (r *Reminder) Record() domain.ReminderRecord {
	return domain.ReminderRecord{
		Enabled:     r.enabled,
		TimeLeftSec: r.timeLeft,
		IntervalSec: r.interval,
	}
}

func (r *Reminder) persistRecord() {
	if r.persist != nil {
		r.persist(r.Record())
	}
}
