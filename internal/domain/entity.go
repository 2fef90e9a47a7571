// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// ProductName is the display name of this application. The matcher treats it
// as permanently whitelisted so the companion never blocks itself.
const ProductName = "Mindwell Desktop Companion"

// EssentialWhitelist lists entries that can never be removed from a user's
// allow-list. They identify the companion's own processes.
var EssentialWhitelist = []string{
	ProductName,
	"Electron",
	"electron",
	"chrome-devtools",
}

// WindowDescriptor describes the foreground window as reported by the
// desktop shell. Only Title is guaranteed; everything else is best effort
// and varies by platform.
type WindowDescriptor struct {
	Title     string `json:"title"`
	AppName   string `json:"appName,omitempty"`
	OwnerName string `json:"ownerName,omitempty"`
	OwnerPath string `json:"ownerPath,omitempty"`
	OwnerPID  int32  `json:"ownerPid,omitempty"`
	BundleID  string `json:"bundleId,omitempty"`
}

// Resolvable reports whether the descriptor carries enough identity to name
// an application. Unresolvable descriptors are treated as "no active app".
func (d WindowDescriptor) Resolvable() bool {
	return d.Title != "" || d.OwnerName != "" || d.AppName != ""
}

// AlertRequest is a single focus-mode alert handed from the session state
// machine to the presentation channel. Consumed exactly once.
type AlertRequest struct {
	ID           string
	Title        string
	Body         string
	AppName      string
	MediaType    string // "image" or "none"
	MediaContent string // image URL when MediaType is "image"
	CreatedAt    time.Time
}

// TimerKind identifies one of the countdown engines.
type TimerKind string

const (
	TimerPomodoro TimerKind = "pomodoro"
	TimerEyeCare  TimerKind = "eyecare"
)

// TimerPhase is the Work or Rest sub-state of a timer engine.
type TimerPhase string

const (
	PhaseWork TimerPhase = "work"
	PhaseRest TimerPhase = "rest"
)

// TimerSnapshot is an immutable view of a timer engine's state, consumed by
// displays and persisted on every mutation.
type TimerSnapshot struct {
	Kind            TimerKind  `json:"kind"`
	Phase           TimerPhase `json:"phase"`
	Running         bool       `json:"running"`
	ElapsedSec      int        `json:"elapsedSec"`
	WorkDurationSec int        `json:"workDurationSec"`
	RestDurationSec int        `json:"restDurationSec"`
	ProgressPercent float64    `json:"progressPercent"`
}

// RemainingSec returns whole seconds left in the current phase.
func (s TimerSnapshot) RemainingSec() int {
	d := s.WorkDurationSec
	if s.Phase == PhaseRest {
		d = s.RestDurationSec
	}
	if r := d - s.ElapsedSec; r > 0 {
		return r
	}
	return 0
}

// Notification is a toast or native notification fired at a timer boundary
// or reminder interval.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UsageClass buckets an application for the dashboard feed.
type UsageClass string

const (
	UsageProductive    UsageClass = "productive"
	UsageDistraction   UsageClass = "distraction"
	UsageCommunication UsageClass = "communication"
)

// AppUsage is one row of the per-app screen-time feed.
type AppUsage struct {
	Name       string     `json:"name"`
	Class      UsageClass `json:"type"`
	ActiveSec  int64      `json:"time"`
	LastActive time.Time  `json:"lastActiveTime"`
}

// SessionSnapshot is the observable state of the focus session, used by the
// live whitelist-match preview and the status API.
type SessionSnapshot struct {
	UserID                string   `json:"userId"`
	FocusModeActive       bool     `json:"focusModeActive"`
	DimInsteadOfBlock     bool     `json:"dimInsteadOfBlock"`
	Whitelist             []string `json:"whitelist"`
	CurrentApp            string   `json:"currentApp,omitempty"`
	CurrentAppWhitelisted bool     `json:"currentAppWhitelisted"`
	AlertShowing          bool     `json:"alertShowing"`
}
