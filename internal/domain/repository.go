package domain

import "time"

// Outbound shell channel names. The desktop shell treats these as
// fire-and-forget commands with no response contract.
const (
	ChanToggleFocusMode   = "toggle-focus-mode"
	ChanStabilizeWindow   = "stabilize-window"
	ChanApplyScreenDim    = "apply-screen-dim"
	ChanShowNotification  = "show-native-notification"
	ChanGetActiveWindow   = "get-active-window"
	ChanGetUserAppUsage   = "get-user-app-usage"
	ChanGetUserData       = "get-user-data"
	ChanShowFocusPopup    = "show-focus-popup"
	ChanDismissFocusPopup = "dismiss-focus-popup"
)

// Inbound shell event names.
const (
	EventActiveWindowChanged = "active-window-changed"
	EventAppUsageUpdate      = "app-usage-update"
	EventPopupDismissed      = "popup-dismissed"
	EventUserChanged         = "user-changed"
)

// ShellEvent is one inbound message from the desktop shell.
type ShellEvent struct {
	Name    string
	Window  *WindowDescriptor // set for active-window-changed
	Usage   []AppUsage        // set for app-usage-update
	AlertID string            // set for popup-dismissed
	UserID  string            // set for user-changed
}

// ShellBridge is the message-passing channel to the out-of-process desktop
// shell. Send is fire-and-forget; a missing shell makes every Send a no-op.
type ShellBridge interface {
	// Send posts an outbound command with a JSON-serializable payload.
	Send(channel string, payload any) error

	// Events returns the inbound event stream. Closed when the bridge shuts down.
	Events() <-chan ShellEvent

	// Available reports whether a shell is actually connected. When false the
	// daemon runs in degraded mode (no tray, no dim, no native notifications).
	Available() bool

	// Close releases the underlying transport.
	Close() error
}

// SettingsStore persists one versioned settings record per user.
// Reads are defensive: malformed data yields documented defaults, never an error
// the caller has to handle beyond logging.
type SettingsStore interface {
	// Load returns the settings record for userID, falling back to defaults
	// (after attempting legacy per-key migration) when nothing valid exists.
	Load(userID string) (*SettingsRecord, error)

	// Save writes the full record for userID. Last write wins.
	Save(userID string, rec *SettingsRecord) error
}

// Notifier shows a native desktop notification. Implementations are best
// effort; failure is logged, never propagated.
type Notifier interface {
	Notify(n Notification) error
}

// AlertObserver receives presentation-channel callbacks. Replaces the
// stringly-typed DOM events of the original design.
type AlertObserver interface {
	// AlertDisplayed is invoked once when an alert becomes visible.
	AlertDisplayed(req AlertRequest)

	// AlertDismissed is invoked when an alert closes, whether by user action
	// or by the auto-dismiss timer.
	AlertDismissed(id string)
}

// KeyProvider abstracts the source of the settings-database encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes, generating and storing a new
	// key on first use.
	GetKey() ([]byte, error)
}

// WindowResolver fills in owner metadata the shell could not provide,
// typically by inspecting the owning process.
type WindowResolver interface {
	Resolve(d WindowDescriptor) WindowDescriptor
}

// Clock abstracts time for the session cooldown logic and the timer engines,
// so tests can drive ticks deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
