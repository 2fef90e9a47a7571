// Package session implements the Focus Mode state machine: allow-list
// bookkeeping, block-transition detection, alert arbitration with per-app
// cooldown, and per-user lifecycle.
package session

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
	"github.com/mindwell/companion/internal/match"
)

const (
	// CooldownWindow is the minimum time between two alerts for the same app.
	CooldownWindow = 2000 * time.Millisecond

	// SettleDelay postpones the initial evaluation after enabling Focus Mode
	// so the toggle's shell messages land first.
	SettleDelay = 500 * time.Millisecond

	// StabilizeDelay sequences the stabilize-window message ahead of state
	// mutation when toggling.
	StabilizeDelay = 100 * time.Millisecond

	// AlertTitle heads every focus popup.
	AlertTitle = "Focus Mode Alert"

	// DimOpacity is sent with apply-screen-dim when dim-instead-of-block is on.
	DimOpacity = 0.7
)

// ErrEssentialEntry is returned when removal of a permanently-whitelisted
// entry is attempted. The allow-list is left unchanged.
var ErrEssentialEntry = errors.New("cannot remove an essential whitelist entry")

// AlertChannel is the session's view of the presentation layer.
type AlertChannel interface {
	Present(req domain.AlertRequest)
	Clear()
}

// Scheduler arms a cancellable delayed call. Production uses time.AfterFunc;
// tests substitute a synchronous version.
type Scheduler func(d time.Duration, f func()) (cancel func())

func defaultScheduler(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Session is the per-user Focus Mode state machine. It is owned by the
// daemon loop; methods are not safe for concurrent use.
type Session struct {
	logger   *zap.Logger
	matcher  *match.Matcher
	store    domain.SettingsStore
	bridge   domain.ShellBridge
	alerts   AlertChannel
	clock    domain.Clock
	schedule Scheduler

	userID   string
	settings *domain.SettingsRecord

	active                bool
	currentApp            string
	currentAppWhitelisted bool
	previousAppAllowed    bool
	lastWindow            *domain.WindowDescriptor

	lastAlertAt    map[string]time.Time
	alertShowing   bool
	currentAlertID string
	currentAlert   string // app name of the showing alert

	cancelSettle func()
}

// New creates a session for userID, seeding state from the user's persisted
// settings record. A previously saved focus-mode flag is honored.
func New(userID string, store domain.SettingsStore, bridge domain.ShellBridge, alerts AlertChannel, clock domain.Clock, logger *zap.Logger) *Session {
	s := &Session{
		logger:      logger,
		matcher:     match.NewMatcher(),
		store:       store,
		bridge:      bridge,
		alerts:      alerts,
		clock:       clock,
		schedule:    defaultScheduler,
		lastAlertAt: make(map[string]time.Time),
	}
	s.seedUser(userID, true)
	return s
}

// SetScheduler overrides the settle-delay scheduler (tests only).
func (s *Session) SetScheduler(sched Scheduler) { s.schedule = sched }

func (s *Session) seedUser(userID string, restoreFocusFlag bool) {
	s.userID = userID

	rec, err := s.store.Load(userID)
	if err != nil {
		// Defensive: Load already falls back internally, but never crash here.
		s.logger.Warn("settings load failed, using defaults",
			zap.String("user", userID), zap.Error(err))
		rec = domain.DefaultSettings()
	}
	s.settings = rec

	s.active = restoreFocusFlag && rec.FocusModeEnabled
	s.previousAppAllowed = false
	s.currentApp = ""
	s.currentAppWhitelisted = false
	s.lastWindow = nil
	s.lastAlertAt = make(map[string]time.Time)
	s.alertShowing = false
	s.currentAlertID = ""
	s.currentAlert = ""
}

// SetUser switches the signed-in user. All cooldowns and pending evaluations
// for the outgoing user are cancelled before the incoming user's state is
// seeded; Focus Mode always starts off for the incoming user.
func (s *Session) SetUser(userID string) {
	if userID == s.userID {
		return
	}
	s.logger.Info("user changed, resetting focus session",
		zap.String("from", s.userID), zap.String("to", userID))

	s.stopSettle()
	s.alerts.Clear()
	s.seedUser(userID, false)
}

// UserID returns the current user identifier.
func (s *Session) UserID() string { return s.userID }

// Settings returns the live settings record (read-only by convention).
func (s *Session) Settings() *domain.SettingsRecord { return s.settings }

// Active reports whether Focus Mode is on.
func (s *Session) Active() bool { return s.active }

func (s *Session) mergedWhitelist() []string {
	merged := append([]string(nil), s.settings.Whitelist...)
	for _, e := range domain.EssentialWhitelist {
		if !containsFold(merged, e) {
			merged = append(merged, e)
		}
	}
	return merged
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// HandleWindowEvent processes one active-window-changed event from the shell.
func (s *Session) HandleWindowEvent(d domain.WindowDescriptor) {
	if !d.Resolvable() {
		// No derivable identity: treat as no active app, skip matching.
		s.currentApp = ""
		s.currentAppWhitelisted = false
		s.lastWindow = nil
		return
	}

	appName := match.ResolveAppName(d)
	whitelisted := s.matcher.IsWhitelisted(appName, s.mergedWhitelist(), &d)

	s.currentApp = appName
	s.currentAppWhitelisted = whitelisted
	s.lastWindow = &d

	if !s.active {
		return
	}

	// An open alert for an app that has since become allowed is cleared.
	if s.alertShowing && s.currentAlert != "" &&
		s.matcher.IsWhitelisted(s.currentAlert, s.mergedWhitelist(), nil) {
		s.clearAlert()
	}

	// Block transition: previous app allowed, this one is not.
	if s.previousAppAllowed && !whitelisted && appName != "" {
		s.maybeAlert(appName)
	}
	s.previousAppAllowed = whitelisted
}

// maybeAlert emits an alert for appName unless it is inside the per-app
// cooldown window.
func (s *Session) maybeAlert(appName string) {
	now := s.clock.Now()
	if last, ok := s.lastAlertAt[appName]; ok && now.Sub(last) <= CooldownWindow {
		s.logger.Debug("alert suppressed by cooldown", zap.String("app", appName))
		return
	}
	s.lastAlertAt[appName] = now
	s.emitAlert(appName)
}

func (s *Session) emitAlert(appName string) {
	text := s.settings.CustomAlertText
	if text == "" {
		text = domain.DefaultAlertText
	}
	mediaType := "none"
	if s.settings.CustomAlertImage != "" {
		mediaType = "image"
	}

	req := domain.AlertRequest{
		ID:           uuid.NewString(),
		Title:        AlertTitle,
		Body:         strings.ReplaceAll(text, "{app}", appName),
		AppName:      appName,
		MediaType:    mediaType,
		MediaContent: s.settings.CustomAlertImage,
		CreatedAt:    s.clock.Now(),
	}

	s.alertShowing = true
	s.currentAlertID = req.ID
	s.currentAlert = appName

	s.logger.Info("focus alert emitted",
		zap.String("app", appName), zap.String("id", req.ID))

	s.alerts.Present(req)

	if s.settings.DimInsteadOfBlock {
		s.send(domain.ChanApplyScreenDim, map[string]any{"opacity": DimOpacity})
	}
}

func (s *Session) clearAlert() {
	if s.currentAlert != "" {
		delete(s.lastAlertAt, s.currentAlert)
	}
	s.alertShowing = false
	s.currentAlertID = ""
	s.currentAlert = ""
	s.alerts.Clear()
}

// HandleDismissal processes a dismissal acknowledgement from the
// presentation channel. Stale ids for superseded alerts are ignored.
func (s *Session) HandleDismissal(id string) {
	if id == "" || id != s.currentAlertID {
		return
	}
	s.alertShowing = false
	s.currentAlertID = ""
	s.currentAlert = ""
}

// Toggle flips Focus Mode. Enabling immediately evaluates the current
// foreground app (after a settle delay); disabling clears any open alert and
// all cooldown bookkeeping.
func (s *Session) Toggle() {
	s.send(domain.ChanStabilizeWindow, map[string]any{
		"operation": "pre-focus-toggle",
		"timestamp": s.clock.Now().UnixMilli(),
	})

	s.active = !s.active
	s.settings.FocusModeEnabled = s.active
	s.persist()

	// Toggling tears down all transition tracking in both directions.
	s.stopSettle()
	s.lastAlertAt = make(map[string]time.Time)
	s.previousAppAllowed = false

	s.send(domain.ChanToggleFocusMode, s.active)
	s.send(domain.ChanStabilizeWindow, map[string]any{
		"isFocusMode": s.active,
		"timestamp":   s.clock.Now().UnixMilli(),
	})

	if !s.active {
		s.clearAlert()
		s.logger.Info("focus mode disabled", zap.String("user", s.userID))
		return
	}

	s.logger.Info("focus mode enabled", zap.String("user", s.userID))

	// Evaluate whatever is already in the foreground so a user enabling
	// Focus Mode inside a disallowed app is alerted without switching.
	if s.lastWindow == nil {
		s.send(domain.ChanGetActiveWindow, nil)
		return
	}

	d := *s.lastWindow
	appName := match.ResolveAppName(d)
	whitelisted := s.matcher.IsWhitelisted(appName, s.mergedWhitelist(), &d)
	s.previousAppAllowed = whitelisted

	if !whitelisted && appName != "" {
		s.cancelSettle = s.schedule(SettleDelay, func() {
			if s.active {
				s.maybeAlert(appName)
			}
		})
	}
}

func (s *Session) stopSettle() {
	if s.cancelSettle != nil {
		s.cancelSettle()
		s.cancelSettle = nil
	}
}

// AddToWhitelist appends a user entry. Adding an entry that matches the
// currently blocked app clears its outstanding alert and cooldown.
func (s *Session) AddToWhitelist(app string) {
	app = strings.TrimSpace(app)
	if app == "" || containsFold(s.settings.Whitelist, app) {
		return
	}
	s.settings.Whitelist = append(s.settings.Whitelist, app)
	s.persist()

	if s.alertShowing && s.currentAlert != "" &&
		s.matcher.IsWhitelisted(s.currentAlert, s.mergedWhitelist(), nil) {
		s.clearAlert()
	}
	s.reevaluateCurrent()
}

// RemoveFromWhitelist deletes a user entry. Essential entries are rejected
// with ErrEssentialEntry. While Focus Mode is active the current app is
// re-evaluated immediately and may trigger a fresh block alert.
func (s *Session) RemoveFromWhitelist(app string) error {
	if containsFold(domain.EssentialWhitelist, app) {
		s.logger.Warn("rejected removal of essential whitelist entry",
			zap.String("entry", app))
		return ErrEssentialEntry
	}

	kept := s.settings.Whitelist[:0]
	removed := false
	for _, v := range s.settings.Whitelist {
		if strings.EqualFold(v, app) {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	s.settings.Whitelist = kept
	if !removed {
		return nil
	}
	s.persist()
	s.reevaluateCurrent()
	return nil
}

// reevaluateCurrent recomputes the current app's allowed status after an
// allow-list mutation, emitting a block alert when an active session's
// current app just lost its allowed status.
func (s *Session) reevaluateCurrent() {
	if s.currentApp == "" {
		return
	}
	wasAllowed := s.currentAppWhitelisted
	whitelisted := s.matcher.IsWhitelisted(s.currentApp, s.mergedWhitelist(), s.lastWindow)
	s.currentAppWhitelisted = whitelisted

	if !s.active {
		return
	}
	if wasAllowed && !whitelisted {
		s.maybeAlert(s.currentApp)
	}
	s.previousAppAllowed = whitelisted
}

// ReloadSettings re-reads the persisted record after an external edit and
// applies it. The focus-mode flag follows the record; the current app is
// re-evaluated against the new allow-list, which may clear an open alert or
// emit a fresh one. Records identical to the live settings are skipped so
// the daemon's own saves don't churn state through the file watcher.
func (s *Session) ReloadSettings() {
	rec, err := s.store.Load(s.userID)
	if err != nil {
		s.logger.Warn("settings reload failed",
			zap.String("user", s.userID), zap.Error(err))
		return
	}
	if reflect.DeepEqual(rec, s.settings) {
		return
	}

	s.logger.Info("applying externally edited settings", zap.String("user", s.userID))
	s.settings = rec

	if s.active != rec.FocusModeEnabled {
		s.active = rec.FocusModeEnabled
		s.stopSettle()
		s.lastAlertAt = make(map[string]time.Time)
		s.previousAppAllowed = false
		if !s.active {
			s.clearAlert()
		}
	}

	if s.alertShowing && s.currentAlert != "" &&
		s.matcher.IsWhitelisted(s.currentAlert, s.mergedWhitelist(), nil) {
		s.clearAlert()
	}
	s.reevaluateCurrent()
}

// ToggleDimOption flips dim-instead-of-block and persists it.
func (s *Session) ToggleDimOption() {
	s.settings.DimInsteadOfBlock = !s.settings.DimInsteadOfBlock
	s.persist()
}

// UpdateCustomText sets the alert body template ({app} is substituted).
func (s *Session) UpdateCustomText(text string) {
	s.settings.CustomAlertText = text
	s.persist()
}

// UpdateCustomImage sets or clears the alert image URL.
func (s *Session) UpdateCustomImage(url string) {
	s.settings.CustomAlertImage = url
	s.persist()
}

// TestPopup fires a synthetic alert so the user can preview their custom
// text and image. Bypasses cooldown tracking.
func (s *Session) TestPopup() {
	s.emitAlert("Test Application")
}

// Snapshot returns the observable session state for the UI preview and the
// status API.
func (s *Session) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		UserID:                s.userID,
		FocusModeActive:       s.active,
		DimInsteadOfBlock:     s.settings.DimInsteadOfBlock,
		Whitelist:             s.mergedWhitelist(),
		CurrentApp:            s.currentApp,
		CurrentAppWhitelisted: s.currentAppWhitelisted,
		AlertShowing:          s.alertShowing,
	}
}

func (s *Session) persist() {
	if err := s.store.Save(s.userID, s.settings); err != nil {
		s.logger.Warn("settings save failed", zap.String("user", s.userID), zap.Error(err))
	}
}

func (s *Session) send(channel string, payload any) {
	if s.bridge == nil {
		return
	}
	if err := s.bridge.Send(channel, payload); err != nil {
		s.logger.Debug("shell send failed", zap.String("channel", channel), zap.Error(err))
	}
}
