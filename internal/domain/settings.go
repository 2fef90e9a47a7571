package domain

// SettingsVersion is the current SettingsRecord schema version.
const SettingsVersion = 1

// Defaults for a fresh user. Durations are whole seconds.
const (
	DefaultPomodoroWorkSec  = 25 * 60
	DefaultPomodoroBreakSec = 5 * 60
	DefaultEyeCareWorkSec   = 20 * 60
	DefaultEyeCareRestSec   = 20
	DefaultHydrationSec     = 30 * 60
	DefaultPostureSec       = 45 * 60

	// DefaultAlertText supports an {app} placeholder substituted at alert time.
	DefaultAlertText  = "You're outside your focus zone. {app} is not in your whitelist."
	DefaultAlertImage = "https://images.unsplash.com/photo-1488590528505-98d2b5aba04b"
)

// Configuration minimums, enforced at the settings boundary rather than in
// the tick loop. A zero duration would make progress math divide by zero.
const (
	MinPomodoroWorkSec  = 60
	MinPomodoroBreakSec = 60
	MinEyeCareWorkSec   = 5 * 60
	MinEyeCareRestSec   = 5
)

// TimerRecord persists one timer engine's full state.
type TimerRecord struct {
	Phase           TimerPhase `json:"phase"`
	Running         bool       `json:"running"`
	ElapsedSec      int        `json:"elapsedSec"`
	WorkDurationSec int        `json:"workDurationSec"`
	RestDurationSec int        `json:"restDurationSec"`
	ProgressPercent float64    `json:"progressPercent"`
}

// ReminderRecord persists one interval reminder toggle.
type ReminderRecord struct {
	Enabled     bool `json:"enabled"`
	TimeLeftSec int  `json:"timeLeftSec"`
	IntervalSec int  `json:"intervalSec"`
}

// SettingsRecord is the single versioned per-user settings document.
// It consolidates the legacy per-key layout into one atomic read/write unit.
type SettingsRecord struct {
	Version           int            `json:"version"`
	Whitelist         []string       `json:"whitelist"`
	FocusModeEnabled  bool           `json:"focusModeEnabled"`
	DimInsteadOfBlock bool           `json:"dimInsteadOfBlock"`
	CustomAlertText   string         `json:"customAlertText"`
	CustomAlertImage  string         `json:"customAlertImage"`
	Pomodoro          TimerRecord    `json:"pomodoro"`
	EyeCare           TimerRecord    `json:"eyeCare"`
	Hydration         ReminderRecord `json:"hydration"`
	Posture           ReminderRecord `json:"posture"`
}

// DefaultSettings returns the documented defaults for a fresh user.
// The eye-care timer auto-starts; everything else is off.
func DefaultSettings() *SettingsRecord {
	return &SettingsRecord{
		Version:           SettingsVersion,
		Whitelist:         append([]string(nil), EssentialWhitelist...),
		FocusModeEnabled:  false,
		DimInsteadOfBlock: true,
		CustomAlertText:   DefaultAlertText,
		CustomAlertImage:  DefaultAlertImage,
		Pomodoro: TimerRecord{
			Phase:           PhaseWork,
			WorkDurationSec: DefaultPomodoroWorkSec,
			RestDurationSec: DefaultPomodoroBreakSec,
			ProgressPercent: 100,
		},
		EyeCare: TimerRecord{
			Phase:           PhaseWork,
			Running:         true,
			WorkDurationSec: DefaultEyeCareWorkSec,
			RestDurationSec: DefaultEyeCareRestSec,
			ProgressPercent: 0,
		},
		Hydration: ReminderRecord{TimeLeftSec: DefaultHydrationSec, IntervalSec: DefaultHydrationSec},
		Posture:   ReminderRecord{TimeLeftSec: DefaultPostureSec, IntervalSec: DefaultPostureSec},
	}
}
