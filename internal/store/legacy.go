package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// LegacyFileName is the dump of the old per-field key/value layout, one
// stringly-typed value per key, keys suffixed with "-<userID>". Preserved
// only so existing installs migrate into the versioned record once.
const LegacyFileName = "legacy-keyvalues.json"

// legacyKeys reads the old layout if present. Returns nil when absent or
// unreadable; migration is strictly best effort.
func (f *FileStore) legacyKeys() map[string]string {
	raw, err := os.ReadFile(filepath.Join(f.dataDir, LegacyFileName))
	if err != nil {
		return nil
	}
	kv := make(map[string]string)
	if err := json.Unmarshal(raw, &kv); err != nil {
		f.logger.Warn("legacy settings dump unreadable, skipping migration", zap.Error(err))
		return nil
	}
	return kv
}

// migrateLegacy builds a SettingsRecord from the per-key layout for userID.
// Every individually malformed value silently keeps its default.
func (f *FileStore) migrateLegacy(userID string) *domain.SettingsRecord {
	kv := f.legacyKeys()
	if kv == nil {
		return nil
	}

	get := func(key string) (string, bool) {
		v, ok := kv[key+"-"+userID]
		return v, ok
	}
	found := false
	rec := domain.DefaultSettings()

	if v, ok := get("focusModeWhitelist"); ok {
		found = true
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			rec.Whitelist = list
		}
	}
	if v, ok := get("focusModeEnabled"); ok {
		found = true
		rec.FocusModeEnabled = v == "true"
	}
	if v, ok := get("focusModeDimOption"); ok {
		found = true
		rec.DimInsteadOfBlock = v == "true"
	}
	if v, ok := get("focusModeCustomText"); ok && v != "" {
		found = true
		rec.CustomAlertText = v
	}
	if v, ok := get("focusModeCustomImage"); ok {
		found = true
		rec.CustomAlertImage = v
	}

	// Legacy pomodoro durations were stored in whole minutes.
	if n, ok := legacyInt(get("pomodoroDuration")); ok {
		found = true
		rec.Pomodoro.WorkDurationSec = n * 60
	}
	if n, ok := legacyInt(get("pomodoroBreakDuration")); ok {
		found = true
		rec.Pomodoro.RestDurationSec = n * 60
	}
	if v, ok := get("isPomodoroBreak"); ok && v == "true" {
		rec.Pomodoro.Phase = domain.PhaseRest
	}

	if n, ok := legacyInt(get("eyeCareWorkDuration")); ok {
		found = true
		rec.EyeCare.WorkDurationSec = n
	}
	if n, ok := legacyInt(get("eyeCareRestDuration")); ok {
		found = true
		rec.EyeCare.RestDurationSec = n
	}
	if n, ok := legacyInt(get("eyeCareTimeElapsed")); ok {
		rec.EyeCare.ElapsedSec = n
	}
	if v, ok := get("isEyeCareActive"); ok {
		rec.EyeCare.Running = v == "true"
	}
	if v, ok := get("isEyeCareResting"); ok && v == "true" {
		rec.EyeCare.Phase = domain.PhaseRest
	}

	if !found {
		return nil
	}
	normalizeRecord(rec)
	return rec
}

func legacyInt(v string, ok bool) (int, bool) {
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
