// Package usage accumulates per-application screen time for the dashboard
// feed. The daemon credits the active app once per tick and merges any usage
// rows the shell reports on its own.
package usage

import (
	"sort"
	"strings"
	"time"

	"github.com/mindwell/companion/internal/domain"
)

// Keyword buckets for the dashboard classification. First bucket that
// matches wins; anything unmatched counts as productive.
var (
	distractionKeywords = []string{
		"youtube", "netflix", "twitter", "tiktok", "reddit",
		"instagram", "facebook", "twitch", "steam", "game",
	}
	communicationKeywords = []string{
		"slack", "discord", "teams", "zoom", "mail", "outlook",
		"telegram", "whatsapp", "messages", "gmail",
	}
)

// Classify buckets an app name by keyword.
func Classify(appName string) domain.UsageClass {
	lower := strings.ToLower(appName)
	for _, kw := range distractionKeywords {
		if strings.Contains(lower, kw) {
			return domain.UsageDistraction
		}
	}
	for _, kw := range communicationKeywords {
		if strings.Contains(lower, kw) {
			return domain.UsageCommunication
		}
	}
	return domain.UsageProductive
}

type record struct {
	activeSec  int64
	lastActive time.Time
}

// Tracker keeps per-app totals for one user. Not safe for concurrent use;
// the daemon loop is its only caller.
type Tracker struct {
	apps map[string]*record
}

func NewTracker() *Tracker {
	return &Tracker{apps: make(map[string]*record)}
}

// Credit adds one tick of active time to the named app.
func (t *Tracker) Credit(appName string, now time.Time, d time.Duration) {
	if appName == "" {
		return
	}
	rec, ok := t.apps[appName]
	if !ok {
		rec = &record{}
		t.apps[appName] = rec
	}
	rec.activeSec += int64(d / time.Second)
	rec.lastActive = now
}

// Merge folds in usage rows reported by the shell. The shell's totals are
// authoritative when larger than ours (it may have tracked before the daemon
// started); last-active takes the later of the two.
func (t *Tracker) Merge(rows []domain.AppUsage) {
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		rec, ok := t.apps[row.Name]
		if !ok {
			rec = &record{}
			t.apps[row.Name] = rec
		}
		if row.ActiveSec > rec.activeSec {
			rec.activeSec = row.ActiveSec
		}
		if row.LastActive.After(rec.lastActive) {
			rec.lastActive = row.LastActive
		}
	}
}

// Reset drops all totals, used on user switch.
func (t *Tracker) Reset() {
	t.apps = make(map[string]*record)
}

// Snapshot returns all rows sorted most recently active first.
func (t *Tracker) Snapshot() []domain.AppUsage {
	rows := make([]domain.AppUsage, 0, len(t.apps))
	for name, rec := range t.apps {
		rows = append(rows, domain.AppUsage{
			Name:       name,
			Class:      Classify(name),
			ActiveSec:  rec.activeSec,
			LastActive: rec.lastActive,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LastActive.Equal(rows[j].LastActive) {
			return rows[i].LastActive.After(rows[j].LastActive)
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
