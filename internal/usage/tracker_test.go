package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mindwell/companion/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		app  string
		want domain.UsageClass
	}{
		{"YouTube", domain.UsageDistraction},
		{"Netflix - Home", domain.UsageDistraction},
		{"Slack", domain.UsageCommunication},
		{"Microsoft Teams", domain.UsageCommunication},
		{"Visual Studio Code", domain.UsageProductive},
		{"Terminal", domain.UsageProductive},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.app), tc.app)
	}
}

func TestTrackerCreditAccumulates(t *testing.T) {
	tr := NewTracker()
	base := time.Unix(5000, 0)

	tr.Credit("Figma", base, time.Second)
	tr.Credit("Figma", base.Add(time.Second), time.Second)
	tr.Credit("Slack", base.Add(2*time.Second), time.Second)

	rows := tr.Snapshot()
	assert.Len(t, rows, 2)
	assert.Equal(t, "Slack", rows[0].Name) // most recently active first
	assert.Equal(t, "Figma", rows[1].Name)
	assert.Equal(t, int64(2), rows[1].ActiveSec)
	assert.Equal(t, domain.UsageCommunication, rows[0].Class)
}

func TestTrackerIgnoresEmptyNames(t *testing.T) {
	tr := NewTracker()
	tr.Credit("", time.Unix(5000, 0), time.Second)
	assert.Empty(t, tr.Snapshot())
}

func TestTrackerMergeTakesLargerTotals(t *testing.T) {
	tr := NewTracker()
	base := time.Unix(5000, 0)
	tr.Credit("Figma", base, time.Second)

	tr.Merge([]domain.AppUsage{
		{Name: "Figma", ActiveSec: 120, LastActive: base.Add(-time.Hour)},
		{Name: "YouTube", ActiveSec: 30, LastActive: base.Add(time.Minute)},
	})

	rows := tr.Snapshot()
	assert.Len(t, rows, 2)
	assert.Equal(t, "YouTube", rows[0].Name)
	assert.Equal(t, int64(30), rows[0].ActiveSec)
	// Shell total is larger and wins, but our fresher last-active stands.
	assert.Equal(t, int64(120), rows[1].ActiveSec)
	assert.Equal(t, base, rows[1].LastActive)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Credit("Figma", time.Unix(5000, 0), time.Second)
	tr.Reset()
	assert.Empty(t, tr.Snapshot())
}
