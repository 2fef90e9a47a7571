package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

type captured struct {
	notifications []domain.Notification
	snapshots     []domain.TimerSnapshot
}

func (c *captured) notify(n domain.Notification)   { c.notifications = append(c.notifications, n) }
func (c *captured) persist(s domain.TimerSnapshot) { c.snapshots = append(c.snapshots, s) }

func newPomodoro(c *captured) *Engine {
	rec := domain.DefaultSettings().Pomodoro
	return NewEngine(domain.TimerPomodoro, rec, c.notify, c.persist, zap.NewNop())
}

func newEyeCare(c *captured) *Engine {
	rec := domain.DefaultSettings().EyeCare
	rec.Running = false
	return NewEngine(domain.TimerEyeCare, rec, c.notify, c.persist, zap.NewNop())
}

func TestStartPauseSemantics(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)

	e.Start()
	assert.True(t, e.Snapshot().Running)

	e.Tick()
	e.Tick()
	assert.Equal(t, 2, e.Snapshot().ElapsedSec)

	// Pause preserves elapsed; ticks while paused are ignored.
	e.Pause()
	e.Tick()
	assert.Equal(t, 2, e.Snapshot().ElapsedSec)

	// Start while running is a no-op.
	e.Start()
	before := len(c.snapshots)
	e.Start()
	assert.Equal(t, before, len(c.snapshots))
}

func TestTickMonotonicityAndProgressBounds(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)
	e.Start()

	prev := e.Snapshot().ElapsedSec
	for i := 0; i < 300; i++ {
		e.Tick()
		s := e.Snapshot()
		require.Equal(t, prev+1, s.ElapsedSec)
		prev = s.ElapsedSec
		require.GreaterOrEqual(t, s.ProgressPercent, 0.0)
		require.LessOrEqual(t, s.ProgressPercent, 100.0)
	}
}

func TestPomodoroWorkBoundary(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)
	e.Start()

	for i := 0; i < domain.DefaultPomodoroWorkSec; i++ {
		e.Tick()
	}

	s := e.Snapshot()
	assert.Equal(t, domain.PhaseRest, s.Phase)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.False(t, s.Running, "pomodoro stops at each boundary")
	assert.Equal(t, 100.0, s.ProgressPercent)
	assert.Equal(t, domain.DefaultPomodoroBreakSec, s.RemainingSec())

	// Exactly one break-start notification.
	require.Len(t, c.notifications, 1)
	assert.Equal(t, "Great job! Time for a break", c.notifications[0].Title)
}

func TestPomodoroBreakBoundary(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)
	e.Reset(domain.PhaseRest)
	e.Start()

	for i := 0; i < domain.DefaultPomodoroBreakSec; i++ {
		e.Tick()
	}

	s := e.Snapshot()
	assert.Equal(t, domain.PhaseWork, s.Phase)
	assert.False(t, s.Running)
	require.Len(t, c.notifications, 1)
	assert.Equal(t, "Break time is over!", c.notifications[0].Title)
}

func TestEyeCareCycleKeepsRunning(t *testing.T) {
	c := &captured{}
	e := newEyeCare(c)
	require.NoError(t, e.UpdateSettings(domain.MinEyeCareWorkSec, domain.MinEyeCareRestSec))
	e.Start()

	// Work phase completes: rest starts, engine keeps running.
	for i := 0; i < domain.MinEyeCareWorkSec; i++ {
		e.Tick()
	}
	s := e.Snapshot()
	assert.Equal(t, domain.PhaseRest, s.Phase)
	assert.True(t, s.Running)
	assert.Equal(t, 100.0, s.ProgressPercent)
	require.Len(t, c.notifications, 1)
	assert.Equal(t, "Time for an eye break!", c.notifications[0].Title)

	// Rest completes: back to work, still running.
	for i := 0; i < domain.MinEyeCareRestSec; i++ {
		e.Tick()
	}
	s = e.Snapshot()
	assert.Equal(t, domain.PhaseWork, s.Phase)
	assert.True(t, s.Running)
	require.Len(t, c.notifications, 2)
	assert.Equal(t, "Rest completed!", c.notifications[1].Title)
}

// Reconfiguring a paused engine reseeds the display so the countdown
// reflects the new duration, not the stale one.
func TestUpdateSettingsWhilePaused(t *testing.T) {
	c := &captured{}
	rec := domain.TimerRecord{
		Phase:           domain.PhaseWork,
		WorkDurationSec: 1200,
		RestDurationSec: 20,
		ElapsedSec:      700,
	}
	e := NewEngine(domain.TimerEyeCare, rec, c.notify, c.persist, zap.NewNop())

	require.NoError(t, e.UpdateSettings(600, 20))

	s := e.Snapshot()
	assert.Equal(t, 600, s.WorkDurationSec)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.Equal(t, 600, s.RemainingSec())
}

// Reconfiguring a running engine must not retroactively alter the
// in-progress phase faster than one tick.
func TestUpdateSettingsWhileRunning(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)
	e.Start()
	for i := 0; i < 10; i++ {
		e.Tick()
	}

	require.NoError(t, e.UpdateSettings(30*60, 10*60))

	s := e.Snapshot()
	assert.Equal(t, 10, s.ElapsedSec, "elapsed untouched while running")
	assert.Equal(t, 30*60, s.WorkDurationSec)

	e.Tick()
	assert.Equal(t, 11, e.Snapshot().ElapsedSec)
}

func TestUpdateSettingsEnforcesMinimums(t *testing.T) {
	c := &captured{}

	e := newPomodoro(c)
	assert.Error(t, e.UpdateSettings(0, domain.DefaultPomodoroBreakSec))
	assert.Error(t, e.UpdateSettings(domain.DefaultPomodoroWorkSec, 0))

	ec := newEyeCare(c)
	assert.Error(t, ec.UpdateSettings(60, domain.DefaultEyeCareRestSec))
	assert.Error(t, ec.UpdateSettings(domain.DefaultEyeCareWorkSec, 1))
}

func TestResetSeedsRequestedPhase(t *testing.T) {
	c := &captured{}
	e := newPomodoro(c)
	e.Start()
	e.Tick()

	e.Reset(domain.PhaseWork)
	s := e.Snapshot()
	assert.Equal(t, domain.PhaseWork, s.Phase)
	assert.Equal(t, 0, s.ElapsedSec)
	assert.False(t, s.Running)
	assert.Equal(t, 100.0, s.ProgressPercent)
}

// Corrupt persisted elapsed values are discarded at construction.
func TestNewEngineSanitizesRecord(t *testing.T) {
	rec := domain.TimerRecord{
		Phase:           domain.PhaseWork,
		WorkDurationSec: 600,
		RestDurationSec: 60,
		ElapsedSec:      9999,
	}
	e := NewEngine(domain.TimerPomodoro, rec, nil, nil, zap.NewNop())
	assert.Equal(t, 0, e.Snapshot().ElapsedSec)
}
