package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

type stubBackend struct {
	session    domain.SessionSnapshot
	timers     []domain.TimerSnapshot
	usage      []domain.AppUsage
	toggles    int
	testPopups int
}

func (b *stubBackend) Session() domain.SessionSnapshot { return b.session }
func (b *stubBackend) Timers() []domain.TimerSnapshot  { return b.timers }
func (b *stubBackend) Usage() []domain.AppUsage        { return b.usage }
func (b *stubBackend) TestPopup()                      { b.testPopups++ }

func (b *stubBackend) ToggleFocus() domain.SessionSnapshot {
	b.toggles++
	b.session.FocusModeActive = !b.session.FocusModeActive
	return b.session
}

func (b *stubBackend) AddWhitelist(app string) domain.SessionSnapshot {
	b.session.Whitelist = append(b.session.Whitelist, app)
	return b.session
}

func (b *stubBackend) RemoveWhitelist(app string) (domain.SessionSnapshot, error) {
	if app == "Electron" {
		return domain.SessionSnapshot{}, errors.New("cannot remove an essential whitelist entry")
	}
	return b.session, nil
}

func (b *stubBackend) UpdateAlertPrefs(AlertPrefs) domain.SessionSnapshot { return b.session }

func (b *stubBackend) TimerCommand(kind domain.TimerKind, action string) ([]domain.TimerSnapshot, error) {
	if action != "start" && action != "pause" && action != "reset" {
		return nil, errors.New("unknown timer action")
	}
	return b.timers, nil
}

func (b *stubBackend) UpdateTimer(domain.TimerKind, TimerUpdate) ([]domain.TimerSnapshot, error) {
	return b.timers, nil
}

func (b *stubBackend) SetReminder(kind string, enabled bool) error { return nil }

func newTestServer(b *stubBackend) *httptest.Server {
	return httptest.NewServer(NewServer("127.0.0.1:0", b, zap.NewNop()).Handler())
}

func TestStatusEndpoint(t *testing.T) {
	backend := &stubBackend{
		session: domain.SessionSnapshot{
			UserID:          "frank",
			FocusModeActive: true,
			Whitelist:       []string{"Visual Studio Code"},
		},
		timers: []domain.TimerSnapshot{
			{Kind: domain.TimerPomodoro, Phase: domain.PhaseWork, Running: true},
		},
	}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.ProductName, body.Product)
	assert.Equal(t, "frank", body.Session.UserID)
	assert.True(t, body.Session.FocusModeActive)
	require.Len(t, body.Timers, 1)
	assert.Equal(t, domain.TimerPomodoro, body.Timers[0].Kind)
}

func TestToggleFocusEndpoint(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/focus/toggle", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.FocusModeActive)
	assert.Equal(t, 1, backend.toggles)
}

func TestTestPopupEndpoint(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/popup/test", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, backend.testPopups)
}

func TestWhitelistEndpoints(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/whitelist", "application/json",
		strings.NewReader(`{"app":"Figma"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Contains(t, snap.Whitelist, "Figma")

	resp, err = http.Post(srv.URL+"/v1/whitelist", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveEssentialWhitelistEntryConflicts(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(backend)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/whitelist/Electron", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTimerCommandEndpoint(t *testing.T) {
	backend := &stubBackend{
		timers: []domain.TimerSnapshot{{Kind: domain.TimerPomodoro, Running: true}},
	}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/timers/pomodoro/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/timers/pomodoro/explode", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReminderEndpoint(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(backend)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/reminders/hydration",
		strings.NewReader(`{"enabled":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUsageEndpoint(t *testing.T) {
	backend := &stubBackend{
		usage: []domain.AppUsage{
			{Name: "Slack", Class: domain.UsageCommunication, ActiveSec: 90},
		},
	}
	srv := newTestServer(backend)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/usage")
	require.NoError(t, err)
	defer resp.Body.Close()

	var rows []domain.AppUsage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Slack", rows[0].Name)
}
