package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindwell/companion/internal/domain"
)

func TestIsWhitelistedExact(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.IsWhitelisted("Visual Studio Code", []string{"Visual Studio Code"}, nil))
	assert.True(t, m.IsWhitelisted("visual studio code", []string{"Visual Studio Code"}, nil))
	assert.True(t, m.IsWhitelisted("SLACK", []string{"slack"}, nil))
}

func TestIsWhitelistedSubstring(t *testing.T) {
	m := NewMatcher()

	// Either direction counts.
	assert.True(t, m.IsWhitelisted("Code", []string{"Visual Studio Code"}, nil))
	assert.True(t, m.IsWhitelisted("Visual Studio Code - Insiders", []string{"Visual Studio Code"}, nil))
}

func TestIsWhitelistedProcessName(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.IsWhitelisted(`C:\Program Files\Slack\slack.exe`, []string{"Slack"}, nil))
	assert.True(t, m.IsWhitelisted("/usr/bin/obsidian", []string{"Obsidian"}, nil))
}

func TestIsWhitelistedBundleID(t *testing.T) {
	m := NewMatcher()
	d := &domain.WindowDescriptor{BundleID: "com.microsoft.VSCode"}

	assert.True(t, m.IsWhitelisted("Untitled Window", []string{"vscode"}, d))
	assert.False(t, m.IsWhitelisted("Untitled Window", []string{"vscode"}, nil))
}

func TestIsWhitelistedPathSuffix(t *testing.T) {
	m := NewMatcher()
	d := &domain.WindowDescriptor{OwnerPath: `C:\Users\me\AppData\Local\Discord\Discord.exe`}

	assert.True(t, m.IsWhitelisted("Untitled Window", []string{"discord"}, d))
}

func TestIsWhitelistedTokenOverlap(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.IsWhitelisted("IntelliJ IDEA Ultimate", []string{"intellij"}, nil))
	// Tokens of length <= 2 never participate.
	assert.False(t, m.IsWhitelisted("Go Playground", []string{"xy"}, nil))
}

func TestIsWhitelistedBrowserAlias(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.IsWhitelisted("Google Chrome Canary", []string{"chrome"}, nil))
	assert.True(t, m.IsWhitelisted("Microsoft\u200b Edge*", []string{"edge browser"}, nil))
	assert.True(t, m.IsWhitelisted("Edge", []string{"Microsoft Browser"}, nil))
	assert.False(t, m.IsWhitelisted("Slack", []string{"chrome"}, nil))
}

// The companion must never block itself, no matter the allow-list.
func TestSelfAlwaysWhitelisted(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.IsWhitelisted("Electron", nil, nil))
	assert.True(t, m.IsWhitelisted("electron-helper", []string{}, nil))
	assert.True(t, m.IsWhitelisted(domain.ProductName, []string{"something else"}, nil))
}

func TestIsWhitelistedNoMatch(t *testing.T) {
	m := NewMatcher()

	allowList := []string{"Visual Studio Code"}
	assert.False(t, m.IsWhitelisted("Slack", allowList, nil))
	assert.False(t, m.IsWhitelisted("", allowList, nil))
	assert.False(t, m.IsWhitelisted("Steam", nil, nil))
}

func TestMatchingStrategyNames(t *testing.T) {
	m := NewMatcher()

	assert.Equal(t, "exact", m.MatchingStrategy("Slack", []string{"slack"}, nil))
	assert.Equal(t, "substring", m.MatchingStrategy("Slack Desktop", []string{"slack"}, nil))
	assert.Equal(t, "self", m.MatchingStrategy("Electron", nil, nil))
	assert.Equal(t, "", m.MatchingStrategy("Steam", []string{"slack"}, nil))
}

func TestStrategyOrderIsStable(t *testing.T) {
	names := make([]string, 0)
	for _, s := range DefaultStrategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"exact", "substring", "process-name", "bundle-id",
		"path-suffix", "token-overlap", "browser-alias",
	}, names)
}
