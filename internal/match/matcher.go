package match

import (
	"regexp"
	"strings"

	"github.com/mindwell/companion/internal/domain"
)

// Window titles and process metadata are unreliable and vary by platform, so
// matching degrades gracefully through increasingly loose heuristics instead
// of requiring exact configuration. Strategies run in order; the first hit
// wins for any allow-list entry.

var (
	nonNameChars = regexp.MustCompile(`[^\w\s.-]`)
	tokenSplit   = regexp.MustCompile(`[\s\-_.]+`)
)

var browserNames = []string{"chrome", "firefox", "safari", "edge", "opera", "brave"}

// normalize lowercases and strips everything except word characters,
// whitespace, dots and hyphens.
func normalize(s string) string {
	return nonNameChars.ReplaceAllString(strings.ToLower(s), "")
}

// processName returns the trailing path segment of a normalized name with an
// optional .exe suffix removed.
func processName(normalized string) string {
	seg := normalized
	if i := strings.LastIndexAny(seg, `/\`); i >= 0 {
		seg = seg[i+1:]
	}
	return strings.TrimSuffix(seg, ".exe")
}

// matchContext carries the precomputed views of the app identity shared by
// all strategies for one IsWhitelisted call.
type matchContext struct {
	name string // normalized app name
	proc string // derived process name
	desc *domain.WindowDescriptor
}

// Strategy is one named allow-list matching rule, independently testable.
type Strategy struct {
	Name  string
	Match func(ctx matchContext, entry string) bool
}

func containsEither(a, b string) bool {
	return a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a))
}

// DefaultStrategies returns the ordered rule chain.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "exact", Match: func(ctx matchContext, entry string) bool {
			return ctx.name == entry
		}},
		{Name: "substring", Match: func(ctx matchContext, entry string) bool {
			return containsEither(ctx.name, entry)
		}},
		{Name: "process-name", Match: func(ctx matchContext, entry string) bool {
			return containsEither(ctx.proc, entry)
		}},
		{Name: "bundle-id", Match: matchBundleID},
		{Name: "path-suffix", Match: matchPathSuffix},
		{Name: "token-overlap", Match: matchTokenOverlap},
		{Name: "browser-alias", Match: matchBrowserAlias},
	}
}

func matchBundleID(ctx matchContext, entry string) bool {
	if ctx.desc == nil || ctx.desc.BundleID == "" {
		return false
	}
	for _, part := range strings.Split(strings.ToLower(ctx.desc.BundleID), ".") {
		if containsEither(part, entry) {
			return true
		}
	}
	return false
}

func matchPathSuffix(ctx matchContext, entry string) bool {
	if ctx.desc == nil || ctx.desc.OwnerPath == "" {
		return false
	}
	path := strings.ToLower(ctx.desc.OwnerPath)
	seg := path
	if i := strings.LastIndexAny(seg, `/\`); i >= 0 {
		seg = seg[i+1:]
	}
	if containsEither(seg, entry) {
		return true
	}
	return containsEither(strings.TrimSuffix(seg, ".exe"), entry)
}

// matchTokenOverlap splits both sides on whitespace, dashes, underscores and
// dots, and looks for any cross substring match between tokens longer than
// two characters.
func matchTokenOverlap(ctx matchContext, entry string) bool {
	nameTokens := significantTokens(ctx.name)
	entryTokens := significantTokens(entry)
	for _, et := range entryTokens {
		for _, nt := range nameTokens {
			if containsEither(nt, et) {
				return true
			}
		}
	}
	return false
}

func significantTokens(s string) []string {
	var out []string
	for _, t := range tokenSplit.Split(s, -1) {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// matchBrowserAlias is lenient about browser naming, including the
// "Microsoft Edge" pairing where title and entry use different halves.
func matchBrowserAlias(ctx matchContext, entry string) bool {
	isBrowser := false
	for _, b := range browserNames {
		if strings.Contains(ctx.name, b) || strings.Contains(entry, b) {
			isBrowser = true
			break
		}
	}
	if !isBrowser {
		return false
	}
	for _, b := range browserNames {
		if strings.Contains(ctx.name, b) && strings.Contains(entry, b) {
			return true
		}
	}
	if strings.Contains(ctx.name, "microsoft") && strings.Contains(entry, "edge") {
		return true
	}
	if strings.Contains(ctx.name, "edge") && strings.Contains(entry, "microsoft") {
		return true
	}
	return false
}

// Matcher decides allow-list membership. Zero value is not usable; construct
// with NewMatcher.
type Matcher struct {
	strategies []Strategy
	selfNames  []string
}

// NewMatcher builds a matcher with the default strategy chain.
func NewMatcher() *Matcher {
	return &Matcher{
		strategies: DefaultStrategies(),
		selfNames:  []string{"electron", normalize(domain.ProductName), "mindwell"},
	}
}

// IsWhitelisted reports whether appName matches any allow-list entry.
// The descriptor is optional; when present it unlocks the bundle-id and
// path-suffix strategies.
func (m *Matcher) IsWhitelisted(appName string, allowList []string, desc *domain.WindowDescriptor) bool {
	if appName == "" {
		return false
	}

	ctx := matchContext{
		name: normalize(appName),
		desc: desc,
	}
	ctx.proc = processName(ctx.name)

	// The companion must never block itself.
	for _, self := range m.selfNames {
		if strings.Contains(ctx.name, self) || strings.Contains(ctx.proc, self) {
			return true
		}
	}

	for _, raw := range allowList {
		entry := normalize(raw)
		if entry == "" {
			continue
		}
		for _, s := range m.strategies {
			if s.Match(ctx, entry) {
				return true
			}
		}
	}
	return false
}

// MatchingStrategy returns the name of the first strategy that matched, for
// the live whitelist-match preview. Empty string means no match.
func (m *Matcher) MatchingStrategy(appName string, allowList []string, desc *domain.WindowDescriptor) string {
	if appName == "" {
		return ""
	}
	ctx := matchContext{name: normalize(appName), desc: desc}
	ctx.proc = processName(ctx.name)
	for _, self := range m.selfNames {
		if strings.Contains(ctx.name, self) || strings.Contains(ctx.proc, self) {
			return "self"
		}
	}
	for _, raw := range allowList {
		entry := normalize(raw)
		if entry == "" {
			continue
		}
		for _, s := range m.strategies {
			if s.Match(ctx, entry) {
				return s.Name
			}
		}
	}
	return ""
}
