// Package match derives application identities from window metadata and
// decides allow-list membership through a chain of fuzzy strategies.
package match

import (
	"regexp"
	"strings"

	"github.com/mindwell/companion/internal/domain"
)

// titleSeparator marks where a window title stops naming the application and
// starts naming the document: " - Foo", " | Foo", " :Foo", " 3".
// En and em dashes count the same as a plain hyphen.
var titleSeparator = regexp.MustCompile(`\s[-–—]\s|\s\|\s|\s:|\s\d`)

// ExtractAppName returns the application-name prefix of a window title.
// Idempotent: re-extracting from its own output yields the same string.
func ExtractAppName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	if loc := titleSeparator.FindStringIndex(title); loc != nil {
		return strings.TrimSpace(title[:loc[0]])
	}
	return title
}

// ResolveAppName derives the most reliable application name a descriptor
// offers: owner name, then an explicit app name, then the title prefix.
// An unresolvable descriptor yields "".
func ResolveAppName(d domain.WindowDescriptor) string {
	if d.OwnerName != "" {
		return d.OwnerName
	}
	if d.AppName != "" {
		return d.AppName
	}
	return ExtractAppName(d.Title)
}
