package rowtext

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rcliao/channel-memory/internal/model"
)

// Fold lower-cases s with Unicode rules. Stored search text and search terms
// both go through it so substring tests agree on case.
func Fold(s string) string {
	// A Caser keeps state; one per call.
	return cases.Lower(language.Und).String(s)
}

// SearchText is the folded text a row is prefiltered on: its resolved
// content, plus the derived text when that differs, with whitespace runs
// collapsed to one space.
func SearchText(row model.Record) string {
	content := Content(Parse(row.Payload), row)
	if row.DerivedText != "" && row.DerivedText != content {
		content += " " + row.DerivedText
	}
	return Fold(strings.Join(strings.Fields(content), " "))
}
