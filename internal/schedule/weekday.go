package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrUnknownWeekday = errors.New("unknown weekday name")

// weekdayNames maps folded weekday names and common abbreviations to
// their time.Weekday. Keys must already be folded.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldWeekdayName lowercases and strips diacritics so template keys
// like "Monday", "MONDAY" or accent-bearing spellings all resolve to
// the same lookup key.
func foldWeekdayName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ParseWeekday resolves a weekday name case- and accent-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	if wd, ok := weekdayNames[foldWeekdayName(name)]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
}
