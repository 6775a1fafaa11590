package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Vheissu/abn-checker/internal/model"
)

// Registry pages print dates day-first with English month names.
var dayFirstLayouts = []string{
	"02 Jan 2006",
	"02 January 2006",
}

// dayMonthYear builds a date from separate day, month-name and year tokens.
// The day is zero-padded before parsing.
func dayMonthYear(day, month, year string) (model.Date, bool) {
	if len(day) == 1 {
		day = "0" + day
	}
	return parseLayouts(day + " " + month + " " + year)
}

// ParseDate parses a free-form date phrase. Day-month-year English forms
// are tried first; anything else goes to dateparse with day-first
// disambiguation.
func ParseDate(phrase string) (model.Date, bool) {
	phrase = Clean(phrase)
	if phrase == "" {
		return model.Date{}, false
	}
	if fields := strings.Fields(phrase); len(fields) == 3 {
		if d, ok := dayMonthYear(fields[0], fields[1], fields[2]); ok {
			return d, true
		}
	}
	if !hasDayMonthYear(phrase) {
		return model.Date{}, false
	}
	t, err := dateparse.ParseIn(phrase, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil || t.Year() < 1000 {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

var (
	dateTokenRe = regexp.MustCompile(`\d+|[A-Za-z]+`)
	yearRe      = regexp.MustCompile(`(^|\D)\d{4}(\D|$)`)
)

// hasDayMonthYear reports whether phrase names a full calendar date: a
// four-digit year plus at least two more numeric or month-name tokens.
// dateparse fills missing parts with defaults and must not see "2000" or
// "1 jan 2".
func hasDayMonthYear(phrase string) bool {
	if !yearRe.MatchString(phrase) {
		return false
	}
	n := 0
	for _, tok := range dateTokenRe.FindAllString(phrase, -1) {
		if tok[0] >= '0' && tok[0] <= '9' || isMonthName(tok) {
			n++
		}
	}
	return n >= 3
}

func isMonthName(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	_, ok := monthPrefixes[strings.ToLower(tok[:3])]
	return ok
}

var monthPrefixes = map[string]struct{}{
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "may": {}, "jun": {},
	"jul": {}, "aug": {}, "sep": {}, "oct": {}, "nov": {}, "dec": {},
}

func parseLayouts(s string) (model.Date, bool) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return model.Date{}, false
	}
	fields[1] = cases.Title(language.English).String(fields[1])
	// "Sept" is common in registry text but is not a Go month abbreviation.
	if fields[1] == "Sept" {
		fields[1] = "Sep"
	}
	s = strings.Join(fields, " ")
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return model.Date{}, false
}
