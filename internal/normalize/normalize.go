// Package normalize turns fragments pulled from a registry lookup page into
// a typed model.Record.
package normalize

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/Vheissu/abn-checker/internal/extract"
	"github.com/Vheissu/abn-checker/internal/model"
)

// Fragments holds the raw text found at each structural position. Empty
// strings mean the position was absent from the page.
type Fragments struct {
	EntityName      string
	Status          string
	EntityTypeLabel string
	EntityTypeHref  string
	GST             string
	Locality        string
}

// Collect reads every position the normalizer needs from doc.
func Collect(doc *extract.Document) Fragments {
	var f Fragments
	f.EntityName, _ = doc.Text(extract.LegalName)
	f.Status, _ = doc.Text(extract.ABNStatus)
	f.EntityTypeLabel, _ = doc.LinkText(extract.EntityType)
	f.EntityTypeHref, _ = doc.LinkTarget(extract.EntityType)
	f.GST, _ = doc.Text(extract.GST)
	f.Locality, _ = doc.Text(extract.Locality)
	return f
}

// Missing lists the positions that produced no text.
func (f Fragments) Missing() []string {
	var out []string
	for name, v := range map[string]string{
		"entity_name":       f.EntityName,
		"status":            f.Status,
		"entity_type_label": f.EntityTypeLabel,
		"entity_type_href":  f.EntityTypeHref,
		"gst":               f.GST,
		"locality":          f.Locality,
	} {
		if v == "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// FromDocument collects fragments from doc and normalizes them.
func FromDocument(doc *extract.Document, abn string, now time.Time) model.Record {
	f := Collect(doc)
	if missing := f.Missing(); len(missing) > 0 {
		zap.L().Debug("normalize: fields absent from page",
			zap.String("abn", abn),
			zap.Strings("missing", missing),
		)
	}
	return Normalize(f, abn, now)
}

// Normalize builds a Record from fragments. Each field is derived
// independently; a field that cannot be derived is left out without
// affecting the others.
func Normalize(f Fragments, abn string, now time.Time) model.Record {
	rec := model.Record{
		ABN:                abn,
		EntityName:         strings.TrimSpace(f.EntityName),
		RegistrationStatus: Status(f.Status),
		EntityType:         EntityType(f.EntityTypeLabel, f.EntityTypeHref),
		TaxRegistration:    TaxRegistration(f.GST),
		Location:           Location(f.Locality),
		RetrievedAt:        now.UTC(),
	}
	return rec.Compact()
}

var (
	leadingWordRe  = regexp.MustCompile(`^[A-Za-z]+`)
	dayMonthYearRe = regexp.MustCompile(`(\d{1,2}) ([A-Za-z]+) (\d{4})`)
	entityTypeIDRe = regexp.MustCompile(`EntityTypeDescription\?Id=(\d+)`)
	registeredRe   = regexp.MustCompile(`Registered from (.+)`)
	localityRe     = regexp.MustCompile(`([A-Z]{2,3})\s+(\d{4})`)
)

// Clean decodes HTML entities, collapses every run of whitespace
// (including non-breaking spaces) to one ASCII space, and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// Status parses "Active from 23 Oct 2013". The leading alphabetic word is
// the status; a day-month-year anywhere after it is the effective date.
// It returns nil when there is no status word.
func Status(text string) *model.RegistrationStatus {
	text = Clean(text)
	status := leadingWordRe.FindString(text)
	if status == "" {
		return nil
	}
	rs := &model.RegistrationStatus{Status: status}
	m := dayMonthYearRe.FindStringSubmatch(text[len(status):])
	if m == nil {
		return rs
	}
	if d, ok := dayMonthYear(m[1], m[2], m[3]); ok {
		rs.EffectiveDate = &d
	}
	return rs
}

// EntityType pairs the link label with the numeric Id in its target. Both
// are required; if either is missing it returns nil.
func EntityType(label, href string) *model.EntityType {
	label = Clean(label)
	if label == "" {
		return nil
	}
	m := entityTypeIDRe.FindStringSubmatch(html.UnescapeString(href))
	if m == nil {
		return nil
	}
	return &model.EntityType{TypeName: label, TypeCode: m[1]}
}

// TaxRegistration reads the GST row. Only "Registered from <date>" marks
// the entity as registered; any other text, or no text, yields
// registered=false with no date.
func TaxRegistration(text string) *model.TaxRegistration {
	tr := &model.TaxRegistration{}
	m := registeredRe.FindStringSubmatch(Clean(text))
	if m == nil {
		return tr
	}
	tr.Registered = true
	if d, ok := ParseDate(m[1]); ok {
		tr.EffectiveDate = &d
	}
	return tr
}

// Location extracts "<STATE> <postcode>" from the locality text, or nil.
func Location(text string) *model.Location {
	m := localityRe.FindStringSubmatch(Clean(text))
	if m == nil {
		return nil
	}
	return &model.Location{StateCode: m[1], Postcode: m[2]}
}
