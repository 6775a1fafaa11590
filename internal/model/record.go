package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component.
type Date struct {
	time.Time
}

// NewDate returns the given calendar day at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: decode date")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return eris.Wrapf(err, "model: parse date %q", s)
	}
	d.Time = t
	return nil
}

// MarshalYAML encodes the date as "YYYY-MM-DD".
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// RegistrationStatus is the ABN status and the date it took effect.
type RegistrationStatus struct {
	Status        string `json:"status,omitempty" yaml:"status,omitempty"`
	EffectiveDate *Date  `json:"effective_date,omitempty" yaml:"effective_date,omitempty"`
}

// EntityType is the registry's entity classification. Name and code are
// always set together.
type EntityType struct {
	TypeName string `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	TypeCode string `json:"type_code,omitempty" yaml:"type_code,omitempty"`
}

// TaxRegistration describes Goods & Services Tax registration.
type TaxRegistration struct {
	Registered    bool  `json:"registered" yaml:"registered"`
	EffectiveDate *Date `json:"effective_date,omitempty" yaml:"effective_date,omitempty"`
}

// Location is the main business location as state and postcode.
type Location struct {
	StateCode string `json:"state_code,omitempty" yaml:"state_code,omitempty"`
	Postcode  string `json:"postcode,omitempty" yaml:"postcode,omitempty"`
}

// Record is the normalized result of a registry lookup. Fields missing from
// the source page are nil or empty and are omitted when serialized.
type Record struct {
	ABN                string              `json:"abn" yaml:"abn"`
	EntityName         string              `json:"entity_name,omitempty" yaml:"entity_name,omitempty"`
	RegistrationStatus *RegistrationStatus `json:"registration_status,omitempty" yaml:"registration_status,omitempty"`
	EntityType         *EntityType         `json:"entity_type,omitempty" yaml:"entity_type,omitempty"`
	TaxRegistration    *TaxRegistration    `json:"tax_registration,omitempty" yaml:"tax_registration,omitempty"`
	Location           *Location           `json:"location,omitempty" yaml:"location,omitempty"`
	RetrievedAt        time.Time           `json:"retrieved_at" yaml:"retrieved_at"`
}

// Compact trims string fields and drops every sub-record that carries no
// information, so the serialized form never contains empty objects.
func (r Record) Compact() Record {
	r.EntityName = strings.TrimSpace(r.EntityName)

	if s := r.RegistrationStatus; s != nil {
		if strings.TrimSpace(s.Status) == "" && s.EffectiveDate == nil {
			r.RegistrationStatus = nil
		}
	}
	if e := r.EntityType; e != nil {
		if e.TypeName == "" && e.TypeCode == "" {
			r.EntityType = nil
		}
	}
	// TaxRegistration is kept even when unregistered: registered=false is a
	// value, not an absence.
	if l := r.Location; l != nil {
		if l.StateCode == "" && l.Postcode == "" {
			r.Location = nil
		}
	}
	return r
}

// Origin reports where a lookup result came from.
type Origin string

const (
	OriginFresh  Origin = "fresh"
	OriginCached Origin = "cached"
)
