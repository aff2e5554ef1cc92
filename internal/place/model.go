// Package place provides the place record model and repositories backing
// the WePlace API. Records originate from an OpenStreetMap-derived dataset
// and are mutated only through the update orchestrator.
package place

import (
	"errors"
	"time"
)

// Common errors for place operations.
var (
	// ErrNotFound is returned when no record exists for the given identifier.
	ErrNotFound = errors.New("place not found")

	// ErrProtectedField is returned when an update names a field that must
	// never change after ingestion (identifier, coordinates, timestamp).
	ErrProtectedField = errors.New("field is protected")

	// ErrUnknownField is returned when an update names a field that is not
	// part of the place schema.
	ErrUnknownField = errors.New("unknown field")
)

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place represents a place-of-interest record.
//
// ID is a stable external key (OSM identifier or generated UUID), never a row
// index; updates must not change it. Coordinates are likewise frozen at
// ingestion. LastUpdated is nil for records that have never been touched
// since import, which the reward package treats as maximally stale.
type Place struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	Category     string       `json:"category"`
	Subcategory  string       `json:"subcategory,omitempty"`
	Address      string       `json:"address,omitempty"`
	Description  string       `json:"description,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Website      string       `json:"website,omitempty"`
	OpeningHours string       `json:"opening_hours,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	LastUpdated  *time.Time   `json:"last_updated,omitempty"`
}

// DisplayName returns the record name, falling back to a generic label for
// unnamed records so callers never render an empty title.
func (p *Place) DisplayName() string {
	if p.Name == "" {
		return "Unnamed " + p.Subcategory
	}
	return p.Name
}

// editableFields is the set of fields an update proposal may change.
var editableFields = map[string]struct{}{
	"name":          {},
	"category":      {},
	"subcategory":   {},
	"address":       {},
	"description":   {},
	"phone":         {},
	"website":       {},
	"opening_hours": {},
}

// protectedFields must never be overridden by an update payload. The
// timestamp is included because it is refreshed by the store itself as part
// of the atomic write, not supplied by callers.
var protectedFields = map[string]struct{}{
	"id":           {},
	"osm_id":       {},
	"lat":          {},
	"lng":          {},
	"lon":          {},
	"coordinates":  {},
	"last_updated": {},
}

// ValidateFields checks an update field map against the schema. It returns
// ErrProtectedField for any protected field and ErrUnknownField for names
// outside the schema, so malformed proposals are refused before any store
// access.
func ValidateFields(fields map[string]string) error {
	for name := range fields {
		if _, ok := protectedFields[name]; ok {
			return ErrProtectedField
		}
		if _, ok := editableFields[name]; !ok {
			return ErrUnknownField
		}
	}
	return nil
}

// applyFields copies validated field values onto a record. Callers must have
// run ValidateFields first; unknown names are ignored here.
func applyFields(p *Place, fields map[string]string) {
	for name, value := range fields {
		switch name {
		case "name":
			p.Name = value
		case "category":
			p.Category = value
		case "subcategory":
			p.Subcategory = value
		case "address":
			p.Address = value
		case "description":
			p.Description = value
		case "phone":
			p.Phone = value
		case "website":
			p.Website = value
		case "opening_hours":
			p.OpeningHours = value
		}
	}
}

// clone returns a deep copy so repository callers can never mutate stored
// state through a returned pointer.
func (p *Place) clone() *Place {
	cp := *p
	if p.Coordinates != nil {
		coords := *p.Coordinates
		cp.Coordinates = &coords
	}
	if p.LastUpdated != nil {
		ts := *p.LastUpdated
		cp.LastUpdated = &ts
	}
	return &cp
}
