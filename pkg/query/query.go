// Package query defines the logical photo query and its canonical cache key.
//
// A Query selects photos by rover, optional camera, a date specifier (either
// a mission sol or an Earth date, never both) and a result page. Normalize
// validates the query and produces a deterministic Key so that two logically
// identical queries always map to the same cache entry, across process
// restarts.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidQuery indicates a malformed or ambiguous photo query.
var ErrInvalidQuery = errors.New("invalid query")

// Rovers supported by the Mars Photos API.
var knownRovers = map[string]struct{}{
	"curiosity":   {},
	"opportunity": {},
	"spirit":      {},
}

// Cameras mounted on the supported rovers.
var knownCameras = map[string]struct{}{
	"fhaz":    {},
	"rhaz":    {},
	"mast":    {},
	"chemcam": {},
	"mahli":   {},
	"mardi":   {},
	"navcam":  {},
	"pancam":  {},
	"minites": {},
}

// Query is a logical photo query. The field set is closed: arbitrary extra
// parameters are not representable, which keeps normalization total.
type Query struct {
	// Rover is the rover name (required). Matched case-insensitively.
	Rover string

	// Camera restricts results to a single camera (optional).
	Camera string

	// Sol is the Martian solar day to query. Exactly one of Sol and
	// EarthDate must be set.
	Sol *int

	// EarthDate is the Earth calendar date to query, format YYYY-MM-DD.
	EarthDate string

	// Page is the result page, defaulting to 1 when zero.
	Page int
}

// ValidationError describes why a query was rejected. It unwraps to
// ErrInvalidQuery so callers can classify with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidQuery
}

// Canonical returns a copy of q with identifiers trimmed and lowercased and
// the page defaulted. It does not validate.
func (q Query) Canonical() Query {
	q.Rover = strings.ToLower(strings.TrimSpace(q.Rover))
	q.Camera = strings.ToLower(strings.TrimSpace(q.Camera))
	q.EarthDate = strings.TrimSpace(q.EarthDate)
	if q.Page == 0 {
		q.Page = 1
	}
	return q
}

// Validate checks q against the supported rover and camera sets and the
// date-specifier rules. The returned error unwraps to ErrInvalidQuery.
func (q Query) Validate() error {
	c := q.Canonical()

	if c.Rover == "" {
		return &ValidationError{Field: "rover", Reason: "required"}
	}
	if _, ok := knownRovers[c.Rover]; !ok {
		return &ValidationError{Field: "rover", Reason: fmt.Sprintf("unknown rover %q", c.Rover)}
	}

	if c.Camera != "" {
		if _, ok := knownCameras[c.Camera]; !ok {
			return &ValidationError{Field: "camera", Reason: fmt.Sprintf("unknown camera %q", c.Camera)}
		}
	}

	hasSol := c.Sol != nil
	hasDate := c.EarthDate != ""
	switch {
	case hasSol && hasDate:
		return &ValidationError{Field: "date", Reason: "sol and earth_date are mutually exclusive"}
	case !hasSol && !hasDate:
		return &ValidationError{Field: "date", Reason: "either sol or earth_date is required"}
	}

	if hasSol && *c.Sol < 0 {
		return &ValidationError{Field: "sol", Reason: "must not be negative"}
	}
	if hasDate {
		if _, err := time.Parse("2006-01-02", c.EarthDate); err != nil {
			return &ValidationError{Field: "earth_date", Reason: "must be formatted YYYY-MM-DD"}
		}
	}

	if c.Page < 1 {
		return &ValidationError{Field: "page", Reason: "must be >= 1"}
	}

	return nil
}

// Rovers returns the supported rover names, for CLI help and validation
// messages.
func Rovers() []string {
	return sortedKeys(knownRovers)
}

// Cameras returns the supported camera names.
func Cameras() []string {
	return sortedKeys(knownCameras)
}
