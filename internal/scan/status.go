package scan

import (
	"fmt"
	"strings"
)

// MatchStatus is the persisted form of a Verdict.
type MatchStatus string

const (
	StatusSingleMatch        MatchStatus = "single_match"
	StatusMultipleCandidates MatchStatus = "multiple_candidates"
	StatusNoMatch            MatchStatus = "no_match"
	StatusNeedsMorePhotos    MatchStatus = "needs_more_photos"
)

// ParseMatchStatus validates a stored status string.
func ParseMatchStatus(value string) (MatchStatus, error) {
	switch status := MatchStatus(strings.TrimSpace(value)); status {
	case StatusSingleMatch, StatusMultipleCandidates, StatusNoMatch, StatusNeedsMorePhotos:
		return status, nil
	default:
		return "", fmt.Errorf("unknown match status %q", value)
	}
}

// SessionStatus returns the session lifecycle state that follows a result
// with this status.
func (s MatchStatus) SessionStatus() SessionStatus {
	switch s {
	case StatusNeedsMorePhotos:
		return SessionNeedsMorePhotos
	case StatusSingleMatch, StatusMultipleCandidates, StatusNoMatch:
		return SessionDone
	default:
		panic(fmt.Sprintf("scan: unhandled match status %q", string(s)))
	}
}

// Verdict is the scorer's decision. The interface is sealed: only the four
// types in this file implement it.
type Verdict interface {
	Status() MatchStatus
	verdict()
}

// SingleMatch identifies one release with enough confidence and separation.
type SingleMatch struct {
	ReleaseID  int64
	Confidence float64
}

// MultipleCandidates leaves the choice to a human.
type MultipleCandidates struct {
	Confidence float64
}

// NoMatch means identifiers were read but the catalog had nothing.
type NoMatch struct{}

// NeedsMorePhotos means no barcode or catalog number could be read.
type NeedsMorePhotos struct{}

func (SingleMatch) Status() MatchStatus        { return StatusSingleMatch }
func (MultipleCandidates) Status() MatchStatus { return StatusMultipleCandidates }
func (NoMatch) Status() MatchStatus            { return StatusNoMatch }
func (NeedsMorePhotos) Status() MatchStatus    { return StatusNeedsMorePhotos }

func (SingleMatch) verdict()        {}
func (MultipleCandidates) verdict() {}
func (NoMatch) verdict()            {}
func (NeedsMorePhotos) verdict()    {}

// VerdictDetails unpacks a verdict into its persisted release id and confidence.
func VerdictDetails(v Verdict) (releaseID *int64, confidence float64) {
	switch v := v.(type) {
	case SingleMatch:
		id := v.ReleaseID
		return &id, v.Confidence
	case MultipleCandidates:
		return nil, v.Confidence
	case NoMatch:
		return nil, 0
	case NeedsMorePhotos:
		return nil, 0
	default:
		panic(fmt.Sprintf("scan: unhandled verdict %T", v))
	}
}
