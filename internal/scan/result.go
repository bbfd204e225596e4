package scan

import "time"

// Result is the persisted decision for a session. It is written as a whole
// record; reprocessing a session replaces it.
type Result struct {
	SessionID  string       `json:"sessionId"`
	Artist     string       `json:"artist,omitempty"`
	Title      string       `json:"title,omitempty"`
	Label      string       `json:"label,omitempty"`
	CatNo      string       `json:"catno,omitempty"`
	Barcode    string       `json:"barcode,omitempty"`
	Country    string       `json:"country,omitempty"`
	Year       int          `json:"year,omitempty"`
	Matrix     string       `json:"matrix,omitempty"`
	IFPIMaster string       `json:"ifpiMaster,omitempty"`
	IFPIMould  string       `json:"ifpiMould,omitempty"`
	Status     MatchStatus  `json:"status"`
	ReleaseID  *int64       `json:"releaseId"`
	Candidates []Candidate  `json:"candidates"`
	Confidence float64      `json:"confidence"`
	AuditLog   []AuditEntry `json:"auditLog"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// PhotoGuidance is a photography instruction for a missing field.
type PhotoGuidance struct {
	Field       string `json:"field"`
	Instruction string `json:"instruction"`
}

// Outcome is everything a pipeline run produces for the caller.
type Outcome struct {
	Session       Session         `json:"session"`
	Result        Result          `json:"result"`
	Extractions   []Extraction    `json:"extractions"`
	MissingFields []string        `json:"missingFields"`
	PhotoGuidance []PhotoGuidance `json:"photoGuidance"`
}

// SessionDetail aggregates a stored session for inspection.
type SessionDetail struct {
	Session     Session      `json:"session"`
	Images      []Image      `json:"images"`
	Extractions []Extraction `json:"extractions"`
	Result      *Result      `json:"result,omitempty"`
}

// SessionSummary is a session row with the headline of its result, if any.
type SessionSummary struct {
	Session
	ImageCount  int         `json:"imageCount"`
	MatchStatus MatchStatus `json:"matchStatus,omitempty"`
	ReleaseID   *int64      `json:"releaseId,omitempty"`
	Confidence  float64     `json:"confidence"`
	Artist      string      `json:"artist,omitempty"`
	Title       string      `json:"title,omitempty"`
}
