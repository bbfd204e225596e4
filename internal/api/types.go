package api

import "musicscan/internal/scan"

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	ImageURLs  []string `json:"imageUrls"`
	SessionID  string   `json:"sessionId,omitempty"`
	UserID     string   `json:"userId,omitempty"`
	ImageKinds []string `json:"imageKinds,omitempty"`
}

// ScanResponse is the stored result plus the per-run details the caller
// needs to act on it.
type ScanResponse struct {
	scan.Result
	SessionStatus scan.SessionStatus   `json:"sessionStatus"`
	Extractions   []scan.Extraction    `json:"extractions"`
	MissingFields []string             `json:"missingFields"`
	PhotoGuidance []scan.PhotoGuidance `json:"photoGuidance"`
}

// FromOutcome converts a pipeline outcome into the response shape.
func FromOutcome(outcome *scan.Outcome) ScanResponse {
	resp := ScanResponse{
		Result:        outcome.Result,
		SessionStatus: outcome.Session.Status,
		Extractions:   outcome.Extractions,
		MissingFields: outcome.MissingFields,
		PhotoGuidance: outcome.PhotoGuidance,
	}
	if resp.Extractions == nil {
		resp.Extractions = []scan.Extraction{}
	}
	if resp.MissingFields == nil {
		resp.MissingFields = []string{}
	}
	if resp.PhotoGuidance == nil {
		resp.PhotoGuidance = []scan.PhotoGuidance{}
	}
	return resp
}

// SessionListResponse is returned by GET /api/sessions.
type SessionListResponse struct {
	Sessions []scan.SessionSummary `json:"sessions"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Model    string `json:"model,omitempty"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
