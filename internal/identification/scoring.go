package identification

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"musicscan/internal/config"
	"musicscan/internal/scan"
)

// Signal weights.
const (
	weightBarcode = 0.50
	weightCatNo   = 0.30
	weightCountry = 0.25
	weightLabel   = 0.10
	weightYear    = 0.05
)

// Thresholds control the decision rule.
type Thresholds struct {
	MinMatchScore         float64
	MinScoreGap           float64
	UnverifiedPressingCap float64
	MaxRanked             int
}

// DefaultThresholds mirrors the configuration defaults.
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.Default().Identification)
}

// ThresholdsFromConfig copies the identification section.
func ThresholdsFromConfig(cfg config.Identification) Thresholds {
	return Thresholds{
		MinMatchScore:         cfg.MinMatchScore,
		MinScoreGap:           cfg.MinScoreGap,
		UnverifiedPressingCap: cfg.UnverifiedPressingCap,
		MaxRanked:             cfg.MaxRankedCandidates,
	}
}

// Decision is the scorer's output.
type Decision struct {
	Verdict scan.Verdict
	// Ranked holds at most MaxRanked candidates, best first, with capped scores.
	Ranked []scan.Candidate
	// Capped is set when no matrix or IFPI code was available.
	Capped bool
}

// Scorer assigns explainable scores and decides the match status.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer constructs a scorer.
func NewScorer(thresholds Thresholds) Scorer {
	if thresholds.MaxRanked <= 0 {
		thresholds.MaxRanked = 5
	}
	return Scorer{thresholds: thresholds}
}

// Score returns the raw additive score of candidate and the reason per
// matching signal.
func Score(candidate scan.Candidate, fields scan.Extractions) (float64, []string) {
	var (
		score   float64
		reasons []string
	)
	add := func(weight float64, reason string) {
		score += weight
		reasons = append(reasons, fmt.Sprintf("%s +%.2f", reason, weight))
	}

	if barcode := fields.Value(scan.FieldBarcode); barcode != "" {
		for _, candidateBarcode := range candidate.Barcodes {
			if digitsOnly(candidateBarcode) == barcode {
				add(weightBarcode, "barcode_match")
				break
			}
		}
	}
	if catno := fields.Value(scan.FieldCatNo); catno != "" && catNoMatches(catno, candidate.CatNo) {
		add(weightCatNo, "catno_match")
	}
	if country := fields.Value(scan.FieldCountry); country != "" && sameCountry(country, candidate.Country) {
		add(weightCountry, "country_match")
	}
	if label := fields.Value(scan.FieldLabel); label != "" && labelMatches(label, candidate) {
		add(weightLabel, "label_match")
	}
	if year := YearValue(fields.Value(scan.FieldYearHint)); year > 0 && year == candidate.Year {
		add(weightYear, "year_match")
	}
	return roundScore(score), reasons
}

// Decide scores every candidate, applies the pressing cap and picks the verdict.
func (s Scorer) Decide(candidates []scan.Candidate, fields scan.Extractions, audit *scan.AuditLog) Decision {
	capped := !fields.HasPressingEvidence()

	if len(candidates) == 0 {
		if !fields.Has(scan.FieldBarcode) && !fields.Has(scan.FieldCatNo) {
			audit.Append("decision", "needs_more_photos: no candidates and neither barcode nor catalog number was read")
			return Decision{Verdict: scan.NeedsMorePhotos{}, Capped: capped}
		}
		audit.Append("decision", "no_match: identifiers were read but no catalog release matched")
		return Decision{Verdict: scan.NoMatch{}, Capped: capped}
	}

	scored := make([]scan.Candidate, len(candidates))
	for i, candidate := range candidates {
		raw, reasons := Score(candidate, fields)
		candidate.Reasons = append(append([]string(nil), candidate.Reasons...), reasons...)
		candidate.Score = raw
		if capped && raw > s.thresholds.UnverifiedPressingCap {
			candidate.Score = s.thresholds.UnverifiedPressingCap
			candidate.Reasons = append(candidate.Reasons,
				fmt.Sprintf("capped %.2f->%.2f: no matrix or IFPI code", raw, s.thresholds.UnverifiedPressingCap))
		}
		scored[i] = candidate
		audit.Append("score", fmt.Sprintf("release %d: %.2f (%s)", candidate.ReleaseID, candidate.Score, strings.Join(reasons, ", ")))
	}
	return s.decideScored(scored, capped, audit)
}

// decideScored applies the decision rule to candidates whose Score is final.
func (s Scorer) decideScored(scored []scan.Candidate, capped bool, audit *scan.AuditLog) Decision {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ReleaseID < scored[j].ReleaseID
	})

	top := scored[0]
	gap := 1.0
	if len(scored) > 1 {
		gap = roundScore(top.Score - scored[1].Score)
	}

	ranked := scored
	if len(ranked) > s.thresholds.MaxRanked {
		ranked = ranked[:s.thresholds.MaxRanked]
	}

	if top.Score >= s.thresholds.MinMatchScore && gap >= s.thresholds.MinScoreGap {
		audit.Append("decision", fmt.Sprintf("single_match: release %d score %.2f gap %.2f", top.ReleaseID, top.Score, gap))
		return Decision{
			Verdict: scan.SingleMatch{ReleaseID: top.ReleaseID, Confidence: top.Score},
			Ranked:  ranked,
			Capped:  capped,
		}
	}

	audit.Append("decision", fmt.Sprintf("multiple_candidates: top %.2f (need %.2f) gap %.2f (need %.2f), capped=%t",
		top.Score, s.thresholds.MinMatchScore, gap, s.thresholds.MinScoreGap, capped))
	return Decision{
		Verdict: scan.MultipleCandidates{Confidence: top.Score},
		Ranked:  ranked,
		Capped:  capped,
	}
}

func catNoMatches(extracted, candidate string) bool {
	a, b := compactKey(extracted), compactKey(candidate)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func labelMatches(extracted string, candidate scan.Candidate) bool {
	labels := candidate.Labels
	if len(labels) == 0 && candidate.Label != "" {
		labels = []string{candidate.Label}
	}
	for _, label := range labels {
		if containsFold(extracted, label) {
			return true
		}
	}
	return false
}

// roundScore keeps sums of the fixed weights exact at two decimals.
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
