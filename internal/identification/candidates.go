package identification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"musicscan/internal/discogs"
	"musicscan/internal/logging"
	"musicscan/internal/ratelimit"
	"musicscan/internal/scan"
)

// Reason tags recorded by the finder for the strategy that found a candidate.
const (
	reasonFoundByBarcode  = "found_by_barcode"
	reasonFoundByCatNo    = "found_by_catno"
	reasonFoundByFallback = "found_by_artist_title"
)

const defaultFallbackLimit = 10

// Finder searches the catalog for releases matching normalized fields.
type Finder struct {
	catalog       discogs.Catalog
	policy        ratelimit.Policy
	fallbackLimit int
	logger        *slog.Logger
}

// NewFinder constructs a finder. Every catalog call goes through policy.
func NewFinder(catalog discogs.Catalog, policy ratelimit.Policy, fallbackLimit int, logger *slog.Logger) *Finder {
	if policy == nil {
		policy = ratelimit.Unlimited{}
	}
	if fallbackLimit <= 0 {
		fallbackLimit = defaultFallbackLimit
	}
	return &Finder{
		catalog:       catalog,
		policy:        policy,
		fallbackLimit: fallbackLimit,
		logger:        logging.NewComponentLogger(logger, "candidate-finder"),
	}
}

// candidateSet merges candidates by release id, keeping discovery order.
type candidateSet struct {
	order []int64
	byID  map[int64]*scan.Candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byID: make(map[int64]*scan.Candidate)}
}

func (s *candidateSet) add(result discogs.SearchResult, reason string) {
	if result.ID <= 0 {
		return
	}
	if existing, ok := s.byID[result.ID]; ok {
		existing.AddReason(reason)
		mergeMissing(existing, result)
		return
	}
	candidate := candidateFromResult(result)
	candidate.AddReason(reason)
	s.byID[result.ID] = &candidate
	s.order = append(s.order, result.ID)
}

func (s *candidateSet) len() int {
	return len(s.order)
}

func (s *candidateSet) list() []scan.Candidate {
	out := make([]scan.Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Find runs the barcode and catalog number strategies, then the artist and
// title fallback only when both found nothing. A failed strategy is logged
// and audited and contributes no candidates.
func (f *Finder) Find(ctx context.Context, fields scan.Extractions, artist, title string, audit *scan.AuditLog) []scan.Candidate {
	logger := logging.WithContext(ctx, f.logger)
	set := newCandidateSet()

	if barcode := fields.Value(scan.FieldBarcode); barcode != "" {
		f.runStrategy(ctx, logger, audit, set, "barcode", discogs.SearchParams{Barcode: barcode}, reasonFoundByBarcode)
	}
	if catno := fields.Value(scan.FieldCatNo); catno != "" {
		f.runStrategy(ctx, logger, audit, set, "catno", discogs.SearchParams{CatNo: catno}, reasonFoundByCatNo)
	}

	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	switch {
	case set.len() > 0:
	case artist == "" || title == "":
		audit.Append("search_artist_title", "skipped: artist or title unknown")
	default:
		params := discogs.SearchParams{
			Query:   artist + " " + title,
			Format:  discogs.FormatCD,
			PerPage: f.fallbackLimit,
		}
		f.runStrategy(ctx, logger, audit, set, "artist_title", params, reasonFoundByFallback)
	}

	candidates := set.list()
	logger.Info("candidate search complete", logging.Int("candidate_count", len(candidates)))
	return candidates
}

func (f *Finder) runStrategy(
	ctx context.Context,
	logger *slog.Logger,
	audit *scan.AuditLog,
	set *candidateSet,
	strategy string,
	params discogs.SearchParams,
	reason string,
) {
	step := "search_" + strategy
	if f.catalog == nil {
		audit.Append(step+"_failed", "catalog client not configured")
		return
	}

	var resp *discogs.SearchResponse
	err := ratelimit.Do(ctx, f.policy, func(ctx context.Context) error {
		var err error
		resp, err = f.catalog.Search(ctx, params)
		return err
	})
	if err != nil {
		logging.WarnWithContext(logger, "catalog search failed", "catalog_search_failed",
			logging.String("strategy", strategy),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check Discogs credentials and rate limits"),
			logging.String(logging.FieldImpact, "strategy contributes no candidates"))
		audit.Append(step+"_failed", err.Error())
		return
	}

	results := resp.Results
	if strategy == "artist_title" && len(results) > f.fallbackLimit {
		results = results[:f.fallbackLimit]
	}
	before := set.len()
	for _, result := range results {
		set.add(result, reason)
	}
	audit.Append(step, fmt.Sprintf("%d results, %d new candidates", len(results), set.len()-before))
	logger.Debug("catalog search finished",
		logging.String("strategy", strategy),
		logging.Int("result_count", len(results)),
		logging.Int("new_candidates", set.len()-before))
}

func candidateFromResult(result discogs.SearchResult) scan.Candidate {
	labels := make([]string, 0, len(result.Label))
	for _, label := range result.Label {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return scan.Candidate{
		ReleaseID: result.ID,
		Title:     strings.TrimSpace(result.Title),
		Year:      result.YearValue(),
		Country:   strings.TrimSpace(result.Country),
		Label:     result.PrimaryLabel(),
		Labels:    labels,
		CatNo:     strings.TrimSpace(result.CatNo),
		Barcodes:  append([]string(nil), result.Barcode...),
		Thumb:     result.Thumb,
		URI:       result.URI,
	}
}

func mergeMissing(existing *scan.Candidate, result discogs.SearchResult) {
	incoming := candidateFromResult(result)
	if existing.Title == "" {
		existing.Title = incoming.Title
	}
	if existing.Year == 0 {
		existing.Year = incoming.Year
	}
	if existing.Country == "" {
		existing.Country = incoming.Country
	}
	if existing.Label == "" {
		existing.Label = incoming.Label
		existing.Labels = incoming.Labels
	}
	if existing.CatNo == "" {
		existing.CatNo = incoming.CatNo
	}
	if len(existing.Barcodes) == 0 {
		existing.Barcodes = incoming.Barcodes
	}
	if existing.Thumb == "" {
		existing.Thumb = incoming.Thumb
	}
	if existing.URI == "" {
		existing.URI = incoming.URI
	}
}
