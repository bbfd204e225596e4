package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"musicscan/internal/discogs"
	"musicscan/internal/logging"
	"musicscan/internal/ratelimit"
	"musicscan/internal/scan"
	"musicscan/internal/services"
)

// Store is the persistence the pipeline needs.
type Store interface {
	CreateSession(ctx context.Context, session scan.Session) error
	GetSession(ctx context.Context, id string) (scan.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status scan.SessionStatus) error
	// AddImages appends images after the stored ones. A nil kinds slice
	// infers each kind from its stored position.
	AddImages(ctx context.Context, sessionID string, urls []string, kinds []scan.ImageKind) ([]scan.Image, error)
	ListImages(ctx context.Context, sessionID string) ([]scan.Image, error)
	ReplaceExtractions(ctx context.Context, sessionID string, extractions []scan.Extraction) error
	UpsertResult(ctx context.Context, result scan.Result) error
}

// ReleaseCache stores release details between runs.
type ReleaseCache interface {
	Lookup(releaseID int64) (discogs.Release, bool)
	Store(release discogs.Release) error
}

// Request is one scan submission.
type Request struct {
	SessionID  string
	UserID     string
	ImageURLs  []string
	ImageKinds []scan.ImageKind
}

// Dependencies wires the pipeline stages.
type Dependencies struct {
	Store      Store
	Vision     VisionModel
	Catalog    discogs.Catalog
	Policy     ratelimit.Policy
	Releases   ReleaseCache
	Thresholds Thresholds
	// FallbackLimit caps the artist and title search.
	FallbackLimit int
	MinImages     int
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Identifier runs the full identification pipeline for one request at a time.
type Identifier struct {
	store     Store
	extractor *Extractor
	finder    *Finder
	scorer    Scorer
	catalog   discogs.Catalog
	policy    ratelimit.Policy
	releases  ReleaseCache
	minImages int
	logger    *slog.Logger
	now       func() time.Time
}

// NewIdentifier validates deps and builds the pipeline.
func NewIdentifier(deps Dependencies) (*Identifier, error) {
	if deps.Store == nil {
		return nil, errors.New("identifier: store required")
	}
	if deps.Vision == nil {
		return nil, errors.New("identifier: vision model required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("identifier: catalog client required")
	}
	policy := deps.Policy
	if policy == nil {
		policy = ratelimit.Unlimited{}
	}
	thresholds := deps.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	minImages := deps.MinImages
	if minImages <= 0 {
		minImages = 2
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Identifier{
		store:     deps.Store,
		extractor: NewExtractor(deps.Vision, deps.Logger),
		finder:    NewFinder(deps.Catalog, policy, deps.FallbackLimit, deps.Logger),
		scorer:    NewScorer(thresholds),
		catalog:   deps.Catalog,
		policy:    policy,
		releases:  deps.Releases,
		minImages: minImages,
		logger:    logging.NewComponentLogger(deps.Logger, "identifier"),
		now:       clock,
	}, nil
}

// Identify runs intake, extraction, normalization, candidate search, scoring
// and persistence. Extraction failures abort without writing a result.
// Reprocessing a session reads every stored photo plus the new ones.
func (id *Identifier) Identify(ctx context.Context, req Request) (*scan.Outcome, error) {
	urls, kinds, err := id.validate(req)
	if err != nil {
		return nil, err
	}

	session, stored, err := id.intake(ctx, req, len(urls))
	if err != nil {
		return nil, err
	}
	ctx = services.WithSessionID(ctx, session.ID)
	logger := logging.WithContext(ctx, id.logger)

	added, err := id.store.AddImages(ctx, session.ID, urls, kinds)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "intake", "record images", "", err)
	}
	images := append(stored, added...)
	logger.Info("scan started",
		logging.Int("image_count", len(images)),
		logging.Int("new_images", len(added)))

	audit := scan.NewAuditLog(id.now)

	parsed, err := id.extractor.Extract(services.WithStage(ctx, "extraction"), images, audit)
	if err != nil {
		return nil, err
	}

	extractions := Normalize(parsed, audit)
	if err := id.store.ReplaceExtractions(ctx, session.ID, extractions); err != nil {
		return nil, services.Wrap(services.ErrTransient, "normalization", "persist extractions", "", err)
	}

	candidates := id.finder.Find(services.WithStage(ctx, "candidates"), extractions, parsed.Artist, parsed.Title, audit)
	decision := id.scorer.Decide(candidates, extractions, audit)
	missing := MissingFields(extractions)
	_, confidence := scan.VerdictDetails(decision.Verdict)
	decisionAttrs := append(logging.DecisionAttrs("match_status", string(decision.Verdict.Status()), decisionReason(decision)),
		logging.Int("candidate_count", len(candidates)),
		logging.Float64("confidence", confidence),
		logging.Bool("capped", decision.Capped),
		logging.Strings("missing_fields", missing))
	logger.Info("identification decision", logging.Args(decisionAttrs...)...)

	result := id.buildResult(ctx, session.ID, parsed, extractions, decision, audit)

	if err := id.store.UpsertResult(ctx, result); err != nil {
		return nil, services.Wrap(services.ErrTransient, "persistence", "upsert result", "", err)
	}
	nextStatus := result.Status.SessionStatus()
	if err := id.store.UpdateSessionStatus(ctx, session.ID, nextStatus); err != nil {
		return nil, services.Wrap(services.ErrTransient, "persistence", "update session status", "", err)
	}
	session.Status = nextStatus
	session.UpdatedAt = id.now().UTC()

	return &scan.Outcome{
		Session:       session,
		Result:        result,
		Extractions:   extractions,
		MissingFields: missing,
		PhotoGuidance: PhotoGuidance(missing),
	}, nil
}

// validate trims the URLs and checks explicit kinds. Kinds are nil when the
// caller left them to be inferred from stored positions.
func (id *Identifier) validate(req Request) ([]string, []scan.ImageKind, error) {
	urls := make([]string, 0, len(req.ImageURLs))
	for _, raw := range req.ImageURLs {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "intake", "images", "at least one image URL is required", nil)
	}
	if strings.TrimSpace(req.SessionID) == "" && len(urls) < id.minImages {
		return nil, nil, minImagesError(id.minImages, len(urls))
	}
	if len(req.ImageKinds) == 0 {
		return urls, nil, nil
	}
	if len(req.ImageKinds) != len(urls) {
		return nil, nil, services.Wrap(services.ErrValidation, "intake", "image kinds",
			fmt.Sprintf("%d kinds supplied for %d images", len(req.ImageKinds), len(urls)), nil)
	}
	return urls, append([]scan.ImageKind(nil), req.ImageKinds...), nil
}

func minImagesError(required, got int) error {
	return services.Wrap(services.ErrValidation, "intake", "images",
		fmt.Sprintf("at least %d image URLs are required, got %d", required, got), nil)
}

// intake creates a new session or moves an existing one back to processing.
// For an existing session it returns the photos already stored, and the
// minimum image count applies to those plus the newURLs being added.
func (id *Identifier) intake(ctx context.Context, req Request, newURLs int) (scan.Session, []scan.Image, error) {
	now := id.now().UTC()
	if sessionID := strings.TrimSpace(req.SessionID); sessionID != "" {
		session, err := id.store.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return scan.Session{}, nil, services.Wrap(services.ErrNotFound, "intake", "load session", sessionID, err)
			}
			return scan.Session{}, nil, services.Wrap(services.ErrTransient, "intake", "load session", sessionID, err)
		}
		stored, err := id.store.ListImages(ctx, session.ID)
		if err != nil {
			return scan.Session{}, nil, services.Wrap(services.ErrTransient, "intake", "load images", sessionID, err)
		}
		if total := len(stored) + newURLs; total < id.minImages {
			return scan.Session{}, nil, minImagesError(id.minImages, total)
		}
		if err := id.store.UpdateSessionStatus(ctx, session.ID, scan.SessionProcessing); err != nil {
			return scan.Session{}, nil, services.Wrap(services.ErrTransient, "intake", "reopen session", "", err)
		}
		session.Status = scan.SessionProcessing
		session.UpdatedAt = now
		return session, stored, nil
	}

	session := scan.Session{
		ID:        uuid.NewString(),
		UserID:    strings.TrimSpace(req.UserID),
		MediaType: scan.MediaCD,
		Status:    scan.SessionProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := id.store.CreateSession(ctx, session); err != nil {
		return scan.Session{}, nil, services.Wrap(services.ErrTransient, "intake", "create session", "", err)
	}
	return session, nil, nil
}

func (id *Identifier) buildResult(
	ctx context.Context,
	sessionID string,
	parsed ParsedExtraction,
	extractions scan.Extractions,
	decision Decision,
	audit *scan.AuditLog,
) scan.Result {
	releaseID, confidence := scan.VerdictDetails(decision.Verdict)
	result := scan.Result{
		SessionID:  sessionID,
		Artist:     displayName(parsed.Artist),
		Title:      displayName(parsed.Title),
		Label:      extractions.Value(scan.FieldLabel),
		CatNo:      extractions.Value(scan.FieldCatNo),
		Barcode:    extractions.Value(scan.FieldBarcode),
		Country:    extractions.Value(scan.FieldCountry),
		Year:       YearValue(extractions.Value(scan.FieldYearHint)),
		Matrix:     extractions.Value(scan.FieldMatrix),
		IFPIMaster: extractions.Value(scan.FieldIFPIMaster),
		IFPIMould:  extractions.Value(scan.FieldIFPIMould),
		Status:     decision.Verdict.Status(),
		ReleaseID:  releaseID,
		Candidates: decision.Ranked,
		Confidence: confidence,
	}
	if result.Candidates == nil {
		result.Candidates = []scan.Candidate{}
	}

	switch v := decision.Verdict.(type) {
	case scan.SingleMatch:
		id.backfill(services.WithStage(ctx, "backfill"), &result, v.ReleaseID, audit)
	case scan.MultipleCandidates:
		audit.Append("guidance", "several releases remain plausible; more photos of the disc hub can separate pressings")
	case scan.NoMatch:
		audit.Append("guidance", "identifiers were read but Discogs has no matching release")
	case scan.NeedsMorePhotos:
		audit.Append("guidance", "barcode and catalog number are both missing")
	default:
		panic(fmt.Sprintf("identification: unhandled verdict %T", v))
	}

	result.AuditLog = audit.Entries()
	result.UpdatedAt = id.now().UTC()
	return result
}

// backfill replaces display fields with the chosen release's details.
// Failures are logged and leave the extracted values in place.
func (id *Identifier) backfill(ctx context.Context, result *scan.Result, releaseID int64, audit *scan.AuditLog) {
	logger := logging.WithContext(ctx, id.logger)

	release, cached := discogs.Release{}, false
	if id.releases != nil {
		release, cached = id.releases.Lookup(releaseID)
	}
	if !cached {
		var fetched *discogs.Release
		err := ratelimit.Do(ctx, id.policy, func(ctx context.Context) error {
			var err error
			fetched, err = id.catalog.GetRelease(ctx, releaseID)
			return err
		})
		if err != nil {
			logging.WarnWithContext(logger, "release detail fetch failed", "release_backfill_failed",
				logging.Int64("release_id", releaseID),
				logging.Alert("backfill_skipped"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the release can be inspected on Discogs directly"),
				logging.String(logging.FieldImpact, "display fields fall back to extracted values"))
			audit.Append("backfill_failed", err.Error())
			return
		}
		release = *fetched
		if id.releases != nil {
			if err := id.releases.Store(release); err != nil {
				logging.WarnWithContext(logger, "release cache write failed", "release_cache_store_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "release will be fetched again next time"))
			}
		}
	}

	if artist := release.ArtistName(); artist != "" {
		result.Artist = artist
	}
	if title := strings.TrimSpace(release.Title); title != "" {
		result.Title = title
	}
	if label, ok := release.PrimaryLabel(); ok {
		result.Label = strings.TrimSpace(label.Name)
	}
	if release.Year > 0 {
		result.Year = release.Year
	}
	if country := strings.TrimSpace(release.Country); country != "" {
		result.Country = country
	}
	source := "discogs"
	if cached {
		source = "cache"
	}
	audit.Append("backfill", fmt.Sprintf("release %d details from %s", releaseID, source))
}

var titleCaser = cases.Title(language.Und)

// displayName title-cases shouting all-caps cover text.
func displayName(value string) string {
	value = collapseWhitespace(value)
	if value == "" || value != strings.ToUpper(value) || !hasLetter(value) {
		return value
	}
	return titleCaser.String(strings.ToLower(value))
}

func decisionReason(decision Decision) string {
	switch v := decision.Verdict.(type) {
	case scan.SingleMatch:
		return fmt.Sprintf("release %d at %.2f", v.ReleaseID, v.Confidence)
	case scan.MultipleCandidates:
		if decision.Capped {
			return "confidence capped without matrix or IFPI"
		}
		return "threshold or gap not met"
	case scan.NoMatch:
		return "no catalog results"
	case scan.NeedsMorePhotos:
		return "no barcode or catalog number"
	default:
		panic(fmt.Sprintf("identification: unhandled verdict %T", v))
	}
}
