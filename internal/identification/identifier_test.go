package identification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"musicscan/internal/discogs"
	"musicscan/internal/logging"
	"musicscan/internal/scan"
	"musicscan/internal/services"
)

const pressedReply = `{
  "barcode": "5099902161724", "barcode_source": "back_cover",
  "catno": null,
  "matrix": "DIDX 012 EMI UDEN", "matrix_source": "disc_hub",
  "ifpi_master": null, "ifpi_mould": null,
  "label": "EMI", "label_source": "back_cover",
  "country": "Netherlands", "country_source": "back_cover",
  "year_hint": null,
  "artist": "RADIOHEAD", "title": "OK COMPUTER"
}`

const releaseID = int64(1234567)

func pressedCatalog() *stubCatalog {
	return &stubCatalog{
		byBarcode: map[string][]discogs.SearchResult{
			"5099902161724": {{
				ID:      releaseID,
				Title:   "Radiohead - OK Computer",
				Country: "Netherlands",
				Label:   []string{"EMI"},
				Barcode: []string{"5 099902 161724"},
				Year:    "1997",
			}},
		},
		releases: map[int64]discogs.Release{
			releaseID: {
				ID:      releaseID,
				Title:   "OK Computer",
				Artists: []discogs.Artist{{Name: "Radiohead"}},
				Labels:  []discogs.LabelCredit{{Name: "Parlophone", CatNo: "7243 8 55229 2 5"}},
				Year:    1997,
				Country: "Netherlands",
			},
		},
	}
}

type identifierFixture struct {
	store   *memStore
	vision  *stubVision
	catalog *stubCatalog
	cache   *mapCache
	id      *Identifier
}

func newIdentifierFixture(t *testing.T, reply string, catalog *stubCatalog) identifierFixture {
	t.Helper()
	fixture := identifierFixture{
		store:   newMemStore(),
		vision:  &stubVision{reply: reply},
		catalog: catalog,
		cache:   &mapCache{entries: make(map[int64]discogs.Release)},
	}
	id, err := NewIdentifier(Dependencies{
		Store:    fixture.store,
		Vision:   fixture.vision,
		Catalog:  catalog,
		Releases: fixture.cache,
		Logger:   logging.NewNop(),
		Clock:    fixedClock,
	})
	if err != nil {
		t.Fatalf("NewIdentifier returned error: %v", err)
	}
	fixture.id = id
	return fixture
}

type mapCache struct {
	entries map[int64]discogs.Release
	lookups int
}

func (c *mapCache) Lookup(id int64) (discogs.Release, bool) {
	c.lookups++
	release, ok := c.entries[id]
	return release, ok
}

func (c *mapCache) Store(release discogs.Release) error {
	c.entries[release.ID] = release
	return nil
}

var twoPhotos = []string{"https://img.example/front.jpg", "https://img.example/back.jpg"}

func TestIdentifySingleMatchPersistsAndBackfills(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos, UserID: "user-1"})
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}

	result := outcome.Result
	if result.Status != scan.StatusSingleMatch {
		t.Fatalf("expected single match, got %s", result.Status)
	}
	if result.ReleaseID == nil || *result.ReleaseID != releaseID || result.Confidence != 0.85 {
		t.Fatalf("unexpected release/confidence: %v %.2f", result.ReleaseID, result.Confidence)
	}
	if result.Artist != "Radiohead" || result.Title != "OK Computer" || result.Label != "Parlophone" || result.Year != 1997 {
		t.Fatalf("expected backfilled display fields, got %#v", result)
	}
	if result.Barcode != "5099902161724" || result.Matrix != "DIDX 012 EMI UDEN" {
		t.Fatalf("unexpected extracted identifiers: %#v", result)
	}

	sessionID := outcome.Session.ID
	if sessionID == "" || outcome.Session.Status != scan.SessionDone {
		t.Fatalf("unexpected session: %#v", outcome.Session)
	}
	stored, err := fx.store.GetSession(context.Background(), sessionID)
	if err != nil || stored.Status != scan.SessionDone || stored.MediaType != scan.MediaCD || stored.UserID != "user-1" {
		t.Fatalf("unexpected stored session: %#v (%v)", stored, err)
	}
	if _, ok := fx.store.results[sessionID]; !ok {
		t.Fatal("result was not persisted")
	}
	images := fx.store.images[sessionID]
	if len(images) != 2 || images[0].Kind != scan.ImageFront || images[1].Kind != scan.ImageBackCover {
		t.Fatalf("unexpected images: %#v", images)
	}
	if len(fx.store.extractions[sessionID]) != 4 {
		t.Fatalf("expected 4 persisted extractions, got %#v", fx.store.extractions[sessionID])
	}
	if strings.Join(fx.vision.urls, ",") != strings.Join(twoPhotos, ",") {
		t.Fatalf("vision model received %v", fx.vision.urls)
	}

	for _, step := range []string{"extraction", "search_barcode", "score", "decision", "backfill"} {
		if !hasStep(result.AuditLog, step) {
			t.Fatalf("audit log missing %q: %#v", step, result.AuditLog)
		}
	}
	if strings.Join(outcome.MissingFields, ",") != "ifpi,catno" {
		t.Fatalf("unexpected missing fields: %v", outcome.MissingFields)
	}
	if len(outcome.PhotoGuidance) != 2 {
		t.Fatalf("expected guidance for each missing field, got %#v", outcome.PhotoGuidance)
	}
	if _, cached := fx.cache.entries[releaseID]; !cached {
		t.Fatal("fetched release should be cached")
	}
}

func TestIdentifyWithoutMatrixIsCappedToMultipleCandidates(t *testing.T) {
	reply := strings.Replace(pressedReply, `"matrix": "DIDX 012 EMI UDEN"`, `"matrix": null`, 1)
	fx := newIdentifierFixture(t, reply, pressedCatalog())

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	result := outcome.Result
	if result.Status != scan.StatusMultipleCandidates || result.Confidence != 0.79 {
		t.Fatalf("expected capped multiple candidates, got %s %.2f", result.Status, result.Confidence)
	}
	if result.ReleaseID != nil {
		t.Fatalf("release id must be empty without a single match, got %d", *result.ReleaseID)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Score != 0.79 {
		t.Fatalf("unexpected candidates: %#v", result.Candidates)
	}
	if fx.catalog.releaseCalls != 0 {
		t.Fatal("release details must only be fetched for a single match")
	}
	if outcome.Session.Status != scan.SessionDone {
		t.Fatalf("unexpected session status %s", outcome.Session.Status)
	}
	if result.Artist != "Radiohead" {
		t.Fatalf("expected title-cased cover artist, got %q", result.Artist)
	}
}

func TestIdentifyNeedsMorePhotos(t *testing.T) {
	fx := newIdentifierFixture(t, `{"label": "EMI", "country": "UK"}`, &stubCatalog{})

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if outcome.Result.Status != scan.StatusNeedsMorePhotos {
		t.Fatalf("unexpected status %s", outcome.Result.Status)
	}
	stored, _ := fx.store.GetSession(context.Background(), outcome.Session.ID)
	if stored.Status != scan.SessionNeedsMorePhotos {
		t.Fatalf("session must stay in needs_more_photos, got %s", stored.Status)
	}
	if len(outcome.PhotoGuidance) != 4 {
		t.Fatalf("expected guidance for all four fields, got %d", len(outcome.PhotoGuidance))
	}
	if len(fx.catalog.searches) != 0 {
		t.Fatalf("no search should run without identifiers, got %#v", fx.catalog.searches)
	}
	if outcome.Result.Candidates == nil {
		t.Fatal("candidates must serialize as an empty list")
	}
}

func TestIdentifyNoMatchWhenBarcodeFindsNothing(t *testing.T) {
	fx := newIdentifierFixture(t, `{"barcode": "4006381333931"}`, &stubCatalog{})

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if outcome.Result.Status != scan.StatusNoMatch || outcome.Session.Status != scan.SessionDone {
		t.Fatalf("unexpected outcome: %s / %s", outcome.Result.Status, outcome.Session.Status)
	}
}

func TestIdentifyBackfillFailureIsNotFatal(t *testing.T) {
	catalog := pressedCatalog()
	catalog.releaseErr = errors.New("discogs: 429 Too Many Requests")
	fx := newIdentifierFixture(t, pressedReply, catalog)

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("backfill failure must not fail the run: %v", err)
	}
	result := outcome.Result
	if result.Status != scan.StatusSingleMatch {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if result.Label != "EMI" || result.Artist != "Radiohead" || result.Title != "Ok Computer" {
		t.Fatalf("expected extracted display values to remain, got %#v", result)
	}
	if !hasStep(result.AuditLog, "backfill_failed") {
		t.Fatal("expected backfill_failed audit entry")
	}
}

func TestIdentifyBackfillUsesReleaseCache(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	fx.cache.entries[releaseID] = discogs.Release{ID: releaseID, Title: "OK Computer (Cached)"}

	outcome, err := fx.id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if fx.catalog.releaseCalls != 0 {
		t.Fatal("cached release must not be fetched again")
	}
	if outcome.Result.Title != "OK Computer (Cached)" {
		t.Fatalf("unexpected title %q", outcome.Result.Title)
	}
}

func TestIdentifyExtractionFailureAborts(t *testing.T) {
	cases := map[string]*stubVision{
		"model error":     {err: errors.New("upstream 503")},
		"unparsable text": {reply: "Sorry, the photos are too blurry."},
	}
	for name, vision := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			id, err := NewIdentifier(Dependencies{Store: store, Vision: vision, Catalog: &stubCatalog{}, Logger: logging.NewNop()})
			if err != nil {
				t.Fatalf("NewIdentifier returned error: %v", err)
			}
			_, err = id.Identify(context.Background(), Request{ImageURLs: twoPhotos})
			if !errors.Is(err, services.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
			if store.upserts != 0 {
				t.Fatal("no result may be written after an extraction failure")
			}
			for _, sid := range store.sessionIDs() {
				if store.sessions[sid].Status != scan.SessionProcessing {
					t.Fatalf("session should remain processing, got %s", store.sessions[sid].Status)
				}
			}
		})
	}
}

func TestIdentifyValidatesRequest(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())

	cases := map[string]Request{
		"single image":   {ImageURLs: []string{"https://img.example/front.jpg", "  "}},
		"kinds mismatch": {ImageURLs: twoPhotos, ImageKinds: []scan.ImageKind{scan.ImageFront}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.id.Identify(context.Background(), req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(fx.store.sessionIDs()) != 0 || fx.vision.calls != 0 {
		t.Fatal("invalid requests must not create sessions or call the model")
	}
}

func TestIdentifyReprocessOverwritesResult(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	ctx := context.Background()

	first, err := fx.id.Identify(ctx, Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("first Identify returned error: %v", err)
	}
	fx.vision.reply = strings.Replace(pressedReply, `"matrix": "DIDX 012 EMI UDEN"`, `"matrix": null`, 1)

	second, err := fx.id.Identify(ctx, Request{
		SessionID:  first.Session.ID,
		ImageURLs:  []string{"https://img.example/hub.jpg", "https://img.example/hub2.jpg"},
		ImageKinds: []scan.ImageKind{scan.ImageDiscHub, scan.ImageDiscHub},
	})
	if err != nil {
		t.Fatalf("second Identify returned error: %v", err)
	}
	if second.Session.ID != first.Session.ID {
		t.Fatal("reprocessing must reuse the session")
	}
	if len(fx.store.results) != 1 || fx.store.upserts != 2 {
		t.Fatalf("expected one overwritten result, got %d results after %d upserts", len(fx.store.results), fx.store.upserts)
	}
	if fx.store.results[first.Session.ID].Status != scan.StatusMultipleCandidates {
		t.Fatal("stored result must be the latest run")
	}
	images := fx.store.images[first.Session.ID]
	if len(images) != 4 || images[3].Position != 3 || images[3].Kind != scan.ImageDiscHub {
		t.Fatalf("unexpected images after reprocessing: %#v", images)
	}

	_, err = fx.id.Identify(ctx, Request{SessionID: "missing", ImageURLs: twoPhotos})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestIdentifyReprocessInfersKindsFromStoredPosition(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	ctx := context.Background()

	first, err := fx.id.Identify(ctx, Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("first Identify returned error: %v", err)
	}
	_, err = fx.id.Identify(ctx, Request{
		SessionID: first.Session.ID,
		ImageURLs: []string{"https://img.example/hub.jpg", "https://img.example/spine.jpg"},
	})
	if err != nil {
		t.Fatalf("second Identify returned error: %v", err)
	}

	images := fx.store.images[first.Session.ID]
	want := []scan.ImageKind{scan.ImageFront, scan.ImageBackCover, scan.ImageDiscHub, scan.ImageOther}
	if len(images) != len(want) {
		t.Fatalf("expected %d images, got %#v", len(want), images)
	}
	for i, kind := range want {
		if images[i].Position != i || images[i].Kind != kind {
			t.Fatalf("image %d: got position %d kind %q, want kind %q", i, images[i].Position, images[i].Kind, kind)
		}
	}
	if !strings.Contains(fx.vision.prompt, "3. disc_hub\n4. other") {
		t.Fatalf("prompt does not list the stored kinds: %q", fx.vision.prompt)
	}
}

func TestIdentifyReprocessSinglePhotoKeepsEarlierEvidence(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	ctx := context.Background()

	first, err := fx.id.Identify(ctx, Request{ImageURLs: twoPhotos})
	if err != nil {
		t.Fatalf("first Identify returned error: %v", err)
	}

	hub := "https://img.example/hub.jpg"
	outcome, err := fx.id.Identify(ctx, Request{SessionID: first.Session.ID, ImageURLs: []string{hub}})
	if err != nil {
		t.Fatalf("reprocessing with one photo returned error: %v", err)
	}
	wantURLs := append(append([]string(nil), twoPhotos...), hub)
	if strings.Join(fx.vision.urls, ",") != strings.Join(wantURLs, ",") {
		t.Fatalf("model saw %v, want every stored photo plus the new one %v", fx.vision.urls, wantURLs)
	}
	if !strings.Contains(fx.vision.prompt, "1. front\n2. back_cover\n3. disc_hub") {
		t.Fatalf("unexpected prompt: %q", fx.vision.prompt)
	}
	if outcome.Result.Barcode != "5099902161724" {
		t.Fatalf("barcode from the stored back cover was lost: %q", outcome.Result.Barcode)
	}
	if len(outcome.Result.Candidates) == 0 {
		t.Fatal("expected scored candidates")
	}
	scored := false
	for _, candidate := range outcome.Result.Candidates {
		for _, reason := range candidate.Reasons {
			if strings.HasPrefix(reason, "barcode_match") {
				scored = true
			}
		}
	}
	if !scored {
		t.Fatalf("barcode not scored: %#v", outcome.Result.Candidates)
	}
}

func TestIdentifyReprocessCountsStoredImagesTowardMinimum(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	ctx := context.Background()
	fx.store.sessions["lonely"] = scan.Session{ID: "lonely", Status: scan.SessionNeedsMorePhotos}

	_, err := fx.id.Identify(ctx, Request{SessionID: "lonely", ImageURLs: []string{"https://img.example/front.jpg"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for one photo in total, got %v", err)
	}
	if fx.vision.calls != 0 || len(fx.store.images["lonely"]) != 0 {
		t.Fatal("a rejected reprocess must not store images or call the model")
	}
}

func TestIdentifySessionLoadFailureIsTransient(t *testing.T) {
	fx := newIdentifierFixture(t, pressedReply, pressedCatalog())
	fx.store.getErr = errors.New("database is locked")

	_, err := fx.id.Identify(context.Background(), Request{SessionID: "abc", ImageURLs: twoPhotos})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if errors.Is(err, services.ErrNotFound) {
		t.Fatalf("storage failure must not be reported as not found: %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"RADIOHEAD":        "Radiohead",
		"  OK   COMPUTER ": "Ok Computer",
		"dEUS":             "dEUS",
		"1999":             "1999",
	}
	for in, want := range cases {
		if got := displayName(in); got != want {
			t.Fatalf("displayName(%q) = %q, want %q", in, got, want)
		}
	}
}
