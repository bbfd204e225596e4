package identification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"musicscan/internal/discogs"
	"musicscan/internal/scan"
	"musicscan/internal/services"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newAudit() *scan.AuditLog { return scan.NewAuditLog(fixedClock) }

func strPtr(v string) *string { return &v }

func present(field scan.Field, value string) scan.Extraction {
	return scan.Extraction{Field: field, RawValue: value, NormalizedValue: strPtr(value), Confidence: 0.9}
}

func hasStep(entries []scan.AuditEntry, step string) bool {
	for _, entry := range entries {
		if entry.Step == step {
			return true
		}
	}
	return false
}

type stubVision struct {
	reply  string
	err    error
	calls  int
	urls   []string
	prompt string
}

func (s *stubVision) CompleteVisionJSON(_ context.Context, _, userPrompt string, urls []string) (string, error) {
	s.calls++
	s.urls = append([]string(nil), urls...)
	s.prompt = userPrompt
	return s.reply, s.err
}

func (s *stubVision) Model() string { return "stub-vision" }

type stubCatalog struct {
	byBarcode  map[string][]discogs.SearchResult
	byCatNo    map[string][]discogs.SearchResult
	byQuery    []discogs.SearchResult
	failOn     map[string]error
	releases   map[int64]discogs.Release
	releaseErr error

	searches     []discogs.SearchParams
	releaseCalls int
}

func (s *stubCatalog) Search(_ context.Context, params discogs.SearchParams) (*discogs.SearchResponse, error) {
	s.searches = append(s.searches, params)
	switch {
	case params.Barcode != "":
		if err := s.failOn["barcode"]; err != nil {
			return nil, err
		}
		return &discogs.SearchResponse{Results: s.byBarcode[params.Barcode]}, nil
	case params.CatNo != "":
		if err := s.failOn["catno"]; err != nil {
			return nil, err
		}
		return &discogs.SearchResponse{Results: s.byCatNo[params.CatNo]}, nil
	default:
		if err := s.failOn["query"]; err != nil {
			return nil, err
		}
		return &discogs.SearchResponse{Results: s.byQuery}, nil
	}
}

func (s *stubCatalog) GetRelease(_ context.Context, releaseID int64) (*discogs.Release, error) {
	s.releaseCalls++
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	release, ok := s.releases[releaseID]
	if !ok {
		return nil, fmt.Errorf("release %d not found", releaseID)
	}
	return &release, nil
}

// countingPolicy records how many calls went through the rate limiter.
type countingPolicy struct {
	before, after int
}

func (p *countingPolicy) Before(context.Context) error { p.before++; return nil }
func (p *countingPolicy) After(context.Context) error  { p.after++; return nil }

var errSessionMissing = fmt.Errorf("%w: session", services.ErrNotFound)

type memStore struct {
	mu          sync.Mutex
	sessions    map[string]scan.Session
	images      map[string][]scan.Image
	extractions map[string][]scan.Extraction
	results     map[string]scan.Result
	upserts     int
	getErr      error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:    make(map[string]scan.Session),
		images:      make(map[string][]scan.Image),
		extractions: make(map[string][]scan.Extraction),
		results:     make(map[string]scan.Result),
	}
}

func (m *memStore) CreateSession(_ context.Context, session scan.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (scan.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return scan.Session{}, m.getErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return scan.Session{}, errSessionMissing
	}
	return session, nil
}

func (m *memStore) UpdateSessionStatus(_ context.Context, id string, status scan.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return errSessionMissing
	}
	session.Status = status
	m.sessions[id] = session
	return nil
}

func (m *memStore) AddImages(_ context.Context, sessionID string, urls []string, kinds []scan.ImageKind) ([]scan.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset := len(m.images[sessionID])
	added := make([]scan.Image, len(urls))
	for i, url := range urls {
		kind := scan.KindForPosition(offset + i)
		if kinds != nil {
			kind = kinds[i]
		}
		added[i] = scan.Image{SessionID: sessionID, Position: offset + i, URL: url, Kind: kind}
	}
	m.images[sessionID] = append(m.images[sessionID], added...)
	return added, nil
}

func (m *memStore) ListImages(_ context.Context, sessionID string) ([]scan.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scan.Image(nil), m.images[sessionID]...), nil
}

func (m *memStore) ReplaceExtractions(_ context.Context, sessionID string, extractions []scan.Extraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractions[sessionID] = append([]scan.Extraction(nil), extractions...)
	return nil
}

func (m *memStore) UpsertResult(_ context.Context, result scan.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.SessionID] = result
	m.upserts++
	return nil
}

func (m *memStore) sessionIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
