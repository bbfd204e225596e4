package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"musicscan/internal/config"
	"musicscan/internal/scan"
	"musicscan/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession creates a processing session for tests.
func NewSession(t testing.TB, st *store.Store, userID string) scan.Session {
	t.Helper()

	now := time.Now().UTC()
	session := scan.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaType: scan.MediaCD,
		Status:    scan.SessionProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}
