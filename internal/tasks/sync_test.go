package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	auratest "github.com/desertthunder/aura/internal/testing"
)

// memStore is an in-memory ProfileStore.
type memStore struct {
	mu        sync.Mutex
	bundles   map[string]*models.Bundle
	analyses  map[string]*models.Analysis
	snapshots map[string]*models.TrackSnapshot
	savedAt   map[string]time.Time

	saveDataErr error
}

func newMemStore() *memStore {
	return &memStore{
		bundles:   map[string]*models.Bundle{},
		analyses:  map[string]*models.Analysis{},
		snapshots: map[string]*models.TrackSnapshot{},
		savedAt:   map[string]time.Time{},
	}
}

func (m *memStore) SaveUserData(userID string, bundle *models.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveDataErr != nil {
		return m.saveDataErr
	}
	m.bundles[userID] = bundle
	m.savedAt[userID] = time.Now()
	return nil
}

func (m *memStore) SaveAnalysis(userID string, analysis *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[userID] = analysis
	return nil
}

func (m *memStore) SaveTrackSnapshot(userID string, snapshot *models.TrackSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[userID] = snapshot
	return nil
}

func (m *memStore) Summarize(userID string) (*models.DataSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bundle, ok := m.bundles[userID]
	if !ok {
		return nil, shared.ErrNoCachedData
	}
	summary := &models.DataSummary{
		UserID:      userID,
		SavedCount:  len(bundle.SavedTracks),
		Analysis:    m.analyses[userID],
		LastUpdated: m.savedAt[userID],
	}
	if bundle.Profile != nil {
		summary.Profile = *bundle.Profile
	}
	return summary, nil
}

func (m *memStore) IsFresh(userID string, maxAge time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.savedAt[userID]
	if !ok {
		return false, nil
	}
	return time.Since(at) <= maxAge, nil
}

func (m *memStore) Clear(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bundles, userID)
	delete(m.analyses, userID)
	delete(m.snapshots, userID)
	delete(m.savedAt, userID)
	return nil
}

func happyService() *auratest.MockService {
	return &auratest.MockService{
		ProfileFunc: func(ctx context.Context) (*models.UserProfile, error) {
			return &models.UserProfile{ID: "u1", DisplayName: "User"}, nil
		},
		SavedTracksFunc: func(ctx context.Context) ([]models.Track, error) {
			return []models.Track{{ID: "t1", Artists: []models.Artist{{ID: "a1"}}}}, nil
		},
	}
}

func TestProfileEngine(t *testing.T) {
	t.Run("Sync Persists And Summarizes", func(t *testing.T) {
		store := newMemStore()
		engine := NewProfileEngine(happyService(), store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		result, err := engine.Sync(context.Background(), "u1", false, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.State != StatePersisted {
			t.Errorf("expected persisted state, got %s", result.State)
		}
		if result.FromCache {
			t.Error("first sync should not come from cache")
		}
		if result.Summary == nil || result.Summary.SavedCount != 1 {
			t.Errorf("unexpected summary %+v", result.Summary)
		}
		if store.snapshots["u1"] == nil || len(store.snapshots["u1"].TrackIDs) != 1 {
			t.Errorf("expected track snapshot persisted, got %+v", store.snapshots["u1"])
		}
		if store.analyses["u1"] == nil {
			t.Error("expected analysis persisted")
		}
	})

	t.Run("Fresh Cache Short-Circuits With Zero API Calls", func(t *testing.T) {
		store := newMemStore()
		svc := happyService()
		engine := NewProfileEngine(svc, store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		if _, err := engine.Sync(context.Background(), "u1", false, nil); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		callsAfterFirst := svc.CallCount()

		result, err := engine.Sync(context.Background(), "u1", false, nil)
		if err != nil {
			t.Fatalf("second sync failed: %v", err)
		}
		if !result.FromCache {
			t.Error("expected cache hit")
		}
		if result.State != StatePersisted {
			t.Errorf("expected persisted state, got %s", result.State)
		}
		if svc.CallCount() != callsAfterFirst {
			t.Errorf("cache hit must make zero API calls, got %d extra", svc.CallCount()-callsAfterFirst)
		}
	})

	t.Run("Force Bypasses Freshness", func(t *testing.T) {
		store := newMemStore()
		svc := happyService()
		engine := NewProfileEngine(svc, store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		if _, err := engine.Sync(context.Background(), "u1", false, nil); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		callsAfterFirst := svc.CallCount()

		result, err := engine.Sync(context.Background(), "u1", true, nil)
		if err != nil {
			t.Fatalf("forced sync failed: %v", err)
		}
		if result.FromCache {
			t.Error("forced sync must not come from cache")
		}
		if svc.CallCount() == callsAfterFirst {
			t.Error("forced sync should hit the API again")
		}
	})

	t.Run("Sub-Resource Failure Still Persists", func(t *testing.T) {
		store := newMemStore()
		svc := happyService()
		svc.SavedTracksFunc = func(ctx context.Context) ([]models.Track, error) {
			return nil, errors.New("429 rate limited")
		}
		engine := NewProfileEngine(svc, store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		result, err := engine.Sync(context.Background(), "u1", false, nil)
		if err != nil {
			t.Fatalf("expected partial success, got %v", err)
		}
		if result.State != StatePersisted {
			t.Errorf("expected persisted state, got %s", result.State)
		}
		if len(result.Skipped) != 1 || result.Skipped[0].Resource != "savedTracks" {
			t.Errorf("expected savedTracks skip, got %+v", result.Skipped)
		}
		if store.bundles["u1"] == nil {
			t.Error("bundle should be cached despite the skip")
		}
	})

	t.Run("Profile Failure Fails The Run", func(t *testing.T) {
		store := newMemStore()
		svc := &auratest.MockService{
			ProfileFunc: func(ctx context.Context) (*models.UserProfile, error) {
				return nil, errors.New("boom")
			},
		}
		engine := NewProfileEngine(svc, store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		result, err := engine.Sync(context.Background(), "u1", false, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if result.State != StateFailed {
			t.Errorf("expected failed state, got %s", result.State)
		}
		if store.bundles["u1"] != nil {
			t.Error("nothing should be cached when the run fails")
		}
	})

	t.Run("Store Failure Fails The Run", func(t *testing.T) {
		store := newMemStore()
		store.saveDataErr = errors.New("disk full")
		engine := NewProfileEngine(happyService(), store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		result, err := engine.Sync(context.Background(), "u1", false, nil)
		if err == nil {
			t.Fatal("expected error when persistence fails")
		}
		if result.State != StateFailed {
			t.Errorf("expected failed state, got %s", result.State)
		}
	})

	t.Run("Empty User ID", func(t *testing.T) {
		engine := NewProfileEngine(happyService(), newMemStore(), nil, FetchOpts{}, time.Hour)

		if _, err := engine.Sync(context.Background(), "", false, nil); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Concurrent Syncs Are Single-Flight", func(t *testing.T) {
		store := newMemStore()
		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		var profileCalls int32

		svc := happyService()
		svc.ProfileFunc = func(ctx context.Context) (*models.UserProfile, error) {
			atomic.AddInt32(&profileCalls, 1)
			once.Do(func() { close(entered) })
			<-release
			return &models.UserProfile{ID: "u1"}, nil
		}

		engine := NewProfileEngine(svc, store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		type outcome struct {
			result *SyncResult
			err    error
		}
		first := make(chan outcome, 1)
		second := make(chan outcome, 1)

		go func() {
			res, err := engine.Sync(context.Background(), "u1", false, nil)
			first <- outcome{res, err}
		}()

		<-entered

		go func() {
			res, err := engine.Sync(context.Background(), "u1", false, nil)
			second <- outcome{res, err}
		}()

		// Give the joiner time to attach before releasing the fetch.
		time.Sleep(20 * time.Millisecond)
		close(release)

		a := <-first
		b := <-second
		if a.err != nil || b.err != nil {
			t.Fatalf("expected both calls to succeed, got %v / %v", a.err, b.err)
		}
		if a.result.RunID != b.result.RunID {
			t.Error("joined caller should receive the in-flight run's result")
		}
		if n := atomic.LoadInt32(&profileCalls); n != 1 {
			t.Errorf("expected 1 profile fetch for the joined pair, got %d", n)
		}
	})

	t.Run("Summary And Clear Delegate To Store", func(t *testing.T) {
		store := newMemStore()
		engine := NewProfileEngine(happyService(), store, nil, FetchOpts{RateLimit: 1000}, time.Hour)

		if _, err := engine.Summary("u1"); !errors.Is(err, shared.ErrNoCachedData) {
			t.Errorf("expected ErrNoCachedData before sync, got %v", err)
		}

		if _, err := engine.Sync(context.Background(), "u1", false, nil); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		summary, err := engine.Summary("u1")
		if err != nil {
			t.Fatalf("expected summary after sync, got %v", err)
		}
		if summary.UserID != "u1" {
			t.Errorf("unexpected summary %+v", summary)
		}

		if err := engine.Clear("u1"); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if _, err := engine.Summary("u1"); !errors.Is(err, shared.ErrNoCachedData) {
			t.Errorf("expected ErrNoCachedData after clear, got %v", err)
		}
	})
}
