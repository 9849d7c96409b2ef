package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbet/ingestion/internal/cache"
	"matchbet/ingestion/internal/client"
	"matchbet/ingestion/internal/models"
	"matchbet/ingestion/internal/rating"
	"matchbet/ingestion/internal/reconciler"
	"matchbet/ingestion/internal/repository/repotest"
	"matchbet/ingestion/internal/scrape"
)

type fakeFetcher struct {
	tokens []string
	err    error
	calls  int
}

func (f *fakeFetcher) FetchTokens(ctx context.Context) ([]string, error) {
	f.calls++
	return f.tokens, f.err
}

type fakeCache struct {
	held      bool
	lockErr   error
	acquired  int
	released  []string
	snapshots []cache.Snapshot
}

func (c *fakeCache) AcquireLock(ctx context.Context, ttl time.Duration) (string, error) {
	if c.lockErr != nil {
		return "", c.lockErr
	}
	if c.held {
		return "", cache.ErrLockHeld
	}
	c.acquired++
	return "token", nil
}

func (c *fakeCache) ReleaseLock(ctx context.Context, token string) error {
	c.released = append(c.released, token)
	return nil
}

func (c *fakeCache) SaveSnapshot(ctx context.Context, snap cache.Snapshot, ttl time.Duration) error {
	c.snapshots = append(c.snapshots, snap)
	return nil
}

type storeTeams struct {
	store *repotest.Store
}

func (s storeTeams) List(ctx context.Context) ([]*models.Team, error) {
	var teams []*models.Team
	for _, acronym := range []string{"T1", "BLG", "GEN"} {
		if t, ok := s.store.Team(acronym); ok {
			teams = append(teams, &t)
		}
	}
	return teams, nil
}

var bracket = []string{
	// Final, already played
	"T1", "3", "0", "19 November 2023, 08:00:00 +00:00", scrape.Marker + "BLG",
	// Upcoming
	"GEN", "20 November 2023, 08:00:00 +00:00", scrape.Marker + "T1",
	// Slot not decided yet
	"TBD", "26 November 2023, 08:00:00 +00:00", scrape.Marker + "TBD",
	// Team missing from the roster
	"WBG", "21 November 2023, 08:00:00 +00:00", scrape.Marker + "XYZ",
	// Broken row
	"GEN", "2", scrape.Marker + "BLG",
}

func newTestService(t *testing.T, fetcher Fetcher, opts Options) (*Service, *repotest.Store) {
	t.Helper()

	engine, err := rating.NewEngine(rating.DefaultConfig())
	require.NoError(t, err)

	store := repotest.NewStore()
	store.AddTeam("T1", "T1", 5)
	store.AddTeam("Bilibili Gaming", "BLG", 8)
	store.AddTeam("Gen.G", "GEN", 3)
	store.AddTeam("Weibo Gaming", "WBG", 10)

	rec := reconciler.New(store, engine, reconciler.DefaultOptions())
	normalizer := scrape.NewNormalizer(time.FixedZone("UTC+8", 8*3600))
	return NewService(fetcher, normalizer, rec, opts), store
}

func TestService_Run(t *testing.T) {
	fetcher := &fakeFetcher{tokens: bracket}
	c := &fakeCache{}
	svc, store := newTestService(t, fetcher, Options{Cache: c, Source: "test"})
	svc.opts.Teams = storeTeams{store: store}

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconciler.Summary{
		Created:     2,
		Updated:     1,
		Malformed:   2,
		UnknownTeam: 1,
	}, summary)

	assert.Equal(t, 1, c.acquired)
	assert.Equal(t, []string{"token"}, c.released)
	require.Len(t, c.snapshots, 1)
	assert.Equal(t, bracket, c.snapshots[0].Tokens)
	assert.Equal(t, "test", c.snapshots[0].Source)

	assert.Equal(t, 2, store.MatchCount())
	t1, _ := store.Team("T1")
	assert.Equal(t, 4.9636, t1.CurrentPR)

	// Second pass over the same page changes nothing
	summary, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 2, summary.Unchanged)

	t1Again, _ := store.Team("T1")
	assert.Equal(t, t1, t1Again)
}

func TestService_SourceUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{err: client.ErrSourceUnavailable}
	c := &fakeCache{}
	svc, store := newTestService(t, fetcher, Options{Cache: c})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrSourceUnavailable))
	assert.Equal(t, 0, store.MatchCount())
	assert.Equal(t, 0, store.Writes)
	assert.Empty(t, c.snapshots)
	assert.Len(t, c.released, 1, "Lock is released on failure")
}

func TestService_LockHeld(t *testing.T) {
	fetcher := &fakeFetcher{tokens: bracket}
	svc, store := newTestService(t, fetcher, Options{Cache: &fakeCache{held: true}})

	_, err := svc.Run(context.Background())
	assert.True(t, errors.Is(err, ErrRunInProgress))
	assert.Equal(t, 0, fetcher.calls, "A locked-out run must not fetch")
	assert.Equal(t, 0, store.MatchCount())
}

func TestService_CacheUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{tokens: bracket}
	c := &fakeCache{lockErr: errors.New("connection refused")}
	svc, _ := newTestService(t, fetcher, Options{Cache: c})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err, "Runs continue without the lock when the cache is down")
	assert.Equal(t, 2, summary.Created)
	assert.Empty(t, c.released)
}

func TestService_WithoutCache(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{tokens: bracket}, Options{})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Skipped())
}

func TestService_ConcurrentRunInProcess(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{tokens: bracket}, Options{})

	svc.mu.Lock()
	_, err := svc.Run(context.Background())
	svc.mu.Unlock()

	assert.True(t, errors.Is(err, ErrRunInProgress))
}

func TestService_CancelledContext(t *testing.T) {
	svc, store := newTestService(t, &fakeFetcher{tokens: bracket}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, store.MatchCount())
}
