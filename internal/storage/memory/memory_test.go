package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-advisor/internal/domain"
	"stock-advisor/internal/storage"
)

func TestWatchlistReplaceOrdersAndOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewWatchlistStore()

	require.NoError(t, store.Replace(ctx, "c1", []domain.WatchlistItem{
		{Symbol: "CCC", Group: "tech", SortIndex: 1},
		{Symbol: "AAA", Group: "energy", SortIndex: 0},
		{Symbol: "BBB", Group: "tech", SortIndex: 0},
	}))

	items, err := store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "AAA", items[0].Symbol)
	assert.Equal(t, "BBB", items[1].Symbol)
	assert.Equal(t, "CCC", items[2].Symbol)
	for _, item := range items {
		assert.Equal(t, "c1", item.ClientID, "client id must be forced")
	}

	// A second replace is a full swap, not a merge.
	require.NoError(t, store.Replace(ctx, "c1", []domain.WatchlistItem{{Symbol: "DDD"}}))
	items, err = store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "DDD", items[0].Symbol)
}

func TestWatchlistReplaceEmptyClears(t *testing.T) {
	ctx := context.Background()
	store := NewWatchlistStore()

	require.NoError(t, store.Replace(ctx, "c1", []domain.WatchlistItem{{Symbol: "AAA"}}))
	require.NoError(t, store.Replace(ctx, "c1", nil))

	items, err := store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, items)

	ids, err := store.ClientIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "a cleared client must not be listed")
}

func TestWatchlistRejectsEmptyClientID(t *testing.T) {
	err := NewWatchlistStore().Replace(context.Background(), "", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestWatchlistClientIDsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewWatchlistStore()
	for _, id := range []string{"zulu", "alpha", "mike"} {
		require.NoError(t, store.Replace(ctx, id, []domain.WatchlistItem{{Symbol: "AAA"}}))
	}

	ids, err := store.ClientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, ids)
}

func TestPreferenceUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewPreferenceStore()

	_, err := store.GetByClient(ctx, "c1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Upsert(ctx, domain.Preferences{
		ClientID:    "c1",
		Locale:      "zh",
		RiskProfile: domain.ProfileAggressive,
	}))

	prefs, err := store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileAggressive, prefs.RiskProfile)
	assert.False(t, prefs.UpdatedAt.IsZero(), "upsert must stamp updated_at")

	require.NoError(t, store.Upsert(ctx, domain.Preferences{
		ClientID:    "c1",
		RiskProfile: domain.ProfileConservative,
	}))
	prefs, err = store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileConservative, prefs.RiskProfile)
}

func TestPreferenceGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewPreferenceStore()
	require.NoError(t, store.Upsert(ctx, domain.Preferences{ClientID: "c1", Locale: "zh"}))

	first, err := store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	first.Locale = "en"

	second, err := store.GetByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "zh", second.Locale, "caller mutation must not leak into the store")
}

func testRec(id, clientID, symbol string, createdAt time.Time) *domain.Recommendation {
	return &domain.Recommendation{
		ID:          id,
		ClientID:    clientID,
		Symbol:      symbol,
		CreatedAt:   createdAt,
		Action:      domain.ActionBuy,
		CooldownKey: symbol + ":buy",
	}
}

func TestRecommendationInsertAndGetLast(t *testing.T) {
	ctx := context.Background()
	store := NewRecommendationStore()
	now := time.Now().UTC()

	_, err := store.GetLast(ctx, "c1", "AAA")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, testRec("r1", "c1", "AAA", now.Add(-2*time.Hour))))
	require.NoError(t, store.Insert(ctx, testRec("r2", "c1", "AAA", now.Add(-1*time.Hour))))
	require.NoError(t, store.Insert(ctx, testRec("r3", "c1", "BBB", now)))

	last, err := store.GetLast(ctx, "c1", "AAA")
	require.NoError(t, err)
	assert.Equal(t, "r2", last.ID)

	err = store.Insert(ctx, testRec("r1", "c1", "AAA", now))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRecommendationInsertValidates(t *testing.T) {
	ctx := context.Background()
	store := NewRecommendationStore()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Recommendation{ClientID: "c1", Symbol: "AAA"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Recommendation{ID: "r1", Symbol: "AAA"}), storage.ErrInvalidInput)
}

func TestRecommendationListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewRecommendationStore()
	now := time.Now().UTC()

	for i, id := range []string{"r1", "r2", "r3", "r4"} {
		require.NoError(t, store.Insert(ctx, testRec(id, "c1", "AAA", now.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, store.Insert(ctx, testRec("other", "c2", "AAA", now)))

	recs, err := store.List(ctx, "c1", 3, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "r4", recs[0].ID)
	assert.Equal(t, "r3", recs[1].ID)
	assert.Equal(t, "r2", recs[2].ID)

	// Pagination by created_at: strictly before the cursor.
	cursor := now.Add(2 * time.Minute)
	recs, err = store.List(ctx, "c1", 10, &cursor)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "r2", recs[0].ID)
	assert.Equal(t, "r1", recs[1].ID)
}

func TestFeedbackInsert(t *testing.T) {
	ctx := context.Background()
	recs := NewRecommendationStore()
	store := NewFeedbackStore(recs)

	require.NoError(t, recs.Insert(ctx, &domain.Recommendation{
		ID: "r1", ClientID: "c1", Symbol: "AAPL",
		CreatedAt: time.Now().UTC(), Action: domain.ActionBuy,
	}))

	fb := &domain.Feedback{ID: "f1", ClientID: "c1", RecommendationID: "r1", Helpful: true}
	require.NoError(t, store.Insert(ctx, fb))

	assert.ErrorIs(t, store.Insert(ctx, fb), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Feedback{ID: "f2"}), storage.ErrInvalidInput)

	// Feedback on a recommendation that was never stored is rejected.
	assert.ErrorIs(t, store.Insert(ctx, &domain.Feedback{
		ID: "f3", ClientID: "c1", RecommendationID: "ghost",
	}), storage.ErrInvalidInput)
}
