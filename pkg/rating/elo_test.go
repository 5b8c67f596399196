package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that copies on every load and save.
type memStore struct {
	mu      sync.Mutex
	ratings map[string]int
	saves   int
	saveErr error
}

func (m *memStore) GetEloRatings(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.ratings))
	for k, v := range m.ratings {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveEloRatings(_ context.Context, ratings map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.ratings = make(map[string]int, len(ratings))
	for k, v := range ratings {
		m.ratings[k] = v
	}
	return nil
}

func TestExpectedScore(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-9)
	assert.InDelta(t, 1.0, ExpectedScore(1900, 1500)+ExpectedScore(1500, 1900), 1e-9)
	assert.InDelta(t, 0.909, ExpectedScore(1900, 1500), 0.001)
}

func TestUpdateRatingsFreshModels(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store)

	update, err := engine.UpdateRatings(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, &Change{ID: "a", OldRating: 1500, NewRating: 1516, Change: 16}, update.Winner)
	assert.Equal(t, &Change{ID: "b", OldRating: 1500, NewRating: 1484, Change: -16}, update.Loser)
	assert.False(t, update.IsDraw())
	assert.Equal(t, 3000, store.ratings["a"]+store.ratings["b"])
	assert.Equal(t, 1, store.saves)
}

func TestUpdateRatingsUsesPreUpdateRatings(t *testing.T) {
	store := &memStore{ratings: map[string]int{"strong": 1700, "weak": 1300}}
	engine := NewEngine(store)

	update, err := engine.UpdateRatings(context.Background(), "weak", "strong")
	require.NoError(t, err)

	// E(weak) = 1/(1+10^(400/400)) = 1/11
	assert.Equal(t, 29, update.Winner.Change)
	assert.Equal(t, 1329, update.Winner.NewRating)
	assert.Equal(t, 1671, update.Loser.NewRating)
}

func TestUpdateRatingsWithDrawEqualRatings(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store)

	update, err := engine.UpdateRatingsWithDraw(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, update.IsDraw())
	assert.Equal(t, 0, update.Model1.Change)
	assert.Equal(t, 0, update.Model2.Change)
	assert.Equal(t, map[string]int{"a": 1500, "b": 1500}, store.ratings)
}

func TestUpdateRatingsWithDrawUnequal(t *testing.T) {
	store := &memStore{ratings: map[string]int{"a": 1600, "b": 1400}}
	engine := NewEngine(store)

	update, err := engine.UpdateRatingsWithDraw(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Less(t, update.Model1.Change, 0)
	assert.Greater(t, update.Model2.Change, 0)
	assert.Equal(t, -update.Model1.Change, update.Model2.Change)
}

func TestWinThenLossIsSymmetric(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store)
	ctx := context.Background()

	first, err := engine.UpdateRatings(ctx, "a", "b")
	require.NoError(t, err)
	second, err := engine.UpdateRatings(ctx, "b", "a")
	require.NoError(t, err)

	assert.Equal(t, -first.Winner.Change, first.Loser.Change)
	assert.Equal(t, -second.Winner.Change, second.Loser.Change)
	assert.Equal(t, 3000, store.ratings["a"]+store.ratings["b"])
}

func TestUpdateRatingsRejectsSameModel(t *testing.T) {
	engine := NewEngine(&memStore{})
	_, err := engine.UpdateRatings(context.Background(), "a", "a")
	assert.True(t, errors.Is(err, ErrSameModel))
	_, err = engine.UpdateRatingsWithDraw(context.Background(), "a", "a")
	assert.True(t, errors.Is(err, ErrSameModel))
}

func TestUpdateRatingsSaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	engine := NewEngine(store)

	_, err := engine.UpdateRatings(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save ratings")
	assert.Empty(t, store.ratings)
}

func TestGetRankings(t *testing.T) {
	store := &memStore{ratings: map[string]int{"low": 1400, "high": 1600, "mid-b": 1500, "mid-a": 1500}}
	engine := NewEngine(store)

	rankings, err := engine.GetRankings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Ranking{
		{ID: "high", Rating: 1600},
		{ID: "mid-a", Rating: 1500},
		{ID: "mid-b", Rating: 1500},
		{ID: "low", Rating: 1400},
	}, rankings)
}

func TestRatingDefaultsWithoutMaterializing(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store)

	r, err := engine.Rating(context.Background(), "new-model")
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, r)
	assert.Empty(t, store.ratings)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.UpdateRatingsWithDraw(ctx, fmt.Sprintf("m%d", i), "anchor")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.ratings, 21)
	assert.Equal(t, 20, store.saves)
}

func TestOptions(t *testing.T) {
	store := &memStore{}
	engine := NewEngine(store, WithKFactor(16), WithDefaultRating(1000))

	update, err := engine.UpdateRatings(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1008, update.Winner.NewRating)
	assert.Equal(t, 992, update.Loser.NewRating)
}
