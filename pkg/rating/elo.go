// Package rating implements ELO skill ratings for debate participants.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"debatearena/pkg/logx"
)

const (
	// DefaultRating is assigned to a model the first time it is rated.
	DefaultRating = 1500
	// KFactor bounds how far a single result moves a rating.
	KFactor = 32
)

// ErrSameModel is returned when both sides of an update are the same model.
var ErrSameModel = errors.New("rating update needs two distinct models")

// Store persists the rating table as a whole document.
type Store interface {
	GetEloRatings(ctx context.Context) (map[string]int, error)
	SaveEloRatings(ctx context.Context, ratings map[string]int) error
}

// Change describes one model's rating movement.
type Change struct {
	ID        string `json:"id"`
	OldRating int    `json:"oldRating"`
	NewRating int    `json:"newRating"`
	Change    int    `json:"change"`
}

// Update is the result of one rated outcome. Decisive results fill Winner and
// Loser; draws fill Model1 and Model2.
type Update struct {
	Winner *Change `json:"winner,omitempty"`
	Loser  *Change `json:"loser,omitempty"`
	Model1 *Change `json:"model1,omitempty"`
	Model2 *Change `json:"model2,omitempty"`
}

// IsDraw reports whether the update came from a drawn result.
func (u *Update) IsDraw() bool {
	return u != nil && u.Model1 != nil
}

// Ranking is one row of the leaderboard.
type Ranking struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
}

// Engine applies ELO updates against a Store. Each update is a single
// load, mutate, flush sequence serialized by the engine's mutex.
type Engine struct {
	store         Store
	logger        *logx.Logger
	kFactor       float64
	defaultRating int

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithKFactor overrides the K factor.
func WithKFactor(k float64) Option {
	return func(e *Engine) { e.kFactor = k }
}

// WithDefaultRating overrides the starting rating.
func WithDefaultRating(r int) Option {
	return func(e *Engine) { e.defaultRating = r }
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a rating engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		logger:        logx.NewLogger("rating"),
		kFactor:       KFactor,
		defaultRating: DefaultRating,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExpectedScore returns the expected score of a player rated a against one rated b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// roundHalfUp rounds to the nearest integer, halves toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func (e *Engine) next(r int, actual, expected float64) int {
	return roundHalfUp(float64(r) + e.kFactor*(actual-expected))
}

// UpdateRatings records a decisive result. Both new ratings are computed from
// the pre-update ratings.
func (e *Engine) UpdateRatings(ctx context.Context, winnerID, loserID string) (*Update, error) {
	if winnerID == loserID {
		return nil, fmt.Errorf("%w: %s", ErrSameModel, winnerID)
	}

	var update *Update
	err := e.transact(ctx, func(ratings map[string]int) {
		w := e.ensure(ratings, winnerID)
		l := e.ensure(ratings, loserID)

		ratings[winnerID] = e.next(w, 1, ExpectedScore(w, l))
		ratings[loserID] = e.next(l, 0, ExpectedScore(l, w))

		update = &Update{
			Winner: change(winnerID, w, ratings[winnerID]),
			Loser:  change(loserID, l, ratings[loserID]),
		}
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Rated %s over %s: %d -> %d, %d -> %d", winnerID, loserID,
		update.Winner.OldRating, update.Winner.NewRating, update.Loser.OldRating, update.Loser.NewRating)
	return update, nil
}

// UpdateRatingsWithDraw records a drawn result.
func (e *Engine) UpdateRatingsWithDraw(ctx context.Context, modelID1, modelID2 string) (*Update, error) {
	if modelID1 == modelID2 {
		return nil, fmt.Errorf("%w: %s", ErrSameModel, modelID1)
	}

	var update *Update
	err := e.transact(ctx, func(ratings map[string]int) {
		r1 := e.ensure(ratings, modelID1)
		r2 := e.ensure(ratings, modelID2)

		ratings[modelID1] = e.next(r1, 0.5, ExpectedScore(r1, r2))
		ratings[modelID2] = e.next(r2, 0.5, ExpectedScore(r2, r1))

		update = &Update{
			Model1: change(modelID1, r1, ratings[modelID1]),
			Model2: change(modelID2, r2, ratings[modelID2]),
		}
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Rated draw between %s and %s: %+d, %+d", modelID1, modelID2, update.Model1.Change, update.Model2.Change)
	return update, nil
}

// GetRankings returns every rated model, highest rating first. Equal ratings
// are ordered by id.
func (e *Engine) GetRankings(ctx context.Context) ([]Ranking, error) {
	e.mu.Lock()
	ratings, err := e.store.GetEloRatings(ctx)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	rankings := make([]Ranking, 0, len(ratings))
	for id, r := range ratings {
		rankings = append(rankings, Ranking{ID: id, Rating: r})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Rating != rankings[j].Rating {
			return rankings[i].Rating > rankings[j].Rating
		}
		return rankings[i].ID < rankings[j].ID
	})
	return rankings, nil
}

// Rating returns the current rating of modelID, or the default when it has
// never been rated. Reading does not materialize an entry.
func (e *Engine) Rating(ctx context.Context, modelID string) (int, error) {
	e.mu.Lock()
	ratings, err := e.store.GetEloRatings(ctx)
	e.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}
	if r, ok := ratings[modelID]; ok {
		return r, nil
	}
	return e.defaultRating, nil
}

func (e *Engine) transact(ctx context.Context, mutate func(map[string]int)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ratings, err := e.store.GetEloRatings(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	if ratings == nil {
		ratings = make(map[string]int)
	}

	mutate(ratings)

	if err := e.store.SaveEloRatings(ctx, ratings); err != nil {
		return fmt.Errorf("save ratings: %w", err)
	}
	return nil
}

func (e *Engine) ensure(ratings map[string]int, id string) int {
	r, ok := ratings[id]
	if !ok {
		r = e.defaultRating
		ratings[id] = r
	}
	return r
}

func change(id string, before, after int) *Change {
	return &Change{ID: id, OldRating: before, NewRating: after, Change: after - before}
}
