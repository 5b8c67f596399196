// Package judge evaluates completed debates with one judge model or a panel of
// three, and feeds decisive outcomes to the rating engine.
package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"debatearena/pkg/config"
	"debatearena/pkg/debate"
	"debatearena/pkg/dispatch"
	"debatearena/pkg/llm/middleware/metrics"
	"debatearena/pkg/logx"
	"debatearena/pkg/persistence"
	"debatearena/pkg/rating"
)

// PanelSize is the number of judges on a panel.
const PanelSize = 3

// Judgment kinds and outcomes reported to the metrics recorder.
const (
	kindSingle = "single"
	kindPanel  = "panel"

	outcomeDecisive     = "decisive"
	outcomeDraw         = "draw"
	outcomeInconclusive = "inconclusive"
	outcomeIndecisive   = "indecisive"
)

// Dispatcher is the part of the dispatch layer the engine uses.
type Dispatcher interface {
	GenerateResponse(ctx context.Context, modelID, prompt string, opts dispatch.Options) (string, error)
	GetModelInfo(modelID string) (config.ModelInfo, error)
}

// Store loads and saves debate records.
type Store interface {
	LoadDebate(ctx context.Context, id string) (*debate.Debate, error)
	SaveDebate(ctx context.Context, d *debate.Debate) error
}

// Engine runs judgments.
type Engine struct {
	dispatcher Dispatcher
	store      Store
	ratings    *rating.Engine
	parser     VerdictParser
	rateDraws  bool
	maxTokens  int
	recorder   metrics.Recorder
	logger     *logx.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithParser replaces the keyword verdict parser.
func WithParser(p VerdictParser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithRateDraws makes single-judge draws update ratings.
func WithRateDraws(enabled bool) Option {
	return func(e *Engine) { e.rateDraws = enabled }
}

// WithMaxTokens sets the judge response budget.
func WithMaxTokens(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a judgment engine.
func NewEngine(dispatcher Dispatcher, store Store, ratings *rating.Engine, opts ...Option) *Engine {
	e := &Engine{
		dispatcher: dispatcher,
		store:      store,
		ratings:    ratings,
		parser:     NewKeywordParser(),
		maxTokens:  config.DefaultJudgingMaxTokens,
		recorder:   metrics.Nop(),
		logger:     logx.NewLogger("judge"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loadCompleted returns the debate if it exists and finished every round.
func (e *Engine) loadCompleted(ctx context.Context, debateID string) (*debate.Debate, error) {
	d, err := e.store.LoadDebate(ctx, debateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDebateNotFound, debateID)
		}
		return nil, fmt.Errorf("load debate %s: %w", debateID, err)
	}
	if !d.Completed || len(d.Participants) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrDebateNotCompleted, debateID)
	}
	return d, nil
}

func (e *Engine) judgeInfo(modelID string) (config.ModelInfo, error) {
	info, err := e.dispatcher.GetModelInfo(modelID)
	if err != nil {
		return config.ModelInfo{}, &InvalidJudgeError{ModelID: modelID, Err: err}
	}
	if !info.Judge {
		return config.ModelInfo{}, &InvalidJudgeError{ModelID: modelID}
	}
	return info, nil
}

// JudgeDebate has one judge evaluate a completed debate. A draw updates
// ratings only when draw rating is enabled; an inconclusive verdict never does.
// The judgment replaces any earlier single-judge judgment and is saved.
func (e *Engine) JudgeDebate(ctx context.Context, debateID, judgeModelID string) (*debate.Judgment, error) {
	d, err := e.loadCompleted(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if _, err := e.judgeInfo(judgeModelID); err != nil {
		return nil, err
	}

	e.logger.Info("Judging debate %s with %s", d.ID, judgeModelID)
	response, err := e.dispatcher.GenerateResponse(ctx, judgeModelID, BuildPrompt(d, false), dispatch.Options{
		SystemPrompt: SingleJudgeSystemPrompt,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("judge %s: %w", judgeModelID, err)
	}

	verdict := e.parser.Parse(response, d.Participants)
	result := debate.JudgmentResult{Raw: response}
	outcome := outcomeInconclusive

	switch {
	case verdict.Draw:
		result.IsDraw = true
		outcome = outcomeDraw
		if e.rateDraws {
			update, err := e.ratings.UpdateRatingsWithDraw(ctx, d.Participants[0].ModelID, d.Participants[1].ModelID)
			if err != nil {
				return nil, fmt.Errorf("rate draw: %w", err)
			}
			result.RatingUpdate = update
		}
	case verdict.Winner != nil:
		result.Winner, result.Loser = verdict.Winner, verdict.Loser
		outcome = outcomeDecisive
		update, err := e.ratings.UpdateRatings(ctx, verdict.Winner.ModelID, verdict.Loser.ModelID)
		if err != nil {
			return nil, fmt.Errorf("rate result: %w", err)
		}
		result.RatingUpdate = update
	default:
		e.logger.Warn("Judge %s gave no clear verdict for debate %s", judgeModelID, d.ID)
	}

	d.Judgment = &debate.Judgment{
		ID:           uuid.NewString(),
		JudgeModelID: judgeModelID,
		Response:     response,
		Result:       result,
		JudgedAt:     e.now().UTC(),
	}
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return nil, fmt.Errorf("save judgment for %s: %w", d.ID, err)
	}
	e.recorder.IncJudgment(kindSingle, outcome)
	e.logger.Info("Debate %s judged by %s: %s", d.ID, judgeModelID, outcome)
	return d.Judgment, nil
}

// JudgeWithPanel has three distinct judges evaluate a completed debate. Every
// judge must name a winner; the participant with the most votes wins and the
// rating engine is called once for the aggregate result.
func (e *Engine) JudgeWithPanel(ctx context.Context, debateID string, judgeIDs []string, progress func(string)) (*debate.PanelJudgment, error) {
	if err := checkPanel(judgeIDs); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string) {}
	}

	d, err := e.loadCompleted(ctx, debateID)
	if err != nil {
		return nil, err
	}

	infos := make([]config.ModelInfo, len(judgeIDs))
	for i, id := range judgeIDs {
		if infos[i], err = e.judgeInfo(id); err != nil {
			return nil, err
		}
	}

	prompt := BuildPrompt(d, true)
	judgments := make([]debate.Judgment, 0, len(judgeIDs))
	for i, id := range judgeIDs {
		progress(fmt.Sprintf("Judge %d/%d (%s) is evaluating...", i+1, len(judgeIDs), infos[i].DisplayName))

		response, err := e.dispatcher.GenerateResponse(ctx, id, prompt, dispatch.Options{
			SystemPrompt: PanelJudgeSystemPrompt,
			MaxTokens:    e.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("panel judge %s: %w", id, err)
		}

		verdict := e.parser.Parse(response, d.Participants)
		if verdict.Winner == nil {
			e.recorder.IncJudgment(kindPanel, outcomeIndecisive)
			return nil, &IndecisiveJudgeError{JudgeModelID: id, JudgeName: infos[i].DisplayName}
		}
		logx.Debug(ctx, "judge", "panel judge %s picked %s", id, verdict.Winner.ModelID)

		judgments = append(judgments, debate.Judgment{
			ID:           uuid.NewString(),
			JudgeModelID: id,
			Response:     response,
			Result: debate.JudgmentResult{
				Raw:    response,
				Winner: verdict.Winner,
				Loser:  verdict.Loser,
			},
			JudgedAt: e.now().UTC(),
		})
	}

	final, err := aggregate(d, judgments, infos)
	if err != nil {
		return nil, err
	}

	update, err := e.ratings.UpdateRatings(ctx, final.Winner.ModelID, final.Loser.ModelID)
	if err != nil {
		return nil, fmt.Errorf("rate panel result: %w", err)
	}
	final.RatingUpdate = update
	final.PredictionCorrect = predictionCorrect(d.UserJudgment, final.Winner)

	d.PanelJudgment = &debate.PanelJudgment{Judges: judgments, FinalResult: final}
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return nil, fmt.Errorf("save panel judgment for %s: %w", d.ID, err)
	}
	e.recorder.IncJudgment(kindPanel, outcomeDecisive)
	e.logger.Info("Panel picked %s in debate %s with %d of %d votes", final.Winner.ModelID, d.ID, final.WinningVotes(), len(judgments))
	return d.PanelJudgment, nil
}

func checkPanel(judgeIDs []string) error {
	if len(judgeIDs) != PanelSize {
		return fmt.Errorf("%w: got %d", ErrPanelSize, len(judgeIDs))
	}
	seen := make(map[string]bool, len(judgeIDs))
	for _, id := range judgeIDs {
		if seen[id] {
			return fmt.Errorf("%w: %s named twice", ErrPanelSize, id)
		}
		seen[id] = true
	}
	return nil
}

// aggregate counts one vote per judge. A winner needs strictly more votes than the other side.
func aggregate(d *debate.Debate, judgments []debate.Judgment, infos []config.ModelInfo) (debate.PanelResult, error) {
	votes := make(map[string]int, 2)
	judgeVotes := make([]debate.JudgeVote, 0, len(judgments))
	for i, j := range judgments {
		w := j.Result.Winner
		votes[w.ModelID]++
		judgeVotes = append(judgeVotes, debate.JudgeVote{
			JudgeModelID:           j.JudgeModelID,
			JudgeName:              infos[i].DisplayName,
			SelectedWinner:         w.DisplayName,
			SelectedWinnerPosition: w.Position,
		})
	}

	a, b := d.Participants[0], d.Participants[1]
	var winner, loser debate.Participant
	switch {
	case votes[a.ModelID] > votes[b.ModelID]:
		winner, loser = a, b
	case votes[b.ModelID] > votes[a.ModelID]:
		winner, loser = b, a
	default:
		return debate.PanelResult{}, fmt.Errorf("%w: %d-%d", ErrPanelTie, votes[a.ModelID], votes[b.ModelID])
	}

	return debate.PanelResult{
		Winner:             winner,
		Loser:              loser,
		VoteCount:          votes,
		MajorityPercentage: float64(votes[winner.ModelID]) / float64(len(judgments)) * 100,
		JudgeVotes:         judgeVotes,
	}, nil
}

func predictionCorrect(u *debate.UserJudgment, winner debate.Participant) *bool {
	if u == nil {
		return nil
	}
	correct := u.Winner.ModelID == winner.ModelID
	return &correct
}

// RecordUserJudgment stores a human prediction that participant winnerIndex
// (0 for A, 1 for B) wins. If a panel verdict already exists its
// PredictionCorrect flag is refreshed.
func (e *Engine) RecordUserJudgment(ctx context.Context, debateID string, winnerIndex int, reason string) (*debate.UserJudgment, error) {
	d, err := e.store.LoadDebate(ctx, debateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDebateNotFound, debateID)
		}
		return nil, fmt.Errorf("load debate %s: %w", debateID, err)
	}
	if winnerIndex < 0 || winnerIndex >= len(d.Participants) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidPrediction, winnerIndex)
	}

	d.UserJudgment = &debate.UserJudgment{Winner: d.Participants[winnerIndex], Reason: reason}
	if d.PanelJudgment != nil {
		d.PanelJudgment.FinalResult.PredictionCorrect = predictionCorrect(d.UserJudgment, d.PanelJudgment.FinalResult.Winner)
	}
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return nil, fmt.Errorf("save prediction for %s: %w", d.ID, err)
	}
	return d.UserJudgment, nil
}
