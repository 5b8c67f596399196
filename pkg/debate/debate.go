// Package debate holds the debate data model, the format catalogue, prompt
// construction and the orchestrator that runs a debate round by round.
package debate

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"debatearena/pkg/rating"
)

var (
	// ErrParticipantCount is returned when a debate does not have exactly two participants.
	ErrParticipantCount = errors.New("debate requires exactly 2 participants")
	// ErrDuplicateModel is returned when both participants would use the same model.
	ErrDuplicateModel = errors.New("participants must use distinct models")
	// ErrUnknownFormat is returned for format keys missing from the catalogue.
	ErrUnknownFormat = errors.New("unknown debate format")
	// ErrNotDebater is returned for models without debate capability.
	ErrNotDebater = errors.New("model is not a debater")
	// ErrAlreadyRun is returned when a debate that has left the pending state is modified or rerun.
	ErrAlreadyRun = errors.New("debate has already been run")
	// ErrCancelled is returned when a run stops because its context ended.
	ErrCancelled = errors.New("debate cancelled")
	// ErrEmptyTopic is returned when creating a debate without a topic.
	ErrEmptyTopic = errors.New("debate topic is empty")
)

// Status is the lifecycle state of a debate.
type Status string

// Debate states.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Participant is one side of a debate.
type Participant struct {
	ModelID     string `json:"modelId"`
	Position    string `json:"position"`
	DisplayName string `json:"displayName"`
}

// Label returns "DisplayName (Position)".
func (p Participant) Label() string {
	return fmt.Sprintf("%s (%s)", p.DisplayName, p.Position)
}

// HistoryEntry records one turn.
type HistoryEntry struct {
	Round        int    `json:"round"`
	RoundName    string `json:"roundName"`
	ModelID      string `json:"modelId"`
	Position     string `json:"position"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
	Failed       bool   `json:"failed,omitempty"`
	PromptTokens int    `json:"promptTokens,omitempty"`
}

// JudgmentResult is a parsed verdict. A result with neither a winner nor a
// draw is inconclusive.
type JudgmentResult struct {
	Raw          string         `json:"raw"`
	IsDraw       bool           `json:"isDraw"`
	Winner       *Participant   `json:"winner,omitempty"`
	Loser        *Participant   `json:"loser,omitempty"`
	RatingUpdate *rating.Update `json:"ratingUpdate,omitempty"`
}

// Inconclusive reports whether the verdict named neither a winner nor a draw.
func (r JudgmentResult) Inconclusive() bool {
	return !r.IsDraw && r.Winner == nil
}

// Judgment is one judge's evaluation.
type Judgment struct {
	ID           string         `json:"id"`
	JudgeModelID string         `json:"judgeModelId"`
	Response     string         `json:"response"`
	Result       JudgmentResult `json:"result"`
	JudgedAt     time.Time      `json:"judgedAt"`
}

// JudgeVote summarizes one panel judge's choice.
type JudgeVote struct {
	JudgeModelID           string `json:"judgeModelId"`
	JudgeName              string `json:"judgeName"`
	SelectedWinner         string `json:"selectedWinner"`
	SelectedWinnerPosition string `json:"selectedWinnerPosition"`
}

// PanelResult aggregates the votes of a three-judge panel.
type PanelResult struct {
	Winner             Participant    `json:"winner"`
	Loser              Participant    `json:"loser"`
	VoteCount          map[string]int `json:"voteCount"`
	MajorityPercentage float64        `json:"majorityPercentage"`
	JudgeVotes         []JudgeVote    `json:"judgeVotes"`
	RatingUpdate       *rating.Update `json:"ratingUpdate,omitempty"`
	PredictionCorrect  *bool          `json:"predictionCorrect,omitempty"`
}

// WinningVotes returns the number of votes cast for the winner.
func (r PanelResult) WinningVotes() int {
	return r.VoteCount[r.Winner.ModelID]
}

// PanelJudgment is the full record of a panel evaluation.
type PanelJudgment struct {
	Judges      []Judgment  `json:"judges"`
	FinalResult PanelResult `json:"finalResult"`
}

// UserJudgment is a human's prediction of the winner.
type UserJudgment struct {
	Winner Participant `json:"winner"`
	Reason string      `json:"reason,omitempty"`
}

// Debate is the self-contained debate record.
type Debate struct {
	ID            string         `json:"id"`
	Topic         string         `json:"topic"`
	Format        Format         `json:"format"`
	Participants  []Participant  `json:"participants"`
	History       []HistoryEntry `json:"history"`
	CurrentRound  int            `json:"currentRound"`
	Completed     bool           `json:"completed"`
	Status        Status         `json:"status"`
	Judgment      *Judgment      `json:"judgment,omitempty"`
	PanelJudgment *PanelJudgment `json:"panelJudgment,omitempty"`
	UserJudgment  *UserJudgment  `json:"userJudgment,omitempty"`
}

// ParticipantIndex returns the index of the participant using modelID, or -1.
func (d *Debate) ParticipantIndex(modelID string) int {
	for i := range d.Participants {
		if d.Participants[i].ModelID == modelID {
			return i
		}
	}
	return -1
}

// RoundEntries returns the history entries of round i in turn order.
func (d *Debate) RoundEntries(i int) []HistoryEntry {
	var out []HistoryEntry
	for _, h := range d.History {
		if h.Round == i {
			out = append(out, h)
		}
	}
	return out
}

// CreatedAt derives the creation time from the millisecond id.
func (d *Debate) CreatedAt() (time.Time, error) {
	ms, err := strconv.ParseInt(d.ID, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("debate id %q is not a timestamp: %w", d.ID, err)
	}
	return time.UnixMilli(ms), nil
}

// ParticipantSummary is the listing view of a participant.
type ParticipantSummary struct {
	Position string `json:"position"`
	Model    string `json:"model"`
}

// Summary is the listing view of a debate.
type Summary struct {
	ID           string               `json:"id"`
	Topic        string               `json:"topic"`
	Format       string               `json:"format"`
	Participants []ParticipantSummary `json:"participants"`
	Rounds       int                  `json:"rounds"`
	Completed    bool                 `json:"completed"`
	Status       Status               `json:"status"`
}

// Summary returns the listing view of d.
func (d *Debate) Summary() Summary {
	s := Summary{
		ID:           d.ID,
		Topic:        d.Topic,
		Format:       d.Format.Name,
		Participants: make([]ParticipantSummary, 0, len(d.Participants)),
		Rounds:       len(d.Format.Rounds),
		Completed:    d.Completed,
		Status:       d.Status,
	}
	for _, p := range d.Participants {
		s.Participants = append(s.Participants, ParticipantSummary{Position: p.Position, Model: p.DisplayName})
	}
	return s
}

// idGenerator hands out millisecond-timestamp ids that never repeat within a process.
type idGenerator struct {
	mu   sync.Mutex
	last int64
}

//nolint:gochecknoglobals // Process-wide id sequence
var ids idGenerator

func (g *idGenerator) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// NewID returns a fresh debate id.
func NewID() string {
	return ids.next(time.Now())
}
