package judge

import (
	"errors"
	"fmt"
)

var (
	// ErrDebateNotFound is returned when the debate id has no stored record.
	ErrDebateNotFound = errors.New("debate not found")
	// ErrDebateNotCompleted is returned for debates that have not finished every round.
	ErrDebateNotCompleted = errors.New("debate not completed")
	// ErrPanelSize is returned unless exactly three distinct judges are named.
	ErrPanelSize = errors.New("panel needs exactly 3 distinct judges")
	// ErrPanelTie is returned when no participant has strictly more votes.
	ErrPanelTie = errors.New("panel vote has no majority")
	// ErrInvalidPrediction is returned for a user prediction naming neither participant.
	ErrInvalidPrediction = errors.New("prediction must name participant A or B")
)

// InvalidJudgeError reports a model that is unknown or not judge-capable.
type InvalidJudgeError struct {
	ModelID string
	Err     error
}

func (e *InvalidJudgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s is not a valid judge: %v", e.ModelID, e.Err)
	}
	return fmt.Sprintf("model %s is not a valid judge", e.ModelID)
}

func (e *InvalidJudgeError) Unwrap() error { return e.Err }

// IndecisiveJudgeError reports a panel judge whose response named no winner.
type IndecisiveJudgeError struct {
	JudgeModelID string
	JudgeName    string
}

func (e *IndecisiveJudgeError) Error() string {
	return fmt.Sprintf("judge %s failed to select a definitive winner", e.JudgeName)
}
