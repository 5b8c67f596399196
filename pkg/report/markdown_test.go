package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"debatearena/pkg/debate"
)

func sampleDebate() *debate.Debate {
	format, _ := debate.LookupFormat("SHORT")
	pro := debate.Participant{ModelID: "alpha", Position: "Pro", DisplayName: "Alpha"}
	con := debate.Participant{ModelID: "beta", Position: "Con", DisplayName: "Beta"}
	return &debate.Debate{
		ID:           "1700000000000",
		Topic:        "Higher education should be free for all citizens",
		Format:       format,
		Participants: []debate.Participant{pro, con},
		History: []debate.HistoryEntry{
			{Round: 0, ModelID: "alpha", Position: "Pro", Response: "alpha opening"},
			{Round: 0, ModelID: "beta", Position: "Con", Response: "beta opening"},
			{Round: 1, ModelID: "alpha", Position: "Pro", Response: "alpha closing"},
			{Round: 1, ModelID: "beta", Position: "Con", Response: "beta closing"},
		},
		Completed: true,
		Status:    debate.StatusCompleted,
	}
}

func names(id string) string {
	return map[string]string{"j1": "Judge One", "j2": "Judge Two", "j3": "Judge Three"}[id]
}

func TestMarkdownHeaderAndTranscript(t *testing.T) {
	md := Markdown(sampleDebate(), names)

	assert.True(t, strings.HasPrefix(md, "# Debate: Higher education should be free for all citizens\n\n- **Format**: Short Debate\n- **Date**: 2023-11-14\n\n"))
	assert.Contains(t, md, "## Participants\n\n- **Pro**: Alpha\n- **Con**: Beta\n\n## Transcript\n\n")
	assert.Contains(t, md, "### Round 1: Opening Statement\n\n#### Alpha (Pro)\n\nalpha opening\n\n#### Beta (Con)\n\nbeta opening\n\n")
	assert.Contains(t, md, "### Round 2: Closing Statement\n\n")
	assert.NotContains(t, md, "## Judgment")
	assert.NotContains(t, md, "Status")
}

func TestMarkdownSingleJudgment(t *testing.T) {
	d := sampleDebate()
	d.Judgment = &debate.Judgment{
		JudgeModelID: "j1",
		Response:     "The winner is Pro.",
		Result:       debate.JudgmentResult{Winner: &d.Participants[0], Loser: &d.Participants[1]},
	}

	md := Markdown(d, names)
	assert.True(t, strings.HasSuffix(md, "## Judgment\n\nJudged by: **Judge One**\n\n**Winner**: Alpha (Pro)\n\n### Full Evaluation\n\nThe winner is Pro."))

	d.Judgment.Result = debate.JudgmentResult{IsDraw: true}
	assert.Contains(t, Markdown(d, names), "**Result**: Draw\n\n")
}

func TestMarkdownPanelTakesPrecedence(t *testing.T) {
	d := sampleDebate()
	d.Judgment = &debate.Judgment{JudgeModelID: "j1", Response: "old single verdict"}
	d.UserJudgment = &debate.UserJudgment{Winner: d.Participants[1], Reason: "better evidence"}
	d.PanelJudgment = &debate.PanelJudgment{
		Judges: []debate.Judgment{
			{JudgeModelID: "j1", Response: "first"},
			{JudgeModelID: "j2", Response: "second"},
			{JudgeModelID: "j3", Response: "third"},
		},
		FinalResult: debate.PanelResult{
			Winner:             d.Participants[0],
			Loser:              d.Participants[1],
			VoteCount:          map[string]int{"alpha": 2, "beta": 1},
			MajorityPercentage: 200.0 / 3,
			JudgeVotes: []debate.JudgeVote{
				{JudgeName: "Judge One", SelectedWinner: "Alpha", SelectedWinnerPosition: "Pro"},
				{JudgeName: "Judge Two", SelectedWinner: "Alpha", SelectedWinnerPosition: "Pro"},
				{JudgeName: "Judge Three", SelectedWinner: "Beta", SelectedWinnerPosition: "Con"},
			},
		},
	}

	md := Markdown(d, names)
	assert.Contains(t, md, "## User Judgment\n\nUser selected: **Beta (Con)**\n\nReasoning: better evidence\n\n")
	assert.Contains(t, md, "## Panel Judgment\n\n**Winner**: Alpha (Pro)\n\nVote count: 2 out of 3 votes\nMajority percentage: 66.67%\n\n")
	assert.Contains(t, md, "- Judge 3 (Judge Three): voted for Beta (Con)\n")
	assert.Contains(t, md, "#### Judge 2: Judge Two\n\nsecond\n\n")
	assert.NotContains(t, md, "old single verdict")
}

func TestMarkdownPartialDebate(t *testing.T) {
	d := sampleDebate()
	d.ID = "not-a-timestamp"
	d.History = d.History[:1]
	d.Completed = false
	d.Status = debate.StatusCancelled

	md := Markdown(d, nil)
	assert.Contains(t, md, "- **Date**: unknown\n- **Status**: cancelled before completion\n")
	assert.Contains(t, md, "### Round 1: Opening Statement")
	assert.NotContains(t, md, "### Round 2")
}
