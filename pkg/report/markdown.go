// Package report renders debate records for export.
package report

import (
	"fmt"
	"strings"

	"debatearena/pkg/debate"
)

// DisplayNameFunc resolves a judge model id to a human-readable name.
type DisplayNameFunc func(modelID string) string

// Markdown renders d as a Markdown document: header, participants, the
// transcript by round, then any user prediction and the panel verdict (or,
// without one, the single-judge verdict). A nil displayName prints model ids.
func Markdown(d *debate.Debate, displayName DisplayNameFunc) string {
	if displayName == nil {
		displayName = func(id string) string { return id }
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Debate: %s\n\n", d.Topic)
	fmt.Fprintf(&sb, "- **Format**: %s\n", d.Format.Name)
	date := "unknown"
	if created, err := d.CreatedAt(); err == nil {
		date = created.UTC().Format("2006-01-02")
	}
	fmt.Fprintf(&sb, "- **Date**: %s\n", date)
	if d.Status == debate.StatusCancelled {
		sb.WriteString("- **Status**: cancelled before completion\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Participants\n\n")
	for _, p := range d.Participants {
		fmt.Fprintf(&sb, "- **%s**: %s\n", p.Position, p.DisplayName)
	}

	sb.WriteString("\n## Transcript\n\n")
	writeTranscript(&sb, d)

	if u := d.UserJudgment; u != nil {
		sb.WriteString("## User Judgment\n\n")
		fmt.Fprintf(&sb, "User selected: **%s (%s)**\n\n", u.Winner.DisplayName, u.Winner.Position)
		if u.Reason != "" {
			fmt.Fprintf(&sb, "Reasoning: %s\n\n", u.Reason)
		}
	}

	switch {
	case d.PanelJudgment != nil:
		writePanel(&sb, d.PanelJudgment, displayName)
	case d.Judgment != nil:
		writeJudgment(&sb, d.Judgment, displayName)
	}
	return sb.String()
}

func writeTranscript(sb *strings.Builder, d *debate.Debate) {
	for i, round := range d.Format.Rounds {
		entries := d.RoundEntries(i)
		if len(entries) == 0 {
			break
		}
		fmt.Fprintf(sb, "### Round %d: %s\n\n", i+1, round.Name)
		for _, entry := range entries {
			name := entry.ModelID
			if idx := d.ParticipantIndex(entry.ModelID); idx >= 0 {
				name = d.Participants[idx].DisplayName
			}
			fmt.Fprintf(sb, "#### %s (%s)\n\n", name, entry.Position)
			fmt.Fprintf(sb, "%s\n\n", entry.Response)
		}
	}
}

func writePanel(sb *strings.Builder, pj *debate.PanelJudgment, displayName DisplayNameFunc) {
	final := pj.FinalResult
	sb.WriteString("## Panel Judgment\n\n")
	fmt.Fprintf(sb, "**Winner**: %s (%s)\n\n", final.Winner.DisplayName, final.Winner.Position)
	fmt.Fprintf(sb, "Vote count: %d out of %d votes\n", final.WinningVotes(), len(pj.Judges))
	fmt.Fprintf(sb, "Majority percentage: %.2f%%\n\n", final.MajorityPercentage)

	sb.WriteString("### Individual Judge Votes\n\n")
	for i, vote := range final.JudgeVotes {
		fmt.Fprintf(sb, "- Judge %d (%s): voted for %s (%s)\n", i+1, vote.JudgeName, vote.SelectedWinner, vote.SelectedWinnerPosition)
	}

	sb.WriteString("\n### Detailed Judgments\n\n")
	for i, j := range pj.Judges {
		fmt.Fprintf(sb, "#### Judge %d: %s\n\n", i+1, displayName(j.JudgeModelID))
		fmt.Fprintf(sb, "%s\n\n", j.Response)
	}
}

func writeJudgment(sb *strings.Builder, j *debate.Judgment, displayName DisplayNameFunc) {
	sb.WriteString("## Judgment\n\n")
	fmt.Fprintf(sb, "Judged by: **%s**\n\n", displayName(j.JudgeModelID))

	switch {
	case j.Result.Winner != nil:
		fmt.Fprintf(sb, "**Winner**: %s (%s)\n\n", j.Result.Winner.DisplayName, j.Result.Winner.Position)
	case j.Result.IsDraw:
		sb.WriteString("**Result**: Draw\n\n")
	}

	sb.WriteString("### Full Evaluation\n\n")
	sb.WriteString(j.Response)
}
