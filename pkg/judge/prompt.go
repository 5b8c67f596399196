package judge

import (
	"fmt"
	"strings"

	"debatearena/pkg/debate"
)

// Criterion is one weighted line of the judging rubric.
type Criterion struct {
	Name        string
	Description string
	Percent     int
}

// Criteria is the rubric shown to every judge.
//
//nolint:gochecknoglobals // Static rubric
var Criteria = []Criterion{
	{"Argument Quality", "Strength, clarity, and logical soundness of the arguments presented", 35},
	{"Evidence Use", "Appropriate and effective use of evidence, data, and examples", 25},
	{"Rebuttal Effectiveness", "Success in addressing and countering opponent's arguments", 25},
	{"Presentation", "Clarity, persuasiveness, and overall quality of communication", 15},
}

// System prompts for single judges and panel members.
const (
	SingleJudgeSystemPrompt = "You are an expert debate judge. Carefully evaluate the arguments of both sides according to the provided criteria. Be fair, impartial, and detailed in your analysis. Make sure to provide a clear winner based on the better arguments."
	PanelJudgeSystemPrompt  = "You are an expert debate judge. Carefully evaluate the arguments of both sides according to the provided criteria. Be fair, impartial, and detailed in your analysis. You MUST select a winner - no ties or draws allowed."
)

// participantLetter labels participants A and B by their order in the debate.
func participantLetter(i int) string {
	if i == 0 {
		return "A"
	}
	return "B"
}

// BuildPrompt renders the evaluation request for d. Panel prompts forbid
// draws and ask for an explicit "The winner is" line.
func BuildPrompt(d *debate.Debate, panel bool) string {
	var sb strings.Builder
	sb.WriteString("# Debate Evaluation\n\n")
	fmt.Fprintf(&sb, "## Topic: \"%s\"\n\n", d.Topic)

	sb.WriteString("## Participants:\n")
	for i, p := range d.Participants {
		fmt.Fprintf(&sb, "- Participant %s (%s): %s\n", participantLetter(i), p.Position, p.DisplayName)
	}
	sb.WriteString("\n")

	sb.WriteString("## Evaluation Criteria:\n")
	for _, c := range Criteria {
		fmt.Fprintf(&sb, "- %s (%d%%): %s\n", c.Name, c.Percent, c.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("## Debate Transcript:\n\n")
	for i, round := range d.Format.Rounds {
		entries := d.RoundEntries(i)
		if len(entries) == 0 {
			break
		}
		fmt.Fprintf(&sb, "### Round %d: %s\n\n", i+1, round.Name)
		for _, entry := range entries {
			fmt.Fprintf(&sb, "#### Participant %s (%s):\n\n", participantLetter(d.ParticipantIndex(entry.ModelID)), entry.Position)
			fmt.Fprintf(&sb, "%s\n\n", entry.Response)
		}
	}

	steps := []string{
		"Evaluate both participants according to the provided criteria.",
		"Score each participant on each criterion on a scale of 1-10.",
		"For each criterion, explain your reasoning for the scores.",
		"Calculate weighted total scores based on criteria weights.",
	}
	if panel {
		steps = append(steps,
			"You MUST select a winner. Ties or draws are NOT permitted. If scores are very close, analyze deeper aspects to determine superiority.",
			`Clearly state your decision with "The winner is [Participant Name] ([Position])" at the end of your evaluation.`,
		)
	} else {
		steps = append(steps, "Determine a winner based on the higher total score, or declare a draw if scores are within 0.5 points.")
	}
	steps = append(steps,
		"Provide a summary of the key strengths and weaknesses of each participant.",
		"Format your response with clear sections and a final verdict.",
	)

	sb.WriteString("## Judging Instructions:\n\n")
	for i, step := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	sb.WriteString("\nBegin your evaluation now:")
	return sb.String()
}
