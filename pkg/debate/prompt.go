package debate

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the turn prompt for participant p in round roundIdx:
// the topic and position, every earlier round with p's own statement before
// the opponent's, then the instruction for the current round type.
func BuildPrompt(d *Debate, p Participant, roundIdx int) string {
	round := d.Format.Rounds[roundIdx]

	var sb strings.Builder
	fmt.Fprintf(&sb, "DEBATE TOPIC: %s\n\n", d.Topic)
	fmt.Fprintf(&sb, "Your position: %s\n\n", p.Position)

	if roundIdx > 0 {
		sb.WriteString("Previous rounds:\n\n")
		for i := 0; i < roundIdx; i++ {
			fmt.Fprintf(&sb, "=== %s ===\n\n", d.Format.Rounds[i].Name)

			var own, opponent *HistoryEntry
			entries := d.RoundEntries(i)
			for j := range entries {
				if entries[j].ModelID == p.ModelID {
					if own == nil {
						own = &entries[j]
					}
				} else if opponent == nil {
					opponent = &entries[j]
				}
			}
			if own != nil {
				fmt.Fprintf(&sb, "Your statement:\n%s\n\n", own.Response)
			}
			if opponent != nil {
				fmt.Fprintf(&sb, "Opponent's statement:\n%s\n\n", opponent.Response)
			}
		}
	}

	fmt.Fprintf(&sb, "=== %s ===\n\n", round.Name)
	sb.WriteString(roundInstruction(round.Type, p.Position, d.Topic))
	return sb.String()
}

func roundInstruction(t RoundType, position, topic string) string {
	switch t {
	case RoundOpening:
		return fmt.Sprintf("Present your initial arguments for the %s position on the topic \"%s\". Provide clear reasoning and evidence to support your position.", position, topic)
	case RoundRebuttal:
		return "Address and counter the arguments made by your opponent in their previous statement. Identify weaknesses in their reasoning and strengthen your own position."
	case RoundCounterRebuttal:
		return "Respond to your opponent's rebuttals and defend your original arguments. Address any criticisms they made and reinforce the strength of your position."
	case RoundClosing:
		return "Provide a compelling conclusion to the debate. Summarize your key arguments, address the most important points of contention, and explain why your position is ultimately stronger."
	default:
		return fmt.Sprintf("Present your arguments for the %s position on the topic \"%s\".", position, topic)
	}
}

// SystemPrompt frames the turn for p and appends the format's style directive, if any.
func SystemPrompt(d *Debate, p Participant, roundIdx int) string {
	base := fmt.Sprintf("You are participating in a formal debate. The topic is: \"%s\". Your position is: %s. This is the %s round.",
		d.Topic, p.Position, d.Format.Rounds[roundIdx].Name)
	if directive := StyleDirective(d.Format.Style); directive != "" {
		return base + " " + directive
	}
	return base
}
